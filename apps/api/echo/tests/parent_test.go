package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/paku/core/participant"
	"github.com/trezcool/paku/core/report"
	"github.com/trezcool/paku/core/user"
	"github.com/trezcool/paku/tests"
)

func Test_parentApi_registerChild(t *testing.T) {
	db.Reset()

	parent := testutil.CreateUser(t, usrRepo, "Parent", "parent@test.cd", "", []string{user.RoleParent}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	testutil.CreateParticipant(t, participantRepo, conf, parent.ID, "Ami", "1234", participant.SkillBasicVisual, true)
	token := userToken(t, parent)

	child := func(name, pin, details string) []byte {
		return marchallObj(t, participant.NewParticipant{Name: name, PIN: pin, SensoryDetails: details})
	}

	tests := []httpTest{
		{name: "Auth required", body: child("Bob", "4321", "noise"), wantCode: http.StatusUnauthorized},
		{name: "Parent required", body: child("Bob", "4321", "noise"), token: userToken(t, admin), wantCode: http.StatusForbidden},
		{name: "missing fields", body: []byte(`{}`), token: token, wantCode: http.StatusBadRequest,
			wantData: []byte(`{"name":"this field is required","pin":"this field is required","sensory_details":"this field is required"}`)},
		{name: "bad pin", body: child("Bob", "43210", "noise"), token: token, wantCode: http.StatusBadRequest,
			wantData: []byte(`{"pin":"PIN must be exactly 4 digits"}`)},
		{name: "pin taken", body: child("Bob", "1234", "noise"), token: token, wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "This PIN is already in use. Please choose a different PIN."})},
		{name: "register", body: child(" Bob<script>x</script> ", "4321", "Loud <i>noises</i>"), token: token, wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/parent/participants"

		t.Run(tt.name, func(t *testing.T) {
			rec := serve(tt)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusCreated {
				var p participant.Participant
				decode(t, rec, &p)
				assert.Equal(t, "Bob", p.Name)
				assert.Equal(t, "Loud noises", p.SensoryDetails)
				assert.Equal(t, parent.ID, p.ParentID)
				assert.Equal(t, participant.SkillPending, p.SkillLevel)
				assert.False(t, p.IsActive)
			}
		})
	}
}

func Test_parentApi_children(t *testing.T) {
	db.Reset()

	parent := testutil.CreateUser(t, usrRepo, "Parent", "parent@test.cd", "", []string{user.RoleParent}, true)
	other := testutil.CreateUser(t, usrRepo, "Other", "other@test.cd", "", []string{user.RoleParent}, true)
	ami := testutil.CreateParticipant(t, participantRepo, conf, parent.ID, "Ami", "1234", participant.SkillBasicVisual, true)
	bob := testutil.CreateParticipant(t, participantRepo, conf, parent.ID, "Bob", "4321", participant.SkillPending, false)
	zed := testutil.CreateParticipant(t, participantRepo, conf, other.ID, "Zed", "9999", participant.SkillBasicVisual, true)

	runTests(t, []httpTest{
		{name: "list own children", path: "/parent/participants", token: userToken(t, parent), wantData: resultsOf(marchallList(t, ami, bob))},
		{name: "list (other parent)", path: "/parent/participants", token: userToken(t, other), wantData: resultsOf(marchallList(t, zed))},
		{name: "report of another parent's child", path: "/parent/participants/" + zed.ID + "/report", token: userToken(t, parent),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "participant not found"})},
		{name: "report of unknown child", path: "/parent/participants/lol/report", token: userToken(t, parent), wantCode: http.StatusNotFound},
		{name: "empty report", path: "/parent/participants/" + bob.ID + "/report", token: userToken(t, parent),
			wantData: marchallObj(t, report.ParentReport{Participant: bob, History: []report.AssignmentRow{}})},
	})

	rec := serve(httpTest{method: http.MethodGet, path: "/parent/participants/" + ami.ID + "/report", token: userToken(t, parent)})
	require.Equal(t, http.StatusOK, rec.Code)
}
