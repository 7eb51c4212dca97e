package tests

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/paku/apps/api/echo"
	"github.com/trezcool/paku/core"
	"github.com/trezcool/paku/core/assignment"
	"github.com/trezcool/paku/core/auth"
	"github.com/trezcool/paku/core/participant"
	"github.com/trezcool/paku/core/report"
	"github.com/trezcool/paku/core/task"
	"github.com/trezcool/paku/core/user"
	"github.com/trezcool/paku/tests"
)

func Test_adminApi_createAssignments(t *testing.T) {
	db.Reset()

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	parent := testutil.CreateUser(t, usrRepo, "Parent", "parent@test.cd", "", []string{user.RoleParent}, true)
	ami := testutil.CreateParticipant(t, participantRepo, conf, parent.ID, "Ami", "1234", participant.SkillBasicVisual, true)
	bob := testutil.CreateParticipant(t, participantRepo, conf, parent.ID, "Bob", "4321", participant.SkillBasicVisual, true)
	cat := testutil.CreateParticipant(t, participantRepo, conf, parent.ID, "Cat", "1111", participant.SkillBasicVisual, true)
	brush := testutil.CreateTask(t, taskRepo, admin.ID, "Brush Teeth", participant.SkillBasicVisual, "Wet brush", "Brush", "Rinse")
	testutil.CreateAssignment(t, assignmentRepo, cat.ID, brush.ID, admin.ID, assignment.StatusCompleted)

	body := func(taskID string, pids ...string) []byte {
		return marchallObj(t, CreateAssignmentsRequest{TaskID: taskID, ParticipantIDs: pids})
	}
	adminToken := userToken(t, admin)
	unknownID := "4f1e7d9a-5a43-4d5c-9b59-0c1f3e1b7a10"

	tests := []httpTest{
		{name: "Auth required", body: body(brush.ID, ami.ID), wantCode: http.StatusUnauthorized},
		{name: "Admin required", body: body(brush.ID, ami.ID), token: userToken(t, parent), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden(core.RoleAdmin))},
		{name: "no participants", body: body(brush.ID), token: adminToken, wantCode: http.StatusBadRequest},
		{name: "unknown task", body: body(unknownID, ami.ID), token: adminToken, wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "task not found"})},
		{name: "unknown participant", body: body(brush.ID, ami.ID, unknownID), token: adminToken, wantCode: http.StatusBadRequest,
			wantData: []byte(`{"participantIds":"unknown participants: ` + unknownID + `"}`)},
		{name: "assign", body: body(brush.ID, ami.ID, bob.ID, ami.ID, cat.ID), token: adminToken, wantCode: http.StatusCreated,
			wantData: marchallObj(t, assignment.CreateResult{Assigned: 3, Skipped: 1})},
		{name: "re-assign", body: body(brush.ID, ami.ID, bob.ID), token: adminToken, wantCode: http.StatusCreated,
			wantData: marchallObj(t, assignment.CreateResult{Assigned: 0, Skipped: 2})},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/admin/assignments"

		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, serve(tt))
		})
	}

	asgmts, err := assignmentRepo.QueryAssignments(context.Background(), &assignment.QueryFilter{TaskID: brush.ID})
	require.NoError(t, err)
	assert.Len(t, asgmts, 4) // cat's completed one + 3 new
}

func Test_adminApi_updateStatus(t *testing.T) {
	db.Reset()

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	parent := testutil.CreateUser(t, usrRepo, "Parent", "parent@test.cd", "", []string{user.RoleParent}, true)
	ami := testutil.CreateParticipant(t, participantRepo, conf, parent.ID, "Ami", "1234", participant.SkillBasicVisual, true)
	brush := testutil.CreateTask(t, taskRepo, admin.ID, "Brush Teeth", participant.SkillBasicVisual, "Wet brush", "Brush", "Rinse")
	asgmt := testutil.CreateAssignment(t, assignmentRepo, ami.ID, brush.ID, admin.ID, assignment.StatusCompleted)

	actor := admin.Actor("admin-session")
	adminToken := getToken(t, actor)

	// the csrf token is bound to the session
	rec := serve(httpTest{method: http.MethodGet, path: "/admin/csrf-token", token: adminToken})
	require.Equal(t, http.StatusOK, rec.Code)
	var csrf CSRFTokenResponse
	decode(t, rec, &csrf)
	assert.Equal(t, auth.CSRFToken(conf.SecretKey, actor.SessionID), csrf.Token)

	body := func(id, status, token string) []byte {
		return marchallObj(t, UpdateStatusRequest{AssignmentID: id, NewStatus: status, CSRFToken: token})
	}
	badCSRF := marchallObj(t, httpErr{Error: "permission denied: invalid CSRF token"})
	otherSession := auth.CSRFToken(conf.SecretKey, "another-session")

	tests := []httpTest{
		{name: "Admin required", body: body(asgmt.ID, "Pending", csrf.Token), token: participantToken(t, ami), wantCode: http.StatusForbidden},
		{name: "no csrf token", body: body(asgmt.ID, "Pending", ""), token: adminToken, wantCode: http.StatusForbidden, wantData: badCSRF},
		{name: "csrf token of another session", body: body(asgmt.ID, "Pending", otherSession), token: adminToken, wantCode: http.StatusForbidden, wantData: badCSRF},
		{name: "bad status", body: body(asgmt.ID, "pending", csrf.Token), token: adminToken, wantCode: http.StatusBadRequest,
			wantData: []byte(`{"newStatus":"must be one of: Pending, In Progress, Completed, Canceled"}`)},
		{name: "unknown assignment", body: body("4f1e7d9a-5a43-4d5c-9b59-0c1f3e1b7a10", "Pending", csrf.Token), token: adminToken, wantCode: http.StatusNotFound},
		{name: "reopen", body: body(asgmt.ID, "In Progress", csrf.Token), token: adminToken},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/admin/assignments/status"
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, serve(tt))
		})
	}

	a, err := assignmentRepo.GetAssignment(context.Background(), asgmt.ID)
	require.NoError(t, err)
	assert.Equal(t, assignment.StatusInProgress, a.Status)
}

func Test_adminApi_tasks(t *testing.T) {
	db.Reset()

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	adminToken := userToken(t, admin)

	newTask := task.NewTask{
		Name:          "Brush <b>Teeth</b>",
		Description:   "Morning routine",
		RequiredSkill: string(participant.SkillBasicVisual),
		Steps: []task.NewStep{
			{Instruction: "Rinse"},
			{StepNumber: 2, Instruction: "Brush"},
			{Instruction: "   "},
			{StepNumber: 1, Instruction: "Wet brush", ImagePath: "img/wet.png"},
		},
	}

	runTests(t, []httpTest{
		{name: "no steps", method: http.MethodPost, path: "/admin/tasks", token: adminToken, wantCode: http.StatusBadRequest,
			body: marchallObj(t, task.NewTask{Name: "Empty", RequiredSkill: string(participant.SkillBasicVisual)})},
		{name: "bad skill", method: http.MethodPost, path: "/admin/tasks", token: adminToken, wantCode: http.StatusBadRequest,
			body: marchallObj(t, task.NewTask{Name: "Empty", RequiredSkill: "Level 9", Steps: []task.NewStep{{Instruction: "a"}}})},
		{name: "duplicate step numbers", method: http.MethodPost, path: "/admin/tasks", token: adminToken, wantCode: http.StatusBadRequest,
			body: marchallObj(t, task.NewTask{Name: "Dup", RequiredSkill: string(participant.SkillBasicVisual), Steps: []task.NewStep{
				{StepNumber: 1, Instruction: "a"}, {StepNumber: 1, Instruction: "b"},
			}})},
	})

	rec := serve(httpTest{method: http.MethodPost, path: "/admin/tasks", token: adminToken, body: marchallObj(t, newTask)})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created task.Task
	decode(t, rec, &created)
	assert.Equal(t, "Brush Teeth", created.Name)
	assert.Equal(t, admin.ID, created.AdminID)

	rec = serve(httpTest{method: http.MethodGet, path: "/admin/tasks/" + created.ID, token: adminToken})
	require.Equal(t, http.StatusOK, rec.Code)
	var got task.Task
	decode(t, rec, &got)
	require.Len(t, got.Steps, 3)
	assert.Equal(t, []string{"Wet brush", "Brush", "Rinse"}, []string{got.Steps[0].Instruction, got.Steps[1].Instruction, got.Steps[2].Instruction})
	assert.Equal(t, []int{1, 2, 3}, []int{got.Steps[0].StepNumber, got.Steps[1].StepNumber, got.Steps[2].StepNumber})

	rec = serve(httpTest{method: http.MethodGet, path: "/admin/tasks", token: adminToken})
	require.Equal(t, http.StatusOK, rec.Code)
	var list TasksListResponse
	decode(t, rec, &list)
	require.Len(t, list.Results, 1)
	assert.Empty(t, list.Results[0].Steps)

	runTests(t, []httpTest{
		{name: "unknown task", path: "/admin/tasks/4f1e7d9a-5a43-4d5c-9b59-0c1f3e1b7a10", token: adminToken, wantCode: http.StatusNotFound},
	})
}

func Test_adminApi_participants(t *testing.T) {
	db.Reset()

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	parent := testutil.CreateUser(t, usrRepo, "Parent", "parent@test.cd", "", []string{user.RoleParent}, true)
	ami := testutil.CreateParticipant(t, participantRepo, conf, parent.ID, "Ami", "1234", participant.SkillBasicVisual, true)
	newbie := testutil.CreateParticipant(t, participantRepo, conf, parent.ID, "Newbie", "2222", participant.SkillPending, false)
	adminToken := userToken(t, admin)

	path := func(skill, active string) string {
		v := make(url.Values)
		if skill != "" {
			v.Set("skill", skill)
		}
		if active != "" {
			v.Set("active", active)
		}
		return "/admin/participants?" + v.Encode()
	}

	runTests(t, []httpTest{
		{name: "Admin required", path: path("", ""), token: userToken(t, parent), wantCode: http.StatusForbidden},
		{name: "all", path: path("", ""), token: adminToken, wantData: resultsOf(marchallList(t, ami, newbie))},
		{name: "pending review", path: path("Pending", ""), token: adminToken, wantData: resultsOf(marchallList(t, newbie))},
		{name: "active", path: path("", "true"), token: adminToken, wantData: resultsOf(marchallList(t, ami))},
		{name: "bad skill", path: path("Level 9", ""), token: adminToken, wantCode: http.StatusBadRequest},
		{name: "bad active", path: path("", "lol"), token: adminToken, wantCode: http.StatusBadRequest,
			wantData: []byte(`{"active":"must be true or false"}`)},
	})

	yes := true
	review := func(skill string, active *bool) []byte {
		return marchallObj(t, participant.ReviewParticipant{SkillLevel: skill, IsActive: active})
	}
	reviewed := newbie
	reviewed.SkillLevel = participant.SkillSimpleSteps
	reviewed.IsActive = true

	runTests(t, []httpTest{
		{name: "review: Pending is not assignable", method: http.MethodPut, path: "/admin/participants/" + newbie.ID + "/review",
			body: review("Pending", &yes), token: adminToken, wantCode: http.StatusBadRequest},
		{name: "review: missing is_active", method: http.MethodPut, path: "/admin/participants/" + newbie.ID + "/review",
			body: review(string(participant.SkillSimpleSteps), nil), token: adminToken, wantCode: http.StatusBadRequest},
		{name: "review: unknown participant", method: http.MethodPut, path: "/admin/participants/4f1e7d9a-5a43-4d5c-9b59-0c1f3e1b7a10/review",
			body: review(string(participant.SkillSimpleSteps), &yes), token: adminToken, wantCode: http.StatusNotFound},
		{name: "review", method: http.MethodPut, path: "/admin/participants/" + newbie.ID + "/review",
			body: review(string(participant.SkillSimpleSteps), &yes), token: adminToken, wantData: marchallObj(t, reviewed)},
	})
}

func Test_adminApi_reports(t *testing.T) {
	db.Reset()

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	parent := testutil.CreateUser(t, usrRepo, "Parent", "parent@test.cd", "", []string{user.RoleParent}, true)
	ami := testutil.CreateParticipant(t, participantRepo, conf, parent.ID, "Ami", "1234", participant.SkillBasicVisual, true)
	testutil.CreateParticipant(t, participantRepo, conf, parent.ID, "Newbie", "2222", participant.SkillPending, false)
	brush := testutil.CreateTask(t, taskRepo, admin.ID, "Brush Teeth", participant.SkillBasicVisual, "Wet brush", "Brush", "Rinse")
	cook := testutil.CreateTask(t, taskRepo, admin.ID, "Cook Pasta", participant.SkillFullIndependence, "Boil", "Cook")
	done := testutil.CreateAssignment(t, assignmentRepo, ami.ID, brush.ID, admin.ID, assignment.StatusCompleted)
	doing := testutil.CreateAssignment(t, assignmentRepo, ami.ID, cook.ID, admin.ID, assignment.StatusInProgress)
	testutil.CreateAssignment(t, assignmentRepo, ami.ID, brush.ID, admin.ID, assignment.StatusPending)
	adminToken := userToken(t, admin)

	runTests(t, []httpTest{
		{name: "summary", path: "/admin/summary", token: adminToken, wantData: marchallObj(t, report.Summary{
			Participants: report.ParticipantTotals{Total: 2, PendingReviews: 1, Active: 1},
			Tasks:        2,
			Assignments:  report.AssignmentTotals{Total: 3, Pending: 1, InProgress: 1, Completed: 1},
		})},
		{name: "summary: Admin required", path: "/admin/summary", token: userToken(t, parent), wantCode: http.StatusForbidden},
		{name: "bad status filter", path: "/admin/assignments?status=lol", token: adminToken, wantCode: http.StatusBadRequest},
		{name: "bad skill filter", path: "/admin/assignments?skill=lol", token: adminToken, wantCode: http.StatusBadRequest},
	})

	query := func(q string) []report.AssignmentRow {
		rec := serve(httpTest{method: http.MethodGet, path: "/admin/assignments" + q, token: adminToken})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp AssignmentRowsResponse
		decode(t, rec, &resp)
		return resp.Results
	}

	assert.Len(t, query(""), 3)

	rows := query("?status=Completed")
	require.Len(t, rows, 1)
	assert.Equal(t, done.ID, rows[0].AssignmentID)
	assert.Equal(t, "Brush Teeth", rows[0].TaskName)
	assert.Equal(t, "Ami", rows[0].ParticipantName)

	rows = query("?" + url.Values{"skill": {string(participant.SkillFullIndependence)}}.Encode())
	require.Len(t, rows, 1)
	assert.Equal(t, doing.ID, rows[0].AssignmentID)

	rows = query("?" + url.Values{"status": {"In Progress"}, "skill": {string(participant.SkillBasicVisual)}}.Encode())
	assert.Empty(t, rows)
}
