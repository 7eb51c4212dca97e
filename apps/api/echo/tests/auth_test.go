package tests

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/paku/apps/api/echo"
	"github.com/trezcool/paku/core/participant"
	"github.com/trezcool/paku/core/user"
	"github.com/trezcool/paku/tests"
)

func Test_authApi_pinLogin(t *testing.T) {
	db.Reset()

	parent := testutil.CreateUser(t, usrRepo, "Parent", "parent@test.cd", "", []string{user.RoleParent}, true)
	ami := testutil.CreateParticipant(t, participantRepo, conf, parent.ID, "Ami", "1234", participant.SkillBasicVisual, true)
	testutil.CreateParticipant(t, participantRepo, conf, parent.ID, "Pending Kid", "5678", participant.SkillPending, false)

	pinBody := func(pin string) []byte { return marchallObj(t, PinLoginRequest{PIN: pin}) }
	loginFailed := marchallObj(t, httpErr{Error: "Login failed. Check your PIN or ensure your account is active."})

	tests := []httpTest{
		{name: "bad json", body: []byte(`{"pin"`), origin: "10.0.0.1", wantCode: http.StatusBadRequest},
		{name: "3 digits", body: pinBody("123"), origin: "10.0.0.1", wantCode: http.StatusBadRequest,
			wantData: []byte(`{"pin":"Please enter a valid 4-digit PIN."}`)},
		{name: "letters", body: pinBody("12ab"), origin: "10.0.0.1", wantCode: http.StatusBadRequest},
		{name: "unknown PIN", body: pinBody("0000"), origin: "10.0.0.1", wantCode: http.StatusUnauthorized, wantData: loginFailed},
		{name: "inactive participant", body: pinBody("5678"), origin: "10.0.0.2", wantCode: http.StatusUnauthorized, wantData: loginFailed},
		{name: "success", body: pinBody(" 1234 "), origin: "10.0.0.3", wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/auth/pin-login"

		t.Run(tt.name, func(t *testing.T) {
			rec := serve(tt)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				var resp PinLoginResponse
				decode(t, rec, &resp)
				assert.NotEmpty(t, resp.Token)
				assert.Equal(t, "/participant/tasks", resp.Redirect)
				assert.Equal(t, ami.ID, resp.Participant.ID)
			}
		})
	}
}

func Test_authApi_pinLogin_lockout(t *testing.T) {
	db.Reset()

	parent := testutil.CreateUser(t, usrRepo, "Parent", "parent@test.cd", "", []string{user.RoleParent}, true)
	testutil.CreateParticipant(t, participantRepo, conf, parent.ID, "Ami", "1234", participant.SkillBasicVisual, true)

	origin := "10.9.9.9"
	for i := 0; i < conf.RateLimit.MaxAttempts; i++ {
		rec := serve(httpTest{method: http.MethodPost, path: "/auth/pin-login", origin: origin, body: marchallObj(t, PinLoginRequest{PIN: "9999"})})
		require.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i+1)
	}

	// locked out, even with the right PIN
	rec := serve(httpTest{method: http.MethodPost, path: "/auth/pin-login", origin: origin, body: marchallObj(t, PinLoginRequest{PIN: "1234"})})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, strconv.Itoa(int(conf.RateLimit.Window.Seconds())), rec.Header().Get("Retry-After"))

	// the lock is per origin: the unknown PINs were not tied to the participant
	rec = serve(httpTest{method: http.MethodPost, path: "/auth/pin-login", origin: "10.8.8.8", body: marchallObj(t, PinLoginRequest{PIN: "1234"})})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func Test_authApi_login(t *testing.T) {
	db.Reset()

	pwd := "Sup3r$ecret"
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.cd", pwd, []string{user.RoleAdmin}, true)
	parent := testutil.CreateUser(t, usrRepo, "Parent", "parent@test.cd", pwd, []string{user.RoleParent}, true)
	testutil.CreateUser(t, usrRepo, "Gone", "gone@test.cd", pwd, []string{user.RoleParent}, false)

	invalid := marchallObj(t, httpErr{Error: "Invalid email or password."})
	tests := []httpTest{
		{name: "missing fields", body: marchallObj(t, LoginRequest{}), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email":"this field is required","password":"this field is required"}`)},
		{name: "wrong password", body: marchallObj(t, LoginRequest{Email: admin.Email, Password: "nope"}), wantCode: http.StatusUnauthorized, wantData: invalid},
		{name: "unknown email", body: marchallObj(t, LoginRequest{Email: "who@test.cd", Password: pwd}), wantCode: http.StatusUnauthorized, wantData: invalid},
		{name: "inactive", body: marchallObj(t, LoginRequest{Email: "gone@test.cd", Password: pwd}), wantCode: http.StatusUnauthorized, wantData: invalid},
		{name: "admin", body: marchallObj(t, LoginRequest{Email: "ADMIN@test.cd ", Password: pwd}), extra: "/admin/dashboard"},
		{name: "parent", body: marchallObj(t, LoginRequest{Email: parent.Email, Password: pwd}), extra: "/parent/dashboard"},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/auth/login"
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			rec := serve(tt)
			checkCodeAndData(t, tt, rec)

			if redirect, ok := tt.extra.(string); ok {
				var resp LoginResponse
				decode(t, rec, &resp)
				assert.NotEmpty(t, resp.Token)
				assert.Equal(t, redirect, resp.Redirect)
				assert.False(t, resp.User.LastLogin.IsZero())
			}
		})
	}
}

func Test_authApi_register(t *testing.T) {
	db.Reset()

	testutil.CreateUser(t, usrRepo, "Taken", "taken@test.cd", "", []string{user.RoleParent}, true)

	newUser := func(name, email, pwd, confirm string, roles ...string) []byte {
		return marchallObj(t, user.NewUser{Name: name, Email: email, Password: pwd, PasswordConfirm: confirm, Roles: roles})
	}
	pwd := "Str0ng&Long"

	tests := []httpTest{
		{name: "missing fields", body: []byte(`{}`), wantCode: http.StatusBadRequest},
		{name: "password mismatch", body: newUser("Mama", "mama@test.cd", pwd, pwd+"x"), wantCode: http.StatusBadRequest},
		{name: "weak password", body: newUser("Mama", "mama@test.cd", "password", "password"), wantCode: http.StatusBadRequest},
		{name: "email taken", body: newUser("Mama", "Taken@test.cd", pwd, pwd), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email":"a user with this email already exists"}`)},
		{name: "admin role ignored", body: newUser("Mama", "mama@test.cd", pwd, pwd, user.RoleAdmin), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/auth/register"

		t.Run(tt.name, func(t *testing.T) {
			rec := serve(tt)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusCreated {
				var usr user.User
				decode(t, rec, &usr)
				assert.Equal(t, "mama@test.cd", usr.Email)
				assert.Equal(t, []string{user.RoleParent}, usr.Roles)
				assert.True(t, usr.IsActive)
			}
		})
	}
}
