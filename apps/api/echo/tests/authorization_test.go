package tests

import (
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dig_container "github.com/trezcool/paku/apps/api/di/dig"
	. "github.com/trezcool/paku/apps/api/echo"
	"github.com/trezcool/paku/core"
	"github.com/trezcool/paku/core/assignment"
	"github.com/trezcool/paku/core/auth"
	"github.com/trezcool/paku/core/participant"
	"github.com/trezcool/paku/core/task"
	"github.com/trezcool/paku/core/user"
	"github.com/trezcool/paku/tests"
)

type logEntry struct {
	msg  string
	args []interface{}
}

// recordingLogger keeps the warnings, drops the rest.
type recordingLogger struct {
	core.Logger
	mu    sync.Mutex
	warns []logEntry
}

func (l *recordingLogger) Warn(msg string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, logEntry{msg: msg, args: args})
}

func (l *recordingLogger) last(t *testing.T) logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	require.NotEmpty(t, l.warns, "no warning logged")
	return l.warns[len(l.warns)-1]
}

func (l *recordingLogger) actorOf(t *testing.T, e logEntry) core.Actor {
	for _, arg := range e.args {
		if actor, ok := arg.(core.Actor); ok {
			return actor
		}
	}
	t.Fatalf("no actor in %q args: %v", e.msg, e.args)
	return core.Actor{}
}

func Test_authorizationErrorsAreLogged(t *testing.T) {
	logger := &recordingLogger{Logger: core.NopLogger}

	c := dig_container.New(core.NewTestConfig)
	require.NoError(t, c.Decorate(func(core.Logger) core.Logger { return logger }))

	var (
		server *Server
		users  user.Repository
		kids   participant.Repository
		tasks  task.Repository
		asgmts assignment.Repository
	)
	require.NoError(t, c.Invoke(func(s *Server, ur user.Repository, pr participant.Repository, tr task.Repository, ar assignment.Repository) {
		server, users, kids, tasks, asgmts = s, ur, pr, tr, ar
	}))

	admin := testutil.CreateUser(t, users, "Admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	parent := testutil.CreateUser(t, users, "Parent", "parent@test.cd", "", []string{user.RoleParent}, true)
	ami := testutil.CreateParticipant(t, kids, conf, parent.ID, "Ami", "1234", participant.SkillBasicVisual, true)
	brush := testutil.CreateTask(t, tasks, admin.ID, "Brush Teeth", participant.SkillBasicVisual, "Wet brush", "Brush", "Rinse")
	asgmt := testutil.CreateAssignment(t, asgmts, ami.ID, brush.ID, admin.ID, assignment.StatusCompleted)

	do := func(method, path, token string, body ...[]byte) int {
		req, rec := newAuthRequest(method, path, token, body...)
		server.ServeHTTP(rec, req)
		return rec.Code
	}

	t.Run("wrong role", func(t *testing.T) {
		code := do(http.MethodGet, "/participant/tasks", userToken(t, parent))
		require.Equal(t, http.StatusForbidden, code)

		e := logger.last(t)
		assert.Equal(t, "permission denied: participant session required", e.msg)
		actor := logger.actorOf(t, e)
		assert.Equal(t, parent.ID, actor.ID)
		assert.Equal(t, core.RoleParent, actor.Role)
		assert.Contains(t, e.args, map[string]interface{}{"path": "/participant/tasks"})
	})

	t.Run("bad csrf token", func(t *testing.T) {
		actor := admin.Actor("admin-session")
		body := marchallObj(t, UpdateStatusRequest{
			AssignmentID: asgmt.ID,
			NewStatus:    "Pending",
			CSRFToken:    auth.CSRFToken(conf.SecretKey, "another-session"),
		})
		code := do(http.MethodPost, "/admin/assignments/status", getToken(t, actor), body)
		require.Equal(t, http.StatusForbidden, code)

		e := logger.last(t)
		assert.Equal(t, "permission denied: invalid CSRF token", e.msg)
		logged := logger.actorOf(t, e)
		assert.Equal(t, admin.ID, logged.ID)
		assert.Equal(t, "admin-session", logged.SessionID)
		assert.Contains(t, e.args, map[string]interface{}{"path": "/admin/assignments/status"})
	})
}
