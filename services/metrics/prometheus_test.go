package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager(t *testing.T) {
	m := NewManager(WithNamespace("test"))

	m.IncPinLogin(LoginFailed)
	m.IncPinLogin(LoginFailed)
	m.IncPinLogin(LoginLocked)
	m.AddAssignments(3, 2)
	m.IncEvaluation("happy")
	m.ObserveHTTPRequest(http.MethodPost, "/auth/pin-login", http.StatusUnauthorized, 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.pinLogins.WithLabelValues(LoginFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pinLogins.WithLabelValues(LoginLocked)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.assignmentsCreated))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.assignmentsSkipped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.evaluations.WithLabelValues("happy")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `test_http_requests_total{code="401",method="POST",route="/auth/pin-login"} 1`)
	assert.Contains(t, rec.Body.String(), `test_auth_pin_logins_total{outcome="failed"} 2`)
}
