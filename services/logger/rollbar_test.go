package logsvc

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/paku/core"
)

func TestRollbarLogger(t *testing.T) {
	conf := core.NewTestConfig()
	conf.Log.Level = "debug"
	buf := new(bytes.Buffer)
	logger := NewRollbarLogger(NewZap(conf, buf), conf)

	actor := core.Actor{ID: "p-1", Name: "Zoe", Role: core.RoleParticipant}
	logger.Warn("pin login locked out", map[string]interface{}{"origin": "10.0.0.1"}, actor, errors.New("boom"))
	logger.Debug("debug line")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "pin login locked out", entry["msg"])
	assert.Equal(t, "10.0.0.1", entry["origin"])
	assert.Equal(t, "p-1", entry["actor_id"])
	assert.Equal(t, "participant", entry["actor_role"])
	assert.Equal(t, "boom", entry["error"])
}

func TestNewZap_level(t *testing.T) {
	conf := core.NewTestConfig()
	buf := new(bytes.Buffer)
	zl := NewZap(conf, buf) // test config logs errors only

	zl.Info("hidden")
	zl.Error("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
