package participant_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/paku/core"
	"github.com/trezcool/paku/core/participant"
	inmemdb "github.com/trezcool/paku/storage/database/inmem"
)

func boolPtr(b bool) *bool { return &b }

func TestDigestPIN(t *testing.T) {
	secret := []byte("s3cr3t")
	d := participant.DigestPIN(secret, "1234")
	assert.Equal(t, d, participant.DigestPIN(secret, "1234"), "deterministic")
	assert.NotEqual(t, d, participant.DigestPIN(secret, "1235"))
	assert.NotEqual(t, d, participant.DigestPIN([]byte("other"), "1234"), "keyed")
	assert.NotContains(t, d, "1234")

	p := participant.Participant{PINDigest: d}
	assert.True(t, p.CheckPIN(secret, "1234"))
	assert.False(t, p.CheckPIN(secret, "4321"))
}

func TestValidPIN(t *testing.T) {
	for pin, want := range map[string]bool{"1234": true, "0000": true, "123": false, "12345": false, "12a4": false, "": false, " 1234": false} {
		assert.Equal(t, want, participant.ValidPIN(pin), pin)
	}
}

func TestService(t *testing.T) {
	ctx := context.Background()
	svc := participant.NewService(inmemdb.NewParticipantRepository(inmemdb.Open()), core.NewTestConfig())
	parent := core.Actor{ID: "parent-1", Role: core.RoleParent}
	other := core.Actor{ID: "parent-2", Role: core.RoleParent}
	admin := core.Actor{ID: "admin-1", Role: core.RoleAdmin}

	var child participant.Participant
	t.Run("register", func(t *testing.T) {
		_, err := svc.Register(ctx, admin, participant.NewParticipant{Name: "Ami", PIN: "1234"})
		var azErr *core.AuthorizationError
		assert.ErrorAs(t, err, &azErr)

		_, err = svc.Register(ctx, parent, participant.NewParticipant{Name: "Ami", PIN: "12"})
		var vErr *core.ValidationError
		assert.ErrorAs(t, err, &vErr)

		child, err = svc.Register(ctx, parent, participant.NewParticipant{Name: "Ami", PIN: "1234", SensoryDetails: "loud noises"})
		require.NoError(t, err)
		assert.False(t, child.IsActive)
		assert.Equal(t, participant.SkillPending, child.SkillLevel)
		assert.Equal(t, parent.ID, child.ParentID)
		assert.NotEqual(t, "1234", child.PINDigest)

		_, err = svc.Register(ctx, other, participant.NewParticipant{Name: "Bob", PIN: "1234"})
		assert.Equal(t, participant.ErrPINExists, err)
	})

	t.Run("lookup by PIN", func(t *testing.T) {
		got, err := svc.LookupByPIN(ctx, "1234")
		require.NoError(t, err)
		assert.Equal(t, child.ID, got.ID)
		assert.True(t, svc.CheckPIN(got, "1234"))

		_, err = svc.LookupByPIN(ctx, "9999")
		assert.True(t, core.IsNotFound(err))
	})

	t.Run("review", func(t *testing.T) {
		_, err := svc.Review(ctx, parent, child.ID, participant.ReviewParticipant{SkillLevel: string(participant.SkillSimpleSteps), IsActive: boolPtr(true)})
		var azErr *core.AuthorizationError
		assert.ErrorAs(t, err, &azErr)

		_, err = svc.Review(ctx, admin, child.ID, participant.ReviewParticipant{SkillLevel: "Pending", IsActive: boolPtr(true)})
		var vErr *core.ValidationError
		assert.ErrorAs(t, err, &vErr)

		_, err = svc.Review(ctx, admin, child.ID, participant.ReviewParticipant{SkillLevel: string(participant.SkillSimpleSteps)})
		assert.ErrorAs(t, err, &vErr)

		got, err := svc.Review(ctx, admin, child.ID, participant.ReviewParticipant{SkillLevel: string(participant.SkillSimpleSteps), IsActive: boolPtr(true)})
		require.NoError(t, err)
		assert.True(t, got.IsActive)
		assert.Equal(t, participant.SkillSimpleSteps, got.SkillLevel)
		assert.Equal(t, "loud noises", got.SensoryDetails)

		_, err = svc.Review(ctx, admin, "nope", participant.ReviewParticipant{SkillLevel: string(participant.SkillSimpleSteps), IsActive: boolPtr(true)})
		assert.Equal(t, participant.ErrNotFound, err)
	})

	t.Run("get for parent", func(t *testing.T) {
		tests := []struct {
			name    string
			actor   core.Actor
			wantErr bool
		}{
			{name: "own child", actor: parent},
			{name: "admin", actor: admin},
			{name: "another parent", actor: other, wantErr: true},
			{name: "the child itself", actor: child.Actor("s"), wantErr: true},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := svc.GetForParent(ctx, tt.actor, child.ID)
				if tt.wantErr {
					assert.Equal(t, participant.ErrNotFound, err)
				} else {
					assert.NoError(t, err)
				}
			})
		}
	})

	t.Run("query", func(t *testing.T) {
		children, err := svc.QueryByParent(ctx, parent.ID)
		require.NoError(t, err)
		assert.Len(t, children, 1)

		children, err = svc.QueryByParent(ctx, other.ID)
		require.NoError(t, err)
		assert.Empty(t, children)

		inactive, err := svc.Query(ctx, &participant.QueryFilter{IsActive: boolPtr(false)})
		require.NoError(t, err)
		assert.Empty(t, inactive)
	})
}
