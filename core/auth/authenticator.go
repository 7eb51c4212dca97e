package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/paku/core"
	"github.com/trezcool/paku/core/participant"
)

var (
	NowFunc      = time.Now      // mockable
	newSessionID = uuid.NewString // mockable

	ErrLoginFailed = core.NewAuthError("Login failed. Check your PIN or ensure your account is active.")
	errPINFormat   = errors.New("Please enter a valid 4-digit PIN.")
)

type (
	ParticipantFinder interface {
		LookupByPIN(ctx context.Context, pin string) (participant.Participant, error)
		CheckPIN(p participant.Participant, pin string) bool
	}

	// Session is a freshly issued participant identity. ID is never reused across logins.
	Session struct {
		ID          string
		Participant participant.Participant
		IssuedAt    time.Time
	}

	PinAuthenticator struct {
		participants ParticipantFinder
		limiter      *RateLimiter
		logger       core.Logger
	}
)

func (s Session) Actor() core.Actor {
	return s.Participant.Actor(s.ID)
}

func NewPinAuthenticator(participants ParticipantFinder, limiter *RateLimiter, logger core.Logger) *PinAuthenticator {
	return &PinAuthenticator{participants: participants, limiter: limiter, logger: logger}
}

// Login authenticates a participant by PIN from the given origin (client address).
//
// The PIN format is checked before any store access. The lock state is checked before the credentials,
// so a locked pair is refused even with the right PIN. Every refused attempt past the format check is logged.
func (pa *PinAuthenticator) Login(ctx context.Context, pin, origin string) (Session, error) {
	pin = core.CleanString(pin)
	if !participant.ValidPIN(pin) {
		return Session{}, core.NewValidationError(errPINFormat, core.FieldError{Field: "pin", Error: errPINFormat.Error()})
	}
	now := NowFunc().UTC()

	var pid null.String
	p, err := pa.participants.LookupByPIN(ctx, pin)
	switch {
	case err == nil:
		pid = null.StringFrom(p.ID)
	case core.IsNotFound(err):
	default:
		return Session{}, errors.Wrap(err, "looking up participant by PIN")
	}

	locked, err := pa.limiter.IsLocked(ctx, pid, origin, now)
	if err != nil {
		return Session{}, errors.Wrap(err, "checking rate limit")
	}
	if locked {
		if err = pa.limiter.RecordFailure(ctx, pid, origin, now); err != nil {
			return Session{}, errors.Wrap(err, "recording attempt")
		}
		pa.logger.Warn(fmt.Sprintf("pin login locked out: origin=%s", origin), map[string]interface{}{
			"origin":         origin,
			"participant_id": pid.String,
		})
		return Session{}, core.NewRateLimitError(pa.limiter.Policy().Window)
	}

	if !pid.Valid || !p.IsActive || !pa.participants.CheckPIN(p, pin) {
		if err = pa.limiter.RecordFailure(ctx, pid, origin, now); err != nil {
			return Session{}, errors.Wrap(err, "recording attempt")
		}
		return Session{}, ErrLoginFailed
	}

	if err = pa.limiter.RecordSuccess(ctx, pid, origin, now); err != nil {
		return Session{}, errors.Wrap(err, "recording attempt")
	}
	return Session{ID: newSessionID(), Participant: p, IssuedAt: now}, nil
}
