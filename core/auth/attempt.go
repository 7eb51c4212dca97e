package auth

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"
)

// Attempt is one PIN login attempt. ParticipantID is null when the PIN matched no participant.
type Attempt struct {
	ID            string      `json:"id"`
	ParticipantID null.String `json:"participant_id"`
	Origin        string      `json:"origin"`
	Success       bool        `json:"success"`
	AttemptedAt   time.Time   `json:"attempted_at"` // UTC
}

// Window selects the attempts of one (participant, origin) pair within [From, To].
// An attempt matches when its origin equals Origin, or when ParticipantID is set and equals the attempt's.
type Window struct {
	ParticipantID null.String
	Origin        string
	From          time.Time
	To            time.Time
}

func (w Window) Matches(a Attempt) bool {
	if a.AttemptedAt.Before(w.From) || a.AttemptedAt.After(w.To) {
		return false
	}
	if a.Origin == w.Origin {
		return true
	}
	return w.ParticipantID.Valid && a.ParticipantID.Valid && a.ParticipantID.String == w.ParticipantID.String
}

// AttemptLog is append-only: nothing in the app mutates or deletes a recorded Attempt.
type AttemptLog interface {
	Record(ctx context.Context, a Attempt) error
	// CountWithinWindow counts the failed attempts matching w.
	CountWithinWindow(ctx context.Context, w Window) (int, error)
	// LatestSuccess returns the time of the newest successful attempt matching w, if any.
	LatestSuccess(ctx context.Context, w Window) (null.Time, error)
}
