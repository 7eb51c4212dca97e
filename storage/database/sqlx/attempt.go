package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/paku/core/auth"
)

// windowCond matches auth.Window.Matches: same origin, or same (known) participant.
const windowCond = `attempted_at BETWEEN $1 AND $2 AND (origin = $3 OR ($4::uuid IS NOT NULL AND participant_id = $4::uuid))`

type attemptLog struct {
	db *sqlx.DB
}

var _ auth.AttemptLog = (*attemptLog)(nil) // interface compliance check

func NewAttemptLog(db *sqlx.DB) *attemptLog {
	return &attemptLog{db: db}
}

func (log *attemptLog) Record(ctx context.Context, a auth.Attempt) error {
	_, err := log.db.ExecContext(ctx,
		`INSERT INTO login_attempt (id, participant_id, origin, success, attempted_at) VALUES ($1, $2, $3, $4, $5)`,
		uuid.NewString(), a.ParticipantID, a.Origin, a.Success, a.AttemptedAt.UTC())
	if err != nil {
		return errors.Wrap(err, "inserting login attempt")
	}
	return nil
}

func (log *attemptLog) CountWithinWindow(ctx context.Context, w auth.Window) (int, error) {
	var n int
	err := log.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM login_attempt WHERE NOT success AND `+windowCond,
		w.From.UTC(), w.To.UTC(), w.Origin, w.ParticipantID)
	if err != nil {
		return 0, errors.Wrap(err, "counting login attempts")
	}
	return n, nil
}

func (log *attemptLog) LatestSuccess(ctx context.Context, w auth.Window) (null.Time, error) {
	var latest null.Time
	err := log.db.GetContext(ctx, &latest, `SELECT MAX(attempted_at) FROM login_attempt WHERE success AND `+windowCond,
		w.From.UTC(), w.To.UTC(), w.Origin, w.ParticipantID)
	if err != nil {
		return null.Time{}, errors.Wrap(err, "getting latest successful login attempt")
	}
	if latest.Valid {
		latest.Time = latest.Time.UTC()
	}
	return latest, nil
}
