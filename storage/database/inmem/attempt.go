package inmemdb

import (
	"context"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/paku/core/auth"
)

type attemptLog struct {
	db *DB
}

var _ auth.AttemptLog = (*attemptLog)(nil) // interface compliance check

func NewAttemptLog(db *DB) *attemptLog {
	return &attemptLog{db: db}
}

func (log *attemptLog) Record(_ context.Context, a auth.Attempt) error {
	log.db.mutex.Lock()
	defer log.db.mutex.Unlock()

	a.ID = uuid.NewString()
	a.AttemptedAt = a.AttemptedAt.UTC()
	log.db.attempts = append(log.db.attempts, a)
	return nil
}

func (log *attemptLog) CountWithinWindow(_ context.Context, w auth.Window) (int, error) {
	log.db.mutex.RLock()
	defer log.db.mutex.RUnlock()

	n := 0
	for _, a := range log.db.attempts {
		if !a.Success && w.Matches(a) {
			n++
		}
	}
	return n, nil
}

func (log *attemptLog) LatestSuccess(_ context.Context, w auth.Window) (null.Time, error) {
	log.db.mutex.RLock()
	defer log.db.mutex.RUnlock()

	var latest null.Time
	for _, a := range log.db.attempts {
		if a.Success && w.Matches(a) && (!latest.Valid || a.AttemptedAt.After(latest.Time)) {
			latest = null.TimeFrom(a.AttemptedAt)
		}
	}
	return latest, nil
}

// Attempts returns a copy of the whole log.
func (log *attemptLog) Attempts() []auth.Attempt {
	log.db.mutex.RLock()
	defer log.db.mutex.RUnlock()
	return append([]auth.Attempt(nil), log.db.attempts...)
}
