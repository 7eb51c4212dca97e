package redisstore

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/paku/core/auth"
)

const keyPrefix = "paku:login_attempts:"

// attemptLog keeps the attempts in sorted sets scored by their time, one set per origin and one per participant,
// split by outcome. Sets expire `retention` after their latest write.
type attemptLog struct {
	cli       redis.UniversalClient
	retention time.Duration
}

var _ auth.AttemptLog = (*attemptLog)(nil) // interface compliance check

func NewAttemptLog(cli redis.UniversalClient, retention time.Duration) *attemptLog {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &attemptLog{cli: cli, retention: retention}
}

func outcome(success bool) string {
	if success {
		return "ok"
	}
	return "fail"
}

func originKey(origin string, success bool) string {
	return keyPrefix + outcome(success) + ":origin:" + origin
}

func participantKey(pid string, success bool) string {
	return keyPrefix + outcome(success) + ":participant:" + pid
}

func score(t time.Time) float64 {
	return float64(t.UTC().UnixMicro())
}

func (log *attemptLog) keys(w auth.Window, success bool) []string {
	keys := []string{originKey(w.Origin, success)}
	if w.ParticipantID.Valid {
		keys = append(keys, participantKey(w.ParticipantID.String, success))
	}
	return keys
}

func (log *attemptLog) Record(ctx context.Context, a auth.Attempt) error {
	member := redis.Z{Score: score(a.AttemptedAt), Member: uuid.NewString()}
	keys := []string{originKey(a.Origin, a.Success)}
	if a.ParticipantID.Valid {
		keys = append(keys, participantKey(a.ParticipantID.String, a.Success))
	}

	_, err := log.cli.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range keys {
			pipe.ZAdd(ctx, key, member)
			pipe.Expire(ctx, key, log.retention)
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "recording login attempt")
	}
	return nil
}

// members returns the distinct attempt ids found under keys within the window.
func (log *attemptLog) members(ctx context.Context, w auth.Window, keys []string) (map[string]float64, error) {
	rng := &redis.ZRangeBy{
		Min: strconv.FormatFloat(score(w.From), 'f', 0, 64),
		Max: strconv.FormatFloat(score(w.To), 'f', 0, 64),
	}
	found := make(map[string]float64)
	for _, key := range keys {
		zs, err := log.cli.ZRangeByScoreWithScores(ctx, key, rng).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, err
		}
		for _, z := range zs {
			if m, ok := z.Member.(string); ok {
				found[m] = z.Score
			}
		}
	}
	return found, nil
}

func (log *attemptLog) CountWithinWindow(ctx context.Context, w auth.Window) (int, error) {
	found, err := log.members(ctx, w, log.keys(w, false))
	if err != nil {
		return 0, errors.Wrap(err, "counting login attempts")
	}
	return len(found), nil
}

func (log *attemptLog) LatestSuccess(ctx context.Context, w auth.Window) (null.Time, error) {
	found, err := log.members(ctx, w, log.keys(w, true))
	if err != nil {
		return null.Time{}, errors.Wrap(err, "getting latest successful login attempt")
	}
	var latest null.Time
	for _, sc := range found {
		t := time.UnixMicro(int64(sc)).UTC()
		if !latest.Valid || t.After(latest.Time) {
			latest = null.TimeFrom(t)
		}
	}
	return latest, nil
}
