package auth

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/paku/core"
)

type Policy struct {
	MaxAttempts    int
	Window         time.Duration
	ResetOnSuccess bool
}

func PolicyFromConfig(conf *core.Config) Policy {
	p := Policy{
		MaxAttempts:    conf.RateLimit.MaxAttempts,
		Window:         conf.RateLimit.Window,
		ResetOnSuccess: conf.RateLimit.ResetOnSuccess,
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 5
	}
	if p.Window <= 0 {
		p.Window = 5 * time.Minute
	}
	return p
}

// RateLimiter derives the lock state from the AttemptLog alone. It keeps no state of its own.
type RateLimiter struct {
	log    AttemptLog
	policy Policy
}

func NewRateLimiter(log AttemptLog, policy Policy) *RateLimiter {
	return &RateLimiter{log: log, policy: policy}
}

func (rl *RateLimiter) Policy() Policy { return rl.policy }

func (rl *RateLimiter) window(ctx context.Context, pid null.String, origin string, now time.Time) (Window, error) {
	w := Window{ParticipantID: pid, Origin: origin, From: now.Add(-rl.policy.Window), To: now}
	if !rl.policy.ResetOnSuccess {
		return w, nil
	}
	last, err := rl.log.LatestSuccess(ctx, w)
	if err != nil {
		return Window{}, errors.Wrap(err, "getting latest successful attempt")
	}
	if last.Valid && last.Time.After(w.From) {
		w.From = last.Time
	}
	return w, nil
}

// IsLocked reports whether the pair has reached MaxAttempts failures within the window ending at now.
func (rl *RateLimiter) IsLocked(ctx context.Context, pid null.String, origin string, now time.Time) (bool, error) {
	w, err := rl.window(ctx, pid, origin, now)
	if err != nil {
		return false, err
	}
	n, err := rl.log.CountWithinWindow(ctx, w)
	if err != nil {
		return false, errors.Wrap(err, "counting attempts")
	}
	return n >= rl.policy.MaxAttempts, nil
}

func (rl *RateLimiter) RecordFailure(ctx context.Context, pid null.String, origin string, now time.Time) error {
	return rl.log.Record(ctx, Attempt{ParticipantID: pid, Origin: origin, AttemptedAt: now})
}

// RecordSuccess is a no-op unless successes reset the failure count.
func (rl *RateLimiter) RecordSuccess(ctx context.Context, pid null.String, origin string, now time.Time) error {
	if !rl.policy.ResetOnSuccess {
		return nil
	}
	return rl.log.Record(ctx, Attempt{ParticipantID: pid, Origin: origin, AttemptedAt: now, Success: true})
}
