package scorm

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/yungbote/trainforge-backend/internal/domain/training"
	"github.com/yungbote/trainforge-backend/internal/platform/logger"
)

// RetryPolicy bounds how often a commit is retried against the attempt store.
type RetryPolicy struct {
	// Attempts is the total number of tries, including the first. Zero means 3.
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// Timeout bounds one commit including its retries. Zero means 30s.
	Timeout time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, BaseDelay: 250 * time.Millisecond, MaxDelay: 5 * time.Second, Timeout: 30 * time.Second}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.Attempts <= 0 {
		p.Attempts = 3
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 10 * time.Second
	}
	if p.Timeout <= 0 {
		p.Timeout = 30 * time.Second
	}
	return p
}

// retryable reports whether a store failure is worth another try.
// Permission failures and cancellation are final.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	var perm *training.PermissionError
	if errors.As(err, &perm) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var pe *training.PersistenceError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return true
}

// do runs fn until it succeeds, fails permanently or the attempts run out.
func (p RetryPolicy) do(ctx context.Context, log *logger.Logger, op string, fn func(context.Context) error) error {
	p = p.normalized()
	backoff := p.BaseDelay
	var err error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !retryable(err) || attempt == p.Attempts {
			return err
		}

		sleepFor := backoff
		if sleepFor > p.MaxDelay {
			sleepFor = p.MaxDelay
		}
		sleepFor = jitter(sleepFor)

		log.Warn("scorm commit retrying",
			"op", op,
			"attempt", attempt,
			"max_attempts", p.Attempts,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)

		if sleepFor > 0 {
			t := time.NewTimer(sleepFor)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}
		backoff *= 2
	}
	return err
}

// jitter spreads d by +/- 20%.
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	delta := float64(d) * 0.2
	low := float64(d) - delta
	return time.Duration(low + rand.Float64()*2*delta)
}
