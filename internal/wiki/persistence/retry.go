package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/gowiki/gowiki/pkg/logger"
	"github.com/gowiki/gowiki/pkg/metrics"
)

// RetryingAdapter retries failed loads and saves with exponential backoff.
// The store itself never retries; this is where retry policy lives.
type RetryingAdapter struct {
	inner    Adapter
	attempts int
	backoff  time.Duration
}

// WithRetry wraps a. attempts < 1 is treated as 1.
func WithRetry(a Adapter, attempts int, backoff time.Duration) *RetryingAdapter {
	if attempts < 1 {
		attempts = 1
	}
	return &RetryingAdapter{inner: a, attempts: attempts, backoff: backoff}
}

func (r *RetryingAdapter) Load(ctx context.Context, name string) ([]byte, error) {
	var out []byte
	err := r.do(ctx, "load", name, func() error {
		b, err := r.inner.Load(ctx, name)
		if err != nil {
			return err
		}
		out = b
		return nil
	})
	return out, err
}

func (r *RetryingAdapter) Save(ctx context.Context, name string, data []byte) error {
	return r.do(ctx, "save", name, func() error {
		return r.inner.Save(ctx, name, data)
	})
}

func (r *RetryingAdapter) do(ctx context.Context, op, name string, fn func() error) error {
	backoff := r.backoff
	var err error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		err = fn()
		if err == nil || errors.Is(err, ErrRecordNotFound) {
			return err
		}
		if attempt == r.attempts {
			break
		}
		metrics.PersistenceRetries.WithLabelValues(op).Inc()
		logger.Warnf("attempt %d/%d: %s %s failed: %v", attempt, r.attempts, op, name, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}
