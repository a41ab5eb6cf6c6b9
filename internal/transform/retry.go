package transform

import (
	"context"
	"errors"
	"time"

	"ethereumIndexer/internal/storage"
)

// retryPolicy repeats store calls with exponential backoff.
type retryPolicy struct {
	maxRetries int
	baseDelay  time.Duration
	// retryable reports whether an error may clear on a later attempt. Nil retries everything.
	retryable func(error) bool
}

func newRetryPolicy(cfg RunConfig) retryPolicy {
	return retryPolicy{
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.RetryBackoff,
		retryable:  transientStoreError,
	}
}

// transientStoreError is false for a missing document and for cancellation.
func transientStoreError(err error) bool {
	switch {
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

func (p retryPolicy) do(ctx context.Context, fn func(context.Context) error) error {
	maxRetries := p.maxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	delay := p.baseDelay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries || (p.retryable != nil && !p.retryable(err)) {
			return err
		}
		if !sleep(ctx, delay) {
			return ctx.Err()
		}
		delay *= 2
	}
}

// sleep waits for d and reports false when ctx ends first.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
