package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amishk599/bountybot/internal/model"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 2 * time.Second
	DefaultMaxDelay    = 10 * time.Second
)

// RetryFetcher is a decorator that retries transient failures with exponential
// backoff before giving up.
type RetryFetcher struct {
	inner       model.ListingFetcher
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	logger      *slog.Logger

	// wait sleeps for d or until ctx is done. Replaced in tests.
	wait func(ctx context.Context, d time.Duration) error
}

var _ model.ListingFetcher = (*RetryFetcher)(nil)

// NewRetryFetcher wraps a ListingFetcher with retry logic.
// maxAttempts counts the first call (default: 3).
// baseDelay is the delay before the first retry (default: 2s), doubled on each
// subsequent retry and capped at maxDelay (default: 10s).
func NewRetryFetcher(inner model.ListingFetcher, maxAttempts int, baseDelay, maxDelay time.Duration, logger *slog.Logger) *RetryFetcher {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	if maxDelay < baseDelay {
		maxDelay = baseDelay
	}
	return &RetryFetcher{
		inner:       inner,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		maxDelay:    maxDelay,
		logger:      logger,
		wait:        sleepCtx,
	}
}

// FetchListings attempts to fetch listings, retrying on transient errors.
func (f *RetryFetcher) FetchListings(ctx context.Context, page, pageSize int) ([]model.Listing, error) {
	var lastErr error
	var prevDelay time.Duration
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		listings, err := f.inner.FetchListings(ctx, page, pageSize)
		if err == nil {
			return listings, nil
		}
		if !isRetryable(err) {
			return nil, err
		}
		lastErr = err

		if attempt == f.maxAttempts {
			break
		}

		delay := f.backoffDelay(attempt, prevDelay, err)
		prevDelay = delay
		f.logger.Warn("listing fetch failed, retrying",
			"attempt", attempt,
			"max_attempts", f.maxAttempts,
			"delay", delay,
			"error", err,
		)

		if err := f.wait(ctx, delay); err != nil {
			return nil, fmt.Errorf("retry cancelled: %w", err)
		}
	}

	return nil, fmt.Errorf("listing fetch failed after %d attempts: %w", f.maxAttempts, lastErr)
}

// backoffDelay returns baseDelay * 2^(attempt-1), capped at maxDelay. A longer
// Retry-After from the source takes precedence, still within the cap. The
// result never drops below prev, so delays are non-decreasing across attempts.
func (f *RetryFetcher) backoffDelay(attempt int, prev time.Duration, err error) time.Duration {
	delay := f.baseDelay
	for i := 1; i < attempt && delay < f.maxDelay; i++ {
		delay *= 2
	}
	if prev > delay {
		delay = prev
	}

	var srcErr *model.SourceError
	if errors.As(err, &srcErr) && srcErr.RetryAfter > delay {
		delay = srcErr.RetryAfter
	}

	if delay > f.maxDelay {
		delay = f.maxDelay
	}
	return delay
}

// isRetryable returns true if the error represents a transient failure worth retrying.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Context cancellation is never retried.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		var srcErr *model.SourceError
		// A per-attempt timeout is wrapped as transient by the adapter.
		if errors.As(err, &srcErr) && srcErr.Kind == model.SourceTransient {
			return true
		}
		return false
	}

	var srcErr *model.SourceError
	if errors.As(err, &srcErr) {
		return srcErr.Kind == model.SourceTransient
	}

	// Unclassified errors (network, DNS) are retryable.
	return true
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
