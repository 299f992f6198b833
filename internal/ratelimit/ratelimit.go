package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/amishk599/bountybot/internal/model"
)

// KeyedLimiter enforces a minimum delay between calls sharing the same key.
type KeyedLimiter struct {
	mu       sync.Mutex
	next     map[string]time.Time // key: destination ID, value: earliest next slot
	minDelay time.Duration
}

// NewKeyedLimiter creates a limiter that spaces consecutive calls for the same
// key by at least minDelay. A zero minDelay never blocks.
func NewKeyedLimiter(minDelay time.Duration) *KeyedLimiter {
	return &KeyedLimiter{
		next:     make(map[string]time.Time),
		minDelay: minDelay,
	}
}

// Wait blocks until the next slot for key is free. Slots are reserved under the
// lock, so concurrent callers for one key queue up instead of firing together.
// Returns an error if the context is cancelled while waiting.
func (r *KeyedLimiter) Wait(ctx context.Context, key string) error {
	if r.minDelay <= 0 {
		return nil
	}

	r.mu.Lock()
	now := time.Now()
	slot, ok := r.next[key]
	if !ok || !slot.After(now) {
		// First call for this key, or enough time has passed.
		r.next[key] = now.Add(r.minDelay)
		r.mu.Unlock()
		return nil
	}
	r.next[key] = slot.Add(r.minDelay)
	r.mu.Unlock()

	t := time.NewTimer(slot.Sub(now))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limiter wait for %s: %w", key, ctx.Err())
	case <-t.C:
		return nil
	}
}

// RateLimitedSink is a decorator that spaces sends to the same destination
// before delegating to the wrapped Sink.
type RateLimitedSink struct {
	inner   model.Sink
	limiter *KeyedLimiter
}

var (
	_ model.Sink    = (*RateLimitedSink)(nil)
	_ model.Readier = (*RateLimitedSink)(nil)
)

// NewRateLimitedSink wraps a Sink with per-destination spacing.
func NewRateLimitedSink(inner model.Sink, limiter *KeyedLimiter) *RateLimitedSink {
	return &RateLimitedSink{inner: inner, limiter: limiter}
}

// Send waits for the destination's slot, then delegates to the wrapped sink.
func (s *RateLimitedSink) Send(ctx context.Context, destinationID string, msg model.Message) error {
	if err := s.limiter.Wait(ctx, destinationID); err != nil {
		return err
	}
	return s.inner.Send(ctx, destinationID, msg)
}

// Ready delegates to the wrapped sink when it has a readiness check.
func (s *RateLimitedSink) Ready(ctx context.Context) error {
	if r, ok := s.inner.(model.Readier); ok {
		return r.Ready(ctx)
	}
	return nil
}
