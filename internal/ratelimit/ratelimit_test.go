package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amishk599/bountybot/internal/model"
)

func TestWait_SameKey_EnforcesMinDelay(t *testing.T) {
	limiter := NewKeyedLimiter(100 * time.Millisecond)
	ctx := context.Background()

	// First call should return immediately.
	if err := limiter.Wait(ctx, "chan-1"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	start := time.Now()
	if err := limiter.Wait(ctx, "chan-1"); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	elapsed := time.Since(start)

	// Should have waited at least ~100ms (allow 80ms for timer jitter).
	if elapsed < 80*time.Millisecond {
		t.Errorf("expected >= 80ms wait, got %v", elapsed)
	}
}

func TestWait_DifferentKeys_NoCrossBlocking(t *testing.T) {
	limiter := NewKeyedLimiter(200 * time.Millisecond)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "chan-1"); err != nil {
		t.Fatalf("chan-1 wait: %v", err)
	}

	// Immediately call for another destination, should NOT block.
	start := time.Now()
	if err := limiter.Wait(ctx, "chan-2"); err != nil {
		t.Fatalf("chan-2 wait: %v", err)
	}
	elapsed := time.Since(start)

	if elapsed > 50*time.Millisecond {
		t.Errorf("expected chan-2 wait to be near-instant, got %v", elapsed)
	}
}

func TestWait_ConcurrentCallersQueue(t *testing.T) {
	limiter := NewKeyedLimiter(60 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	done := make(chan struct{}, 3)
	for i := 0; i < 3; i++ {
		go func() {
			limiter.Wait(ctx, "chan-1")
			done <- struct{}{}
		}()
	}
	for i := 0; i < 3; i++ {
		<-done
	}

	// Three reservations: now, +60ms, +120ms.
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("expected concurrent callers to be spaced, finished in %v", elapsed)
	}
}

func TestWait_ZeroDelayNeverBlocks(t *testing.T) {
	limiter := NewKeyedLimiter(0)
	for i := 0; i < 5; i++ {
		if err := limiter.Wait(context.Background(), "chan-1"); err != nil {
			t.Fatalf("wait %d: %v", i, err)
		}
	}
}

func TestWait_ContextCancellation(t *testing.T) {
	limiter := NewKeyedLimiter(5 * time.Second) // long delay
	ctx := context.Background()

	// First call to seed the slot.
	if err := limiter.Wait(ctx, "chan-1"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := limiter.Wait(ctx, "chan-1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

// --- Fakes for RateLimitedSink tests ---

type recordingSink struct {
	sent  []string
	ready bool
}

func (s *recordingSink) Send(_ context.Context, destinationID string, _ model.Message) error {
	s.sent = append(s.sent, destinationID)
	return nil
}

type readySink struct {
	recordingSink
	err error
}

func (s *readySink) Ready(context.Context) error {
	s.ready = true
	return s.err
}

func TestRateLimitedSink_WaitsBeforeDelegating(t *testing.T) {
	limiter := NewKeyedLimiter(100 * time.Millisecond)
	inner := &recordingSink{}
	sink := NewRateLimitedSink(inner, limiter)
	ctx := context.Background()

	if err := sink.Send(ctx, "chan-1", model.Message{}); err != nil {
		t.Fatalf("first send: %v", err)
	}

	start := time.Now()
	if err := sink.Send(ctx, "chan-1", model.Message{}); err != nil {
		t.Fatalf("second send: %v", err)
	}
	elapsed := time.Since(start)

	if len(inner.sent) != 2 {
		t.Fatalf("expected 2 delegated sends, got %d", len(inner.sent))
	}
	if elapsed < 80*time.Millisecond {
		t.Errorf("expected >= 80ms wait on second send, got %v", elapsed)
	}
}

func TestRateLimitedSink_ReadyDelegates(t *testing.T) {
	limiter := NewKeyedLimiter(0)

	plain := NewRateLimitedSink(&recordingSink{}, limiter)
	if err := plain.Ready(context.Background()); err != nil {
		t.Errorf("Ready on sink without readiness check = %v, want nil", err)
	}

	inner := &readySink{err: errors.New("not connected")}
	wrapped := NewRateLimitedSink(inner, limiter)
	if err := wrapped.Ready(context.Background()); err == nil {
		t.Error("expected inner readiness error")
	}
	if !inner.ready {
		t.Error("inner Ready was not called")
	}
}
