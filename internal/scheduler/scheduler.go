package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/amishk599/bountybot/internal/model"
	"github.com/amishk599/bountybot/internal/poller"
)

const (
	readyBaseDelay = time.Second
	readyMaxDelay  = 30 * time.Second
)

// ErrAlreadyRunning is returned when a second loop is started on a scheduler
// whose loop is still active.
var ErrAlreadyRunning = errors.New("poll loop already running")

// Cycler runs one poll cycle.
type Cycler interface {
	Poll(ctx context.Context) (poller.CycleStats, error)
}

// Scheduler owns the main loop: waits for the sink to be ready, runs one
// cycle immediately, then sleeps the interval between cycles.
type Scheduler struct {
	cycler   Cycler
	ready    model.Readier // nil when the sink needs no readiness check
	interval time.Duration
	logger   *slog.Logger

	// readyDelay is the first pause between readiness checks.
	readyDelay time.Duration

	mu      sync.Mutex
	running bool
}

// NewScheduler creates a scheduler that polls at the given interval. ready may
// be nil.
func NewScheduler(cycler Cycler, ready model.Readier, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cycler:     cycler,
		ready:      ready,
		interval:   interval,
		logger:     logger,
		readyDelay: readyBaseDelay,
	}
}

// Run starts the polling loop and blocks. It returns nil when ctx is cancelled
// (graceful shutdown) and ErrAlreadyRunning if another loop is active.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.claim() {
		return ErrAlreadyRunning
	}
	defer s.release()
	s.loop(ctx)
	return nil
}

// Start launches the loop in the background and returns a handle to stop it.
func (s *Scheduler) Start(ctx context.Context) (*Handle, error) {
	if !s.claim() {
		return nil, ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(h.done)
		defer s.release()
		s.loop(ctx)
	}()
	return h, nil
}

func (s *Scheduler) claim() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *Scheduler) release() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

func (s *Scheduler) loop(ctx context.Context) {
	if !s.waitReady(ctx) {
		s.logger.Info("shutting down scheduler before first cycle")
		return
	}

	s.logger.Info("starting scheduler", "interval", s.interval.String())

	// Run one immediate poll cycle.
	s.cycle(ctx)

	for {
		t := time.NewTimer(s.interval)
		select {
		case <-ctx.Done():
			t.Stop()
			s.logger.Info("shutting down scheduler")
			return
		case <-t.C:
			s.cycle(ctx)
		}
	}
}

func (s *Scheduler) cycle(ctx context.Context) {
	if _, err := s.cycler.Poll(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("poll cycle failed", "error", err)
	}
}

// waitReady blocks until the sink reports ready, backing off between checks.
// It returns false if ctx is cancelled first.
func (s *Scheduler) waitReady(ctx context.Context) bool {
	if s.ready == nil {
		return ctx.Err() == nil
	}
	delay := s.readyDelay
	for {
		err := s.ready.Ready(ctx)
		if err == nil {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		s.logger.Warn("sink not ready, waiting", "retry_in", delay, "error", err)

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return false
		case <-t.C:
		}
		if delay *= 2; delay > readyMaxDelay {
			delay = readyMaxDelay
		}
	}
}

// Handle controls a loop launched with Start.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Stop cancels the loop and waits for it to exit.
func (h *Handle) Stop() {
	h.cancel()
	<-h.done
}

// Done is closed once the loop has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}
