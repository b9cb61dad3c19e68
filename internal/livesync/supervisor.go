package livesync

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Supervisor runs tick once on Start and then every period until Stop.
// tick must not call Start or Stop.
type Supervisor struct {
	period time.Duration
	tick   func(context.Context)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSupervisor(period time.Duration, tick func(context.Context)) *Supervisor {
	if period <= 0 {
		period = DefaultPollInterval
	}
	return &Supervisor{period: period, tick: tick}
}

// Start replaces any running loop with a new one.
func (s *Supervisor) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	go s.loop(loopCtx, done)
}

// Stop cancels the loop and waits for an in-progress tick to return.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Running reports whether a loop is active.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *Supervisor) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
}

func (s *Supervisor) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// liveTick refreshes data and health concurrently.
func (c *Controller) liveTick(ctx context.Context) {
	var g errgroup.Group
	g.Go(func() error { return c.Refresh(ctx, false) })
	g.Go(func() error { return c.RefreshHealth(ctx, false) })
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		c.logger.Warn("live refresh failed", "error", err)
	}
}
