package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/LeventeLantos/modem-sms/internal/logger"
)

// TickFunc performs one poll. A returned error is logged and the next
// attempt happens one interval later.
type TickFunc func(ctx context.Context) error

// Scheduler drives a poll loop: one tick right after Start, then one per
// interval until Stop. Ticks never overlap. Stop cancels the tick context
// and waits for the running tick to return, so resources the tick writes
// to can be closed once Stop or Run returns.
type Scheduler struct {
	interval time.Duration
	tickFn   TickFunc

	running  atomic.Bool
	failures atomic.Int64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(interval time.Duration, tickFn TickFunc) (*Scheduler, error) {
	if interval <= 0 {
		return nil, errors.New("interval must be > 0")
	}
	if tickFn == nil {
		return nil, errors.New("tickFn must not be nil")
	}
	return &Scheduler{
		interval: interval,
		tickFn:   tickFn,
		done:     make(chan struct{}),
	}, nil
}

// Start launches the loop with a context derived from parent. It returns
// false if the loop is already running.
func (s *Scheduler) Start(parent context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return false
	}

	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.failures.Store(0)
	s.running.Store(true)

	go s.loop(ctx, s.done)
	return true
}

// Stop cancels the loop and blocks until the in-flight tick has returned.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.Load() {
		return false
	}

	s.cancel()
	<-s.done
	s.running.Store(false)

	logger.Debug("scheduler stopped")
	return true
}

// Run starts the loop and blocks until ctx is done, then stops it.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.Start(ctx) {
		return errors.New("scheduler already running")
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

// Failures reports how many ticks in a row have failed.
func (s *Scheduler) Failures() int {
	return int(s.failures.Load())
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.Debug("scheduler started", zap.Duration("interval", s.interval))

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			logger.Debug("scheduler stopping")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	start := time.Now()
	err := s.safeTick(ctx)

	switch {
	case err != nil && ctx.Err() != nil:
		// Cancelled by Stop; not a poll failure.
	case err != nil:
		n := s.failures.Add(1)
		logger.Warn("poll failed, retrying next interval",
			zap.Error(err),
			zap.Int64("consecutive_failures", n),
			zap.Duration("retry_in", s.interval),
		)
	default:
		if n := s.failures.Swap(0); n > 0 {
			logger.Info("poll recovered", zap.Int64("after_failures", n))
		}
		logger.Debug("poll completed", zap.Int64("duration_ms", time.Since(start).Milliseconds()))
	}
}

func (s *Scheduler) safeTick(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tick panic: %v", r)
		}
	}()
	return s.tickFn(ctx)
}
