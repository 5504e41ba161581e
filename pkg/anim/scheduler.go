// Package anim drives the per-frame update loop.
package anim

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// DefaultInterval is one display frame at 60 Hz.
const DefaultInterval = time.Second / 60

// ErrStopped is returned when starting a scheduler that was already stopped.
var ErrStopped = errors.New("anim: scheduler stopped")

// FrameFunc advances the scene by one frame. dt is the wall time since
// the previous frame.
type FrameFunc func(now time.Time, dt time.Duration) error

// Options configures a Scheduler.
type Options struct {
	Interval time.Duration
	// MaxDelta caps dt after stalls (suspended laptop, debugger) so physics
	// does not take one huge step.
	MaxDelta time.Duration
	Logger   *zap.Logger
}

// Scheduler calls a FrameFunc once per interval until stopped.
type Scheduler struct {
	fn       FrameFunc
	interval time.Duration
	maxDelta time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
	frames  uint64
}

// New creates a scheduler. It does nothing until Start.
func New(fn FrameFunc, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.MaxDelta <= 0 {
		opts.MaxDelta = 6 * opts.Interval
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Scheduler{
		fn:       fn,
		interval: opts.Interval,
		maxDelta: opts.MaxDelta,
		logger:   opts.Logger,
		done:     make(chan struct{}),
	}
}

// Start launches the frame loop. It is a no-op when already running and
// returns ErrStopped after Stop. The loop also ends when ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	if s.started {
		return nil
	}
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)
	go s.loop(ctx)
	return nil
}

// Stop halts the loop and waits for an in-flight frame to finish.
// Stop is idempotent and safe to call before Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	wasStarted := s.started
	cancel := s.cancel
	s.mu.Unlock()

	if !wasStarted {
		return
	}
	cancel()
	<-s.done
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started && !s.stopped
}

// Frames returns how many frames have run.
func (s *Scheduler) Frames() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)
	// The timer is re-armed only after fn returns, so a slow frame delays
	// the next one instead of queueing ticks behind it.
	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-timer.C:
			dt := now.Sub(last)
			if dt > s.maxDelta {
				dt = s.maxDelta
			}
			last = now
			if err := s.fn(now, dt); err != nil {
				s.logger.Warn("frame failed", zap.Error(err))
			}
			s.mu.Lock()
			s.frames++
			s.mu.Unlock()
			timer.Reset(s.interval)
		}
	}
}

// RunFrames drives fn for n frames of length dt starting at start, without
// waiting on the wall clock. It stops at the first error.
func RunFrames(n int, start time.Time, dt time.Duration, fn FrameFunc) error {
	now := start
	for i := range n {
		now = now.Add(dt)
		if err := fn(now, dt); err != nil {
			return errors.Wrapf(err, "frame %d", i)
		}
	}
	return nil
}
