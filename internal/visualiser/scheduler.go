// SPDX-License-Identifier: MIT
package visualiser

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"visualiser/internal/log"
)

// TickFunc does one frame of work. frame counts ticks of the current loop
// from zero.
type TickFunc func(ctx context.Context, frame uint64) error

// Scheduler calls a TickFunc at a fixed rate on a single goroutine. Ticks
// never overlap; a slow tick delays the next one instead of queueing more.
type Scheduler struct {
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc // Cancellation token of the running loop.
	done   chan struct{}

	ticks    atomic.Uint64
	failures atomic.Uint64
}

// NewScheduler returns a scheduler ticking fps times per second.
func NewScheduler(fps int) *Scheduler {
	if fps < 1 {
		fps = 1
	}
	return &Scheduler{interval: time.Second / time.Duration(fps)}
}

// Interval returns the time between ticks.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Start launches the loop. It runs until Stop is called or parent is done.
func (s *Scheduler) Start(parent context.Context, fn TickFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runningLocked() {
		return ErrSchedulerRunning
	}
	if s.cancel != nil {
		s.cancel() // Loop already ended with its parent.
	}

	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go s.loop(ctx, fn, done)
	return nil
}

func (s *Scheduler) loop(ctx context.Context, fn TickFunc, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var frame uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		// Stop may have raced with the ticker.
		if ctx.Err() != nil {
			return
		}
		if err := fn(ctx, frame); err != nil {
			s.failures.Add(1)
			log.Debugf("Scheduler: Tick %d failed: %v", frame, err)
		}
		s.ticks.Add(1)
		frame++
	}
}

// Stop cancels the running loop and waits for the tick in progress to
// finish. It is a no-op when the scheduler is not running.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether a loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runningLocked()
}

func (s *Scheduler) runningLocked() bool {
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Ticks returns the number of ticks run since the scheduler was created.
func (s *Scheduler) Ticks() uint64 {
	return s.ticks.Load()
}

// Failures returns how many of those ticks returned an error.
func (s *Scheduler) Failures() uint64 {
	return s.failures.Load()
}
