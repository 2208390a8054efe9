// SPDX-License-Identifier: MIT
package visualiser

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSchedulerStopCancelsLoop(t *testing.T) {
	s := NewScheduler(200)
	var calls atomic.Int64
	if err := s.Start(context.Background(), func(ctx context.Context, frame uint64) error {
		calls.Add(1)
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "three ticks", func() bool { return calls.Load() >= 3 })

	s.Stop()
	stopped := calls.Load()
	if s.Running() {
		t.Error("Running() after Stop")
	}
	time.Sleep(5 * s.Interval())
	if got := calls.Load(); got != stopped {
		t.Errorf("ticks continued after Stop: %d -> %d", stopped, got)
	}
	s.Stop() // No-op.
}

func TestSchedulerFailedTickContinues(t *testing.T) {
	s := NewScheduler(200)
	errTick := errors.New("short frame")
	if err := s.Start(context.Background(), func(ctx context.Context, frame uint64) error {
		if frame%2 == 0 {
			return errTick
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	waitFor(t, "six ticks", func() bool { return s.Ticks() >= 6 })
	if f := s.Failures(); f < 2 || f >= s.Ticks() {
		t.Errorf("failures = %d of %d ticks, want roughly half", f, s.Ticks())
	}
}

func TestSchedulerFramesCountFromZero(t *testing.T) {
	s := NewScheduler(200)
	frames := make(chan uint64, 3)
	s.Start(context.Background(), func(ctx context.Context, frame uint64) error {
		select {
		case frames <- frame:
		default:
		}
		return nil
	})
	defer s.Stop()

	for want := range uint64(3) {
		select {
		case got := <-frames:
			if got != want {
				t.Fatalf("frame = %d, want %d", got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for a tick")
		}
	}
}

func TestSchedulerStartTwice(t *testing.T) {
	s := NewScheduler(60)
	noop := func(context.Context, uint64) error { return nil }
	if err := s.Start(context.Background(), noop); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()
	if err := s.Start(context.Background(), noop); !errors.Is(err, ErrSchedulerRunning) {
		t.Errorf("second Start error = %v, want ErrSchedulerRunning", err)
	}
}

func TestSchedulerParentCancel(t *testing.T) {
	s := NewScheduler(200)
	ctx, cancel := context.WithCancel(context.Background())
	noop := func(context.Context, uint64) error { return nil }
	if err := s.Start(ctx, noop); err != nil {
		t.Fatal(err)
	}
	cancel()
	waitFor(t, "loop exit", func() bool { return !s.Running() })

	if err := s.Start(context.Background(), noop); err != nil {
		t.Errorf("restart after parent cancel: %v", err)
	}
	s.Stop()
}

func TestNewSchedulerClampsRate(t *testing.T) {
	if got := NewScheduler(0).Interval(); got != time.Second {
		t.Errorf("Interval() = %v, want 1s", got)
	}
	if got := NewScheduler(60).Interval(); got != time.Second/60 {
		t.Errorf("Interval() = %v, want %v", got, time.Second/60)
	}
}
