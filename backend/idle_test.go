package backend

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestIdleTimerFiresOnce(t *testing.T) {
	var fired atomic.Int32
	timer := newIdleTimer(40*time.Millisecond, func() { fired.Add(1) })
	defer timer.Stop()

	timer.Touch()
	time.Sleep(200 * time.Millisecond)

	if got := fired.Load(); got != 1 {
		t.Fatalf("fired %d times, want exactly 1 (no re-arm without Touch)", got)
	}
}

func TestIdleTimerTouchDelaysExpiry(t *testing.T) {
	var fired atomic.Int32
	timer := newIdleTimer(80*time.Millisecond, func() { fired.Add(1) })
	defer timer.Stop()

	for i := 0; i < 6; i++ {
		timer.Touch()
		time.Sleep(30 * time.Millisecond)
	}
	if got := fired.Load(); got != 0 {
		t.Fatalf("fired %d times while being touched, want 0", got)
	}

	time.Sleep(200 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Fatalf("fired %d times after touches stopped, want 1", got)
	}
}

func TestIdleTimerRearmsAfterTouch(t *testing.T) {
	var fired atomic.Int32
	timer := newIdleTimer(30*time.Millisecond, func() { fired.Add(1) })
	defer timer.Stop()

	time.Sleep(100 * time.Millisecond) // first expiry
	timer.Touch()
	time.Sleep(100 * time.Millisecond) // second expiry

	if got := fired.Load(); got != 2 {
		t.Fatalf("fired %d times, want 2 (one per idle period)", got)
	}
}

func TestIdleTimerDisabled(t *testing.T) {
	var fired atomic.Int32
	timer := newIdleTimer(0, func() { fired.Add(1) })

	timer.Touch()
	time.Sleep(50 * time.Millisecond)
	timer.Stop()
	timer.Stop() // idempotent

	if got := fired.Load(); got != 0 {
		t.Fatalf("disabled timer fired %d times", got)
	}
}

func TestIdleTimerStopJoins(t *testing.T) {
	var fired atomic.Int32
	timer := newIdleTimer(20*time.Millisecond, func() { fired.Add(1) })

	timer.Stop()
	timer.Stop() // idempotent
	before := fired.Load()
	time.Sleep(80 * time.Millisecond)

	if got := fired.Load(); got != before {
		t.Fatalf("timer fired after Stop returned")
	}
}
