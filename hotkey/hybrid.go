package hotkey

import (
	"sync/atomic"
	"time"
)

// Hybrid layers tap-to-toggle and hold-to-talk on a single binding. A press
// always starts recording. Releasing before the long-press threshold arms
// toggle mode and the next tap stops; holding past it stops on release.
type Hybrid struct {
	starts  chan struct{}
	stops   chan struct{}
	toggled atomic.Bool
}

func NewHybrid(hk Hotkey, longPress time.Duration) *Hybrid {
	h := &Hybrid{
		starts: make(chan struct{}, 1),
		stops:  make(chan struct{}, 1),
	}
	go h.run(hk, longPress)
	return h
}

// Start signals that recording should begin.
func (h *Hybrid) Start() <-chan struct{} { return h.starts }

// StopChan signals that recording should end, for both tap and hold presses.
func (h *Hybrid) StopChan() <-chan struct{} { return h.stops }

// IsToggle reports whether the current recording was armed by a short tap.
func (h *Hybrid) IsToggle() bool { return h.toggled.Load() }

func (h *Hybrid) run(hk Hotkey, longPress time.Duration) {
	for {
		<-hk.Pressed()
		h.toggled.Store(false)
		select {
		case h.starts <- struct{}{}:
		default:
		}

		timer := time.NewTimer(longPress)
		select {
		case <-timer.C:
			// Held past the threshold: stop on release.
			<-hk.Released()
		case <-hk.Released():
			// Short tap: keep recording until the next full tap.
			if !timer.Stop() {
				<-timer.C
			}
			h.toggled.Store(true)
			<-hk.Pressed()
			<-hk.Released()
			h.toggled.Store(false)
		}
		select {
		case h.stops <- struct{}{}:
		default:
		}
	}
}
