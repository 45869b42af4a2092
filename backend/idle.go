package backend

import (
	"sync"
	"time"
)

// idleTimer calls expire once per idle period: it arms on Touch and fires
// after d without another Touch. After firing it stays quiet until the next
// Touch re-arms it. A non-positive d disables the timer entirely.
type idleTimer struct {
	d      time.Duration
	expire func()

	touchCh  chan struct{}
	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newIdleTimer(d time.Duration, expire func()) *idleTimer {
	t := &idleTimer{
		d:       d,
		expire:  expire,
		touchCh: make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	if d <= 0 {
		close(t.done)
		return t
	}
	go t.loop()
	return t
}

func (t *idleTimer) loop() {
	defer close(t.done)
	timer := time.NewTimer(t.d)
	defer timer.Stop()

	for {
		select {
		case <-t.stopCh:
			return
		case <-t.touchCh:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(t.d)
		case <-timer.C:
			t.expire()
			// quiet until the next Touch
		}
	}
}

// Touch resets the countdown. Safe from any goroutine; never blocks.
func (t *idleTimer) Touch() {
	if t.d <= 0 {
		return
	}
	select {
	case t.touchCh <- struct{}{}:
	default:
	}
}

// Stop shuts the timer down and waits for its goroutine to finish. No
// expire call can be in flight after Stop returns.
func (t *idleTimer) Stop() {
	if t.d <= 0 {
		return
	}
	t.stopOnce.Do(func() { close(t.stopCh) })
	<-t.done
}
