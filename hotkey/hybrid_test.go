package hotkey

import (
	"testing"
	"time"
)

func expectSignal(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatalf("no %s signal within 1s", what)
	}
}

func expectQuiet(t *testing.T, ch <-chan struct{}, dur time.Duration, what string) {
	t.Helper()
	select {
	case <-ch:
		t.Fatalf("unexpected %s signal", what)
	case <-time.After(dur):
	}
}

func TestHybridHoldStopsOnRelease(t *testing.T) {
	key := NewFake()
	hb := NewHybrid(key, 50*time.Millisecond)

	key.Press()
	expectSignal(t, hb.Start(), "start")

	time.Sleep(70 * time.Millisecond)
	if hb.IsToggle() {
		t.Error("a held press should not arm toggle mode")
	}
	key.Release()
	expectSignal(t, hb.StopChan(), "stop")
}

func TestHybridTapArmsToggle(t *testing.T) {
	key := NewFake()
	hb := NewHybrid(key, 200*time.Millisecond)

	key.Press()
	expectSignal(t, hb.Start(), "start")
	key.Release()

	time.Sleep(15 * time.Millisecond)
	if !hb.IsToggle() {
		t.Error("a short tap should arm toggle mode")
	}
	expectQuiet(t, hb.StopChan(), 50*time.Millisecond, "stop")

	// The next full tap ends the toggled recording.
	key.Press()
	key.Release()
	expectSignal(t, hb.StopChan(), "stop")
}

func TestHybridAlternatingHoldAndTap(t *testing.T) {
	key := NewFake()
	hb := NewHybrid(key, 50*time.Millisecond)

	hold := func() {
		key.Press()
		expectSignal(t, hb.Start(), "start")
		time.Sleep(70 * time.Millisecond)
		key.Release()
		expectSignal(t, hb.StopChan(), "stop")
	}
	tap := func() {
		key.Press()
		expectSignal(t, hb.Start(), "start")
		key.Release()
		time.Sleep(20 * time.Millisecond)
		key.Press()
		key.Release()
		expectSignal(t, hb.StopChan(), "stop")
	}

	hold()
	tap()
	hold()
}
