package main

import "testing"

const (
	warnTicks  = 80  // quietWarnAfter / voicePollEvery
	closeTicks = 300 // quietCloseAfter / voicePollEvery
)

func newWatch(toggle bool) *voiceWatch {
	return newVoiceWatch(func() bool { return toggle })
}

// drive feeds n verdicts and returns every non-steady transition in order.
func drive(w *voiceWatch, speech bool, n int) []voiceEvent {
	var evs []voiceEvent
	for i := 0; i < n; i++ {
		if ev := w.Tick(speech); ev != voiceSteady {
			evs = append(evs, ev)
		}
	}
	return evs
}

func TestQuietWarnFiresOnWindowBoundary(t *testing.T) {
	w := newWatch(false)
	if evs := drive(w, false, warnTicks-1); len(evs) != 0 {
		t.Fatalf("transitions before the warn window elapsed: %v", evs)
	}
	if ev := w.Tick(false); ev != voiceQuiet {
		t.Fatalf("tick %d = %d, want voiceQuiet", warnTicks, ev)
	}
}

func TestQuietWarnFiresOnce(t *testing.T) {
	w := newWatch(false)
	warns := 0
	for i := 0; i < closeTicks; i++ {
		if w.Tick(false) == voiceQuiet {
			warns++
		}
	}
	if warns != 1 {
		t.Fatalf("got %d warnings over sustained silence, want 1", warns)
	}
}

func TestSpeechSuppressesWarn(t *testing.T) {
	w := newWatch(false)
	if evs := drive(w, true, 2*warnTicks); len(evs) != 0 {
		t.Fatalf("transitions while talking: %v", evs)
	}
}

func TestResumeAfterWarn(t *testing.T) {
	w := newWatch(false)
	drive(w, false, warnTicks)

	for i := 0; i < warnTicks; i++ {
		if w.Tick(true) == voiceResumed {
			return
		}
	}
	t.Fatal("sustained speech never cleared the warning")
}

func TestSparseSpeechDoesNotClearWarn(t *testing.T) {
	w := newWatch(false)
	drive(w, false, warnTicks)

	// 10% speech sits at the quiet threshold, well under the 25% needed
	// to clear.
	for i := 0; i < warnTicks; i++ {
		if ev := w.Tick(i%10 == 0); ev == voiceResumed {
			t.Fatalf("10%% speech cleared the warning at tick %d", i)
		}
	}
}

func TestReminderOnlyInToggleMode(t *testing.T) {
	w := newWatch(true)
	drive(w, false, warnTicks)
	if evs := drive(w, false, warnTicks); len(evs) != 1 || evs[0] != voiceStillQuiet {
		t.Fatalf("toggle mode transitions after warning: %v, want one voiceStillQuiet", evs)
	}

	held := newWatch(false)
	drive(held, false, warnTicks)
	if evs := drive(held, false, 2*warnTicks); len(evs) != 0 {
		t.Fatalf("push-to-talk mode produced reminders: %v", evs)
	}
}

func TestAutoCloseAfterLongWindow(t *testing.T) {
	w := newWatch(true)
	for i := 0; i < closeTicks-1; i++ {
		if ev := w.Tick(false); ev == voiceGone {
			t.Fatalf("closed early at tick %d", i)
		}
	}
	if ev := w.Tick(false); ev != voiceGone {
		t.Fatalf("tick %d = %d, want voiceGone", closeTicks, ev)
	}
}

func TestAutoCloseOutranksReminder(t *testing.T) {
	w := newWatch(true)
	var last voiceEvent
	for i := 0; i < closeTicks; i++ {
		last = w.Tick(false)
	}
	if last != voiceGone {
		t.Fatalf("tick %d = %d, want voiceGone even when a reminder is also due", closeTicks, last)
	}
}

func TestNoAutoCloseWhenHeld(t *testing.T) {
	w := newWatch(false)
	for i := 0; i < closeTicks+warnTicks; i++ {
		if ev := w.Tick(false); ev == voiceGone {
			t.Fatalf("push-to-talk mode auto-closed at tick %d", i)
		}
	}
}

func TestIntermittentSpeechKeepsRecordingOpen(t *testing.T) {
	w := newWatch(true)
	for i := 0; i < 2*closeTicks; i++ {
		if ev := w.Tick(i%10 < 7); ev == voiceGone {
			t.Fatalf("auto-closed at tick %d despite 70%% speech", i)
		}
	}
}
