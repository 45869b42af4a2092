package main

import "time"

// Escalation while a recording runs with nobody talking: warn once after
// the short window, remind periodically, close the recording after the
// long window. Closing only applies in toggle mode; a held key is its own
// signal that the user wants the mic open.

const (
	voicePollEvery  = 100 * time.Millisecond
	quietWarnAfter  = 8 * time.Second
	quietCloseAfter = 30 * time.Second

	// A window is quiet under 10% speech. Clearing an active warning
	// needs 25% so breathing noise doesn't flap the state.
	quietBelow = 0.10
	clearAbove = 0.25
)

type voiceEvent int

const (
	voiceSteady     voiceEvent = iota
	voiceQuiet                 // warn window elapsed without speech
	voiceResumed               // speech came back after a warning
	voiceStillQuiet            // periodic reminder while warned
	voiceGone                  // long window elapsed, close the recording
)

// voiceWatch consumes one VAD verdict per poll interval and reports the
// transition, if any, that the verdict caused. Two sliding windows are
// tracked incrementally: a short one for warnings and the full ring for
// the auto-close decision.
type voiceWatch struct {
	toggled func() bool

	ring       []bool
	seen       int
	shortSpan  int
	shortCount int
	longCount  int

	warned   bool
	remindAt int
}

func newVoiceWatch(toggled func() bool) *voiceWatch {
	long := int(quietCloseAfter / voicePollEvery)
	return &voiceWatch{
		toggled:   toggled,
		ring:      make([]bool, long),
		shortSpan: int(quietWarnAfter / voicePollEvery),
	}
}

// Tick records one verdict and returns the resulting transition. Event
// precedence when several conditions hold at once: warn, resume, close,
// remind.
func (w *voiceWatch) Tick(speech bool) voiceEvent {
	long := len(w.ring)

	// Retire the verdicts leaving each window before admitting the new one.
	if w.seen >= long && w.ring[w.seen%long] {
		w.longCount--
	}
	if w.seen >= w.shortSpan && w.ring[(w.seen-w.shortSpan)%long] {
		w.shortCount--
	}
	w.ring[w.seen%long] = speech
	if speech {
		w.shortCount++
		w.longCount++
	}
	w.seen++

	span := w.shortSpan
	if w.seen < span {
		span = w.seen
	}
	recent := float64(w.shortCount) / float64(span)

	if !w.warned && w.seen >= w.shortSpan && recent < quietBelow {
		w.warned = true
		w.remindAt = w.seen
		return voiceQuiet
	}
	if w.warned && recent >= clearAbove {
		w.warned = false
		return voiceResumed
	}

	if !w.toggled() {
		return voiceSteady
	}
	if w.seen >= long && float64(w.longCount)/float64(long) < quietBelow {
		return voiceGone
	}
	if w.warned && w.seen-w.remindAt >= w.shortSpan {
		w.remindAt = w.seen
		return voiceStillQuiet
	}
	return voiceSteady
}
