package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/beeep"

	"whisk/beep"
	"whisk/log"
	"whisk/tray"
)

// EventSink abstracts the display layer so the Bubble Tea TUI, the tray
// icon, audible cues, and the desktop GUI all receive the same session
// events.
type EventSink interface {
	RecordingStart()
	RecordingStop()
	RecordingTick(duration float64)
	AudioLevel(level float64)
	NoVoiceWarning()
	VoiceCleared()
	AutoClosed()
	Transcription(text string, m *log.Metrics, pasted bool, noSpeech bool)
	Canceled()
	Failed(err error)
	ModeLine(text string)
	DeviceLine(text string)
}

// NopSink implements every event as a no-op. Embed it to pick out only
// the events a sink cares about.
type NopSink struct{}

func (NopSink) RecordingStart()                                {}
func (NopSink) RecordingStop()                                 {}
func (NopSink) RecordingTick(float64)                          {}
func (NopSink) AudioLevel(float64)                             {}
func (NopSink) NoVoiceWarning()                                {}
func (NopSink) VoiceCleared()                                  {}
func (NopSink) AutoClosed()                                    {}
func (NopSink) Transcription(string, *log.Metrics, bool, bool) {}
func (NopSink) Canceled()                                      {}
func (NopSink) Failed(error)                                   {}
func (NopSink) ModeLine(string)                                {}
func (NopSink) DeviceLine(string)                              {}

type multiSink []EventSink

func (m multiSink) RecordingStart() {
	for _, s := range m {
		s.RecordingStart()
	}
}

func (m multiSink) RecordingStop() {
	for _, s := range m {
		s.RecordingStop()
	}
}

func (m multiSink) RecordingTick(d float64) {
	for _, s := range m {
		s.RecordingTick(d)
	}
}

func (m multiSink) AudioLevel(l float64) {
	for _, s := range m {
		s.AudioLevel(l)
	}
}

func (m multiSink) NoVoiceWarning() {
	for _, s := range m {
		s.NoVoiceWarning()
	}
}

func (m multiSink) VoiceCleared() {
	for _, s := range m {
		s.VoiceCleared()
	}
}

func (m multiSink) AutoClosed() {
	for _, s := range m {
		s.AutoClosed()
	}
}

func (m multiSink) Transcription(text string, mt *log.Metrics, pasted, noSpeech bool) {
	for _, s := range m {
		s.Transcription(text, mt, pasted, noSpeech)
	}
}

func (m multiSink) Canceled() {
	for _, s := range m {
		s.Canceled()
	}
}

func (m multiSink) Failed(err error) {
	for _, s := range m {
		s.Failed(err)
	}
}

func (m multiSink) ModeLine(text string) {
	for _, s := range m {
		s.ModeLine(text)
	}
}

func (m multiSink) DeviceLine(text string) {
	for _, s := range m {
		s.DeviceLine(text)
	}
}

// beepSink plays audible cues at session boundaries. Playback runs in
// its own goroutine so a slow audio stack never stalls the session.
type beepSink struct{ NopSink }

func (beepSink) RecordingStart() { go beep.PlayStart() }
func (beepSink) RecordingStop()  { go beep.PlayEnd() }
func (beepSink) AutoClosed()     { go beep.PlayEnd() }
func (beepSink) NoVoiceWarning() { go beep.PlayError() }
func (beepSink) Failed(error)    { go beep.PlayError() }

// lastText holds the most recent transcription for the tray's
// "copy last" action.
var (
	lastTextMu sync.Mutex
	lastText   string
)

func lastTranscription() string {
	lastTextMu.Lock()
	defer lastTextMu.Unlock()
	return lastText
}

// traySink mirrors session state into the tray menu.
type traySink struct{ NopSink }

func (traySink) RecordingStart() { tray.SetRecording(true) }
func (traySink) RecordingStop()  { tray.SetRecording(false) }
func (traySink) NoVoiceWarning() { tray.SetWarning(true) }
func (traySink) VoiceCleared()   { tray.SetWarning(false) }

func (traySink) AutoClosed() {
	tray.SetRecording(false)
	tray.SetWarning(false)
}

func (traySink) Canceled() {
	tray.SetRecording(false)
	tray.SetWarning(false)
}

func (traySink) Transcription(text string, m *log.Metrics, _ bool, noSpeech bool) {
	if noSpeech {
		return
	}
	lastTextMu.Lock()
	lastText = text
	lastTextMu.Unlock()
	var dur time.Duration
	var totalMs float64
	if m != nil {
		dur = time.Duration(m.AudioLengthS * float64(time.Second))
		totalMs = m.TotalTimeMs
	}
	tray.SetLastRecording(dur, totalMs)
}

func (traySink) Failed(err error) { tray.SetError(err.Error()) }

// notifySink raises desktop notifications for terminal outcomes, for
// users who run without the TUI.
type notifySink struct{ NopSink }

func (notifySink) Transcription(text string, _ *log.Metrics, pasted, noSpeech bool) {
	if noSpeech {
		notifyAsync("Whisk", "No speech detected")
		return
	}
	title := "Copied to clipboard"
	if pasted {
		title = "Pasted"
	}
	notifyAsync(title, truncateText(text, 120))
}

func (notifySink) Failed(err error) {
	notifyAsync("Transcription failed", truncateText(err.Error(), 120))
}

func notifyAsync(title, body string) {
	go func() {
		if err := beeep.Notify(title, body, ""); err != nil {
			log.Warnf("notification failed: %v", err)
		}
	}()
}

func truncateText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return fmt.Sprintf("%s…", s[:max])
}
