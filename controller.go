package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"whisk/audio"
	"whisk/backend"
	"whisk/encoder"
	"whisk/log"
)

type State int

const (
	StateIdle State = iota
	StateRecording
	StateProcessing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateProcessing:
		return "processing"
	}
	return "unknown"
}

// minFrames drops recordings too short to contain a word.
const minFrames = encoder.SampleRate / 10 // 100ms

// session is one press-to-delivery run. The pointer identity doubles as
// a staleness token: a finished worker whose session no longer matches
// the controller's current one discards its result. The backend is
// pinned at start so a tray-menu swap never affects a run in flight.
type session struct {
	id       uuid.UUID
	started  time.Time
	buf      *encoder.Buffer
	vad      *vadProcessor
	back     backend.Backend
	language string
	canceled atomic.Bool
}

// Controller owns the recording state machine. At most one session is
// away from idle at any time; every outcome, including failure and
// cancellation, returns the controller to idle so the next hotkey press
// starts fresh.
type Controller struct {
	back     backend.Backend
	enc      encoder.Encoder
	deliver  *Deliverer
	sink     EventSink
	archive  *archiver // nil disables archiving
	language string
	isToggle func() bool

	mu      sync.Mutex
	capture audio.CaptureDevice
	state   State
	sess    *session
	monStop chan struct{}
	wg      sync.WaitGroup
}

type ControllerOptions struct {
	Capture  audio.CaptureDevice
	Backend  backend.Backend
	Encoder  encoder.Encoder
	Deliver  *Deliverer
	Sink     EventSink
	Archive  *archiver
	Language string
	// IsToggle reports whether the current recording was started as a
	// toggle (as opposed to held push-to-talk). Toggled recordings
	// auto-close after sustained silence.
	IsToggle func() bool
}

func NewController(opts ControllerOptions) *Controller {
	c := &Controller{
		capture:  opts.Capture,
		back:     opts.Backend,
		enc:      opts.Encoder,
		deliver:  opts.Deliver,
		sink:     opts.Sink,
		archive:  opts.Archive,
		language: opts.Language,
		isToggle: opts.IsToggle,
	}
	if c.sink == nil {
		c.sink = NopSink{}
	}
	if c.isToggle == nil {
		c.isToggle = func() bool { return true }
	}
	return c
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetCapture swaps the capture device between sessions. Ignored while a
// recording is in flight.
func (c *Controller) SetCapture(capture audio.CaptureDevice) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateRecording {
		return false
	}
	c.capture = capture
	return true
}

// SetBackend swaps the backend and language for future sessions. Only
// allowed while idle; sessions already in flight keep the backend they
// started with.
func (c *Controller) SetBackend(back backend.Backend, language string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateIdle {
		return false
	}
	c.back = back
	c.language = language
	return true
}

// Toggle flips between idle and recording. A press while a previous
// recording is still transcribing is ignored; the next press after it
// resolves starts a new session.
func (c *Controller) Toggle() {
	c.mu.Lock()
	switch c.state {
	case StateIdle:
		err := c.startLocked()
		c.mu.Unlock()
		if err != nil {
			log.Errorf("recording start failed: %v", err)
			c.sink.Failed(err)
			return
		}
		c.sink.RecordingStart()
	case StateRecording:
		c.stopLocked()
		c.mu.Unlock()
		c.sink.RecordingStop()
	case StateProcessing:
		c.mu.Unlock()
		log.Info("toggle_ignored_processing")
	}
}

// Start begins a recording only when idle. Used by the hybrid hotkey,
// whose press event must never stop an in-flight recording.
func (c *Controller) Start() {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return
	}
	err := c.startLocked()
	c.mu.Unlock()
	if err != nil {
		log.Errorf("recording start failed: %v", err)
		c.sink.Failed(err)
		return
	}
	c.sink.RecordingStart()
}

// Stop ends the active recording and hands it to transcription. No-op
// unless recording.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.state != StateRecording {
		c.mu.Unlock()
		return
	}
	c.stopLocked()
	c.mu.Unlock()
	c.sink.RecordingStop()
}

// Cancel discards the active session. While recording the capture stops
// and the buffer is dropped on the spot; while transcribing the session
// is marked stale and its eventual result is thrown away. Either way the
// controller is idle when Cancel returns.
func (c *Controller) Cancel() {
	c.mu.Lock()
	switch c.state {
	case StateIdle:
		c.mu.Unlock()
		return
	case StateRecording:
		sess := c.sess
		dur := time.Since(sess.started).Seconds()
		c.capture.Stop()
		c.capture.ClearCallback()
		close(c.monStop)
		sess.canceled.Store(true)
		sess.buf.Reset()
		c.sess = nil
		c.state = StateIdle
		c.mu.Unlock()
		log.Info("recording_canceled")
		log.SessionEnd("canceled", dur)
	case StateProcessing:
		sess := c.sess
		dur := time.Since(sess.started).Seconds()
		sess.canceled.Store(true)
		c.sess = nil
		c.state = StateIdle
		c.mu.Unlock()
		log.Info("processing_canceled")
		log.SessionEnd("canceled", dur)
	}
	c.sink.Canceled()
}

// Close cancels whatever is in flight and waits for the workers to
// drain. The backend is owned by the caller and closed separately.
func (c *Controller) Close() {
	c.Cancel()
	c.wg.Wait()
}

func (c *Controller) startLocked() error {
	vad, err := newVADProcessor()
	if err != nil {
		return err
	}

	sess := &session{
		id:       uuid.New(),
		started:  time.Now(),
		buf:      &encoder.Buffer{},
		vad:      vad,
		back:     c.back,
		language: c.language,
	}

	c.capture.SetCallback(func(samples []float32, _ uint32) {
		sess.buf.Append(samples)
		c.sink.AudioLevel(audio.RMS(samples))
		vad.Process(samples)
	})
	if err := c.capture.Start(); err != nil {
		c.capture.ClearCallback()
		return err
	}

	c.sess = sess
	c.state = StateRecording
	c.monStop = make(chan struct{})
	c.wg.Add(1)
	go c.monitor(sess, c.monStop)

	log.SessionStart(sess.back.Name(), sess.language)
	log.Info("recording_start")
	return nil
}

// stopLocked moves recording to processing and spawns the transcription
// worker. Caller holds the lock and has verified state == recording.
func (c *Controller) stopLocked() {
	sess := c.sess
	c.capture.Stop()
	c.capture.ClearCallback()
	close(c.monStop)
	c.state = StateProcessing
	total, speech := sess.vad.Stats()
	log.Info(fmt.Sprintf("recording_stop (speech %d/%d frames)", speech, total))
	c.wg.Add(1)
	go c.process(sess)
}

// monitor drives the recording ticker: elapsed-time updates for the
// display and the silence watchdog.
func (c *Controller) monitor(sess *session, stop <-chan struct{}) {
	defer c.wg.Done()
	watch := newVoiceWatch(c.isToggle)
	ticker := time.NewTicker(voicePollEvery)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.sink.RecordingTick(time.Since(sess.started).Seconds())
			switch watch.Tick(sess.vad.HasSpeechTick()) {
			case voiceQuiet:
				log.Info("no_voice_warning")
				c.sink.NoVoiceWarning()
			case voiceResumed:
				c.sink.VoiceCleared()
			case voiceStillQuiet:
				log.Info("silence_during_warning")
				c.sink.NoVoiceWarning()
			case voiceGone:
				log.Info("silence_auto_close")
				if c.stopSession(sess) {
					c.sink.AutoClosed()
				}
				return
			}
		}
	}
}

// stopSession stops a specific recording session, reporting whether it
// was still the active one.
func (c *Controller) stopSession(sess *session) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRecording || c.sess != sess {
		return false
	}
	c.stopLocked()
	return true
}

// process runs off the hotkey path: encode, archive, transcribe,
// deliver. Cancellation does not interrupt the backend call; the result
// of a canceled session is discarded in finish.
func (c *Controller) process(sess *session) {
	defer c.wg.Done()

	var m log.Metrics
	m.AudioLengthS = sess.buf.Duration().Seconds()

	if sess.buf.Frames() < minFrames {
		c.finish(sess, nil, encoder.ErrEmptyRecording, m)
		return
	}

	encStart := time.Now()
	wav, err := c.enc.Encode(sess.buf)
	if err != nil {
		c.finish(sess, nil, err, m)
		return
	}
	m.EncodeTimeMs = float64(time.Since(encStart).Milliseconds())
	m.WAVSizeKB = float64(len(wav)) / 1024

	if c.archive != nil {
		if path, aerr := c.archive.Save(sess.started, sess.id, sess.buf); aerr != nil {
			log.Warnf("archive failed: %v", aerr)
		} else {
			log.Info("archived: " + path)
		}
	}

	ctx := context.Background()
	readyStart := time.Now()
	if err := sess.back.EnsureReady(ctx); err != nil {
		c.finish(sess, nil, err, m)
		return
	}
	m.ReadyTimeMs = float64(time.Since(readyStart).Milliseconds())

	res, err := sess.back.Transcribe(ctx, wav)
	if res != nil && res.Metrics != nil {
		m.TTFBMs = float64(res.Metrics.TTFB.Milliseconds())
		m.TotalTimeMs = float64(res.Metrics.Total.Milliseconds())
	}
	c.finish(sess, res, err, m)
}

// finish resolves a session to its outcome. Runs exactly once per
// session; a session canceled mid-processing is discarded here without
// touching the display.
func (c *Controller) finish(sess *session, res *backend.Result, err error, m log.Metrics) {
	c.mu.Lock()
	if c.sess != sess || sess.canceled.Load() {
		c.mu.Unlock()
		log.Info("stale_result_discarded")
		return
	}
	c.sess = nil
	c.state = StateIdle
	c.mu.Unlock()

	dur := time.Since(sess.started).Seconds()

	switch {
	case errors.Is(err, encoder.ErrEmptyRecording):
		log.Info("no_speech")
		log.SessionEnd("no_speech", dur)
		c.sink.Transcription("", nil, false, true)
	case err != nil:
		log.Errorf("transcription failed: %v", err)
		log.SessionEnd("failed", dur)
		c.sink.Failed(err)
	default:
		text := strings.TrimSpace(res.Text)
		if text == "" {
			log.Info("no_speech")
			log.SessionEnd("no_speech", dur)
			c.sink.Transcription("", nil, false, true)
			return
		}
		pasted, derr := c.deliver.Deliver(text)
		if derr != nil {
			log.Errorf("delivery failed: %v", derr)
			log.SessionEnd("failed", dur)
			c.sink.Failed(derr)
			return
		}
		connReused := res.Metrics != nil && res.Metrics.ConnReused
		log.TranscriptionText(sess.back.Name(), text)
		log.TranscriptionMetrics(m, sess.back.Name(), sess.language, connReused)
		log.SessionEnd("delivered", dur)
		c.sink.Transcription(text, &m, pasted, false)
	}
}
