package main

import (
	"encoding/binary"
	"sync"
	"time"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"
	"whisk/encoder"
)

const (
	vadMode       = 3
	vadFrameMs    = 20
	vadFrameBytes = encoder.SampleRate * vadFrameMs / 1000 * 2 // 20ms of 16-bit mono
	vadDebounce   = 3                                          // speech frames in a row before voice counts
)

// speechThreshold is the share of a tick's frames that must be speech
// for the tick to count as "speaking".
const speechThreshold = 0.10

// frameTally counts classified frames. Marks snapshot it so callers can
// read per-interval deltas.
type frameTally struct {
	total  int
	speech int
}

func (t frameTally) since(mark frameTally) (total, speech int) {
	return t.total - mark.total, t.speech - mark.speech
}

type vadProcessor struct {
	det *webrtcvad.VAD

	mu        sync.Mutex
	pending   []byte
	voiced    bool
	lastVoice time.Time
	run       int
	tally     frameTally
	tickMark  frameTally
}

func newVADProcessor() (*vadProcessor, error) {
	det, err := webrtcvad.New()
	if err != nil {
		return nil, err
	}
	if err := det.SetMode(vadMode); err != nil {
		return nil, err
	}
	return &vadProcessor{det: det}, nil
}

// Process consumes capture frames. The classifier wants 20ms windows of
// 16-bit PCM, so samples are quantized and buffered until a full window
// is available; the remainder carries over to the next call.
func (p *vadProcessor) Process(samples []float32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.bufferPCM(samples)
	for len(p.pending) >= vadFrameBytes {
		frame := p.pending[:vadFrameBytes]
		p.pending = p.pending[vadFrameBytes:]
		p.classify(frame)
	}
}

func (p *vadProcessor) bufferPCM(samples []float32) {
	pcm := encoder.Quantize(samples)
	off := len(p.pending)
	p.pending = append(p.pending, make([]byte, len(pcm)*2)...)
	for i, s := range pcm {
		binary.LittleEndian.PutUint16(p.pending[off+i*2:], uint16(s))
	}
}

func (p *vadProcessor) classify(frame []byte) {
	active, err := p.det.Process(encoder.SampleRate, frame)
	if err != nil {
		return
	}
	p.tally.total++
	if !active {
		p.run = 0
		return
	}
	p.tally.speech++
	p.run++
	if p.voiced || p.run >= vadDebounce {
		p.voiced = true
		p.lastVoice = time.Now()
	}
}

func (p *vadProcessor) VoiceDetected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.voiced
}

func (p *vadProcessor) LastVoiceTime() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastVoice
}

// Stats returns lifetime frame counts.
func (p *vadProcessor) Stats() (total, speech int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tally.total, p.tally.speech
}

// HasSpeechTick reports whether frames classified since the previous
// call were at least speechThreshold speech. Zero elapsed frames count
// as quiet.
func (p *vadProcessor) HasSpeechTick() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	total, speech := p.tally.since(p.tickMark)
	p.tickMark = p.tally
	if total == 0 {
		return false
	}
	return float64(speech)/float64(total) >= speechThreshold
}

// Reset clears detection state between sessions. Lifetime tallies and
// the tick mark survive so interval readers stay consistent.
func (p *vadProcessor) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = p.pending[:0]
	p.voiced = false
	p.lastVoice = time.Time{}
	p.run = 0
}
