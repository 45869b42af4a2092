package audio

import (
	"os"
	"sync"
	"time"

	"whisk/encoder"
)

// fakeChunk is the number of samples handed to the callback per tick.
const fakeChunk = 1024

// FakeContext replays a WAV file through the CaptureDevice interface.
// Used by -test mode and the integration suite.
type FakeContext struct {
	samples  []float32
	realtime bool
}

func NewFakeContext(wavPath string, realtime bool) (*FakeContext, error) {
	data, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, err
	}
	samples, err := encoder.DecodeWAV(data)
	if err != nil {
		return nil, err
	}
	return &FakeContext{samples: samples, realtime: realtime}, nil
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) { return nil, nil }
func (f *FakeContext) Close()                         {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	return &FakeCapture{samples: f.samples, realtime: f.realtime, eof: make(chan struct{})}, nil
}

type FakeCapture struct {
	samples  []float32
	realtime bool
	eof      chan struct{}

	mu   sync.Mutex
	fn   DataCallback
	quit chan struct{}
	fed  chan struct{}
}

// AudioDone is closed once the file content has been fed; after that the
// capture produces silence until stopped.
func (f *FakeCapture) AudioDone() <-chan struct{} { return f.eof }

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.fn = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.fn = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string { return "fake" }

func (f *FakeCapture) callback() DataCallback {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fn
}

// push hands the chunk starting at pos to cb and returns the position
// after it. The chunk is copied; consumers may retain it.
func (f *FakeCapture) push(cb DataCallback, pos int) int {
	end := min(pos+fakeChunk, len(f.samples))
	chunk := make([]float32, end-pos)
	copy(chunk, f.samples[pos:end])
	cb(chunk, uint32(len(chunk)))
	return end
}

func (f *FakeCapture) Start() error {
	f.quit = make(chan struct{})
	f.fed = make(chan struct{})
	// eof is NOT recreated here; callers may already be waiting on it.
	// Stop hands out a fresh one for replay.

	if f.realtime {
		go f.feedPaced()
	} else {
		f.feedBurst()
	}
	return nil
}

// feedBurst delivers the whole file before returning, then streams
// silence in the background until stopped.
func (f *FakeCapture) feedBurst() {
	if cb := f.callback(); cb != nil {
		for pos := 0; pos < len(f.samples); {
			pos = f.push(cb, pos)
		}
	}
	close(f.eof)

	go func() {
		defer close(f.fed)
		silence := make([]float32, fakeChunk)
		for {
			select {
			case <-f.quit:
				return
			case <-time.After(time.Millisecond):
			}
			if cb := f.callback(); cb != nil {
				cb(silence, fakeChunk)
			}
		}
	}()
}

// feedPaced delivers chunks at the wall-clock rate a real microphone
// would, then silence.
func (f *FakeCapture) feedPaced() {
	defer close(f.fed)

	interval := time.Duration(fakeChunk) * time.Second / time.Duration(encoder.SampleRate)
	pos := 0
	silence := make([]float32, fakeChunk)
	finished := false

	for {
		select {
		case <-f.quit:
			return
		default:
		}

		cb := f.callback()
		if cb == nil {
			time.Sleep(time.Millisecond)
			continue
		}

		if pos < len(f.samples) {
			pos = f.push(cb, pos)
		} else {
			if !finished {
				finished = true
				close(f.eof)
			}
			cb(silence, fakeChunk)
		}

		select {
		case <-f.quit:
			return
		case <-time.After(interval):
		}
	}
}

func (f *FakeCapture) Stop() {
	select {
	case <-f.quit:
	default:
		close(f.quit)
	}
	if f.fed != nil {
		<-f.fed
	}
	f.eof = make(chan struct{}) // fresh channel for the next replay
}

func (f *FakeCapture) Close() {}
