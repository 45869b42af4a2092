package encoder

import (
	"errors"
	"math"
	"sync"
	"time"
)

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
	WAVHeaderSize = 44
)

// ErrEmptyRecording marks an encode attempt on a buffer with zero frames.
// Callers treat it as a no-op outcome, not a failure.
var ErrEmptyRecording = errors.New("empty recording")

// Buffer accumulates mono float32 samples pushed from the capture callback.
// Appends preserve arrival order.
type Buffer struct {
	mu      sync.Mutex
	samples []float32
}

func (b *Buffer) Append(samples []float32) {
	b.mu.Lock()
	b.samples = append(b.samples, samples...)
	b.mu.Unlock()
}

func (b *Buffer) Frames() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return uint64(len(b.samples))
}

func (b *Buffer) Duration() time.Duration {
	return time.Duration(b.Frames()) * time.Second / SampleRate
}

// Samples returns a snapshot copy of the accumulated frames.
func (b *Buffer) Samples() []float32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]float32, len(b.samples))
	copy(out, b.samples)
	return out
}

func (b *Buffer) Reset() {
	b.mu.Lock()
	b.samples = nil
	b.mu.Unlock()
}

// Encoder turns a captured buffer into a self-contained audio file.
type Encoder interface {
	Encode(buf *Buffer) ([]byte, error)
	FormatName() string
}

// Quantize converts float32 samples to 16-bit PCM, clamping out-of-range
// input.
func Quantize(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		v := math.Round(float64(s) * 32767)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		out[i] = int16(v)
	}
	return out
}
