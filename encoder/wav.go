package encoder

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVEncoder produces a 16-bit PCM mono RIFF/WAVE file, the wire format the
// inference server accepts.
type WAVEncoder struct{}

func NewWAV() *WAVEncoder { return &WAVEncoder{} }

func (e *WAVEncoder) FormatName() string { return "wav" }

func (e *WAVEncoder) Encode(buf *Buffer) ([]byte, error) {
	samples := buf.Samples()
	if len(samples) == 0 {
		return nil, ErrEmptyRecording
	}

	pcm := Quantize(samples)
	data := make([]int, len(pcm))
	for i, s := range pcm {
		data[i] = int(s)
	}

	var ws memWriteSeeker
	enc := wav.NewEncoder(&ws, SampleRate, BitsPerSample, Channels, 1)
	intBuf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: Channels, SampleRate: SampleRate},
		Data:           data,
		SourceBitDepth: BitsPerSample,
	}
	if err := enc.Write(intBuf); err != nil {
		return nil, fmt.Errorf("writing wav data: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finalizing wav: %w", err)
	}
	return ws.Bytes(), nil
}

// DecodeWAV parses a WAV file back into float32 samples. Multi-channel
// input is averaged down to mono.
func DecodeWAV(data []byte) ([]float32, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return nil, fmt.Errorf("not a valid wav file")
	}
	pcm, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("reading wav data: %w", err)
	}

	bitDepth := pcm.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = BitsPerSample
	}
	scale := float32(int(1) << (bitDepth - 1))

	ch := pcm.Format.NumChannels
	if ch <= 1 {
		out := make([]float32, len(pcm.Data))
		for i, v := range pcm.Data {
			out[i] = float32(v) / scale
		}
		return out, nil
	}

	frames := len(pcm.Data) / ch
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < ch; c++ {
			sum += float32(pcm.Data[i*ch+c]) / scale
		}
		out[i] = sum / float32(ch)
	}
	return out, nil
}

// memWriteSeeker is the minimal io.WriteSeeker the wav encoder needs to
// patch RIFF sizes after writing.
type memWriteSeeker struct {
	buf []byte
	pos int
}

func (m *memWriteSeeker) Write(p []byte) (int, error) {
	if need := m.pos + len(p); need > len(m.buf) {
		if need > cap(m.buf) {
			grown := make([]byte, need, need*2)
			copy(grown, m.buf)
			m.buf = grown
		} else {
			m.buf = m.buf[:need]
		}
	}
	copy(m.buf[m.pos:], p)
	m.pos += len(p)
	return len(p), nil
}

func (m *memWriteSeeker) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(m.pos) + offset
	case io.SeekEnd:
		abs = int64(len(m.buf)) + offset
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, fmt.Errorf("negative seek position")
	}
	m.pos = int(abs)
	return abs, nil
}

func (m *memWriteSeeker) Bytes() []byte { return m.buf }
