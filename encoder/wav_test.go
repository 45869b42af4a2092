package encoder

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func sineBuffer(frames int) *Buffer {
	var b Buffer
	samples := make([]float32, frames)
	for i := range samples {
		samples[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/SampleRate))
	}
	b.Append(samples)
	return &b
}

func TestWAVRoundTrip(t *testing.T) {
	const frames = 8000
	buf := sineBuffer(frames)
	orig := buf.Samples()

	data, err := NewWAV().Encode(buf)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if len(decoded) != frames {
		t.Fatalf("decoded %d frames, want %d", len(decoded), frames)
	}

	// 16-bit quantization allows at most one step of error per sample
	const tol = 1.0 / 32768
	for i := range decoded {
		if diff := math.Abs(float64(decoded[i] - orig[i])); diff > tol {
			t.Fatalf("sample %d differs by %v (> %v)", i, diff, tol)
		}
	}
}

func TestWAVEmptyBuffer(t *testing.T) {
	var b Buffer
	_, err := NewWAV().Encode(&b)
	if !errors.Is(err, ErrEmptyRecording) {
		t.Fatalf("err = %v, want ErrEmptyRecording", err)
	}
}

func TestWAVHeader(t *testing.T) {
	data, err := NewWAV().Encode(sineBuffer(SampleRate / 4))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(data) < WAVHeaderSize {
		t.Fatalf("output shorter than a wav header: %d bytes", len(data))
	}
	if string(data[:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatal("missing RIFF/WAVE magic")
	}

	d := wav.NewDecoder(bytes.NewReader(data))
	d.ReadInfo()
	if d.SampleRate != SampleRate {
		t.Errorf("SampleRate = %d, want %d", d.SampleRate, SampleRate)
	}
	if d.BitDepth != BitsPerSample {
		t.Errorf("BitDepth = %d, want %d", d.BitDepth, BitsPerSample)
	}
	if d.NumChans != Channels {
		t.Errorf("NumChans = %d, want %d", d.NumChans, Channels)
	}
}

func TestDecodeWAVStereoDownmix(t *testing.T) {
	var ws memWriteSeeker
	enc := wav.NewEncoder(&ws, SampleRate, BitsPerSample, 2, 1)
	// interleaved L/R: left loud, right quiet
	intBuf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: SampleRate},
		Data:           []int{8000, 2000, 8000, 2000},
		SourceBitDepth: BitsPerSample,
	}
	if err := enc.Write(intBuf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}

	mono, err := DecodeWAV(ws.Bytes())
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if len(mono) != 2 {
		t.Fatalf("got %d frames, want 2", len(mono))
	}
	want := float32(5000) / 32768
	for i, s := range mono {
		if math.Abs(float64(s-want)) > 1e-6 {
			t.Errorf("frame %d = %v, want %v", i, s, want)
		}
	}
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	if _, err := DecodeWAV([]byte("definitely not audio")); err == nil {
		t.Fatal("expected error for non-wav input")
	}
}
