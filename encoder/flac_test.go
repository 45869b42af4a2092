package encoder

import (
	"errors"
	"testing"
)

func TestFLACEncoder(t *testing.T) {
	buf := sineBuffer(SampleRate) // 1s of tone

	data, err := NewFLAC().Encode(buf)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(data) < 4 || string(data[:4]) != "fLaC" {
		t.Fatal("output does not start with FLAC magic")
	}

	rawSize := int(buf.Frames()) * 2
	t.Logf("Raw: %d bytes, FLAC: %d bytes (%.1f%% compression)",
		rawSize, len(data), (1-float64(len(data))/float64(rawSize))*100)
}

func TestFLACEncoderEmpty(t *testing.T) {
	var b Buffer
	_, err := NewFLAC().Encode(&b)
	if !errors.Is(err, ErrEmptyRecording) {
		t.Fatalf("err = %v, want ErrEmptyRecording", err)
	}
}

func TestFLACEncoderPartialBlock(t *testing.T) {
	// length not a multiple of BlockSize exercises the short final frame
	buf := sineBuffer(BlockSize + BlockSize/4)
	data, err := NewFLAC().Encode(buf)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty FLAC output")
	}
}
