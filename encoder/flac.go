package encoder

import (
	"bytes"
	"fmt"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

// FLACEncoder is used for the recording archive: lossless and roughly half
// the size of the WAV that goes over the wire.
type FLACEncoder struct{}

func NewFLAC() *FLACEncoder { return &FLACEncoder{} }

func (e *FLACEncoder) FormatName() string { return "flac" }

func (e *FLACEncoder) Encode(buf *Buffer) ([]byte, error) {
	samples := buf.Samples()
	if len(samples) == 0 {
		return nil, ErrEmptyRecording
	}
	pcm := Quantize(samples)

	var out bytes.Buffer
	streamInfo := &meta.StreamInfo{
		BlockSizeMin:  BlockSize,
		BlockSizeMax:  BlockSize,
		SampleRate:    SampleRate,
		NChannels:     Channels,
		BitsPerSample: BitsPerSample,
	}
	enc, err := flac.NewEncoder(&out, streamInfo)
	if err != nil {
		return nil, fmt.Errorf("flac encoder: %w", err)
	}
	enc.EnablePredictionAnalysis(true)

	for i := 0; i < len(pcm); i += BlockSize {
		end := min(i+BlockSize, len(pcm))
		if err := writeFlacBlock(enc, pcm[i:end]); err != nil {
			return nil, err
		}
	}

	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finalizing flac: %w", err)
	}
	return out.Bytes(), nil
}

func writeFlacBlock(enc *flac.Encoder, block []int16) error {
	widened := make([]int32, len(block))
	for i, s := range block {
		widened[i] = int32(s)
	}

	sub := &frame.Subframe{
		SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
		Samples:   widened,
		NSamples:  len(block),
	}
	hdr := frame.Header{
		BlockSize:     uint16(len(block)),
		SampleRate:    SampleRate,
		Channels:      frame.ChannelsMono,
		BitsPerSample: BitsPerSample,
	}
	if err := enc.WriteFrame(&frame.Frame{Header: hdr, Subframes: []*frame.Subframe{sub}}); err != nil {
		return fmt.Errorf("flac frame: %w", err)
	}
	return nil
}
