//go:build whisper

package backend

import (
	"fmt"
	"io"
	"strings"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

func defaultLoader(path string) (Model, error) {
	m, err := whisper.New(path)
	if err != nil {
		return nil, fmt.Errorf("whisper.New: %w", err)
	}
	return &whisperModel{model: m}, nil
}

type whisperModel struct {
	model whisper.Model
}

func (w *whisperModel) Transcribe(samples []float32, language string) (string, string, error) {
	ctx, err := w.model.NewContext()
	if err != nil {
		return "", "", fmt.Errorf("whisper context: %w", err)
	}
	if language != "" && w.model.IsMultilingual() {
		if err := ctx.SetLanguage(language); err != nil {
			return "", "", fmt.Errorf("whisper language %q: %w", language, err)
		}
	}

	if err := ctx.Process(samples, nil, nil, nil); err != nil {
		return "", "", fmt.Errorf("whisper process: %w", err)
	}

	var segments []string
	for {
		seg, err := ctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", "", fmt.Errorf("whisper segment: %w", err)
		}
		segments = append(segments, seg.Text)
	}

	lang := language
	if lang == "" || lang == "auto" {
		lang = ctx.DetectedLanguage()
	}
	return strings.TrimSpace(strings.Join(segments, " ")), lang, nil
}

func (w *whisperModel) Close() error {
	return w.model.Close()
}
