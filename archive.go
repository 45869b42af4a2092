package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"whisk/encoder"
)

// archiver keeps a FLAC copy of every recording in a directory. Saving
// happens before transcription, so audio from a failed request can be
// replayed later.
type archiver struct {
	dir string
	enc encoder.Encoder
}

func newArchiver(dir string) (*archiver, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	return &archiver{dir: dir, enc: &encoder.FLACEncoder{}}, nil
}

func (a *archiver) Save(started time.Time, id uuid.UUID, buf *encoder.Buffer) (string, error) {
	data, err := a.enc.Encode(buf)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s_%s.flac", started.Format("20060102_150405"), id.String()[:8])
	path := filepath.Join(a.dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}
