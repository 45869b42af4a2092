// Package backend runs speech-to-text over captured audio, either through
// an in-process whisper model or a whisper-server child process reached
// over HTTP. Both variants load lazily, hold their resources across
// requests and release them after an idle timeout.
package backend

import (
	"context"
	"fmt"
	"time"

	"whisk/config"
)

type Result struct {
	Text     string
	Language string
	Metrics  *RequestMetrics
}

type RequestMetrics struct {
	ConnWait   time.Duration
	ReqBody    time.Duration
	TTFB       time.Duration
	Download   time.Duration
	Total      time.Duration
	ConnReused bool
}

// Backend is a speech-to-text engine with an explicit resource lifecycle.
// A single in-flight Transcribe holds the engine; Release from the idle
// monitor can never interrupt it.
type Backend interface {
	Name() string
	// EnsureReady acquires the engine's resources if they are not already
	// held. Idempotent; when already ready it only refreshes the idle clock.
	EnsureReady(ctx context.Context) error
	// Transcribe runs one complete WAV file through the engine. No retries
	// beyond what the engine itself defines.
	Transcribe(ctx context.Context, wavData []byte) (*Result, error)
	// Release frees the engine's resources immediately.
	Release() error
	// Close releases resources and stops the idle monitor.
	Close() error
}

// New picks the backend the config names.
func New(cfg *config.Config) (Backend, error) {
	switch cfg.Backend {
	case "model":
		modelPath, err := config.ResolveModelPath(cfg.Model)
		if err != nil {
			return nil, err
		}
		return NewLocal(LocalOptions{
			ModelPath:   modelPath,
			Language:    cfg.Language,
			IdleTimeout: cfg.IdleTimeout,
		}), nil
	case "server":
		opts := ServerOptions{
			Host:        cfg.ServerHost,
			Port:        cfg.ServerPort,
			Threads:     cfg.ServerThreads,
			Language:    cfg.Language,
			URL:         cfg.ServerURL,
			IdleTimeout: cfg.IdleTimeout,
		}
		if cfg.ServerURL == "" {
			bin, err := config.ServerBinaryPath()
			if err != nil {
				return nil, err
			}
			modelPath, err := config.ResolveModelPath(cfg.Model)
			if err != nil {
				return nil, err
			}
			opts.BinPath = bin
			opts.ModelPath = modelPath
		}
		return NewServer(opts), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
