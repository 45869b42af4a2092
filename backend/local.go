package backend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"whisk/encoder"
	"whisk/log"
)

// Model is the loaded speech-to-text model. Implemented by the whisper.cpp
// bindings in production builds and by fakes in tests.
type Model interface {
	// Transcribe runs inference over mono 16kHz samples and returns the
	// concatenated segment text plus the language it was decoded as.
	Transcribe(samples []float32, language string) (text, lang string, err error)
	Close() error
}

// ModelLoader loads a model file from disk. Loading is synchronous and can
// take seconds; callers run it off the hotkey thread.
type ModelLoader func(path string) (Model, error)

type LocalOptions struct {
	ModelPath   string
	Language    string
	IdleTimeout time.Duration
	Loader      ModelLoader // nil means the built-in whisper loader
}

// Local keeps a whisper model in memory between recordings and drops it
// after the idle timeout to give the RAM back.
type Local struct {
	opts   LocalOptions
	loader ModelLoader
	idle   *idleTimer

	mu       sync.Mutex
	model    Model
	lastUsed time.Time
}

func NewLocal(opts LocalOptions) *Local {
	l := &Local{opts: opts, loader: opts.Loader}
	if l.loader == nil {
		l.loader = defaultLoader
	}
	l.idle = newIdleTimer(opts.IdleTimeout, l.releaseIfIdle)
	return l
}

func (l *Local) Name() string { return "model" }

func (l *Local) EnsureReady(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ensureLoadedLocked()
}

func (l *Local) ensureLoadedLocked() error {
	if l.model != nil {
		l.markUsedLocked()
		return nil
	}
	start := time.Now()
	m, err := l.loader(l.opts.ModelPath)
	if err != nil {
		return &ModelLoadError{Path: l.opts.ModelPath, Err: err}
	}
	l.model = m
	l.markUsedLocked()
	log.Info(fmt.Sprintf("model loaded in %.1fs: %s", time.Since(start).Seconds(), l.opts.ModelPath))
	return nil
}

func (l *Local) markUsedLocked() {
	l.lastUsed = time.Now()
	l.idle.Touch()
}

func (l *Local) Transcribe(_ context.Context, wavData []byte) (*Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.ensureLoadedLocked(); err != nil {
		return nil, err
	}

	samples, err := encoder.DecodeWAV(wavData)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	text, lang, err := l.model.Transcribe(samples, l.opts.Language)
	if err != nil {
		// reload and retry exactly once
		log.Warnf("inference failed, reloading model: %v", err)
		l.model.Close()
		l.model = nil
		if lerr := l.ensureLoadedLocked(); lerr != nil {
			return nil, lerr
		}
		text, lang, err = l.model.Transcribe(samples, l.opts.Language)
		if err != nil {
			return nil, fmt.Errorf("inference failed after model reload: %w", err)
		}
	}
	l.markUsedLocked()

	if lang == "" {
		lang = "unknown"
	}
	return &Result{
		Text:     text,
		Language: lang,
		Metrics:  &RequestMetrics{Total: time.Since(start)},
	}, nil
}

// releaseIfIdle runs on the idle timer goroutine. A request that slipped in
// between the timer firing and us taking the lock keeps the model alive.
func (l *Local) releaseIfIdle() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.model == nil {
		return
	}
	if time.Since(l.lastUsed) < l.opts.IdleTimeout {
		return
	}
	log.Info("model unloaded after idle timeout")
	l.model.Close()
	l.model = nil
}

func (l *Local) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.model == nil {
		return nil
	}
	err := l.model.Close()
	l.model = nil
	return err
}

// Close must stop the idle timer before taking the lock: the timer goroutine
// may be blocked on it inside releaseIfIdle.
func (l *Local) Close() error {
	l.idle.Stop()
	return l.Release()
}

// Loaded reports whether the model is currently in memory.
func (l *Local) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.model != nil
}
