package backend

import (
	"context"
	"sync"
)

// FakeBackend records calls and serves canned results. Gate, when set,
// holds Transcribe until the channel is closed so tests can cancel a
// session mid-flight.
type FakeBackend struct {
	Text          string
	Language      string
	EnsureErr     error
	TranscribeErr error
	Gate          chan struct{}

	mu           sync.Mutex
	ensureCalls  int
	calls        [][]byte
	releaseCalls int
	closed       bool
}

func NewFakeBackend(text string) *FakeBackend {
	return &FakeBackend{Text: text, Language: "en"}
}

func (f *FakeBackend) Name() string { return "fake" }

func (f *FakeBackend) EnsureReady(_ context.Context) error {
	f.mu.Lock()
	f.ensureCalls++
	f.mu.Unlock()
	return f.EnsureErr
}

func (f *FakeBackend) Transcribe(ctx context.Context, wavData []byte) (*Result, error) {
	if f.Gate != nil {
		select {
		case <-f.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	cp := make([]byte, len(wavData))
	copy(cp, wavData)
	f.calls = append(f.calls, cp)
	f.mu.Unlock()

	if f.TranscribeErr != nil {
		return nil, f.TranscribeErr
	}
	return &Result{Text: f.Text, Language: f.Language, Metrics: &RequestMetrics{}}, nil
}

func (f *FakeBackend) Release() error {
	f.mu.Lock()
	f.releaseCalls++
	f.mu.Unlock()
	return nil
}

func (f *FakeBackend) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *FakeBackend) EnsureCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ensureCalls
}

func (f *FakeBackend) TranscribeCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *FakeBackend) LastWAV() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return nil
	}
	return f.calls[len(f.calls)-1]
}

func (f *FakeBackend) ReleaseCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.releaseCalls
}

func (f *FakeBackend) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
