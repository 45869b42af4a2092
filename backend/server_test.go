package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeProc struct {
	obeyTerm bool

	mu        sync.Mutex
	done      chan struct{}
	err       error
	termCalls int
	killCalls int
}

func newFakeProc(obeyTerm bool) *fakeProc {
	return &fakeProc{obeyTerm: obeyTerm, done: make(chan struct{})}
}

func (p *fakeProc) exit(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	select {
	case <-p.done:
	default:
		p.err = err
		close(p.done)
	}
}

func (p *fakeProc) Done() <-chan struct{} { return p.done }

func (p *fakeProc) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *fakeProc) Terminate() error {
	p.mu.Lock()
	p.termCalls++
	obey := p.obeyTerm
	p.mu.Unlock()
	if obey {
		p.exit(nil)
	}
	return nil
}

func (p *fakeProc) Kill() error {
	p.mu.Lock()
	p.killCalls++
	p.mu.Unlock()
	p.exit(errors.New("killed"))
	return nil
}

func (p *fakeProc) counts() (term, kill int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.termCalls, p.killCalls
}

// touchFiles creates stand-ins for the server binary and model file.
func touchFiles(t *testing.T) (bin, model string) {
	t.Helper()
	dir := t.TempDir()
	bin = filepath.Join(dir, "whisper-server")
	model = filepath.Join(dir, "ggml-test.bin")
	for _, p := range []string{bin, model} {
		if err := os.WriteFile(p, []byte("x"), 0755); err != nil {
			t.Fatal(err)
		}
	}
	return bin, model
}

func TestServerTranscribeRequest(t *testing.T) {
	wavData := testWAV(t, 1600)
	var hits atomic.Int32

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Fatalf("parsing multipart: %v", err)
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("file part: %v", err)
		}
		defer file.Close()
		if header.Filename != "audio.wav" {
			t.Errorf("filename = %q, want audio.wav", header.Filename)
		}
		if ct := header.Header.Get("Content-Type"); ct != "audio/wav" {
			t.Errorf("file content-type = %q, want audio/wav", ct)
		}
		got, _ := io.ReadAll(file)
		if len(got) != len(wavData) {
			t.Errorf("file body %d bytes, want %d", len(got), len(wavData))
		}

		if v := r.FormValue("task"); v != "transcribe" {
			t.Errorf("task = %q, want transcribe", v)
		}
		if v := r.FormValue("language"); v != "en" {
			t.Errorf("language = %q, want en", v)
		}

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"text":"hello world","language":"en"}`)
	}))
	defer ts.Close()

	s := NewServer(ServerOptions{URL: ts.URL, Language: "en"})
	defer s.Close()

	res, err := s.Transcribe(context.Background(), wavData)
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "hello world" {
		t.Errorf("Text = %q", res.Text)
	}
	if res.Language != "en" {
		t.Errorf("Language = %q", res.Language)
	}
	if res.Metrics == nil || res.Metrics.Total <= 0 {
		t.Error("expected request metrics")
	}
	if hits.Load() != 1 {
		t.Errorf("server hit %d times, want 1", hits.Load())
	}
}

func TestServerErrorBodyAttachedNoRetry(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "failed to decode audio", http.StatusInternalServerError)
	}))
	defer ts.Close()

	s := NewServer(ServerOptions{URL: ts.URL, Language: "en"})
	defer s.Close()

	_, err := s.Transcribe(context.Background(), testWAV(t, 160))
	var re *RequestError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v, want RequestError", err)
	}
	if re.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d", re.StatusCode)
	}
	if !strings.Contains(re.Body, "failed to decode audio") {
		t.Errorf("Body = %q, want server's message attached", re.Body)
	}
	if hits.Load() != 1 {
		t.Errorf("server hit %d times, want 1 (no auto-retry)", hits.Load())
	}
}

func TestServerMissingLanguageBecomesUnknown(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"text":"hi"}`)
	}))
	defer ts.Close()

	s := NewServer(ServerOptions{URL: ts.URL, Language: "auto"})
	defer s.Close()

	res, err := s.Transcribe(context.Background(), testWAV(t, 160))
	if err != nil {
		t.Fatal(err)
	}
	if res.Language != "unknown" {
		t.Errorf("Language = %q, want unknown", res.Language)
	}
}

func TestServerEnsureReadySpawnsOnce(t *testing.T) {
	bin, model := touchFiles(t)
	proc := newFakeProc(true)
	var launches atomic.Int32
	launch := func(gotBin string, args []string) (serverProcess, error) {
		launches.Add(1)
		if gotBin != bin {
			t.Errorf("bin = %q, want %q", gotBin, bin)
		}
		want := []string{"-m", model, "--host", "127.0.0.1", "--port", "8080", "-t", "8"}
		if len(args) != len(want) {
			t.Fatalf("args = %v, want %v", args, want)
		}
		for i := range want {
			if args[i] != want[i] {
				t.Errorf("args[%d] = %q, want %q", i, args[i], want[i])
			}
		}
		return proc, nil
	}

	s := NewServer(ServerOptions{
		BinPath: bin, ModelPath: model,
		Host: "127.0.0.1", Port: 8080, Threads: 8,
		Language:    "en",
		Launch:      launch,
		StartupWait: 10 * time.Millisecond,
	})
	defer s.Close()

	if err := s.EnsureReady(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := s.EnsureReady(context.Background()); err != nil {
		t.Fatal(err)
	}
	if launches.Load() != 1 {
		t.Errorf("launched %d times, want 1", launches.Load())
	}
	if !s.Running() {
		t.Error("server should be running")
	}
}

func TestServerStartErrorOnImmediateExit(t *testing.T) {
	bin, model := touchFiles(t)
	launch := func(string, []string) (serverProcess, error) {
		p := newFakeProc(false)
		p.exit(errors.New("exit status 1"))
		return p, nil
	}

	s := NewServer(ServerOptions{
		BinPath: bin, ModelPath: model,
		Host: "127.0.0.1", Port: 8080, Threads: 8,
		Launch:      launch,
		StartupWait: 50 * time.Millisecond,
	})
	defer s.Close()

	err := s.EnsureReady(context.Background())
	var se *ServerStartError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want ServerStartError", err)
	}
	if !strings.Contains(se.Error(), "during startup") {
		t.Errorf("err = %v", se)
	}
}

func TestServerFailsFastWhenBinaryMissing(t *testing.T) {
	_, model := touchFiles(t)
	var launches atomic.Int32
	launch := func(string, []string) (serverProcess, error) {
		launches.Add(1)
		return newFakeProc(true), nil
	}

	s := NewServer(ServerOptions{
		BinPath: "/nonexistent/whisper-server", ModelPath: model,
		Host: "127.0.0.1", Port: 8080,
		Launch: launch,
	})
	defer s.Close()

	err := s.EnsureReady(context.Background())
	var se *ServerStartError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want ServerStartError", err)
	}
	if !strings.Contains(se.Reason, "whisk setup") {
		t.Errorf("Reason = %q, want setup hint", se.Reason)
	}
	if launches.Load() != 0 {
		t.Error("launcher should not run when the binary is missing")
	}
}

func TestServerReleaseTerminates(t *testing.T) {
	bin, model := touchFiles(t)
	proc := newFakeProc(true)
	launch := func(string, []string) (serverProcess, error) { return proc, nil }

	s := NewServer(ServerOptions{
		BinPath: bin, ModelPath: model,
		Host: "127.0.0.1", Port: 8080,
		Launch:      launch,
		StartupWait: 10 * time.Millisecond,
	})
	defer s.Close()

	if err := s.EnsureReady(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := s.Release(); err != nil {
		t.Fatal(err)
	}

	term, kill := proc.counts()
	if term != 1 {
		t.Errorf("Terminate called %d times, want 1", term)
	}
	if kill != 0 {
		t.Errorf("Kill called %d times, want 0 for a cooperative process", kill)
	}
	if s.Running() {
		t.Error("server still running after Release")
	}
}

func TestServerKillAfterTerminateTimeout(t *testing.T) {
	bin, model := touchFiles(t)
	proc := newFakeProc(false) // ignores Terminate
	launch := func(string, []string) (serverProcess, error) { return proc, nil }

	s := NewServer(ServerOptions{
		BinPath: bin, ModelPath: model,
		Host: "127.0.0.1", Port: 8080,
		Launch:       launch,
		StartupWait:  10 * time.Millisecond,
		ShutdownWait: 50 * time.Millisecond,
	})
	defer s.Close()

	if err := s.EnsureReady(context.Background()); err != nil {
		t.Fatal(err)
	}
	s.Release()

	term, kill := proc.counts()
	if term != 1 || kill != 1 {
		t.Errorf("term=%d kill=%d, want 1/1", term, kill)
	}
}

func TestServerIdleStopsProcess(t *testing.T) {
	bin, model := touchFiles(t)
	proc := newFakeProc(true)
	launch := func(string, []string) (serverProcess, error) { return proc, nil }

	s := NewServer(ServerOptions{
		BinPath: bin, ModelPath: model,
		Host: "127.0.0.1", Port: 8080,
		Launch:      launch,
		StartupWait: 10 * time.Millisecond,
		IdleTimeout: 60 * time.Millisecond,
	})
	defer s.Close()

	if err := s.EnsureReady(context.Background()); err != nil {
		t.Fatal(err)
	}

	time.Sleep(250 * time.Millisecond)
	if s.Running() {
		t.Fatal("server still running after idle timeout")
	}
	term, _ := proc.counts()
	if term != 1 {
		t.Errorf("Terminate called %d times, want 1", term)
	}
}

func TestServerExternalURLSkipsProcess(t *testing.T) {
	var launches atomic.Int32
	launch := func(string, []string) (serverProcess, error) {
		launches.Add(1)
		return newFakeProc(true), nil
	}

	s := NewServer(ServerOptions{
		URL:    "http://192.168.1.50:8080/inference",
		Launch: launch,
	})
	defer s.Close()

	if err := s.EnsureReady(context.Background()); err != nil {
		t.Fatal(err)
	}
	if launches.Load() != 0 {
		t.Error("external URL mode must not spawn a process")
	}
}

func TestServerStartCanceled(t *testing.T) {
	bin, model := touchFiles(t)
	proc := newFakeProc(false)
	launch := func(string, []string) (serverProcess, error) { return proc, nil }

	s := NewServer(ServerOptions{
		BinPath: bin, ModelPath: model,
		Host: "127.0.0.1", Port: 8080,
		Launch:      launch,
		StartupWait: time.Second,
	})
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	err := s.EnsureReady(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	_, kill := proc.counts()
	if kill != 1 {
		t.Errorf("Kill called %d times after cancel, want 1", kill)
	}
}
