package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"whisk/log"
)

const (
	// grace period before the first liveness check after spawning
	defaultStartupWait = 1 * time.Second
	// how long a terminated server gets before it is killed
	defaultShutdownWait = 5 * time.Second
)

// serverProcess abstracts the child process so tests can fake launches.
type serverProcess interface {
	// Done is closed once the process has exited.
	Done() <-chan struct{}
	// Err returns the exit error; only meaningful after Done is closed.
	Err() error
	// Terminate asks the process to exit gracefully.
	Terminate() error
	Kill() error
}

type LaunchFunc func(bin string, args []string) (serverProcess, error)

type ServerOptions struct {
	BinPath     string
	ModelPath   string
	Host        string
	Port        int
	Threads     int
	Language    string
	URL         string // non-empty: externally managed server, no child process
	IdleTimeout time.Duration
	Launch      LaunchFunc // nil means exec the real binary

	// zero means the defaults (1s startup grace, 5s terminate grace)
	StartupWait  time.Duration
	ShutdownWait time.Duration
}

// Server drives a whisper-server child process and talks to its /inference
// endpoint. With URL set it skips process management entirely and only
// POSTs.
type Server struct {
	opts         ServerOptions
	launch       LaunchFunc
	client       *TracedClient
	url          string
	idle         *idleTimer
	startupWait  time.Duration
	shutdownWait time.Duration

	mu       sync.Mutex
	proc     serverProcess
	lastUsed time.Time
}

func NewServer(opts ServerOptions) *Server {
	s := &Server{
		opts:         opts,
		launch:       opts.Launch,
		client:       NewTracedClient(),
		url:          opts.URL,
		startupWait:  opts.StartupWait,
		shutdownWait: opts.ShutdownWait,
	}
	if s.launch == nil {
		s.launch = launchServer
	}
	if s.url == "" {
		s.url = fmt.Sprintf("http://%s:%d/inference", opts.Host, opts.Port)
	}
	if s.startupWait <= 0 {
		s.startupWait = defaultStartupWait
	}
	if s.shutdownWait <= 0 {
		s.shutdownWait = defaultShutdownWait
	}
	s.idle = newIdleTimer(opts.IdleTimeout, s.releaseIfIdle)
	return s
}

func (s *Server) Name() string { return "server" }

func (s *Server) EnsureReady(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureRunningLocked(ctx)
}

func (s *Server) ensureRunningLocked(ctx context.Context) error {
	if s.opts.URL != "" {
		return nil
	}

	if s.proc != nil {
		select {
		case <-s.proc.Done():
			log.Warnf("inference server exited unexpectedly: %v", s.proc.Err())
			s.proc = nil
		default:
			s.markUsedLocked()
			return nil
		}
	}

	// fail fast before spawning anything
	if _, err := os.Stat(s.opts.BinPath); err != nil {
		return &ServerStartError{Reason: "server binary not found, run `whisk setup`", Err: err}
	}
	if _, err := os.Stat(s.opts.ModelPath); err != nil {
		return &ServerStartError{Reason: "model file not found, run `whisk setup`", Err: err}
	}

	args := []string{
		"-m", s.opts.ModelPath,
		"--host", s.opts.Host,
		"--port", strconv.Itoa(s.opts.Port),
		"-t", strconv.Itoa(s.opts.Threads),
	}
	log.Info(fmt.Sprintf("starting inference server: %s %s", s.opts.BinPath, strings.Join(args, " ")))

	proc, err := s.launch(s.opts.BinPath, args)
	if err != nil {
		return &ServerStartError{Reason: "failed to start inference server", Err: err}
	}

	select {
	case <-proc.Done():
		return &ServerStartError{Reason: "inference server exited during startup", Err: proc.Err()}
	case <-ctx.Done():
		proc.Kill()
		<-proc.Done()
		return ctx.Err()
	case <-time.After(s.startupWait):
	}

	s.proc = proc
	s.markUsedLocked()
	return nil
}

func (s *Server) markUsedLocked() {
	s.lastUsed = time.Now()
	s.idle.Touch()
}

type inferenceResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

func (s *Server) Transcribe(ctx context.Context, wavData []byte) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureRunningLocked(ctx); err != nil {
		return nil, err
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	// CreateFormFile would label the part application/octet-stream; the
	// server wants audio/wav.
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="audio.wav"`)
	h.Set("Content-Type", "audio/wav")
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(wavData); err != nil {
		return nil, err
	}
	writer.WriteField("task", "transcribe")
	writer.WriteField("language", s.opts.Language)
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, "POST", s.url, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &RequestError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RequestError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(resp.Body))}
	}

	var ir inferenceResponse
	if err := json.Unmarshal(resp.Body, &ir); err != nil {
		return nil, &RequestError{Err: fmt.Errorf("parsing response: %w", err)}
	}
	if ir.Language == "" {
		ir.Language = "unknown"
	}

	s.markUsedLocked()
	return &Result{Text: ir.Text, Language: ir.Language, Metrics: resp.Metrics}, nil
}

// releaseIfIdle runs on the idle timer goroutine. A request that landed
// between the timer firing and us taking the lock keeps the server alive.
func (s *Server) releaseIfIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc == nil {
		return
	}
	if time.Since(s.lastUsed) < s.opts.IdleTimeout {
		return
	}
	log.Info("stopping inference server after idle timeout")
	s.stopLocked()
}

func (s *Server) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	return nil
}

func (s *Server) stopLocked() {
	s.client.CloseIdleConnections()
	if s.proc == nil {
		return
	}
	proc := s.proc
	s.proc = nil

	select {
	case <-proc.Done():
		return // already gone
	default:
	}

	if err := proc.Terminate(); err != nil {
		proc.Kill()
		<-proc.Done()
		return
	}
	select {
	case <-proc.Done():
	case <-time.After(s.shutdownWait):
		log.Warn("inference server ignored terminate, killing")
		proc.Kill()
		<-proc.Done()
	}
}

// Close must stop the idle timer before taking the lock: the timer goroutine
// may be blocked on it inside releaseIfIdle.
func (s *Server) Close() error {
	s.idle.Stop()
	return s.Release()
}

// Running reports whether a child process is currently alive.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc == nil {
		return false
	}
	select {
	case <-s.proc.Done():
		return false
	default:
		return true
	}
}
