//go:build integration

package test_test

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"whisk/clipboard"
)

var binPath string

func TestMain(m *testing.M) {
	binPath = os.Getenv("WHISK_TEST_BIN")
	if binPath == "" {
		fmt.Fprintln(os.Stderr, "WHISK_TEST_BIN not set; run: make test-integration")
		os.Exit(1)
	}

	if err := os.MkdirAll("data", 0755); err != nil {
		fmt.Fprintf(os.Stderr, "data dir: %v\n", err)
		os.Exit(1)
	}
	tone := filepath.Join("data", "tone.wav")
	quiet := filepath.Join("data", "silence.wav")
	if err := toneWAV(tone, 16000, 2.0, 440); err != nil {
		fmt.Fprintf(os.Stderr, "tone.wav: %v\n", err)
		os.Exit(1)
	}
	if err := silenceWAV(quiet, 16000, 2.0); err != nil {
		fmt.Fprintf(os.Stderr, "silence.wav: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	os.Remove(tone)
	os.Remove(quiet)
	os.Exit(code)
}

func writeWAV(path string, samples []int16, rate int) error {
	dataSize := len(samples) * 2

	var b bytes.Buffer
	b.WriteString("RIFF")
	binary.Write(&b, binary.LittleEndian, uint32(36+dataSize))
	b.WriteString("WAVEfmt ")
	binary.Write(&b, binary.LittleEndian, uint32(16))
	binary.Write(&b, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&b, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&b, binary.LittleEndian, uint32(rate))
	binary.Write(&b, binary.LittleEndian, uint32(rate*2))
	binary.Write(&b, binary.LittleEndian, uint16(2))  // block align
	binary.Write(&b, binary.LittleEndian, uint16(16)) // bits per sample
	b.WriteString("data")
	binary.Write(&b, binary.LittleEndian, uint32(dataSize))
	binary.Write(&b, binary.LittleEndian, samples)

	return os.WriteFile(path, b.Bytes(), 0644)
}

func silenceWAV(path string, rate int, seconds float64) error {
	return writeWAV(path, make([]int16, int(float64(rate)*seconds)), rate)
}

func toneWAV(path string, rate int, seconds, freqHz float64) error {
	samples := make([]int16, int(float64(rate)*seconds))
	for i := range samples {
		v := 0.3 * math.Sin(2*math.Pi*freqHz*float64(i)/float64(rate))
		samples[i] = int16(v * 32767)
	}
	return writeWAV(path, samples, rate)
}

// fakeServer stands in for whisper-server: it answers /inference with a
// canned transcription and counts how many requests arrived.
type fakeServer struct {
	srv    *httptest.Server
	hits   atomic.Int32
	text   string
	status int
	delay  time.Duration
}

func newFakeServer(t *testing.T, text string, status int, delay time.Duration) *fakeServer {
	t.Helper()
	f := &fakeServer{text: text, status: status, delay: delay}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		if f.delay > 0 {
			time.Sleep(f.delay)
		}
		if f.status != 0 && f.status != http.StatusOK {
			http.Error(w, "inference failed", f.status)
			return
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			http.Error(w, "bad multipart body", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"text": f.text, "language": "en"})
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeServer) url() string { return f.srv.URL + "/inference" }

func script(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

func runWhisk(t *testing.T, serverURL, stdin string, extra ...string) (logDir string) {
	t.Helper()
	logDir = t.TempDir()
	argv := append([]string{
		"-logpath", logDir,
		"-backend", "server",
		"-server-url", serverURL,
	}, extra...)

	proc := exec.Command(binPath, argv...)
	proc.Stdin = strings.NewReader(stdin)
	proc.Env = os.Environ()

	out, err := proc.CombinedOutput()
	if err != nil {
		t.Fatalf("whisk exited with error: %v\noutput: %s", err, out)
	}
	return logDir
}

func logText(t *testing.T, logDir, filename string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(logDir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return ""
		}
		t.Fatalf("read %s: %v", filename, err)
	}
	return string(data)
}

func mustTranscript(t *testing.T, logDir string) string {
	t.Helper()
	text := logText(t, logDir, "transcribe_log.txt")
	if strings.TrimSpace(text) == "" {
		t.Fatal("transcribe_log.txt empty, want transcribed text")
	}
	return text
}

func requireClipboard(t *testing.T) {
	t.Helper()
	if _, err := clipboard.Verify(); err != nil {
		t.Skipf("clipboard not available: %v", err)
	}
}

// The record key runs through the hybrid detector, so scripts must
// either hold past the long-press threshold (350ms) and release, or
// tap once to start and tap again to stop.

func TestHoldToTalk(t *testing.T) {
	requireClipboard(t)
	f := newFakeServer(t, "the quick brown fox", 0, 0)
	logDir := runWhisk(t, f.url(),
		script("KEYDOWN", "WAIT_AUDIO_DONE", "SLEEP 500", "KEYUP", "WAIT", "QUIT"),
		"-test", "data/tone.wav")
	text := mustTranscript(t, logDir)
	if !strings.Contains(text, "the quick brown fox") {
		t.Errorf("transcribe_log missing server text, got: %q", text)
	}
	if n := f.hits.Load(); n != 1 {
		t.Errorf("inference requests = %d, want 1", n)
	}
}

func TestTapToggle(t *testing.T) {
	requireClipboard(t)
	f := newFakeServer(t, "tap toggle works", 0, 0)
	logDir := runWhisk(t, f.url(),
		script("KEYDOWN", "KEYUP", "SLEEP 500", "KEYDOWN", "KEYUP", "WAIT", "QUIT"),
		"-test", "data/tone.wav")
	text := mustTranscript(t, logDir)
	if !strings.Contains(text, "tap toggle works") {
		t.Errorf("transcribe_log missing server text, got: %q", text)
	}
}

func TestConnReuse(t *testing.T) {
	requireClipboard(t)
	f := newFakeServer(t, "hello again", 0, 0)
	logDir := runWhisk(t, f.url(),
		script("KEYDOWN", "SLEEP 500", "KEYUP", "WAIT",
			"KEYDOWN", "SLEEP 500", "KEYUP", "WAIT", "QUIT"),
		"-test", "data/tone.wav")
	diag := logText(t, logDir, "diagnostics_log.txt")
	if strings.Count(diag, "transcription") < 2 {
		t.Error("diagnostics missing second transcription entry")
	}
	if !strings.Contains(diag, "conn=reused") {
		t.Error("diagnostics missing conn=reused")
	}
	if n := f.hits.Load(); n != 2 {
		t.Errorf("inference requests = %d, want 2", n)
	}
}

func TestServerErrorNoRetry(t *testing.T) {
	f := newFakeServer(t, "", http.StatusInternalServerError, 0)
	logDir := runWhisk(t, f.url(),
		script("KEYDOWN", "SLEEP 500", "KEYUP", "WAIT", "QUIT"),
		"-test", "data/tone.wav")
	diag := logText(t, logDir, "diagnostics_log.txt")
	if !strings.Contains(diag, "status 500") {
		t.Error("diagnostics missing status 500")
	}
	if !strings.Contains(diag, "outcome=failed") {
		t.Error("diagnostics missing outcome=failed")
	}
	if text := logText(t, logDir, "transcribe_log.txt"); strings.TrimSpace(text) != "" {
		t.Errorf("transcribe_log should stay empty after a failed request, got: %q", text)
	}
	if n := f.hits.Load(); n != 1 {
		t.Errorf("failed request must not be retried, got %d requests", n)
	}
}

func TestEmptyTranscription(t *testing.T) {
	f := newFakeServer(t, "", 0, 0)
	logDir := runWhisk(t, f.url(),
		script("KEYDOWN", "SLEEP 1500", "KEYUP", "WAIT", "QUIT"),
		"-test", "data/silence.wav")
	diag := logText(t, logDir, "diagnostics_log.txt")
	if !strings.Contains(diag, "outcome=no_speech") {
		t.Error("diagnostics missing outcome=no_speech")
	}
	if text := logText(t, logDir, "transcribe_log.txt"); strings.TrimSpace(text) != "" {
		t.Errorf("transcribe_log should stay empty for an empty transcription, got: %q", text)
	}
}

func TestCancelWhileRecording(t *testing.T) {
	f := newFakeServer(t, "should never be requested", 0, 0)
	logDir := runWhisk(t, f.url(),
		script("KEYDOWN", "SLEEP 500", "CANCEL", "WAIT", "KEYUP", "QUIT"),
		"-test", "data/tone.wav")
	diag := logText(t, logDir, "diagnostics_log.txt")
	if !strings.Contains(diag, "outcome=canceled") {
		t.Error("diagnostics missing outcome=canceled")
	}
	if n := f.hits.Load(); n != 0 {
		t.Errorf("canceled recording must not reach the server, got %d requests", n)
	}
	if text := logText(t, logDir, "transcribe_log.txt"); strings.TrimSpace(text) != "" {
		t.Errorf("transcribe_log should stay empty after cancel, got: %q", text)
	}
}

func TestCancelWhileProcessing(t *testing.T) {
	f := newFakeServer(t, "stale result", 0, 1500*time.Millisecond)
	logDir := runWhisk(t, f.url(),
		script("KEYDOWN", "SLEEP 500", "KEYUP", "SLEEP 200", "CANCEL", "WAIT",
			"SLEEP 2000", "QUIT"),
		"-test", "data/tone.wav")
	diag := logText(t, logDir, "diagnostics_log.txt")
	if !strings.Contains(diag, "outcome=canceled") {
		t.Error("diagnostics missing outcome=canceled")
	}
	if !strings.Contains(diag, "stale_result_discarded") {
		t.Error("diagnostics missing stale_result_discarded")
	}
	if text := logText(t, logDir, "transcribe_log.txt"); strings.TrimSpace(text) != "" {
		t.Errorf("stale result must not be delivered, got: %q", text)
	}
}

func TestPaste(t *testing.T) {
	requireClipboard(t)
	f := newFakeServer(t, "pasted text", 0, 0)
	logDir := runWhisk(t, f.url(),
		script("KEYDOWN", "SLEEP 500", "KEYUP", "WAIT", "QUIT"),
		"-test", "data/tone.wav")
	mustTranscript(t, logDir)
	clip, err := clipboard.Read()
	if err != nil {
		t.Skipf("clipboard read: %v", err)
	}
	if strings.TrimSpace(clip) == "" {
		t.Log("clipboard empty after paste")
	}
}

func TestClipboardRestore(t *testing.T) {
	requireClipboard(t)

	marker := fmt.Sprintf("whisk-test-marker-%d", time.Now().UnixNano())
	if err := clipboard.Copy(marker); err != nil {
		t.Skipf("clipboard write: %v", err)
	}

	f := newFakeServer(t, "restore me", 0, 0)
	_ = runWhisk(t, f.url(),
		script("KEYDOWN", "SLEEP 500", "KEYUP", "WAIT", "SLEEP 1200", "QUIT"),
		"-test", "data/tone.wav")

	clip, err := clipboard.Read()
	if err != nil {
		t.Skipf("clipboard read: %v", err)
	}
	if strings.TrimSpace(clip) != marker {
		t.Errorf("clipboard after restore = %q, want %q", strings.TrimSpace(clip), marker)
	}
}
