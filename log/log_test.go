package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func tempLogDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	SetDir(dir)
	t.Cleanup(func() {
		Close()
		SetDir("")
	})
	return dir
}

func TestResolveDir(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		flag string
		env  string
		want string
	}{
		{"absolute flag", "/tmp/mylog", "", "/tmp/mylog"},
		{"relative flag", "logs", "", filepath.Join(wd, "logs")},
		{"env fallback", "", "/tmp/whisk-env-log", "/tmp/whisk-env-log"},
		{"relative env", "", "envlogs", filepath.Join(wd, "envlogs")},
		{"flag beats env", "/tmp/a", "/tmp/b", "/tmp/a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("WHISK_LOG_PATH", tt.env)
			got, err := ResolveDir(tt.flag)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveDirDefault(t *testing.T) {
	t.Setenv("WHISK_LOG_PATH", "")
	dir, err := ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	if dir == "" {
		t.Error("default log directory is empty")
	}
}

func TestInitCreatesFiles(t *testing.T) {
	dir := tempLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}

	for _, f := range []string{"diagnostics_log.txt", "transcribe_log.txt"} {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			t.Errorf("%s missing after Init: %v", f, err)
		}
	}
}

func TestTranscriptionTextFormat(t *testing.T) {
	dir := tempLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}

	TranscriptionText("server", "hello world")

	raw, err := os.ReadFile(filepath.Join(dir, "transcribe_log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	line := strings.TrimRight(string(raw), "\n")
	cols := strings.Split(line, "\t")
	if len(cols) != 4 {
		t.Fatalf("want 4 tab-separated columns, got %d: %q", len(cols), line)
	}
	if cols[2] != "server" {
		t.Errorf("backend column = %q, want server", cols[2])
	}
	if cols[3] != "hello world" {
		t.Errorf("text column = %q, want hello world", cols[3])
	}
}

func TestLoggingBeforeInitIsNoop(t *testing.T) {
	// Must not panic with no files open.
	Info("ignored")
	Warn("ignored")
	Error("ignored")
	Warnf("ignored %d", 1)
	Errorf("ignored %d", 2)
	TranscriptionText("server", "ignored")
	TranscriptionMetrics(Metrics{}, "server", "en", false)
	SessionStart("server", "en")
	SessionEnd("completed", 1.0)
}

func TestDoubleClose(t *testing.T) {
	tempLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}
	Close()
	Close()
}
