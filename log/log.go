// Package log writes the two append-only files every run shares:
// diagnostics_log.txt for structured events and transcribe_log.txt for
// the plain text of each transcription. Lines carry the pid so
// concurrent instances can write to one directory.
package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const stampFormat = "2006-01-02 15:04:05"

var (
	mu    sync.Mutex
	ready bool
	pid   int
	dir   string

	diag  zerolog.Logger
	diagF *os.File
	textF *os.File
)

// ResolveDir picks the log directory: the -logpath flag wins, then the
// WHISK_LOG_PATH environment variable, then the platform default.
// Relative paths are anchored at the current working directory.
func ResolveDir(flagPath string) (string, error) {
	for _, p := range []string{flagPath, os.Getenv("WHISK_LOG_PATH")} {
		if p == "" {
			continue
		}
		if filepath.IsAbs(p) {
			return p, nil
		}
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		return filepath.Join(wd, p), nil
	}
	return defaultDir()
}

func SetDir(d string) { dir = d }

func Dir() string { return dir }

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	return nil
}

// SetLevel maps a config string (debug, info, warn, error) onto the global
// zerolog level. Unknown values leave the level untouched.
func SetLevel(level string) {
	lv, err := zerolog.ParseLevel(level)
	if err != nil || lv == zerolog.NoLevel {
		return
	}
	zerolog.SetGlobalLevel(lv)
}

// Init opens both files for append and builds the diagnostics logger.
// Logging before Init, or after Close, is a no-op.
func Init() error {
	mu.Lock()
	defer mu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}
	pid = os.Getpid()

	var err error
	if diagF, err = openAppend("diagnostics_log.txt"); err != nil {
		return err
	}
	if textF, err = openAppend("transcribe_log.txt"); err != nil {
		diagF.Close()
		return err
	}

	diag = zerolog.New(zerolog.ConsoleWriter{
		Out:        diagF,
		TimeFormat: stampFormat,
		NoColor:    true,
	}).With().Timestamp().Int("pid", pid).Logger()

	ready = true
	return nil
}

func openAppend(name string) (*os.File, error) {
	return os.OpenFile(filepath.Join(dir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}

func Close() {
	mu.Lock()
	defer mu.Unlock()
	if diagF != nil {
		diagF.Close()
		diagF = nil
	}
	if textF != nil {
		textF.Close()
		textF = nil
	}
	ready = false
}

func Info(msg string) {
	if ready {
		diag.Info().Msg(msg)
	}
}

func Warn(msg string) {
	if ready {
		diag.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if ready {
		diag.Warn().Msgf(format, args...)
	}
}

func Error(msg string) {
	if ready {
		diag.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if ready {
		diag.Error().Msgf(format, args...)
	}
}

// Metrics is the timing breakdown reported after each transcription.
type Metrics struct {
	AudioLengthS float64
	WAVSizeKB    float64
	EncodeTimeMs float64
	ReadyTimeMs  float64
	TTFBMs       float64
	TotalTimeMs  float64
}

func TranscriptionMetrics(m Metrics, backend, language string, reused bool) {
	if !ready {
		return
	}
	conn := "new"
	if reused {
		conn = "reused"
	}
	diag.Info().
		Str("backend", backend).
		Str("language", language).
		Str("conn", conn).
		Float64("audio_s", m.AudioLengthS).
		Float64("wav_kb", m.WAVSizeKB).
		Float64("encode_ms", m.EncodeTimeMs).
		Float64("ready_ms", m.ReadyTimeMs).
		Float64("ttfb_ms", m.TTFBMs).
		Float64("total_ms", m.TotalTimeMs).
		Msg("transcription")
}

// TranscriptionText appends one tab-separated line to transcribe_log.txt:
// timestamp, [pid], backend, text.
func TranscriptionText(backend, text string) {
	if !ready {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(textF, "%s\t[%d]\t%s\t%s\n", time.Now().Format(stampFormat), pid, backend, text)
}

func SessionStart(backend, language string) {
	if !ready {
		return
	}
	diag.Info().Str("backend", backend).Str("language", language).Msg("session_start")
}

func SessionEnd(outcome string, durationS float64) {
	if !ready {
		return
	}
	diag.Info().Str("outcome", outcome).Float64("duration_s", durationS).Msg("session_end")
}
