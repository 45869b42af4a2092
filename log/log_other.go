//go:build !windows

package log

import (
	"os"
	"path/filepath"
	"runtime"
)

// defaultDir follows each platform's convention: ~/Library/Logs on
// macOS, $XDG_CONFIG_HOME (or ~/.config) elsewhere.
func defaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Logs", "whisk"), nil
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "whisk", "logs"), nil
}
