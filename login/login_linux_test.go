//go:build linux

package login

import (
	"os"
	"strings"
	"testing"
)

func TestEnableDisableRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if Enabled() {
		t.Fatal("Enabled() = true before Enable")
	}

	if err := Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	if !Enabled() {
		t.Fatal("Enabled() = false after Enable")
	}

	data, err := os.ReadFile(autostartPath())
	if err != nil {
		t.Fatalf("reading desktop entry: %v", err)
	}
	entry := string(data)
	if !strings.Contains(entry, "[Desktop Entry]") {
		t.Errorf("desktop entry missing header:\n%s", entry)
	}
	if !strings.Contains(entry, "-tui=false") {
		t.Errorf("desktop entry should launch tray-only:\n%s", entry)
	}

	if err := Disable(); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	if Enabled() {
		t.Fatal("Enabled() = true after Disable")
	}

	// Disabling twice is fine
	if err := Disable(); err != nil {
		t.Fatalf("second Disable: %v", err)
	}
}
