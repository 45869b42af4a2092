package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Shortcut != "alt+shift+r" {
		t.Errorf("shortcut = %q, want alt+shift+r", cfg.Shortcut)
	}
	if cfg.CancelShortcut != "esc" {
		t.Errorf("cancel_shortcut = %q, want esc", cfg.CancelShortcut)
	}
	if cfg.Language != "en" {
		t.Errorf("language = %q, want en", cfg.Language)
	}
	if cfg.Backend != "server" {
		t.Errorf("backend = %q, want server", cfg.Backend)
	}
	if cfg.Model != "ultra" {
		t.Errorf("model = %q, want ultra", cfg.Model)
	}
	if cfg.IdleTimeout != 5*time.Minute {
		t.Errorf("idle_timeout = %v, want 5m", cfg.IdleTimeout)
	}
	if cfg.ServerHost != "127.0.0.1" || cfg.ServerPort != 8080 || cfg.ServerThreads != 8 {
		t.Errorf("server defaults = %s:%d t=%d", cfg.ServerHost, cfg.ServerPort, cfg.ServerThreads)
	}
	if !cfg.AutoPaste || !cfg.RestoreClipboard {
		t.Error("auto_paste and restore_clipboard should default to true")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	yaml := strings.Join([]string{
		"shortcut: ctrl+shift+space",
		"language: auto",
		"backend: model",
		"idle_timeout: 90s",
		"server_port: 9090",
	}, "\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Shortcut != "ctrl+shift+space" {
		t.Errorf("shortcut = %q", cfg.Shortcut)
	}
	if cfg.Language != "auto" {
		t.Errorf("language = %q", cfg.Language)
	}
	if cfg.Backend != "model" {
		t.Errorf("backend = %q", cfg.Backend)
	}
	if cfg.IdleTimeout != 90*time.Second {
		t.Errorf("idle_timeout = %v", cfg.IdleTimeout)
	}
	if cfg.ServerPort != 9090 {
		t.Errorf("server_port = %d", cfg.ServerPort)
	}
	// untouched keys keep defaults
	if cfg.CancelShortcut != "esc" {
		t.Errorf("cancel_shortcut = %q, want esc", cfg.CancelShortcut)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("language: en\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("WHISK_LANGUAGE", "de")
	t.Setenv("WHISK_SERVER_URL", "http://10.0.0.5:8080/inference")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Language != "de" {
		t.Errorf("language = %q, want de (env wins)", cfg.Language)
	}
	if cfg.ServerURL != "http://10.0.0.5:8080/inference" {
		t.Errorf("server_url = %q", cfg.ServerURL)
	}
}

func TestLoadRejectsBadBackend(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("backend: cloud\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestResolveModelPath(t *testing.T) {
	tests := []struct {
		model    string
		wantBase string
		wantErr  bool
	}{
		{"normal", "ggml-large-v3-turbo-q5_0.bin", false},
		{"pro", "ggml-large-v3-turbo-q8_0.bin", false},
		{"ultra", "ggml-large-v3-turbo.bin", false},
		{"/models/custom.bin", "custom.bin", false},
		{"my-model.bin", "my-model.bin", false},
		{"mega", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			got, err := ResolveModelPath(tt.model)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.model)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if filepath.Base(got) != tt.wantBase {
				t.Errorf("got %q, want base %q", got, tt.wantBase)
			}
		})
	}
}

func TestModelURL(t *testing.T) {
	u, err := ModelURL("normal")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(u, "ggml-large-v3-turbo-q5_0.bin") || !strings.HasSuffix(u, "?download=true") {
		t.Errorf("unexpected url %q", u)
	}
	if _, err := ModelURL("nope"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestSetPersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("language: en\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Set("language", "fr"); err != nil {
		t.Fatal(err)
	}

	reloaded, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Language != "fr" {
		t.Errorf("language after Set = %q, want fr", reloaded.Language)
	}
}
