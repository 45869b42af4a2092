// Package config loads whisk settings from a YAML file, environment
// variables and built-in defaults, in that order of increasing priority
// for env vars over file values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "WHISK"

type Config struct {
	Shortcut         string
	CancelShortcut   string
	Language         string
	Backend          string // "server" or "model"
	Model            string // catalog key (normal/pro/ultra) or path to a ggml file
	Device           string // "cuda" or "cpu"
	Mic              string
	IdleTimeout      time.Duration
	ServerHost       string
	ServerPort       int
	ServerThreads    int
	ServerURL        string // non-empty: use an already-running server, no child process
	AutoPaste        bool
	RestoreClipboard bool
	Notify           bool
	Beeps            bool
	ArchiveDir       string
	LongPress        time.Duration
	Hybrid           bool
	LogLevel         string

	v *viper.Viper
}

// Dir returns the directory holding config.yaml, honoring XDG_CONFIG_HOME.
func Dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "whisk"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "whisk"), nil
}

// DataDir is where downloaded binaries and models live.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".whisk"), nil
}

func ModelsDir() (string, error) {
	d, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "models"), nil
}

func BinDir() (string, error) {
	d, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "bin"), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("shortcut", "alt+shift+r")
	v.SetDefault("cancel_shortcut", "esc")
	v.SetDefault("language", "en")
	v.SetDefault("backend", "server")
	v.SetDefault("model", "ultra")
	v.SetDefault("device", "cuda")
	v.SetDefault("mic", "")
	v.SetDefault("idle_timeout", "300s")
	v.SetDefault("server_host", "127.0.0.1")
	v.SetDefault("server_port", 8080)
	v.SetDefault("server_threads", 8)
	v.SetDefault("server_url", "")
	v.SetDefault("auto_paste", true)
	v.SetDefault("restore_clipboard", true)
	v.SetDefault("notify", true)
	v.SetDefault("beeps", true)
	v.SetDefault("archive_dir", "")
	v.SetDefault("long_press", "350ms")
	v.SetDefault("hybrid", false)
	v.SetDefault("log_level", "warn")
}

// Load reads config.yaml from dir (or the default config dir when dir is
// empty). A missing file is fine; WHISK_* environment variables override
// file values either way.
func Load(dir string) (*Config, error) {
	if dir == "" {
		var err error
		dir, err = Dir()
		if err != nil {
			return nil, err
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{
		Shortcut:         v.GetString("shortcut"),
		CancelShortcut:   v.GetString("cancel_shortcut"),
		Language:         v.GetString("language"),
		Backend:          v.GetString("backend"),
		Model:            v.GetString("model"),
		Device:           v.GetString("device"),
		Mic:              v.GetString("mic"),
		IdleTimeout:      v.GetDuration("idle_timeout"),
		ServerHost:       v.GetString("server_host"),
		ServerPort:       v.GetInt("server_port"),
		ServerThreads:    v.GetInt("server_threads"),
		ServerURL:        v.GetString("server_url"),
		AutoPaste:        v.GetBool("auto_paste"),
		RestoreClipboard: v.GetBool("restore_clipboard"),
		Notify:           v.GetBool("notify"),
		Beeps:            v.GetBool("beeps"),
		ArchiveDir:       v.GetString("archive_dir"),
		LongPress:        v.GetDuration("long_press"),
		Hybrid:           v.GetBool("hybrid"),
		LogLevel:         v.GetString("log_level"),
		v:                v,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Backend {
	case "server", "model":
	default:
		return fmt.Errorf("invalid backend %q (want server or model)", c.Backend)
	}
	if c.Language == "" {
		return fmt.Errorf("language must not be empty (use \"auto\" for detection)")
	}
	if c.Shortcut == "" {
		return fmt.Errorf("shortcut must not be empty")
	}
	return nil
}

// Set updates a key in memory and persists the whole config file. Used by
// the tray menu pickers.
func (c *Config) Set(key string, value any) error {
	c.v.Set(key, value)
	dir := filepath.Dir(c.v.ConfigFileUsed())
	if c.v.ConfigFileUsed() == "" {
		d, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(d, 0755); err != nil {
			return err
		}
		return c.v.WriteConfigAs(filepath.Join(d, "config.yaml"))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return c.v.WriteConfig()
}
