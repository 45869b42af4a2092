//go:build linux

package login

import (
	"fmt"
	"os"
	"path/filepath"
)

const desktopName = "whisk.desktop"

func autostartPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		dir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(dir, "autostart", desktopName)
}

func Enabled() bool {
	_, err := os.Stat(autostartPath())
	return err == nil
}

func Enable() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	// Tray-only at login; the marker stops the detach re-exec since the
	// session manager already backgrounds us.
	entry := fmt.Sprintf(`[Desktop Entry]
Type=Application
Name=whisk
Comment=Push-to-talk dictation
Exec=env _WHISK_BG=1 "%s" -tui=false
Terminal=false
X-GNOME-Autostart-enabled=true
`, exe)

	path := autostartPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create autostart dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(entry), 0644); err != nil {
		return fmt.Errorf("write desktop entry: %w", err)
	}
	return nil
}

func Disable() error {
	if err := os.Remove(autostartPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove desktop entry: %w", err)
	}
	return nil
}
