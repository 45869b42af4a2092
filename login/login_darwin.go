//go:build darwin

package login

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"os/exec"
	"path/filepath"
)

const agentLabel = "com.whisk.app"

// agentPlist is the LaunchAgent definition. Launched sessions run
// tray-only; the _WHISK_BG marker stops the detach re-exec since
// launchd already backgrounds us.
const agentPlist = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>` + agentLabel + `</string>
	<key>ProgramArguments</key>
	<array>
		<string>%s</string>
		<string>-tui=false</string>
	</array>
	<key>RunAtLoad</key>
	<true/>
	<key>LimitLoadToSessionType</key>
	<string>Aqua</string>
	<key>EnvironmentVariables</key>
	<dict>
		<key>_WHISK_BG</key>
		<string>1</string>
	</dict>
</dict>
</plist>
`

func plistPath() string {
	return filepath.Join(os.Getenv("HOME"), "Library", "LaunchAgents", agentLabel+".plist")
}

func guiDomain() string {
	return fmt.Sprintf("gui/%d", os.Getuid())
}

func Enabled() bool {
	fi, err := os.Stat(plistPath())
	return err == nil && !fi.IsDir()
}

func Enable() error {
	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}

	dst := plistPath()
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("LaunchAgents dir: %w", err)
	}
	body := fmt.Sprintf(agentPlist, html.EscapeString(self))
	if err := os.WriteFile(dst, []byte(body), 0600); err != nil {
		return fmt.Errorf("write agent plist: %w", err)
	}

	// Bootout first in case the service is already loaded (re-enable).
	exec.Command("launchctl", "bootout", guiDomain(), dst).Run()
	if out, err := exec.Command("launchctl", "bootstrap", guiDomain(), dst).CombinedOutput(); err != nil {
		return fmt.Errorf("launchctl bootstrap: %w (%s)", err, bytes.TrimSpace(out))
	}
	return nil
}

func Disable() error {
	dst := plistPath()
	if _, err := os.Stat(dst); os.IsNotExist(err) {
		return nil
	}
	exec.Command("launchctl", "bootout", guiDomain(), dst).Run()
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove agent plist: %w", err)
	}
	return nil
}
