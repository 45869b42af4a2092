//go:build windows

package backend

import "os/exec"

// No SIGTERM on Windows; Kill is the graceful option too.
func terminateProcess(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}
