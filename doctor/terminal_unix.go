//go:build !windows

package doctor

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
)

// restoreTTY undoes whatever the hotkey probe left behind in the
// terminal; evdev reading does not echo keys back.
func restoreTTY() {
	exec.Command("stty", "sane").Run()
}

// exitOnInterrupt makes ctrl-c abort the check run with a failing code.
func exitOnInterrupt() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ch
		fmt.Fprintln(os.Stderr, "\nInterrupted")
		os.Exit(1)
	}()
}
