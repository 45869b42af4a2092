//go:build !windows

// Package shutdown hides the per-platform set of signals that should
// end the process cleanly.
package shutdown

import (
	"os"
	"os/signal"
	"syscall"
)

// Listen returns a channel that receives the first quit request.
func Listen() <-chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	return ch
}
