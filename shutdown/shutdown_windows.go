//go:build windows

// Package shutdown hides the per-platform set of signals that should
// end the process cleanly.
package shutdown

import (
	"os"
	"os/signal"
)

// Listen returns a channel that receives the first quit request.
// SIGTERM does not exist on Windows; interrupt covers console closes.
func Listen() <-chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	return ch
}
