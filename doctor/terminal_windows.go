//go:build windows

package doctor

import (
	"fmt"
	"os"
	"os/signal"
)

// restoreTTY is a no-op: the console state survives the probes here.
func restoreTTY() {}

// exitOnInterrupt makes ctrl-c abort the check run with a failing code.
func exitOnInterrupt() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	go func() {
		<-ch
		fmt.Fprintln(os.Stderr, "\nInterrupted")
		os.Exit(1)
	}()
}
