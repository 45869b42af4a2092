//go:build linux

package main

import (
	"os"
	"slices"
)

func main() {
	// -gui takes over the main thread before flag parsing; GLFW and the
	// audio context both want it.
	if slices.Contains(os.Args[1:], "-gui") {
		initGUI()
		return
	}
	run()
}
