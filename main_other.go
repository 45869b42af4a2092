//go:build !linux

package main

import (
	"os"
	"runtime"
	"slices"

	"golang.design/x/hotkey/mainthread"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	if slices.Contains(os.Args[1:], "-gui") {
		initGUI()
		return
	}
	// The hotkey event tap needs the process main thread on macOS and
	// Windows; run moves to a worker goroutine.
	mainthread.Init(run)
}
