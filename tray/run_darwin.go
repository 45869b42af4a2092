//go:build darwin

package tray

import (
	"fyne.io/systray"
	"golang.design/x/hotkey/mainthread"
)

// Init registers the status item on the main thread, which already runs
// the hotkey event loop. The systray external-loop mode plays along
// instead of demanding its own Run.
func Init() <-chan struct{} {
	menuReady = make(chan struct{})
	start, _ := systray.RunWithExternalLoop(onReady, onExit)
	done := make(chan struct{})
	mainthread.Call(func() {
		start()
		close(done)
	})
	<-done
	return quitc
}
