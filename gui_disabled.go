//go:build !gui

package main

import "whisk/audio"

// Stubs for builds without the desktop window; guiMode stays false so
// neither is ever touched.
var (
	guiAudio audio.Context
	guiMic   audio.CaptureDevice
)

func initGUI() {
	panic("whisk: built without GUI support (rebuild with -tags gui)")
}
