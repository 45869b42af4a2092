//go:build gui

package main

import (
	"fmt"
	"os"
	"runtime"

	"whisk/audio"
	"whisk/encoder"
	"whisk/gui"
)

// The GUI build opens the audio context on the process main thread
// before the window loop starts; Core Audio on macOS requires it.
var (
	guiApp   *gui.App
	guiAudio audio.Context
	guiMic   audio.CaptureDevice
)

func initGUI() {
	guiMode = true

	var err error
	guiAudio, err = audio.NewContext()
	if err != nil {
		fmt.Fprintf(os.Stderr, "audio: %v\n", err)
		os.Exit(1)
	}
	guiMic, err = guiAudio.NewCapture(nil, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening microphone: %v\n", err)
		os.Exit(1)
	}

	// GLFW wants the window loop pinned to this thread.
	runtime.LockOSThread()

	guiApp = gui.NewApp(run)
	guiSink = guiApp
	if err := gui.Run(guiApp); err != nil {
		guiMic.Close()
		guiAudio.Close()
		panic(err)
	}
}
