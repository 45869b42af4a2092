// Package doctor walks the user through interactive end-to-end checks:
// hotkey, microphone, transcription backend, clipboard and paste. Each
// stage needs the previous one working, so the first failure stops the
// run.
package doctor

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"whisk/audio"
	"whisk/backend"
	"whisk/clipboard"
	"whisk/config"
	"whisk/encoder"
	"whisk/hotkey"
	"whisk/paste"
)

// Run executes the checks and returns an exit code (0 = all pass).
func Run(cfg *config.Config) int {
	restoreTTY()
	exitOnInterrupt()

	fmt.Println("whisk doctor - interactive system diagnostics")
	fmt.Println("=============================================")

	checks := []func(*config.Config) bool{checkHotkey, checkMicAndTranscription, checkClipboard}
	for _, check := range checks {
		if !check(cfg) {
			fmt.Println()
			fmt.Println("Some checks failed; see above.")
			return 1
		}
	}
	fmt.Println()
	fmt.Println("All checks passed.")
	return 0
}

func fail(format string, args ...any) {
	fmt.Printf("  FAIL: "+format+"\n", args...)
}

func pass(msg string) {
	fmt.Println("  PASS: " + msg)
}

func readLine() string {
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	return strings.TrimSpace(line)
}

func yes(prompt string) bool {
	fmt.Print(prompt)
	switch strings.ToLower(readLine()) {
	case "y", "yes":
		return true
	}
	return false
}

// hint prints platform advice after a hotkey failure.
func hint() {
	if msg, err := hotkey.Diagnose(); err == nil {
		fmt.Printf("  %s\n", msg)
	}
}

func checkHotkey(cfg *config.Config) bool {
	fmt.Println()
	fmt.Println("[1/3] Hotkey")

	b, err := hotkey.ParseBinding(cfg.Shortcut)
	if err != nil {
		fail("shortcut %q: %v", cfg.Shortcut, err)
		return false
	}

	hk, err := hotkey.New(b)
	if err != nil {
		fail("%v", err)
		return false
	}
	if err := hk.Register(); err != nil {
		fail("could not register hotkey: %v", err)
		hint()
		return false
	}
	defer hk.Unregister()

	fmt.Printf("Press %s...\n", b)
	select {
	case <-hk.Pressed():
	case <-time.After(10 * time.Second):
		fail("timeout waiting for hotkey")
		hint()
		return false
	}
	pass("hotkey detected")
	// Wait for the release so it does not leak into the next step
	select {
	case <-hk.Released():
	case <-time.After(5 * time.Second):
	}
	restoreTTY()
	return true
}

func checkMicAndTranscription(cfg *config.Config) bool {
	fmt.Println()
	fmt.Println("[2/3] Recording and transcription")

	actx, err := audio.NewContext()
	if err != nil {
		fail("cannot connect to audio: %v", err)
		return false
	}
	defer actx.Close()

	device, ok := pickDevice(actx)
	if !ok {
		return false
	}

	back, err := backend.New(cfg)
	if err != nil {
		fail("backend: %v", err)
		return false
	}
	defer back.Close()
	fmt.Printf("Backend: %s\n", back.Name())

	fmt.Println()
	fmt.Print("Press Enter, then speak for 3 seconds...")
	readLine()

	stop := make(chan struct{})
	go func() {
		time.Sleep(3 * time.Second)
		close(stop)
	}()

	buf, err := recordClip(actx, device, stop)
	if err != nil {
		fail("recording error: %v", err)
		return false
	}
	if buf.Frames() == 0 {
		fail("no audio captured")
		return false
	}

	wav, err := encoder.NewWAV().Encode(buf)
	if err != nil {
		fail("encoding error: %v", err)
		return false
	}
	fmt.Printf("  Recorded %.1f KB, transcribing...\n", float64(len(wav))/1024)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := back.EnsureReady(ctx); err != nil {
		fail("backend not ready: %v", err)
		return false
	}
	res, err := back.Transcribe(ctx, wav)
	if err != nil {
		fail("transcription error: %v", err)
		return false
	}

	text := strings.TrimSpace(res.Text)
	if text == "" {
		text = "(no speech detected)"
	}
	fmt.Printf("\n  Transcript: %s\n\n", text)

	if !yes("Is this correct? [y/n]: ") {
		fail("transcription not confirmed")
		return false
	}
	pass("transcription verified by user")
	return true
}

func pickDevice(actx audio.Context) (*audio.DeviceInfo, bool) {
	devices, err := actx.Devices()
	if err != nil {
		fail("cannot list devices: %v", err)
		return nil, false
	}
	switch len(devices) {
	case 0:
		fail("no capture devices found")
		return nil, false
	case 1:
		fmt.Printf("Using device: %s\n", devices[0].Name)
		return &devices[0], true
	}

	fmt.Println()
	fmt.Println("Pick an input device:")
	for i, d := range devices {
		fmt.Printf("  %d) %s\n", i+1, d.Name)
	}
	fmt.Printf("Device [1-%d]: ", len(devices))

	idx := 0
	if choice := readLine(); choice != "" {
		fmt.Sscanf(choice, "%d", &idx)
		idx--
	}
	if idx < 0 || idx >= len(devices) {
		fail("invalid choice")
		return nil, false
	}
	fmt.Printf("Selected: %s\n", devices[idx].Name)
	return &devices[idx], true
}

// recordClip captures mic input until stop closes, printing a dot every
// half second.
func recordClip(actx audio.Context, device *audio.DeviceInfo, stop <-chan struct{}) (*encoder.Buffer, error) {
	capture, err := actx.NewCapture(device, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	})
	if err != nil {
		return nil, err
	}

	buf := &encoder.Buffer{}
	var mu sync.Mutex
	done := make(chan struct{})

	capture.SetCallback(func(samples []float32, _ uint32) {
		mu.Lock()
		buf.Append(samples)
		mu.Unlock()
	})
	if err := capture.Start(); err != nil {
		capture.Close()
		return nil, err
	}

	fmt.Print("  Capturing")
	go func() {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	<-stop
	close(done)
	capture.Stop()
	capture.Close()
	fmt.Println(" done")

	return buf, nil
}

func checkClipboard(*config.Config) bool {
	fmt.Println()
	fmt.Println("[3/3] Clipboard and paste delivery")

	msg, err := clipboard.Verify()
	if err != nil {
		fail("clipboard: %v", err)
		return false
	}
	fmt.Printf("  clipboard: %s\n", msg)

	if err := paste.Init(); err != nil {
		fail("paste init: %v", err)
		fmt.Println("  On Linux: sudo chmod 660 /dev/uinput && sudo chgrp input /dev/uinput")
		return false
	}
	msg, err = paste.Verify()
	if err != nil {
		fail("paste: %v", err)
		return false
	}
	fmt.Printf("  paste: %s\n", msg)

	fmt.Println("Focus a text editor window...")
	for n := 5; n > 0; n-- {
		fmt.Printf("  %d...\n", n)
		time.Sleep(time.Second)
	}

	const probe = "whisk-doctor-test"
	if err := clipboard.Copy(probe); err != nil {
		fail("clipboard copy failed: %v", err)
		return false
	}
	if err := paste.Send(); err != nil {
		fail("paste failed: %v", err)
		return false
	}

	restoreTTY()
	fmt.Println()
	if !yes(fmt.Sprintf("Did the text %q appear? [y/n]: ", probe)) {
		fail("clipboard/paste not confirmed")
		return false
	}
	pass("clipboard and paste verified by user")
	return true
}
