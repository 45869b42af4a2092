package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"whisk/audio"
	"whisk/backend"
	"whisk/beep"
	"whisk/config"
	"whisk/encoder"
	"whisk/hotkey"
	"whisk/log"
	"whisk/paste"
)

// runTestMode replays a WAV file through the full pipeline, driven by a
// line protocol on stdin:
//
//	KEYDOWN / KEYUP   record hotkey press / release
//	CANCEL            cancel hotkey press
//	WAIT              block until the session resolves
//	WAIT_AUDIO_DONE   block until the WAV has been fed
//	SLEEP <ms>        pause the script
//	QUIT              exit
//
// The hotkey goes through the hybrid detector, so KEYDOWN/KEYUP pairs
// act as tap-to-toggle or hold-to-talk exactly like the real binding.
func runTestMode(cfg *config.Config, wavPath string) {
	beep.Disable()

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}
	defer log.Close()

	if cfg.AutoPaste {
		if err := paste.Init(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: paste unavailable: %v\n", err)
		}
	}

	back, err := backend.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating backend: %v\n", err)
		os.Exit(1)
	}
	defer back.Close()

	fakeAudio, err := audio.NewFakeContext(wavPath, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading test WAV: %v\n", err)
		os.Exit(1)
	}

	capture, err := fakeAudio.NewCapture(nil, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening fake capture: %v\n", err)
		os.Exit(1)
	}
	defer capture.Close()
	replay := capture.(*audio.FakeCapture)

	key := hotkey.NewFake()
	cancelKey := hotkey.NewFake()
	hy := hotkey.NewHybrid(key, cfg.LongPress)

	outcome := make(chan struct{}, 1)
	ctrl := NewController(ControllerOptions{
		Capture:  capture,
		Backend:  back,
		Encoder:  &encoder.WAVEncoder{},
		Deliver:  NewDeliverer(cfg.AutoPaste, cfg.RestoreClipboard),
		Sink:     &outcomeSink{done: outcome},
		Language: cfg.Language,
		IsToggle: hy.IsToggle,
	})

	go func() {
		for {
			select {
			case <-hy.Start():
				ctrl.Start()
			case <-hy.StopChan():
				ctrl.Stop()
			case <-cancelKey.Pressed():
				ctrl.Cancel()
			case <-cancelKey.Released():
			}
		}
	}()

	in := bufio.NewScanner(os.Stdin)
	for in.Scan() {
		cmd := strings.TrimSpace(in.Text())
		switch cmd {
		case "KEYDOWN":
			key.Press()
		case "KEYUP":
			key.Release()
		case "CANCEL":
			cancelKey.Press()
			cancelKey.Release()
		case "WAIT":
			<-outcome
		case "WAIT_AUDIO_DONE":
			<-replay.AudioDone()
		case "QUIT":
			ctrl.Close()
			back.Close()
			log.Close()
			os.Exit(0)
		default:
			if rest, ok := strings.CutPrefix(cmd, "SLEEP "); ok {
				if ms, err := strconv.Atoi(rest); err == nil {
					time.Sleep(time.Duration(ms) * time.Millisecond)
				}
			}
		}
	}
	ctrl.Close()
}

// outcomeSink signals WAIT when a session reaches a terminal outcome.
type outcomeSink struct {
	NopSink
	done chan struct{}
}

func (s *outcomeSink) signal() {
	select {
	case s.done <- struct{}{}:
	default:
	}
}

func (s *outcomeSink) Transcription(string, *log.Metrics, bool, bool) { s.signal() }
func (s *outcomeSink) Canceled()                                      { s.signal() }
func (s *outcomeSink) Failed(error)                                   { s.signal() }
