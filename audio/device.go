package audio

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

type pickKey int

const (
	pickNone pickKey = iota
	pickUp
	pickDown
	pickConfirm
	pickAbort
)

// readPickKey blocks for one keypress and folds arrow and vim keys onto
// the same actions.
func readPickKey(b []byte) (pickKey, error) {
	n, err := os.Stdin.Read(b)
	if err != nil {
		return pickNone, fmt.Errorf("stdin: %w", err)
	}
	switch {
	case n == 1 && b[0] == 13: // Enter
		return pickConfirm, nil
	case n == 1 && b[0] == 3: // Ctrl+C
		return pickAbort, nil
	case n == 1 && b[0] == 'j':
		return pickDown, nil
	case n == 1 && b[0] == 'k':
		return pickUp, nil
	case n == 3 && b[0] == 0x1b && b[1] == '[' && b[2] == 'A':
		return pickUp, nil
	case n == 3 && b[0] == 0x1b && b[1] == '[' && b[2] == 'B':
		return pickDown, nil
	}
	return pickNone, nil
}

// SelectDevice presents an interactive microphone picker and returns the
// selected device. A single available device is returned without
// prompting.
func SelectDevice(ctx Context) (*DeviceInfo, error) {
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("listing capture devices: %w", err)
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("no microphones found")
	}
	if len(devices) == 1 {
		return &devices[0], nil
	}

	fd := int(os.Stdin.Fd())
	saved, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("raw terminal: %w", err)
	}
	defer term.Restore(fd, saved)

	sel := 0
	draw := func() {
		fmt.Print("\r\x1b[J")
		fmt.Print("Select microphone (↑/↓, Enter to confirm):\r\n\r\n")
		for i, d := range devices {
			warn := ""
			if IsBluetooth(d.Name) {
				warn = " \x1b[33m[⚠ reduced audio quality]\x1b[0m"
			}
			if i == sel {
				fmt.Printf("  \x1b[1;36m▶ %s%s\x1b[0m\r\n", d.Name, warn)
			} else {
				fmt.Printf("    %s%s\r\n", d.Name, warn)
			}
		}
	}
	draw()

	seq := make([]byte, 3)
	for {
		key, err := readPickKey(seq)
		if err != nil {
			return nil, err
		}
		switch key {
		case pickConfirm:
			fmt.Print("\r\n")
			term.Restore(fd, saved)
			return &devices[sel], nil
		case pickAbort:
			fmt.Print("\r\n")
			term.Restore(fd, saved)
			os.Exit(130)
		case pickUp:
			if sel > 0 {
				sel--
			}
		case pickDown:
			if sel < len(devices)-1 {
				sel++
			}
		}
		fmt.Printf("\x1b[%dA", len(devices)+2)
		draw()
	}
}
