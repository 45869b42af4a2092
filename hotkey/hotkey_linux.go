//go:build linux

package hotkey

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	evTypeKey = 1
	valDown   = 1
	valUp     = 0

	keyLeftCtrl   = 29
	keyRightCtrl  = 97
	keyLeftShift  = 42
	keyRightShift = 54
	keyLeftAlt    = 56
	keyRightAlt   = 100
	keyLeftMeta   = 125
	keyRightMeta  = 126
)

const eventSize = 24

// evdev codes for the keys ParseBinding accepts.
var evdevCodes = map[string]uint16{
	"esc": 1,
	"1":   2, "2": 3, "3": 4, "4": 5, "5": 6, "6": 7, "7": 8, "8": 9, "9": 10, "0": 11,
	"tab": 15,
	"q":   16, "w": 17, "e": 18, "r": 19, "t": 20, "y": 21, "u": 22, "i": 23, "o": 24, "p": 25,
	"enter": 28,
	"a":     30, "s": 31, "d": 32, "f": 33, "g": 34, "h": 35, "j": 36, "k": 37, "l": 38,
	"z": 44, "x": 45, "c": 46, "v": 47, "b": 48, "n": 49, "m": 50,
	"space": 57,
	"f1":    59, "f2": 60, "f3": 61, "f4": 62, "f5": 63, "f6": 64, "f7": 65, "f8": 66, "f9": 67, "f10": 68,
	"f11": 87, "f12": 88,
}

// modTracker mirrors the held state of the four modifier groups from
// the raw event stream.
type modTracker struct {
	ctrl, shift, alt, super bool
}

func (m *modTracker) observe(code uint16, pressed, released bool) {
	on := func(cur bool) bool { return pressed || (!released && cur) }
	switch code {
	case keyLeftCtrl, keyRightCtrl:
		m.ctrl = on(m.ctrl)
	case keyLeftShift, keyRightShift:
		m.shift = on(m.shift)
	case keyLeftAlt, keyRightAlt:
		m.alt = on(m.alt)
	case keyLeftMeta, keyRightMeta:
		m.super = on(m.super)
	}
}

// satisfies reports whether every modifier the binding names is held.
// Extra held modifiers do not block a match.
func (m *modTracker) satisfies(b Binding) bool {
	return (!b.Ctrl || m.ctrl) && (!b.Shift || m.shift) && (!b.Alt || m.alt) && (!b.Super || m.super)
}

type linuxHotkey struct {
	binding Binding
	code    uint16
	downCh  chan struct{}
	upCh    chan struct{}
	devs    []*os.File
	halt    chan struct{}
	once    sync.Once
}

func New(b Binding) (Hotkey, error) {
	code, ok := evdevCodes[b.Key]
	if !ok {
		return nil, fmt.Errorf("key %q has no evdev code", b.Key)
	}
	return &linuxHotkey{
		binding: b,
		code:    code,
		downCh:  make(chan struct{}, 1),
		upCh:    make(chan struct{}, 1),
	}, nil
}

// Register opens every keyboard node it can and reads them all; which
// one the key arrives on depends on the hardware, and laptops routinely
// expose several.
func (h *linuxHotkey) Register() error {
	paths, err := findKeyboards()
	if err != nil {
		return fmt.Errorf("scanning keyboards: %w", err)
	}
	if len(paths) == 0 {
		return fmt.Errorf("no keyboard devices visible (is the user in the 'input' group?)")
	}

	h.halt = make(chan struct{})
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		h.devs = append(h.devs, f)
		go h.readEvents(f)
	}
	if len(h.devs) == 0 {
		return fmt.Errorf("cannot open any keyboard device (run: sudo usermod -aG input $USER, then log in again)")
	}
	return nil
}

func (h *linuxHotkey) readEvents(f *os.File) {
	raw := make([]byte, eventSize*16)
	var mods modTracker
	var held bool

	for {
		select {
		case <-h.halt:
			return
		default:
		}

		n, err := f.Read(raw)
		if err != nil {
			return
		}

		for off := 0; off+eventSize <= n; off += eventSize {
			ev := raw[off : off+eventSize]
			if binary.LittleEndian.Uint16(ev[16:]) != evTypeKey {
				continue
			}
			code := binary.LittleEndian.Uint16(ev[18:])
			val := int32(binary.LittleEndian.Uint32(ev[20:]))
			pressed, released := val == valDown, val == valUp

			mods.observe(code, pressed, released)
			if code != h.code {
				continue
			}
			switch {
			case pressed && !held && mods.satisfies(h.binding):
				held = true
				offer(h.downCh)
			case released && held:
				held = false
				offer(h.upCh)
			}
		}
	}
}

// offer drops the edge instead of stalling the reader when the consumer
// lags.
func offer(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (h *linuxHotkey) Unregister() {
	h.once.Do(func() {
		if h.halt != nil {
			close(h.halt)
		}
		for _, f := range h.devs {
			f.Close()
		}
	})
}

func (h *linuxHotkey) Pressed() <-chan struct{}  { return h.downCh }
func (h *linuxHotkey) Released() <-chan struct{} { return h.upCh }

// findKeyboards lists /dev/input event nodes whose key capability mask
// is wide enough to be a real keyboard rather than a button or switch.
func findKeyboards() ([]string, error) {
	entries, err := os.ReadDir("/dev/input")
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "event") && hasKeyCaps(name) {
			out = append(out, filepath.Join("/dev/input", name))
		}
	}
	return out, nil
}

func hasKeyCaps(eventName string) bool {
	data, err := os.ReadFile(filepath.Join("/sys/class/input", eventName, "device", "capabilities", "key"))
	if err != nil {
		return false
	}
	return len(strings.TrimSpace(string(data))) > 10
}

// Diagnose reports whether the evdev route can work at all, for the
// doctor flow and failed registrations.
func Diagnose() (string, error) {
	paths, err := findKeyboards()
	if err != nil {
		return "", fmt.Errorf("listing input devices: %w", err)
	}
	if len(paths) == 0 {
		return "", fmt.Errorf("no keyboard devices visible (is the user in the 'input' group?)")
	}
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		f.Close()
		return fmt.Sprintf("%d keyboard(s) found, opened %s", len(paths), path), nil
	}
	return "", fmt.Errorf("%d keyboard(s) present, none openable (run: sudo usermod -aG input $USER)", len(paths))
}
