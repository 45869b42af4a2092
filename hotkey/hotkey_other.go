//go:build !linux

package hotkey

import (
	"fmt"
	"sync"

	"golang.design/x/hotkey"
)

var xKeys = map[string]hotkey.Key{
	"a": hotkey.KeyA, "b": hotkey.KeyB, "c": hotkey.KeyC, "d": hotkey.KeyD,
	"e": hotkey.KeyE, "f": hotkey.KeyF, "g": hotkey.KeyG, "h": hotkey.KeyH,
	"i": hotkey.KeyI, "j": hotkey.KeyJ, "k": hotkey.KeyK, "l": hotkey.KeyL,
	"m": hotkey.KeyM, "n": hotkey.KeyN, "o": hotkey.KeyO, "p": hotkey.KeyP,
	"q": hotkey.KeyQ, "r": hotkey.KeyR, "s": hotkey.KeyS, "t": hotkey.KeyT,
	"u": hotkey.KeyU, "v": hotkey.KeyV, "w": hotkey.KeyW, "x": hotkey.KeyX,
	"y": hotkey.KeyY, "z": hotkey.KeyZ,
	"0": hotkey.Key0, "1": hotkey.Key1, "2": hotkey.Key2, "3": hotkey.Key3,
	"4": hotkey.Key4, "5": hotkey.Key5, "6": hotkey.Key6, "7": hotkey.Key7,
	"8": hotkey.Key8, "9": hotkey.Key9,
	"space": hotkey.KeySpace,
	"esc":   hotkey.KeyEscape,
	"enter": hotkey.KeyReturn,
	"tab":   hotkey.KeyTab,
	"f1":    hotkey.KeyF1, "f2": hotkey.KeyF2, "f3": hotkey.KeyF3,
	"f4": hotkey.KeyF4, "f5": hotkey.KeyF5, "f6": hotkey.KeyF6,
	"f7": hotkey.KeyF7, "f8": hotkey.KeyF8, "f9": hotkey.KeyF9,
	"f10": hotkey.KeyF10, "f11": hotkey.KeyF11, "f12": hotkey.KeyF12,
}

type xHotkey struct {
	hk     *hotkey.Hotkey
	downCh chan struct{}
	upCh   chan struct{}
	stop   chan struct{}
	once   sync.Once
}

func New(b Binding) (Hotkey, error) {
	key, ok := xKeys[b.Key]
	if !ok {
		return nil, fmt.Errorf("key %q is not supported on this platform", b.Key)
	}
	var mods []hotkey.Modifier
	if b.Ctrl {
		mods = append(mods, hotkey.ModCtrl)
	}
	if b.Shift {
		mods = append(mods, hotkey.ModShift)
	}
	if b.Alt {
		mods = append(mods, modAlt)
	}
	if b.Super {
		mods = append(mods, modSuper)
	}
	return &xHotkey{
		hk:     hotkey.New(mods, key),
		downCh: make(chan struct{}, 1),
		upCh:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
	}, nil
}

func (h *xHotkey) Register() error {
	if err := h.hk.Register(); err != nil {
		return err
	}
	go h.forward(h.hk.Keydown, h.downCh)
	go h.forward(h.hk.Keyup, h.upCh)
	return nil
}

func (h *xHotkey) forward(src func() <-chan hotkey.Event, dst chan struct{}) {
	for {
		select {
		case <-src():
			select {
			case dst <- struct{}{}:
			default:
			}
		case <-h.stop:
			return
		}
	}
}

func (h *xHotkey) Unregister() {
	h.once.Do(func() {
		h.hk.Unregister()
		close(h.stop)
	})
}

func (h *xHotkey) Pressed() <-chan struct{} {
	return h.downCh
}

func (h *xHotkey) Released() <-chan struct{} {
	return h.upCh
}

func Diagnose() (string, error) {
	return "global hotkey support available", nil
}
