//go:build linux

package paste

import (
	"sync"

	"github.com/micmonay/keybd_event"
)

// The virtual keyboard is cached: NewKeyBonding creates a uinput device,
// which needs /dev/uinput access and a moment to be picked up by the
// compositor.
var vkbd = sync.OnceValues(func() (keybd_event.KeyBonding, error) {
	return keybd_event.NewKeyBonding()
})

func Init() error {
	_, err := vkbd()
	return err
}

// Send presses Ctrl+V.
func Send() error {
	kb, err := vkbd()
	if err != nil {
		return err
	}
	kb.SetKeys(keybd_event.VK_V)
	kb.HasCTRL(true)
	return kb.Launching()
}

func Verify() (string, error) {
	if err := Init(); err != nil {
		return "", err
	}
	return "uinput keyboard ready (Ctrl+V)", nil
}
