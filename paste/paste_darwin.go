//go:build darwin

package paste

import "github.com/micmonay/keybd_event"

// Init is a no-op: key bondings are cheap to create on macOS.
func Init() error { return nil }

// Send presses Cmd+V.
func Send() error {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return err
	}
	kb.SetKeys(keybd_event.VK_V)
	kb.HasSuper(true)
	return kb.Launching()
}

func Verify() (string, error) {
	if _, err := keybd_event.NewKeyBonding(); err != nil {
		return "", err
	}
	return "keyboard events ready (Cmd+V)", nil
}
