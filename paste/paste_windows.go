//go:build windows

package paste

import "github.com/micmonay/keybd_event"

// Init is a no-op: key bondings are cheap to create on Windows.
func Init() error { return nil }

// Send presses Ctrl+V.
func Send() error {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return err
	}
	kb.SetKeys(keybd_event.VK_V)
	kb.HasCTRL(true)
	return kb.Launching()
}

func Verify() (string, error) {
	if _, err := keybd_event.NewKeyBonding(); err != nil {
		return "", err
	}
	return "keyboard events ready (Ctrl+V)", nil
}
