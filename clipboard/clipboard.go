package clipboard

import (
	"fmt"

	cb "github.com/atotto/clipboard"
)

func Read() (string, error) {
	return cb.ReadAll()
}

func Copy(text string) error {
	return cb.WriteAll(text)
}

// Verify round-trips a probe string and restores the previous contents.
func Verify() (string, error) {
	prev, _ := Read()
	const probe = "whisk clipboard check"
	if err := Copy(probe); err != nil {
		return "", err
	}
	got, err := Read()
	if err != nil {
		return "", err
	}
	Copy(prev)
	if got != probe {
		return "", fmt.Errorf("clipboard round-trip mismatch: got %q", got)
	}
	return "clipboard round-trip OK", nil
}
