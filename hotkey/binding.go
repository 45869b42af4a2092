package hotkey

import (
	"fmt"
	"strconv"
	"strings"
)

// Binding is a parsed key combination such as "alt+shift+r" or "esc".
type Binding struct {
	Ctrl  bool
	Shift bool
	Alt   bool
	Super bool
	Key   string
}

// ParseBinding parses a config combo string. Tokens are separated by '+':
// any of ctrl, shift, alt, super plus exactly one key (a letter, digit,
// space, esc, enter, tab, or f1..f12). Case and surrounding spaces are
// ignored.
func ParseBinding(s string) (Binding, error) {
	var b Binding
	for _, tok := range strings.Split(strings.ToLower(strings.TrimSpace(s)), "+") {
		tok = strings.TrimSpace(tok)
		switch tok {
		case "":
			return Binding{}, fmt.Errorf("invalid shortcut %q", s)
		case "ctrl", "control":
			b.Ctrl = true
		case "shift":
			b.Shift = true
		case "alt", "option", "opt":
			b.Alt = true
		case "super", "cmd", "win", "meta":
			b.Super = true
		default:
			if b.Key != "" {
				return Binding{}, fmt.Errorf("shortcut %q has more than one key", s)
			}
			key, ok := normalizeKey(tok)
			if !ok {
				return Binding{}, fmt.Errorf("unknown key %q in shortcut %q", tok, s)
			}
			b.Key = key
		}
	}
	if b.Key == "" {
		return Binding{}, fmt.Errorf("shortcut %q has no key", s)
	}
	return b, nil
}

func normalizeKey(tok string) (string, bool) {
	switch tok {
	case "escape":
		return "esc", true
	case "return":
		return "enter", true
	case "space", "esc", "enter", "tab":
		return tok, true
	}
	if len(tok) == 1 {
		c := tok[0]
		if c >= 'a' && c <= 'z' || c >= '0' && c <= '9' {
			return tok, true
		}
	}
	if len(tok) >= 2 && tok[0] == 'f' {
		if n, err := strconv.Atoi(tok[1:]); err == nil && n >= 1 && n <= 12 {
			return tok, true
		}
	}
	return "", false
}

// String renders the binding back in config syntax.
func (b Binding) String() string {
	var parts []string
	if b.Ctrl {
		parts = append(parts, "ctrl")
	}
	if b.Shift {
		parts = append(parts, "shift")
	}
	if b.Alt {
		parts = append(parts, "alt")
	}
	if b.Super {
		parts = append(parts, "super")
	}
	parts = append(parts, b.Key)
	return strings.Join(parts, "+")
}
