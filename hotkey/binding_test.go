package hotkey

import "testing"

func TestParseBinding(t *testing.T) {
	tests := []struct {
		in   string
		want Binding
	}{
		{"alt+shift+r", Binding{Alt: true, Shift: true, Key: "r"}},
		{"ctrl+shift+space", Binding{Ctrl: true, Shift: true, Key: "space"}},
		{"esc", Binding{Key: "esc"}},
		{"Escape", Binding{Key: "esc"}},
		{"CMD+V", Binding{Super: true, Key: "v"}},
		{"super+f12", Binding{Super: true, Key: "f12"}},
		{" ctrl + 1 ", Binding{Ctrl: true, Key: "1"}},
		{"option+return", Binding{Alt: true, Key: "enter"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBinding(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("ParseBinding(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseBindingRejects(t *testing.T) {
	for _, in := range []string{"", "ctrl+", "ctrl+shift", "a+b", "alt+pageup", "f13", "ctrl++r", "+r"} {
		if _, err := ParseBinding(in); err == nil {
			t.Errorf("ParseBinding(%q) succeeded, want error", in)
		}
	}
}

func TestBindingString(t *testing.T) {
	for _, s := range []string{"ctrl+shift+space", "alt+shift+r", "esc", "super+f2"} {
		b, err := ParseBinding(s)
		if err != nil {
			t.Fatal(err)
		}
		if b.String() != s {
			t.Errorf("round-trip %q = %q", s, b.String())
		}
	}
}
