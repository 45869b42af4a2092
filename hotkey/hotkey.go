// Package hotkey delivers global key press and release events for a
// small set of bindings. Linux reads evdev devices directly so bindings
// work on Wayland and in consoles; the other platforms go through
// golang.design/x/hotkey.
package hotkey

// Hotkey is one registered binding. Edges arrive on 1-slot channels;
// the platform readers drop an edge rather than stall when the consumer
// lags.
type Hotkey interface {
	Register() error
	Unregister()
	Pressed() <-chan struct{}
	Released() <-chan struct{}
}
