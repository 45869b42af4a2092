package hotkey

// FakeHotkey stands in for a platform binding in tests and in scripted
// test mode. Press and Release block until the consumer has room, so a
// script can't outrun the select loop it is driving.
type FakeHotkey struct {
	down chan struct{}
	up   chan struct{}
}

func NewFake() *FakeHotkey {
	return &FakeHotkey{down: make(chan struct{}, 1), up: make(chan struct{}, 1)}
}

func (f *FakeHotkey) Register() error           { return nil }
func (f *FakeHotkey) Unregister()               {}
func (f *FakeHotkey) Pressed() <-chan struct{}  { return f.down }
func (f *FakeHotkey) Released() <-chan struct{} { return f.up }

// Press simulates the key going down.
func (f *FakeHotkey) Press() { f.down <- struct{}{} }

// Release simulates the key coming back up.
func (f *FakeHotkey) Release() { f.up <- struct{}{} }
