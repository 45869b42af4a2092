package main

import (
	"fmt"
	"sync"
	"time"

	"whisk/clipboard"
	"whisk/log"
	"whisk/paste"
)

// restoreDelay leaves the pasted text on the clipboard long enough for
// the target application to read it before the previous content comes
// back.
const restoreDelay = 600 * time.Millisecond

// Deliverer hands finished transcriptions to the focused application:
// clipboard first, then a synthetic paste keystroke. The clipboard copy
// is the contract; a failed paste still counts as delivered.
type Deliverer struct {
	mu               sync.Mutex
	autoPaste        bool
	restoreClipboard bool

	// test seams
	read    func() (string, error)
	copy    func(string) error
	sendKey func() error
	sleep   func(time.Duration)
}

func NewDeliverer(autoPaste, restoreClipboard bool) *Deliverer {
	return &Deliverer{
		autoPaste:        autoPaste,
		restoreClipboard: restoreClipboard,
		read:             clipboard.Read,
		copy:             clipboard.Copy,
		sendKey:          paste.Send,
		sleep:            time.Sleep,
	}
}

// SetAutoPaste flips pasting on or off. Safe to call while a delivery
// is in flight; the change applies from the next one.
func (d *Deliverer) SetAutoPaste(on bool) {
	d.mu.Lock()
	d.autoPaste = on
	d.mu.Unlock()
}

func (d *Deliverer) AutoPaste() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.autoPaste
}

// Deliver places text on the clipboard and optionally pastes it.
// Returns whether the paste keystroke went out. A clipboard failure is
// the only fatal path.
func (d *Deliverer) Deliver(text string) (pasted bool, err error) {
	d.mu.Lock()
	autoPaste, restore := d.autoPaste, d.restoreClipboard
	d.mu.Unlock()

	var prev string
	if autoPaste && restore {
		prev, _ = d.read()
	}

	if err := d.copy(text); err != nil {
		return false, fmt.Errorf("clipboard copy: %w", err)
	}

	if !autoPaste {
		return false, nil
	}

	if err := d.sendKey(); err != nil {
		log.Warnf("paste failed, text left on clipboard: %v", err)
		return false, nil
	}

	if restore && prev != "" {
		go func() {
			d.sleep(restoreDelay)
			if err := d.copy(prev); err != nil {
				log.Warnf("clipboard restore failed: %v", err)
			}
		}()
	}
	return true, nil
}
