// Package tray drives the status-bar item: recording state, the
// settings submenus, and the quit path. The Set and On functions may
// all be called before Init; the menu picks the state up when it is
// built.
package tray

import (
	"fmt"
	"sync"
	"time"
)

var (
	quitc     = make(chan struct{})
	quitOnce  sync.Once
	menuReady chan struct{}
)

// st carries menu data and callbacks. systray clicks arrive on their
// own goroutines; devMu guards the hotplug-refreshable device list and
// pickMu the backend and model pickers.
var st struct {
	copyLast func()
	record   func()
	stop     func()
	cancel   func()

	recording bool

	devMu   sync.Mutex
	devices []string
	device  string
	onDev   func(string)

	pickMu    sync.Mutex
	backend   string
	onBackend func(string)
	model     string
	onModel   func(string)

	lang   string
	onLang func(string)

	autoPaste   bool
	onAutoPaste func(bool)
	login       bool
	onLogin     func(bool) error

	isBT func(string) bool
}

func OnCopyLast(fn func())            { st.copyLast = fn }
func OnRecord(start, stop func())     { st.record = start; st.stop = stop }
func OnCancel(fn func())              { st.cancel = fn }
func SetAutoPaste(on bool)            { st.autoPaste = on }
func OnAutoPaste(fn func(bool))       { st.onAutoPaste = fn }
func SetLogin(on bool)                { st.login = on }
func OnLogin(fn func(bool) error)     { st.onLogin = fn }
func SetBTCheck(fn func(string) bool) { st.isBT = fn }

func SetLanguage(code string, onSwitch func(string)) {
	st.lang = code
	st.onLang = onSwitch
}

func SetDevices(names []string, selected string, onSwitch func(name string)) {
	st.devMu.Lock()
	st.devices = names
	st.device = selected
	if onSwitch != nil {
		st.onDev = onSwitch
	}
	st.devMu.Unlock()
}

func SetBackends(active string, onSwitch func(string)) {
	st.pickMu.Lock()
	st.backend = active
	st.onBackend = onSwitch
	st.pickMu.Unlock()
}

func SetModels(active string, onSwitch func(string)) {
	st.pickMu.Lock()
	st.model = active
	st.onModel = onSwitch
	st.pickMu.Unlock()
}

func SetRecording(rec bool) {
	st.recording = rec
	setRecordingIcon(rec)
	if rec {
		disablePickers()
	} else {
		enablePickers()
	}
}

func SetWarning(on bool) {
	if !st.recording {
		return
	}
	setWarningIcon(on)
}

// SetError surfaces the failure in the tooltip for ten seconds.
func SetError(msg string) {
	setTooltip("whisk – " + msg)
	go func() {
		time.Sleep(10 * time.Second)
		setTooltip("whisk – push to talk")
	}()
}

func SetLastRecording(dur time.Duration, totalMs float64) {
	setCopyLastTitle(fmt.Sprintf("Copy Last Transcription (%.1fs | %dms)", dur.Seconds(), int(totalMs)))
}

func SetUpdateAvailable(version string) {
	showUpdateItem(version)
}

func Quit() {
	nativeQuit()
	quitOnce.Do(func() { close(quitc) })
}

func deviceLabel(name string) string {
	if st.isBT != nil && st.isBT(name) {
		return name + " [⚠ reduced audio quality]"
	}
	return name
}
