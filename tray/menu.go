package tray

import (
	"os/exec"
	"runtime"

	"fyne.io/systray"

	"whisk/update"
)

var (
	mRecord     *systray.MenuItem
	mCancel     *systray.MenuItem
	mCopy       *systray.MenuItem
	mDevices    *systray.MenuItem
	deviceItems []*systray.MenuItem

	mSettings    *systray.MenuItem
	mAutoPaste   *systray.MenuItem
	mLogin       *systray.MenuItem
	mBackend     *systray.MenuItem
	backendItems []*systray.MenuItem
	mModel       *systray.MenuItem
	modelItems   []*systray.MenuItem
	mLanguage    *systray.MenuItem
	langItems    []*systray.MenuItem
	mUpdate      *systray.MenuItem
)

// clickHandler drains the item's click channel for its whole life;
// systray keeps the channel open until Quit.
func clickHandler(item *systray.MenuItem, fn func()) {
	go func() {
		for range item.ClickedCh {
			fn()
		}
	}()
}

func selectRadio(items []*systray.MenuItem, selected int) {
	for i, it := range items {
		if i == selected {
			it.Check()
		} else {
			it.Uncheck()
		}
	}
}

// addRadioSub builds a submenu of checkbox items acting as a radio
// group. pick runs on the click goroutine after the checkmarks move.
func addRadioSub(parent *systray.MenuItem, title, tip string, labels []string, checked int, pick func(int)) (*systray.MenuItem, []*systray.MenuItem) {
	sub := parent.AddSubMenuItem(title, tip)
	items := make([]*systray.MenuItem, len(labels))
	for i, label := range labels {
		idx := i
		it := sub.AddSubMenuItemCheckbox(label, label, i == checked)
		clickHandler(it, func() {
			selectRadio(items, idx)
			pick(idx)
		})
		items[i] = it
	}
	return sub, items
}

// addToggle flips the checkbox on click and reports the new state.
func addToggle(parent *systray.MenuItem, title, tip string, on bool, flip func(bool)) *systray.MenuItem {
	it := parent.AddSubMenuItemCheckbox(title, tip, on)
	clickHandler(it, func() {
		if it.Checked() {
			it.Uncheck()
		} else {
			it.Check()
		}
		flip(it.Checked())
	})
	return it
}

func onReady() {
	systray.SetTemplateIcon(iconIdleHi, iconIdle)
	systray.SetTooltip("whisk – push to talk")

	mCopy = systray.AddMenuItem("Copy Last Transcription", "Copy the last transcription to the clipboard")
	mCopy.Disable()
	clickHandler(mCopy, func() {
		if st.copyLast != nil {
			st.copyLast()
		}
	})

	systray.AddSeparator()

	mRecord = systray.AddMenuItem("Start Recording", "Start or stop recording")
	clickHandler(mRecord, func() {
		switch {
		case st.recording && st.stop != nil:
			st.stop()
		case !st.recording && st.record != nil:
			st.record()
		}
	})

	mCancel = systray.AddMenuItem("Cancel Recording", "Discard the active recording")
	clickHandler(mCancel, func() {
		if st.cancel != nil {
			st.cancel()
		}
	})

	mSettings = systray.AddMenuItem("Settings", "Settings")

	mDevices = mSettings.AddSubMenuItem("Microphone", "Select input device")
	st.devMu.Lock()
	deviceItems = make([]*systray.MenuItem, 0, len(st.devices))
	for i, name := range st.devices {
		deviceItems = append(deviceItems, addDeviceItem(i, name, name == st.device))
	}
	st.devMu.Unlock()

	st.pickMu.Lock()
	mBackend, backendItems = addRadioSub(mSettings, "Backend", "Select transcription backend",
		pickerLabels(Backends), pickerChecked(Backends, st.backend), func(i int) {
			st.pickMu.Lock()
			cb := st.onBackend
			st.pickMu.Unlock()
			if cb != nil {
				cb(Backends[i].Name)
			}
		})
	mModel, modelItems = addRadioSub(mSettings, "Model", "Select model size",
		pickerLabels(Models), pickerChecked(Models, st.model), func(i int) {
			st.pickMu.Lock()
			cb := st.onModel
			st.pickMu.Unlock()
			if cb != nil {
				cb(Models[i].Name)
			}
		})
	st.pickMu.Unlock()

	langLabels := make([]string, len(Languages))
	langSel := -1
	for i, l := range Languages {
		langLabels[i] = l.Label
		if l.Code == st.lang {
			langSel = i
		}
	}
	mLanguage, langItems = addRadioSub(mSettings, "Language", "Select transcription language",
		langLabels, langSel, func(i int) {
			if st.onLang != nil {
				st.onLang(Languages[i].Code)
			}
		})

	mAutoPaste = addToggle(mSettings, "Auto-paste", "Paste transcriptions into the focused app",
		st.autoPaste, func(on bool) {
			if st.onAutoPaste != nil {
				st.onAutoPaste(on)
			}
		})
	mLogin = addToggle(mSettings, "Start on Login", "Launch whisk when you log in",
		st.login, func(on bool) {
			if st.onLogin != nil {
				st.onLogin(on)
			}
		})

	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Quit whisk")
	clickHandler(mQuit, func() { Quit() })

	close(menuReady)
}

func pickerLabels(entries []pickerEntry) []string {
	labels := make([]string, len(entries))
	for i, e := range entries {
		labels[i] = e.Label
	}
	return labels
}

func pickerChecked(entries []pickerEntry, active string) int {
	for i, e := range entries {
		if e.Name == active {
			return i
		}
	}
	return -1
}

func onExit() {
	quitOnce.Do(func() { close(quitc) })
}

func nativeQuit() {
	systray.Quit()
}

func addDeviceItem(idx int, name string, checked bool) *systray.MenuItem {
	item := mDevices.AddSubMenuItemCheckbox(deviceLabel(name), name, checked)
	clickHandler(item, func() {
		st.devMu.Lock()
		// Titles may have been rewritten by RefreshDevices; resolve the
		// current name by position.
		current := ""
		if idx < len(st.devices) {
			current = st.devices[idx]
		}
		cb := st.onDev
		st.devMu.Unlock()
		if cb != nil && current != "" {
			cb(current)
		}
		st.devMu.Lock()
		for _, it := range deviceItems {
			it.Uncheck()
		}
		if idx < len(deviceItems) {
			deviceItems[idx].Check()
		}
		st.devMu.Unlock()
	})
	return item
}

// RefreshDevices rewrites the microphone submenu after hotplug. Items
// are reused by position; surplus ones are hidden, missing ones added.
func RefreshDevices(names []string, selected string) {
	if menuReady == nil {
		return
	}
	<-menuReady

	st.devMu.Lock()
	defer st.devMu.Unlock()

	st.devices = names
	st.device = selected

	for i, item := range deviceItems {
		if i >= len(names) {
			item.Hide()
			item.Uncheck()
			continue
		}
		item.SetTitle(deviceLabel(names[i]))
		item.SetTooltip(names[i])
		item.Show()
		if names[i] == selected {
			item.Check()
		} else {
			item.Uncheck()
		}
	}

	for i := len(deviceItems); i < len(names); i++ {
		deviceItems = append(deviceItems, addDeviceItem(i, names[i], names[i] == selected))
	}
}

func setRecordingIcon(rec bool) {
	if mRecord == nil {
		return
	}
	if rec {
		systray.SetIcon(iconRecHi)
		mRecord.SetTitle("Stop Recording")
	} else {
		systray.SetTemplateIcon(iconIdleHi, iconIdle)
		mRecord.SetTitle("Start Recording")
	}
}

func setWarningIcon(on bool) {
	if mRecord == nil {
		return
	}
	if on {
		systray.SetIcon(iconWarnHi)
	} else {
		systray.SetIcon(iconRecHi)
	}
}

func setTooltip(msg string) {
	if mSettings == nil {
		return
	}
	systray.SetTooltip(msg)
}

func setCopyLastTitle(title string) {
	if mCopy != nil {
		mCopy.SetTitle(title)
		mCopy.Enable()
	}
}

func showUpdateItem(version string) {
	if mUpdate != nil {
		mUpdate.SetTitle("⚠ Update available: " + version)
		mUpdate.Show()
		return
	}
	if mSettings == nil {
		return
	}
	mUpdate = mSettings.AddSubMenuItem("Update available: "+version, "Open the release page")
	clickHandler(mUpdate, func() {
		openURL("https://github.com/" + update.Repo + "/releases/tag/" + version)
	})
}

func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	_ = cmd.Start()
}

func disablePickers() {
	for _, m := range []*systray.MenuItem{mDevices, mBackend, mModel} {
		if m != nil {
			m.Disable()
		}
	}
}

func enablePickers() {
	for _, m := range []*systray.MenuItem{mDevices, mBackend, mModel} {
		if m != nil {
			m.Enable()
		}
	}
}
