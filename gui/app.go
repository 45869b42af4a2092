//go:build gui

package gui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/driver/desktop"
	"github.com/go-gl/glfw/v3.3/glfw"

	"whisk/log"
)

// App hosts the always-on-top pulse overlay. The window stays hidden
// until a recording starts and never takes focus, so the paste target
// keeps it.
type App struct {
	ui      fyne.App
	win     fyne.Window
	pulse   *PulseWidget
	onReady func()
	posX    int
	posY    int
}

func NewApp(onReady func()) *App {
	return &App{onReady: onReady}
}

// Run owns the process main thread until quit.
func Run(a *App) error {
	a.ui = app.NewWithID("io.whisk.gui")
	a.ui.Settings().SetTheme(newOverlayTheme())

	if desk, ok := a.ui.(desktop.App); ok {
		desk.SetSystemTrayMenu(fyne.NewMenu("whisk",
			fyne.NewMenuItem("Quit", func() { a.ui.Quit() }),
		))
		desk.SetSystemTrayIcon(fyne.NewStaticResource("tray.png", trayIcon))
	}

	screenW, screenH := 1920, 1080
	if mon := glfw.GetPrimaryMonitor(); mon != nil {
		_, _, screenW, screenH = mon.GetWorkarea()
	}

	// A splash window comes up frameless and undecorated.
	if drv, ok := a.ui.Driver().(desktop.Driver); ok {
		a.win = drv.CreateSplashWindow()
	} else {
		a.win = a.ui.NewWindow("whisk")
	}

	a.pulse = NewPulseWidget()
	a.win.SetContent(a.pulse)
	a.win.SetFixedSize(true)
	a.win.SetPadded(false)

	size := a.pulse.MinSize()
	a.win.Resize(size)

	// Bottom-center, clear of a dock.
	a.posX = (screenW - int(size.Width)) / 2
	a.posY = screenH - int(size.Height) - 20

	go a.onReady()

	a.ui.Run()
	return nil
}

func (a *App) Quit() {
	if a.ui != nil {
		a.ui.Quit()
	}
}

func (a *App) Show() {
	fyne.Do(func() {
		if a.win == nil {
			return
		}
		if win := glfw.GetCurrentContext(); win != nil {
			// Float without stealing focus from the paste target.
			win.SetPos(a.posX, a.posY)
			win.SetAttrib(glfw.FocusOnShow, glfw.False)
			win.SetAttrib(glfw.Floating, glfw.True)
			win.Show()
			return
		}
		a.win.Show()
	})
}

func (a *App) Hide() {
	fyne.Do(func() {
		if a.win != nil {
			a.win.Hide()
		}
	})
}

// The sink methods arrive off the fyne thread; PulseWidget guards its
// own state, and Show/Hide wrap themselves in fyne.Do.

func (a *App) RecordingStart() {
	a.pulse.SetRecording(true)
	a.Show()
}

func (a *App) RecordingStop() {
	a.pulse.SetRecording(false)
	a.Hide()
}

func (a *App) AudioLevel(level float64) {
	a.pulse.SetLevel(level)
}

func (a *App) NoVoiceWarning() {
	a.pulse.SetNoVoice(true)
}

func (a *App) VoiceCleared() {
	a.pulse.SetNoVoice(false)
}

func (a *App) AutoClosed() {
	a.pulse.SetRecording(false)
	a.Hide()
}

func (a *App) Transcription(text string, m *log.Metrics, pasted bool, noSpeech bool) {
	a.pulse.SetNoVoice(false)
	a.Hide()
}

func (a *App) Canceled() {
	a.pulse.SetRecording(false)
	a.Hide()
}

func (a *App) Failed(err error) {
	a.pulse.SetRecording(false)
	a.Hide()
}

func (a *App) RecordingTick(duration float64) {}
func (a *App) ModeLine(text string)           {}
func (a *App) DeviceLine(text string)         {}
