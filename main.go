package main

import (
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/exec"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"whisk/audio"
	"whisk/backend"
	"whisk/beep"
	"whisk/clipboard"
	"whisk/config"
	"whisk/doctor"
	"whisk/encoder"
	"whisk/hotkey"
	"whisk/log"
	"whisk/login"
	"whisk/paste"
	"whisk/provision"
	"whisk/shutdown"
	"whisk/tray"
	"whisk/update"
)

// version is stamped by the release build; "dev" disables self-update.
var version = "dev"

// guiMode is flipped by initGUI before run starts. The GUI build owns
// the audio context and the main thread.
var guiMode bool

// guiSink is the desktop window's event sink, set by initGUI.
var guiSink EventSink

// bgMarker distinguishes the re-exec'd background child from the
// foreground parent.
const bgMarker = "_WHISK_BG"

// Tray menu clicks and the TUI device picker land here so the hotkey
// loop stays the single caller of the controller.
var (
	trayRecordChan   = make(chan struct{}, 1)
	trayStopChan     = make(chan struct{}, 1)
	trayCancelChan   = make(chan struct{}, 1)
	deviceSelectChan = make(chan struct{}, 1)
)

func run() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "update":
			runUpdate()
			return
		case "setup":
			runSetup()
			return
		}
	}

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	tuiFlag := flag.Bool("tui", true, "run with the terminal interface (false = tray only, detaches)")
	flag.Bool("gui", false, "run with the desktop window (requires a build with -tags gui)")
	micFlag := flag.String("mic", cfg.Mic, "capture device name, substring match")
	pickMic := flag.Bool("pick-mic", false, "pick the microphone interactively and save it")
	langFlag := flag.String("lang", cfg.Language, "transcription language (ISO-639-1, \"auto\" to detect)")
	backendFlag := flag.String("backend", cfg.Backend, "transcription backend: server or model")
	serverURLFlag := flag.String("server-url", cfg.ServerURL, "use an already-running whisper server at this URL")
	hybridFlag := flag.Bool("hybrid", cfg.Hybrid, "hold shortcut to talk, tap to toggle")
	doctorFlag := flag.Bool("doctor", false, "run the interactive health checks and exit")
	testFlag := flag.Bool("test", false, "scripted session control on stdin, first arg is the input WAV")
	versionFlag := flag.Bool("version", false, "print version and exit")
	profileFlag := flag.Bool("profile", false, "serve pprof on localhost:6060")
	logPathFlag := flag.String("logpath", "", "override the log directory")
	crashFlag := flag.Bool("crash", false, "panic after 3s to exercise crash reporting")
	flag.Parse()

	if *versionFlag {
		fmt.Println(version)
		return
	}

	cfg.Mic = *micFlag
	cfg.Language = *langFlag
	cfg.Backend = *backendFlag
	cfg.ServerURL = *serverURLFlag
	cfg.Hybrid = *hybridFlag
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log.SetLevel(cfg.LogLevel)
	if dir, err := log.ResolveDir(*logPathFlag); err == nil {
		log.SetDir(dir)
	}
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "log dir: %v\n", err)
	}

	if *doctorFlag {
		os.Exit(doctor.Run(cfg))
	}

	if *testFlag {
		if flag.NArg() < 1 {
			fmt.Fprintln(os.Stderr, "test mode needs a WAV file argument")
			os.Exit(2)
		}
		runTestMode(cfg, flag.Arg(0))
		return
	}

	// Crashes land in a file next to the logs; stderr is gone once we
	// detach from the terminal.
	crashPath := filepath.Join(log.Dir(), "crash.log")
	if f, err := os.OpenFile(crashPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644); err == nil {
		_ = debug.SetCrashOutput(f, debug.CrashOptions{})
		f.Close()
	}
	if *crashFlag {
		go func() {
			time.Sleep(3 * time.Second)
			panic("crash flag")
		}()
	}
	if *profileFlag {
		go func() {
			_ = http.ListenAndServe("localhost:6060", nil)
		}()
	}

	if !cfg.Beeps {
		beep.Disable()
	}

	if *pickMic {
		if err := pickMicrophone(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "mic setup: %v\n", err)
			os.Exit(1)
		}
	}

	if !*tuiFlag && !guiMode && os.Getenv(bgMarker) == "" {
		daemonize()
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "log init: %v\n", err)
	}
	defer log.Close()
	log.Info("starting whisk " + version)

	if cfg.AutoPaste {
		if err := paste.Init(); err != nil {
			log.Warnf("paste unavailable, falling back to clipboard only: %v", err)
		}
	}

	var actx audio.Context
	var capture audio.CaptureDevice
	if guiMode {
		actx, capture = guiAudio, guiMic
	} else {
		actx, err = audio.NewContext()
		if err != nil {
			fatal("audio: %v", err)
		}
		capture, err = actx.NewCapture(findDevice(actx, cfg.Mic), audio.CaptureConfig{
			SampleRate: encoder.SampleRate,
			Channels:   encoder.Channels,
		})
		if err != nil {
			fatal("opening microphone: %v", err)
		}
	}
	defer actx.Close()

	back, err := backend.New(cfg)
	if err != nil {
		fatal("backend: %v", err)
	}

	var program *tea.Program
	gracefulShutdown := func(code int) {
		shutdownOnce.Do(func() {
			resMu.Lock()
			ctrl := activeCtrl
			b := activeBack
			resMu.Unlock()
			if ctrl != nil {
				ctrl.Close()
			}
			if b != nil {
				b.Close()
			}
			tray.Quit()
			if program != nil {
				program.Quit()
			}
			log.Close()
			os.Exit(code)
		})
	}

	if *tuiFlag && !guiMode {
		program = NewTUIProgram(cfg.Shortcut, cfg.CancelShortcut)
		setTUIProgram(program)
		go func() {
			if _, err := program.Run(); err != nil {
				log.Errorf("tui: %v", err)
			}
			gracefulShutdown(0)
		}()
	}

	sinks := multiSink{tuiSink{}, traySink{}}
	if cfg.Beeps {
		sinks = append(sinks, beepSink{})
	}
	if cfg.Notify {
		sinks = append(sinks, notifySink{})
	}
	if guiSink != nil {
		sinks = append(sinks, guiSink)
	}

	var arch *archiver
	if cfg.ArchiveDir != "" {
		arch, err = newArchiver(cfg.ArchiveDir)
		if err != nil {
			log.Warnf("archive disabled: %v", err)
			arch = nil
		}
	}

	deliverer := NewDeliverer(cfg.AutoPaste, cfg.RestoreClipboard)

	binding, err := hotkey.ParseBinding(cfg.Shortcut)
	if err != nil {
		fatal("shortcut %q: %v", cfg.Shortcut, err)
	}
	toggleHk, err := hotkey.New(binding)
	if err != nil {
		fatal("hotkey: %v", err)
	}
	if err := toggleHk.Register(); err != nil {
		fatal("registering %s: %v", binding, err)
	}
	defer toggleHk.Unregister()

	cancelBinding, err := hotkey.ParseBinding(cfg.CancelShortcut)
	if err != nil {
		fatal("cancel shortcut %q: %v", cfg.CancelShortcut, err)
	}
	cancelHk, err := hotkey.New(cancelBinding)
	if err != nil {
		fatal("cancel hotkey: %v", err)
	}
	if err := cancelHk.Register(); err != nil {
		fatal("registering %s: %v", cancelBinding, err)
	}
	defer cancelHk.Unregister()

	var hy *hotkey.Hybrid
	isToggle := func() bool { return true }
	if cfg.Hybrid {
		hy = hotkey.NewHybrid(toggleHk, cfg.LongPress)
		isToggle = hy.IsToggle
	}

	ctrl := NewController(ControllerOptions{
		Capture:  capture,
		Backend:  back,
		Encoder:  encoder.NewWAV(),
		Deliver:  deliverer,
		Sink:     sinks,
		Archive:  arch,
		Language: cfg.Language,
		IsToggle: isToggle,
	})
	resMu.Lock()
	activeCtrl, activeBack, activeCapture = ctrl, back, capture
	preferredDevice = cfg.Mic
	resMu.Unlock()

	// Backend or language switches from the tray rebuild the backend;
	// the controller only accepts the swap while idle.
	applyBackendConfig := func() {
		nb, err := backend.New(cfg)
		if err != nil {
			log.Errorf("backend switch: %v", err)
			tray.SetError(err.Error())
			return
		}
		if !ctrl.SetBackend(nb, cfg.Language) {
			nb.Close()
			log.Warn("backend switch ignored mid-session")
			return
		}
		resMu.Lock()
		old := activeBack
		activeBack = nb
		resMu.Unlock()
		old.Close()
		tuiSend(ModeLineMsg{Text: modeLineText(cfg)})
	}

	tray.OnCopyLast(func() {
		if text := lastTranscription(); text != "" {
			if err := clipboard.Copy(text); err != nil {
				log.Warnf("copy last: %v", err)
			}
		}
	})
	tray.OnRecord(
		func() { signalChan(trayRecordChan) },
		func() { signalChan(trayStopChan) },
	)
	tray.OnCancel(func() { signalChan(trayCancelChan) })
	tray.SetBTCheck(audio.IsBluetooth)
	tray.SetDevices(listDeviceNames(actx), capture.DeviceName(), func(name string) {
		switchDeviceByName(actx, ctrl, name)
	})
	tray.SetLanguage(cfg.Language, func(code string) {
		if err := cfg.Set("language", code); err != nil {
			log.Warnf("saving language: %v", err)
		}
		cfg.Language = code
		applyBackendConfig()
	})
	tray.SetBackends(cfg.Backend, func(name string) {
		if err := cfg.Set("backend", name); err != nil {
			log.Warnf("saving backend: %v", err)
		}
		cfg.Backend = name
		applyBackendConfig()
	})
	tray.SetModels(cfg.Model, func(name string) {
		if err := cfg.Set("model", name); err != nil {
			log.Warnf("saving model: %v", err)
		}
		cfg.Model = name
		applyBackendConfig()
	})
	tray.SetAutoPaste(deliverer.AutoPaste())
	tray.SetLogin(login.Enabled())
	tray.OnLogin(func(on bool) error {
		if on {
			return login.Enable()
		}
		return login.Disable()
	})

	trayQuit := tray.Init()
	tray.OnAutoPaste(func(on bool) {
		deliverer.SetAutoPaste(on)
		if err := cfg.Set("auto_paste", on); err != nil {
			log.Warnf("saving auto_paste: %v", err)
		}
	})

	go pollDevices(actx, ctrl)

	update.StartBackgroundCheck(version, log.Dir(), func(rel update.Release) {
		tuiSend(UpdateAvailableMsg{Version: rel.Version})
		tray.SetUpdateAvailable(rel.Version)
	})

	go func() {
		<-shutdown.Listen()
		gracefulShutdown(0)
	}()
	go func() {
		<-trayQuit
		gracefulShutdown(0)
	}()

	go beep.Init()

	tuiSend(ModeLineMsg{Text: modeLineText(cfg)})
	devName := capture.DeviceName()
	tuiSend(DeviceLineMsg{Text: deviceLineText(devName)})
	tuiSend(BluetoothWarningMsg{IsBT: audio.IsBluetooth(devName)})
	log.Info("ready, shortcut " + binding.String())

	if hy != nil {
		for {
			select {
			case <-hy.Start():
				ctrl.Start()
			case <-hy.StopChan():
				ctrl.Stop()
			case <-cancelHk.Pressed():
				ctrl.Cancel()
			case <-cancelHk.Released():
			case <-trayRecordChan:
				ctrl.Toggle()
			case <-trayStopChan:
				ctrl.Stop()
			case <-trayCancelChan:
				ctrl.Cancel()
			case <-deviceSelectChan:
				handleDeviceSwitch(program, actx, ctrl)
			}
		}
	}
	for {
		select {
		case <-toggleHk.Pressed():
			ctrl.Toggle()
		case <-toggleHk.Released():
		case <-cancelHk.Pressed():
			ctrl.Cancel()
		case <-cancelHk.Released():
		case <-trayRecordChan:
			ctrl.Toggle()
		case <-trayStopChan:
			ctrl.Stop()
		case <-trayCancelChan:
			ctrl.Cancel()
		case <-deviceSelectChan:
			handleDeviceSwitch(program, actx, ctrl)
		}
	}
}

// resMu guards the swappable resources shared between the hotkey loop,
// tray callbacks, the hotplug poller, and shutdown.
var (
	resMu           sync.Mutex
	activeCtrl      *Controller
	activeBack      backend.Backend
	activeCapture   audio.CaptureDevice
	preferredDevice string
	shutdownOnce    sync.Once
)

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	log.Errorf(format, args...)
	log.Close()
	os.Exit(1)
}

func signalChan(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// daemonize re-execs the binary with the background marker set and lets
// the parent exit, so `whisk -tui=false` returns the shell prompt.
func daemonize() {
	exe, err := os.Executable()
	if err != nil {
		return
	}
	cmd := exec.Command(exe, os.Args[1:]...)
	cmd.Env = append(os.Environ(), bgMarker+"=1")
	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "detach failed, staying in foreground: %v\n", err)
		return
	}
	fmt.Printf("whisk running in background (pid %d)\n", cmd.Process.Pid)
	os.Exit(0)
}

func pickMicrophone(cfg *config.Config) error {
	actx, err := audio.NewContext()
	if err != nil {
		return err
	}
	defer actx.Close()
	dev, err := audio.SelectDevice(actx)
	if err != nil {
		return err
	}
	cfg.Mic = dev.Name
	if err := cfg.Set("mic", dev.Name); err != nil {
		return fmt.Errorf("saving mic: %w", err)
	}
	fmt.Printf("microphone saved: %s\n", dev.Name)
	return nil
}

// findDevice resolves a configured name to a device, preferring an exact
// match over a substring one. Empty name or no match means the system
// default.
func findDevice(ctx audio.Context, name string) *audio.DeviceInfo {
	if name == "" {
		return nil
	}
	devices, err := ctx.Devices()
	if err != nil {
		log.Warnf("enumerating devices: %v", err)
		return nil
	}
	for i := range devices {
		if strings.EqualFold(devices[i].Name, name) {
			return &devices[i]
		}
	}
	lower := strings.ToLower(name)
	for i := range devices {
		if strings.Contains(strings.ToLower(devices[i].Name), lower) {
			return &devices[i]
		}
	}
	log.Warnf("microphone %q not found, using system default", name)
	return nil
}

func listDeviceNames(ctx audio.Context) []string {
	devices, err := ctx.Devices()
	if err != nil {
		return nil
	}
	names := make([]string, len(devices))
	for i, d := range devices {
		names[i] = d.Name
	}
	return names
}

// applyDevice opens the given device and hands it to the controller.
// Caller holds resMu. The old capture is closed only after the
// controller accepts the swap.
func applyDevice(actx audio.Context, ctrl *Controller, dev *audio.DeviceInfo) bool {
	newCap, err := actx.NewCapture(dev, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	})
	if err != nil {
		log.Errorf("opening %s: %v", dev.Name, err)
		return false
	}
	if !ctrl.SetCapture(newCap) {
		newCap.Close()
		log.Warn("device switch ignored while recording")
		return false
	}
	old := activeCapture
	activeCapture = newCap
	if old != nil {
		old.Close()
	}
	preferredDevice = dev.Name
	log.Info("switched to " + dev.Name)
	tuiSend(DeviceLineMsg{Text: deviceLineText(dev.Name)})
	tuiSend(BluetoothWarningMsg{IsBT: audio.IsBluetooth(dev.Name)})
	tray.RefreshDevices(listDeviceNames(actx), dev.Name)
	return true
}

func switchDeviceByName(actx audio.Context, ctrl *Controller, name string) {
	resMu.Lock()
	defer resMu.Unlock()
	devices, err := actx.Devices()
	if err != nil {
		log.Warnf("enumerating devices: %v", err)
		return
	}
	for i := range devices {
		if devices[i].Name == name {
			applyDevice(actx, ctrl, &devices[i])
			return
		}
	}
	log.Warnf("device %q no longer present", name)
}

// handleDeviceSwitch runs the interactive picker. The TUI gives the
// terminal back for the duration of the prompt.
func handleDeviceSwitch(program *tea.Program, actx audio.Context, ctrl *Controller) {
	if program == nil {
		return
	}
	if err := program.ReleaseTerminal(); err != nil {
		log.Warnf("release terminal: %v", err)
		return
	}
	dev, serr := audio.SelectDevice(actx)
	if err := program.RestoreTerminal(); err != nil {
		log.Warnf("restore terminal: %v", err)
	}
	if serr != nil {
		log.Warnf("device select: %v", serr)
		return
	}
	resMu.Lock()
	applyDevice(actx, ctrl, dev)
	resMu.Unlock()
}

// pollDevices watches for hotplug every few seconds: refreshes the tray
// list on change and reconnects to the preferred microphone when it
// comes back.
func pollDevices(actx audio.Context, ctrl *Controller) {
	var lastNames []string
	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		names := listDeviceNames(actx)
		if names == nil {
			continue
		}
		resMu.Lock()
		current := ""
		if activeCapture != nil {
			current = activeCapture.DeviceName()
		}
		changed := !equalNames(names, lastNames)
		lastNames = names
		if changed {
			tray.RefreshDevices(names, current)
		}
		if preferredDevice != "" && !strings.EqualFold(current, preferredDevice) {
			devices, err := actx.Devices()
			if err == nil {
				for i := range devices {
					if strings.EqualFold(devices[i].Name, preferredDevice) {
						log.Info("preferred microphone back: " + devices[i].Name)
						applyDevice(actx, ctrl, &devices[i])
						break
					}
				}
			}
		}
		resMu.Unlock()
	}
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func modeLineText(cfg *config.Config) string {
	if cfg.Backend == "server" && cfg.ServerURL != "" {
		return fmt.Sprintf("[server %s | %s]", cfg.ServerURL, cfg.Language)
	}
	return fmt.Sprintf("[%s | %s | %s]", cfg.Backend, cfg.Model, cfg.Language)
}

func deviceLineText(name string) string {
	if name == "" {
		name = "system default"
	}
	return fmt.Sprintf("mic: %s (ctrl+g to switch)", name)
}

func runUpdate() {
	if version == "dev" {
		fmt.Println("dev build, self-update disabled")
		return
	}
	fmt.Printf("current version: %s\n", version)
	rel, err := update.CheckLatest(version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "update check: %v\n", err)
		os.Exit(1)
	}
	if rel == nil {
		fmt.Println("already up to date")
		return
	}
	fmt.Printf("new version available: %s\n", rel.Version)
	fmt.Print("update now? [y/N] ")
	var answer string
	fmt.Scanln(&answer)
	if strings.ToLower(strings.TrimSpace(answer)) != "y" {
		return
	}
	if err := update.Apply(rel); err != nil {
		fmt.Fprintf(os.Stderr, "update failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("updated to %s\n", rel.Version)
}

func runSetup() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if err := provision.Run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "setup: %v\n", err)
		os.Exit(1)
	}
}
