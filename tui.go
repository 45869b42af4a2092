package main

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"whisk/log"
)

// Messages the session sink and main feed into the Bubble Tea loop.
type (
	RecordingStartMsg   struct{}
	RecordingStopMsg    struct{}
	RecordingTickMsg    struct{ Duration float64 }
	AudioLevelMsg       struct{ Level float64 }
	NoVoiceWarningMsg   struct{}
	VoiceClearedMsg     struct{}
	SilenceAutoCloseMsg struct{}
	CanceledMsg         struct{}
	ErrorMsg            struct{ Text string }

	ModeLineMsg         struct{ Text string } // "[server | ultra | en]"
	DeviceLineMsg       struct{ Text string } // microphone device name
	BluetoothWarningMsg struct{ IsBT bool }
	UpdateAvailableMsg  struct{ Version string }

	// TranscriptionMsg delivers one finished result to the right panel.
	TranscriptionMsg struct {
		Text     string
		Metrics  []string
		Pasted   bool
		NoSpeech bool
	}

	tickMsg time.Time
)

type tuiState int

const (
	tuiStateIdle tuiState = iota
	tuiStateRecording
	tuiStateProcessing
)

type tuiModel struct {
	state         tuiState
	frame         int
	width, height int

	duration float64 // seconds recorded so far
	level    float64 // smoothed mic level
	peak     float64 // loudest level this recording

	count      int      // transcriptions completed this session
	transcript string   // last transcribed text
	metrics    []string // formatted latency lines for the last result
	pasted     bool
	noSpeech   bool

	shortcut       string // record hotkey, for the help line
	cancelShortcut string // cancel hotkey, for the help line
	modeLine       string
	deviceLine     string
	noVoice        bool
	btWarn         bool
	canceled       bool
	autoClosed     bool
	errText        string
	newVersion     string
}

var (
	tuiProgram *tea.Program
	tuiMu      sync.Mutex
)

func setTUIProgram(p *tea.Program) {
	tuiMu.Lock()
	tuiProgram = p
	tuiMu.Unlock()
}

func tuiSend(msg tea.Msg) {
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// tuiSink translates session events into Bubble Tea messages. Safe to
// call before the program starts; messages are dropped until then.
type tuiSink struct{}

func (tuiSink) RecordingStart()         { tuiSend(RecordingStartMsg{}) }
func (tuiSink) RecordingStop()          { tuiSend(RecordingStopMsg{}) }
func (tuiSink) RecordingTick(d float64) { tuiSend(RecordingTickMsg{Duration: d}) }
func (tuiSink) AudioLevel(l float64)    { tuiSend(AudioLevelMsg{Level: l}) }
func (tuiSink) NoVoiceWarning()         { tuiSend(NoVoiceWarningMsg{}) }
func (tuiSink) VoiceCleared()           { tuiSend(VoiceClearedMsg{}) }
func (tuiSink) AutoClosed()             { tuiSend(SilenceAutoCloseMsg{}) }
func (tuiSink) Canceled()               { tuiSend(CanceledMsg{}) }
func (tuiSink) Failed(err error)        { tuiSend(ErrorMsg{Text: err.Error()}) }
func (tuiSink) ModeLine(text string)    { tuiSend(ModeLineMsg{Text: text}) }
func (tuiSink) DeviceLine(text string)  { tuiSend(DeviceLineMsg{Text: text}) }

func (tuiSink) Transcription(text string, m *log.Metrics, pasted, noSpeech bool) {
	var lines []string
	if m != nil {
		recordStats(*m)
		lines = metricLines(m)
	}
	if noSpeech {
		text = "(no speech detected)"
	}
	tuiSend(TranscriptionMsg{Text: text, Metrics: lines, Pasted: pasted, NoSpeech: noSpeech})
}

func metricLines(m *log.Metrics) []string {
	return []string{
		fmt.Sprintf("audio   %6.1f s", m.AudioLengthS),
		fmt.Sprintf("wav     %6.0f KB", m.WAVSizeKB),
		fmt.Sprintf("encode  %6.0f ms", m.EncodeTimeMs),
		fmt.Sprintf("ready   %6.0f ms", m.ReadyTimeMs),
		fmt.Sprintf("ttfb    %6.0f ms", m.TTFBMs),
		fmt.Sprintf("total   %6.0f ms", m.TotalTimeMs),
	}
}

func NewTUIProgram(shortcut, cancelShortcut string) *tea.Program {
	m := tuiModel{shortcut: shortcut, cancelShortcut: cancelShortcut}
	return tea.NewProgram(m, tea.WithAltScreen())
}

const frameInterval = 60 * time.Millisecond

func animTick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m tuiModel) Init() tea.Cmd {
	return animTick()
}

// settle clears the transient recording readout when a session ends or
// aborts.
func (m *tuiModel) settle() {
	m.level = 0
	m.noVoice = false
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "ctrl+g":
			select {
			case deviceSelectChan <- struct{}{}:
			default:
			}
		}

	case tickMsg:
		m.frame++
		return m, animTick()

	case RecordingStartMsg:
		m.state = tuiStateRecording
		m.duration, m.level, m.peak = 0, 0, 0
		m.noVoice = false
		m.canceled, m.autoClosed = false, false
		m.errText = ""

	case RecordingStopMsg:
		if m.state == tuiStateRecording {
			m.state = tuiStateProcessing
		}
		m.level = 0

	case SilenceAutoCloseMsg:
		if m.state == tuiStateRecording {
			m.state = tuiStateProcessing
		}
		m.settle()
		m.autoClosed = true

	case RecordingTickMsg:
		m.duration = msg.Duration

	case AudioLevelMsg:
		if m.state == tuiStateRecording {
			m.level = m.level*0.6 + msg.Level*0.4
			m.peak = math.Max(m.peak, msg.Level)
		}

	case NoVoiceWarningMsg:
		m.noVoice = true

	case VoiceClearedMsg:
		m.noVoice = false

	case CanceledMsg:
		m.state = tuiStateIdle
		m.settle()
		m.canceled = true

	case ErrorMsg:
		m.state = tuiStateIdle
		m.settle()
		m.errText = msg.Text

	case TranscriptionMsg:
		m.state = tuiStateIdle
		m.count++
		m.transcript = msg.Text
		m.metrics = msg.Metrics
		m.pasted, m.noSpeech = msg.Pasted, msg.NoSpeech

	case ModeLineMsg:
		m.modeLine = msg.Text

	case DeviceLineMsg:
		m.deviceLine = msg.Text

	case BluetoothWarningMsg:
		m.btWarn = msg.IsBT

	case UpdateAvailableMsg:
		m.newVersion = msg.Version
	}
	return m, nil
}

// One style per role; built once since View runs every frame.
var (
	recStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	busyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	faintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	modeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
	textStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	metricStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	keyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Width of the meter column; the transcription panel takes the rest.
const leftWidth = 45

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	logWidth := max(m.width-leftWidth-1, 20)

	left := lipgloss.NewStyle().
		Width(leftWidth - 1).
		Height(m.height).
		Render(padColumn(strings.Split(m.leftPane(), "\n"), m.height, leftWidth-1))

	right := lipgloss.NewStyle().
		Width(logWidth).
		Height(m.height).
		PaddingLeft(1).
		Render(m.resultPane(max(logWidth-2, 10)))

	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}

func (m tuiModel) leftPane() string {
	var b strings.Builder
	b.WriteString(renderPulse(m.frame, m.meterLevel(), m.state))
	for _, line := range m.infoLines() {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

func (m tuiModel) meterLevel() float64 {
	if m.state != tuiStateRecording {
		return 0
	}
	return m.level
}

func (m tuiModel) infoLines() []string {
	var lines []string

	switch m.state {
	case tuiStateRecording:
		lines = append(lines, recStyle.Render(fmt.Sprintf("● REC %.1fs", m.duration)))
		if m.noVoice {
			lines = append(lines, warnStyle.Render("  ⚠ no voice detected"))
		}
	case tuiStateProcessing:
		spin := spinnerFrames[m.frame%len(spinnerFrames)]
		lines = append(lines, busyStyle.Render(spin+" TRANSCRIBING"))
	default:
		lines = append(lines, faintStyle.Render("○ STANDBY"))
		if m.canceled {
			lines = append(lines, faintStyle.Render("  ✕ canceled"))
		}
		if m.autoClosed {
			lines = append(lines, faintStyle.Render("  stopped after 30s of silence"))
		}
	}

	if m.btWarn {
		lines = append(lines, warnStyle.Render("⚠ bluetooth mic: audio quality may drop"))
	}
	if m.errText != "" {
		for _, l := range wrapText("error: "+m.errText, leftWidth-2) {
			lines = append(lines, errStyle.Render(l))
		}
	}
	if m.modeLine != "" {
		lines = append(lines, modeStyle.Render(m.modeLine))
	}
	if m.deviceLine != "" {
		lines = append(lines, faintStyle.Render(m.deviceLine))
	}

	if table := renderPercentileTable(); table != "" {
		lines = append(lines, "")
		for _, l := range strings.Split(table, "\n") {
			lines = append(lines, faintStyle.Render(l))
		}
	}

	lines = append(lines, "", m.helpLine())
	if m.newVersion != "" {
		lines = append(lines, okStyle.Render("update available: "+m.newVersion+" (run: whisk update)"))
	}
	return append(lines, helpStyle.Render("whisk "+version))
}

func (m tuiModel) helpLine() string {
	s := keyStyle.Render(m.shortcut) + helpStyle.Render(" to record")
	if m.cancelShortcut != "" {
		s += helpStyle.Render("  ·  ") + keyStyle.Render(m.cancelShortcut) + helpStyle.Render(" to cancel")
	}
	return s
}

func (m tuiModel) resultPane(wrapWidth int) string {
	if m.transcript == "" {
		return faintStyle.Render("No transcriptions yet")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Last transcription (#%d)", m.count)))
	b.WriteString("\n\n")

	style := textStyle
	if m.noSpeech {
		style = warnStyle
	}
	lines := wrapText(m.transcript, wrapWidth)
	for i, line := range lines {
		b.WriteString(style.Render(line))
		if i == len(lines)-1 && !m.noSpeech {
			tag := "[✓ copied]"
			if m.pasted {
				tag = "[✓ pasted]"
			}
			b.WriteString(" " + okStyle.Render(tag))
		}
		b.WriteByte('\n')
	}

	if len(m.metrics) > 0 {
		b.WriteByte('\n')
		for _, line := range m.metrics {
			b.WriteString(metricStyle.Render(line))
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// padColumn extends lines with blank rows to exactly height so the two
// panes join without vertical drift.
func padColumn(lines []string, height, width int) string {
	out := make([]string, height)
	blank := strings.Repeat(" ", width)
	for i := range out {
		if i < len(lines) {
			out[i] = lines[i]
		} else {
			out[i] = blank
		}
	}
	return strings.Join(out, "\n")
}

// renderPulse draws the level meter: a disc that grows with the mic
// level while recording, an orbiting spinner while transcribing, and a
// faint breathing dot when idle.
func renderPulse(frame int, level float64, st tuiState) string {
	const (
		pixW      = 44
		pixH      = 30
		maxRadius = 12.0
	)
	cx, cy := float64(pixW)/2, float64(pixH)/2
	c := newCanvas(pixW, pixH)

	switch st {
	case tuiStateRecording:
		// Radius tracks the level; full scale at RMS 0.3.
		r := math.Min(3.0+math.Min(level/0.3, 1.0)*8.0+math.Sin(float64(frame)*0.25)*0.4, maxRadius)
		c.disc(cx, cy, r, func(dist float64) int {
			return min(1+int(dist/r*8), 9)
		})
	case tuiStateProcessing:
		c.disc(cx, cy, 1.8, func(float64) int { return 9 })
		const orbit = 7.0
		for k := 0; k < 3; k++ {
			ang := float64(frame)*0.18 + float64(k)*2*math.Pi/3
			color := 4 + k // leading dot brightest
			c.disc(cx+orbit*math.Cos(ang), cy+orbit*math.Sin(ang), 1.4, func(float64) int { return color })
		}
	default:
		r := 2.6 + math.Sin(float64(frame)*0.08)*0.5
		c.disc(cx, cy, r, func(dist float64) int {
			return min(1+int(dist/r*3), 4)
		})
	}

	// Faint gauge ring marking full scale.
	c.ring(cx, cy, maxRadius, 0.4, 10)

	if st == tuiStateRecording {
		return c.render(paletteRec)
	}
	return c.render(paletteIdle)
}

// palette maps pixel color indices to prebuilt lipgloss styles so the
// render loop never allocates. mix holds foreground-on-background pairs
// for cells where the two stacked pixels differ.
type palette struct {
	fg  [16]lipgloss.Style
	mix [16][16]lipgloss.Style
}

func newPalette(colors []string) *palette {
	p := &palette{}
	for i, c := range colors {
		if c == "" {
			continue
		}
		p.fg[i] = lipgloss.NewStyle().Foreground(lipgloss.Color(c))
		for j, bg := range colors {
			if bg != "" {
				p.mix[i][j] = lipgloss.NewStyle().Foreground(lipgloss.Color(c)).Background(lipgloss.Color(bg))
			}
		}
	}
	return p
}

// Hot bands out from the center, then gauge grays and highlight tones.
var (
	paletteRec  = newPalette([]string{"", "226", "220", "214", "208", "196", "160", "124", "88", "52", "236", "236", "236", "236", "255", "249"})
	paletteIdle = newPalette([]string{"", "231", "224", "217", "210", "160", "124", "88", "52", "236", "236", "236", "236", "236", "255", "249"})
)

// canvas is a pixel grid rendered to the terminal with half-block
// characters, two pixel rows per text row.
type canvas struct {
	w, h int
	pix  [][]int
}

func newCanvas(w, h int) *canvas {
	pix := make([][]int, h)
	for i := range pix {
		pix[i] = make([]int, w)
	}
	return &canvas{w: w, h: h, pix: pix}
}

// disc fills a circle at (ox, oy), coloring each pixel by its distance
// from the center.
func (c *canvas) disc(ox, oy, radius float64, color func(dist float64) int) {
	for y := 0; y < c.h; y++ {
		for x := 0; x < c.w; x++ {
			dx := float64(x) - ox
			dy := float64(y) - oy
			if dist := math.Sqrt(dx*dx + dy*dy); dist < radius {
				c.pix[y][x] = color(dist)
			}
		}
	}
}

// ring draws a thin circle outline on empty pixels only.
func (c *canvas) ring(ox, oy, radius, halfW float64, color int) {
	for y := 0; y < c.h; y++ {
		for x := 0; x < c.w; x++ {
			dx := float64(x) - ox
			dy := float64(y) - oy
			dist := math.Sqrt(dx*dx + dy*dy)
			if dist >= radius-halfW && dist < radius+halfW && c.pix[y][x] == 0 {
				c.pix[y][x] = color
			}
		}
	}
}

func (c *canvas) render(p *palette) string {
	var b strings.Builder
	for cy := 0; cy < c.h/2; cy++ {
		for cx := 0; cx < c.w; cx++ {
			top := c.pix[cy*2][cx]
			bot := c.pix[cy*2+1][cx]
			switch {
			case top == 0 && bot == 0:
				b.WriteByte(' ')
			case top == bot:
				b.WriteString(p.fg[top].Render("█"))
			case bot == 0:
				b.WriteString(p.fg[top].Render("▀"))
			case top == 0:
				b.WriteString(p.fg[bot].Render("▄"))
			default:
				b.WriteString(p.mix[top][bot].Render("▀"))
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// wrapText breaks text at spaces to fit width, splitting at the last
// space at or before the limit.
func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	width = max(width, 1)

	var lines []string
	for len(text) > width {
		splitAt := width
		if i := strings.LastIndexByte(text[:width+1], ' '); i > 0 {
			splitAt = i
		}
		lines = append(lines, text[:splitAt])
		text = strings.TrimLeft(text[splitAt:], " ")
	}
	if len(text) > 0 {
		lines = append(lines, text)
	}
	return lines
}

// Latency history behind the percentile table.
type percentileRows struct {
	TotalMs  [5]float64
	TTFBMs   [5]float64
	EncodeMs [5]float64
}

var (
	statsMu      sync.Mutex
	statsHistory []log.Metrics
	statsRows    percentileRows
)

func recordStats(m log.Metrics) {
	statsMu.Lock()
	defer statsMu.Unlock()
	statsHistory = append(statsHistory, m)
	statsRows = percentileRows{
		TotalMs:  quantiles(metricColumn(func(r log.Metrics) float64 { return r.TotalTimeMs })),
		TTFBMs:   quantiles(metricColumn(func(r log.Metrics) float64 { return r.TTFBMs })),
		EncodeMs: quantiles(metricColumn(func(r log.Metrics) float64 { return r.EncodeTimeMs })),
	}
}

// metricColumn snapshots one metric field across the history. Caller
// holds statsMu.
func metricColumn(fn func(log.Metrics) float64) []float64 {
	vals := make([]float64, len(statsHistory))
	for i, r := range statsHistory {
		vals[i] = fn(r)
	}
	return vals
}

// quantiles returns min, p50, p90, p95 and max of vals, sorting in
// place.
func quantiles(vals []float64) [5]float64 {
	sort.Float64s(vals)
	at := func(p float64) float64 { return vals[int(float64(len(vals)-1)*p)] }
	return [5]float64{vals[0], at(0.50), at(0.90), at(0.95), vals[len(vals)-1]}
}

func renderPercentileTable() string {
	statsMu.Lock()
	defer statsMu.Unlock()
	if len(statsHistory) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-8s%5s %5s %5s %5s %5s", "", "min", "p50", "p90", "p95", "max")
	for _, row := range []struct {
		name string
		v    [5]float64
	}{
		{"total", statsRows.TotalMs},
		{"ttfb", statsRows.TTFBMs},
		{"encode", statsRows.EncodeMs},
	} {
		fmt.Fprintf(&b, "\n%-8s%5.0f %5.0f %5.0f %5.0f %5.0f", row.name, row.v[0], row.v[1], row.v[2], row.v[3], row.v[4])
	}
	return b.String()
}
