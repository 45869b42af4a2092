//go:build gui

package gui

import (
	"image/color"
	"math"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
)

const (
	pulseWidth  = 44
	pulseHeight = 15
	pixelHeight = pulseHeight * 2
	maxRadius   = 12.0
)

// Color palettes (ANSI 256 → RGB approximations, same codes the TUI uses)
var (
	colorsRec = []color.Color{
		color.RGBA{0, 0, 0, 255},       // 0: transparent/black
		color.RGBA{255, 255, 0, 255},   // 1: yellow (226)
		color.RGBA{255, 215, 0, 255},   // 2: gold (220)
		color.RGBA{255, 175, 0, 255},   // 3: orange (214)
		color.RGBA{255, 135, 0, 255},   // 4: dark orange (208)
		color.RGBA{255, 0, 0, 255},     // 5: red (196)
		color.RGBA{215, 0, 0, 255},     // 6: dark red (160)
		color.RGBA{175, 0, 0, 255},     // 7: darker red (124)
		color.RGBA{135, 0, 0, 255},     // 8: (88)
		color.RGBA{95, 0, 0, 255},      // 9: (52)
		color.RGBA{48, 48, 48, 255},    // 10: gray (236)
		color.RGBA{48, 48, 48, 255},    // 11: gray
		color.RGBA{48, 48, 48, 255},    // 12: gray
		color.RGBA{48, 48, 48, 255},    // 13: gray
		color.RGBA{255, 255, 255, 255}, // 14: white (255)
		color.RGBA{180, 180, 180, 255}, // 15: light gray (249)
	}

	colorsIdle = []color.Color{
		color.RGBA{0, 0, 0, 255},       // 0: transparent/black
		color.RGBA{255, 255, 255, 255}, // 1: white (231)
		color.RGBA{255, 215, 215, 255}, // 2: pink (224)
		color.RGBA{255, 175, 175, 255}, // 3: (217)
		color.RGBA{255, 135, 135, 255}, // 4: (210)
		color.RGBA{215, 0, 0, 255},     // 5: (160)
		color.RGBA{175, 0, 0, 255},     // 6: (124)
		color.RGBA{135, 0, 0, 255},     // 7: (88)
		color.RGBA{95, 0, 0, 255},      // 8: (52)
		color.RGBA{48, 48, 48, 255},    // 9: gray (236)
		color.RGBA{48, 48, 48, 255},    // 10:
		color.RGBA{48, 48, 48, 255},    // 11:
		color.RGBA{48, 48, 48, 255},    // 12:
		color.RGBA{48, 48, 48, 255},    // 13:
		color.RGBA{255, 255, 255, 255}, // 14: white
		color.RGBA{180, 180, 180, 255}, // 15: light gray
	}
)

// PulseWidget draws the level meter: a disc that grows with the mic
// level while recording, a faint breathing dot otherwise. Same visual
// as the TUI, rendered as a rect grid instead of half-block runes.
type PulseWidget struct {
	widget.BaseWidget
	mu        sync.Mutex
	frame     int
	level     float64
	recording bool
	noVoice   bool
	stopCh    chan struct{}
}

func NewPulseWidget() *PulseWidget {
	p := &PulseWidget{stopCh: make(chan struct{})}
	p.ExtendBaseWidget(p)
	go p.animate()
	return p
}

func (p *PulseWidget) SetRecording(r bool) {
	p.mu.Lock()
	p.recording = r
	if !r {
		p.level = 0
		p.noVoice = false
	}
	p.mu.Unlock()
}

func (p *PulseWidget) SetLevel(l float64) {
	p.mu.Lock()
	if p.recording {
		// Fast attack, slow decay
		if l > p.level {
			p.level = p.level*0.2 + l*0.8
		} else {
			p.level = p.level*0.7 + l*0.3
		}
	}
	p.mu.Unlock()
}

func (p *PulseWidget) SetNoVoice(v bool) {
	p.mu.Lock()
	p.noVoice = v
	p.mu.Unlock()
}

func (p *PulseWidget) Stop() {
	select {
	case <-p.stopCh:
	default:
		close(p.stopCh)
	}
}

func (p *PulseWidget) animate() {
	ticker := time.NewTicker(33 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.mu.Lock()
			p.frame++
			p.mu.Unlock()
			fyne.Do(func() {
				p.Refresh()
			})
		}
	}
}

func (p *PulseWidget) MinSize() fyne.Size {
	return fyne.NewSize(float32(pulseWidth*8), float32(pulseHeight*16))
}

func (p *PulseWidget) CreateRenderer() fyne.WidgetRenderer {
	r := &pulseRenderer{pulse: p}
	r.rects = make([][]*canvas.Rectangle, pulseHeight)
	for y := 0; y < pulseHeight; y++ {
		r.rects[y] = make([]*canvas.Rectangle, pulseWidth)
		for x := 0; x < pulseWidth; x++ {
			r.rects[y][x] = canvas.NewRectangle(color.Black)
		}
	}
	return r
}

type pulseRenderer struct {
	pulse *PulseWidget
	rects [][]*canvas.Rectangle
}

func (r *pulseRenderer) Layout(size fyne.Size) {
	cellW := size.Width / float32(pulseWidth)
	cellH := size.Height / float32(pulseHeight)
	for y := 0; y < pulseHeight; y++ {
		for x := 0; x < pulseWidth; x++ {
			r.rects[y][x].Move(fyne.NewPos(float32(x)*cellW, float32(y)*cellH))
			r.rects[y][x].Resize(fyne.NewSize(cellW, cellH))
		}
	}
}

func (r *pulseRenderer) MinSize() fyne.Size {
	return r.pulse.MinSize()
}

func (r *pulseRenderer) Refresh() {
	r.pulse.mu.Lock()
	frame := r.pulse.frame
	level := r.pulse.level
	recording := r.pulse.recording
	noVoice := r.pulse.noVoice
	r.pulse.mu.Unlock()

	pixels := computePixels(frame, level, recording, noVoice)
	colors := colorsIdle
	if recording {
		colors = colorsRec
	}

	// Half-block rendering: each rect represents 2 vertical pixels
	for cy := 0; cy < pulseHeight; cy++ {
		topY := cy * 2
		botY := cy*2 + 1
		for cx := 0; cx < pulseWidth; cx++ {
			top := 0
			bot := 0
			if topY < pixelHeight {
				top = pixels[topY][cx]
			}
			if botY < pixelHeight {
				bot = pixels[botY][cx]
			}
			// Blend the two pixel colors for the rect
			c := blendColors(colors[top], colors[bot])
			r.rects[cy][cx].FillColor = c
			r.rects[cy][cx].Refresh()
		}
	}
}

func blendColors(top, bot color.Color) color.Color {
	tr, tg, tb, _ := top.RGBA()
	br, bg, bb, _ := bot.RGBA()
	return color.RGBA{
		R: uint8((tr + br) / 512),
		G: uint8((tg + bg) / 512),
		B: uint8((tb + bb) / 512),
		A: 255,
	}
}

func (r *pulseRenderer) Objects() []fyne.CanvasObject {
	objs := make([]fyne.CanvasObject, 0, pulseWidth*pulseHeight)
	for y := 0; y < pulseHeight; y++ {
		for x := 0; x < pulseWidth; x++ {
			objs = append(objs, r.rects[y][x])
		}
	}
	return objs
}

func (r *pulseRenderer) Destroy() {
	r.pulse.Stop()
}

// computePixels generates the pulse pixel grid (same logic as the TUI
// level meter). A no-voice warning drains the disc to gray.
func computePixels(frame int, level float64, recording, noVoice bool) [][]int {
	centerX := float64(pulseWidth) / 2
	centerY := float64(pixelHeight) / 2

	pixels := make([][]int, pixelHeight)
	for i := range pixels {
		pixels[i] = make([]int, pulseWidth)
	}

	setDisc := func(ox, oy, radius float64, colorFn func(dist float64) int) {
		for y := 0; y < pixelHeight; y++ {
			for x := 0; x < pulseWidth; x++ {
				dx := float64(x) - ox
				dy := float64(y) - oy
				dist := math.Sqrt(dx*dx + dy*dy)
				if dist < radius {
					pixels[y][x] = colorFn(dist)
				}
			}
		}
	}

	if recording {
		// Disc radius tracks the level; full scale at RMS 0.3.
		r := 3.0 + math.Min(level/0.3, 1.0)*8.0 + math.Sin(float64(frame)*0.25)*0.4
		if r > maxRadius {
			r = maxRadius
		}
		setDisc(centerX, centerY, r, func(dist float64) int {
			if noVoice {
				return 10
			}
			band := 1 + int(dist/r*8)
			if band > 9 {
				band = 9
			}
			return band
		})
	} else {
		r := 2.6 + math.Sin(float64(frame)*0.08)*0.5
		setDisc(centerX, centerY, r, func(dist float64) int {
			band := 1 + int(dist/r*3)
			if band > 4 {
				band = 4
			}
			return band
		})
	}

	// Faint gauge ring marking full scale.
	for y := 0; y < pixelHeight; y++ {
		for x := 0; x < pulseWidth; x++ {
			dx := float64(x) - centerX
			dy := float64(y) - centerY
			dist := math.Sqrt(dx*dx + dy*dy)
			if dist >= maxRadius-0.4 && dist < maxRadius+0.4 && pixels[y][x] == 0 {
				pixels[y][x] = 10
			}
		}
	}

	return pixels
}
