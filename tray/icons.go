package tray

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
)

// Glyphs are drawn at startup rather than shipped as assets: a black
// disc with a punched-out center when idle, a red center while
// recording, plus a warning badge variant. 22px suits linux trays,
// 44px the retina macOS bar.
var (
	transparent = color.RGBA{}
	recRed      = color.RGBA{R: 255, G: 59, B: 48, A: 255}

	iconIdle   = discIcon(22, transparent, 22.0/8, false)
	iconIdleHi = discIcon(44, transparent, 44.0/8, false)
	iconRecHi  = discIcon(44, recRed, 44.0/6.5, false)
	iconWarnHi = discIcon(44, recRed, 44.0/6.5, true)
)

func discIcon(size int, center color.RGBA, centerR float64, badge bool) []byte {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	mid := float64(size) / 2
	edge := mid - 1
	for y := range size {
		for x := range size {
			d := math.Hypot(float64(x)+0.5-mid, float64(y)+0.5-mid)
			switch {
			case d <= centerR:
				img.Set(x, y, center)
			case d <= edge:
				img.Set(x, y, color.Black)
			}
		}
	}
	if badge {
		stampBadge(img, size)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic("tray icon: " + err.Error())
	}
	return buf.Bytes()
}

// stampBadge draws a yellow "!" badge over the bottom-right corner.
func stampBadge(img *image.RGBA, size int) {
	px := float64(size)
	r := px * 0.34
	cx, cy := px-r+0.5, px-r+0.5
	ink := color.RGBA{R: 40, G: 40, B: 40, A: 255}
	amber := color.RGBA{R: 255, G: 204, B: 0, A: 255}
	halfW := r * 0.24

	for y := range size {
		for x := range size {
			fx, fy := float64(x)+0.5, float64(y)+0.5
			if math.Hypot(fx-cx, fy-cy) > r {
				continue
			}
			// Position within the badge, 0 at the top edge, 1 at the bottom.
			ny := (fy - (cy - r*0.7)) / (r * 1.4)
			nx := math.Abs(fx - cx)
			bar := nx <= halfW && ny >= 0.1 && ny <= 0.62
			dot := nx <= halfW && ny >= 0.72 && ny <= 0.85
			if bar || dot {
				img.Set(x, y, ink)
			} else {
				img.Set(x, y, amber)
			}
		}
	}
}
