//go:build gui

package gui

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
)

// trayIcon is the red recording-dot icon shown in Fyne's system tray.
var trayIcon []byte

func init() {
	const size = 22
	img := image.NewRGBA(image.Rect(0, 0, size, size))

	center := float64(size) / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx := float64(x) - center + 0.5
			dy := float64(y) - center + 0.5
			dist := math.Sqrt(dx*dx + dy*dy)

			switch {
			case dist < 4:
				// Inner red core
				img.Set(x, y, color.RGBA{255, 50, 50, 255})
			case dist < 7:
				// Orange ring
				t := (dist - 4) / 3
				r := uint8(255 - t*100)
				g := uint8(50 + t*50)
				img.Set(x, y, color.RGBA{r, g, 0, 255})
			case dist < 9:
				// Dark outer ring
				img.Set(x, y, color.RGBA{80, 20, 20, 255})
			case dist < 10:
				// Border
				img.Set(x, y, color.RGBA{40, 10, 10, 255})
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic("gui: encode tray icon: " + err.Error())
	}
	trayIcon = buf.Bytes()
}
