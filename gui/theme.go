//go:build gui

package gui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// overlayTheme pins the window chrome to near-black so the pulse reads
// the same against it as in a dark terminal. Everything else falls
// through to the stock dark variant.
type overlayTheme struct {
	base fyne.Theme
}

func newOverlayTheme() *overlayTheme {
	return &overlayTheme{base: theme.DefaultTheme()}
}

func (o *overlayTheme) Color(name fyne.ThemeColorName, _ fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNameBackground:
		return color.RGBA{18, 18, 18, 255}
	case theme.ColorNameForeground:
		return color.RGBA{200, 200, 200, 255}
	default:
		return o.base.Color(name, theme.VariantDark)
	}
}

func (o *overlayTheme) Font(style fyne.TextStyle) fyne.Resource { return o.base.Font(style) }

func (o *overlayTheme) Icon(name fyne.ThemeIconName) fyne.Resource { return o.base.Icon(name) }

func (o *overlayTheme) Size(name fyne.ThemeSizeName) float32 { return o.base.Size(name) }
