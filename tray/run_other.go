//go:build !darwin

package tray

import "fyne.io/systray"

func Init() <-chan struct{} {
	menuReady = make(chan struct{})
	go systray.Run(onReady, onExit)
	return quitc
}
