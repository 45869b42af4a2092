//go:build windows

package beep

// No synthesized cues on Windows; every call is a no-op.

func Init()      {}
func PlayStart() {}
func PlayEnd()   {}
func PlayError() {}
