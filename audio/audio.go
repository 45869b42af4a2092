package audio

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// Substrings that mark a source as a bluetooth headset, matched
// case-insensitively against the device name. Bluetooth mics drop to
// the low-quality HFP profile while recording, so callers warn on them.
var btKeywords = []string{
	"bluetooth", " bt ", " bt)", " bt]",
	"airpods", "powerbeats", "beats",
	"bose", "soundlink", "quietcomfort",
	"sony wh-", "sony wf-", "wh-1000", "wf-1000", "linkbuds",
	"jabra", "plantronics", "poly voyager",
	"galaxy buds", "pixel buds",
	"jbl ", "sennheiser momentum", "momentum tw",
	"shokz", "openrun", "tozo", "anker soundcore", "skullcandy", "raycon",
}

func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	return slices.ContainsFunc(btKeywords, func(kw string) bool {
		return strings.Contains(lower, kw)
	})
}

// CaptureError wraps device open/start failures so callers can tell a
// broken microphone apart from everything else.
type CaptureError struct {
	Op  string
	Err error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture %s: %v", e.Op, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// DataCallback receives raw mono float32 samples on the capture thread.
// Implementations must copy what they keep and return quickly.
type DataCallback func(samples []float32, frameCount uint32)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
}

type DeviceInfo struct {
	ID   string // backend-specific source identifier
	Name string
}

// Context owns the connection to the platform audio server.
type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
	DeviceName() string
}

// RMS returns the root-mean-square amplitude of a sample block, 0..1 for
// full-scale input.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
