//go:build !linux

package audio

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

type maContext struct {
	sys *malgo.AllocatedContext
}

// NewContext initializes miniaudio with the platform default backend.
func NewContext() (Context, error) {
	sys, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, &CaptureError{Op: "init", Err: err}
	}
	return &maContext{sys: sys}, nil
}

func (m *maContext) Devices() ([]DeviceInfo, error) {
	devices, err := m.sys.Devices(malgo.Capture)
	if err != nil {
		return nil, &CaptureError{Op: "list devices", Err: err}
	}
	infos := make([]DeviceInfo, len(devices))
	for i, d := range devices {
		infos[i] = DeviceInfo{ID: hex.EncodeToString(d.ID.Pointer()[:]), Name: d.Name()}
	}
	return infos, nil
}

// decodeDeviceID reverses the hex encoding Devices applies to the raw
// miniaudio identifier.
func decodeDeviceID(id string) (malgo.DeviceID, error) {
	var devID malgo.DeviceID
	raw, err := hex.DecodeString(id)
	if err != nil {
		return devID, fmt.Errorf("invalid device ID: %w", err)
	}
	copy(devID[:], raw)
	return devID, nil
}

func (m *maContext) NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error) {
	cap := &maCapture{name: "system default"}

	devCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	devCfg.Capture.Format = malgo.FormatF32
	devCfg.Capture.Channels = config.Channels
	devCfg.SampleRate = config.SampleRate

	if device != nil {
		devID, err := decodeDeviceID(device.ID)
		if err != nil {
			return nil, err
		}
		devCfg.Capture.DeviceID = devID.Pointer()
		cap.name = device.Name
	}

	hooks := malgo.DeviceCallbacks{
		Data: func(_, data []byte, frameCount uint32) {
			fn := cap.cb.Load()
			if fn == nil {
				return
			}
			n := int(frameCount) * int(config.Channels)
			if n*4 > len(data) {
				n = len(data) / 4
			}
			samples := make([]float32, n)
			for i := range samples {
				samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
			}
			(*fn)(samples, uint32(n))
		},
	}

	dev, err := malgo.InitDevice(m.sys.Context, devCfg, hooks)
	if err != nil {
		return nil, &CaptureError{Op: "open", Err: err}
	}

	cap.dev = dev
	return cap, nil
}

func (m *maContext) Close() {
	m.sys.Uninit()
	m.sys.Free()
}

type maCapture struct {
	dev  *malgo.Device
	name string
	cb   atomic.Pointer[DataCallback]
}

func (c *maCapture) Start() error {
	if err := c.dev.Start(); err != nil {
		return &CaptureError{Op: "start", Err: err}
	}
	return nil
}

// Stop blocks until the device has stopped, so no callback runs after it
// returns.
func (c *maCapture) Stop() { c.dev.Stop() }

func (c *maCapture) Close() { c.dev.Uninit() }

func (c *maCapture) SetCallback(fn DataCallback) { c.cb.Store(&fn) }

func (c *maCapture) ClearCallback() { c.cb.Store(nil) }

func (c *maCapture) DeviceName() string { return c.name }
