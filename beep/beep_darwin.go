//go:build darwin

package beep

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

var (
	ctx   *malgo.AllocatedContext
	dev   *malgo.Device
	setup sync.Once

	startPCM []byte
	endPCM   []byte
	errPCM   []byte

	// The data callback walks the active cue through atomics; playMu
	// serializes device restarts.
	active atomic.Pointer[[]byte]
	cursor atomic.Uint32
	playMu sync.Mutex
)

// render produces one cue as mono S16LE bytes.
func render(c cue, seconds float64) []byte {
	n := int(sampleRate * seconds)
	out := make([]byte, 0, 2*n)
	for i := 0; i < n; i++ {
		t := float64(i) / sampleRate
		s := int16(math.Sin(2*math.Pi*c.freq*t) * math.Exp(-t*c.decay) * c.volume * 32767)
		out = append(out, byte(s), byte(s>>8))
	}
	if c.twice {
		out = append(out, make([]byte, 2*int(sampleRate*beepGap))...)
		single := c
		single.twice = false
		out = append(out, render(single, seconds)...)
	}
	return out
}

func openDevice() error {
	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = 1
	cfg.SampleRate = sampleRate

	var err error
	dev, err = malgo.InitDevice(ctx.Context, cfg, malgo.DeviceCallbacks{Data: feed})
	return err
}

func setupPlayback() {
	var err error
	ctx, err = malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return
	}

	startPCM = render(cueStart, 0.03)
	endPCM = render(cueEnd, 0.05)
	errPCM = render(cueError, 0.08)

	if err := openDevice(); err != nil {
		ctx.Uninit()
		ctx = nil
	}
}

// feed is the device data callback. Outside a cue it writes silence.
func feed(out, _ []byte, _ uint32) {
	pcm := active.Load()
	if pcm == nil {
		zero(out)
		return
	}
	pos := cursor.Load()
	if pos >= uint32(len(*pcm)) {
		active.Store(nil)
		zero(out)
		return
	}
	n := copy(out, (*pcm)[pos:])
	cursor.Store(pos + uint32(n))
	zero(out[n:])
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func play(pcm *[]byte) {
	if disabled {
		return
	}
	setup.Do(setupPlayback)
	b := *pcm
	if ctx == nil || len(b) == 0 {
		return
	}

	playMu.Lock()
	defer playMu.Unlock()
	if dev == nil {
		return
	}

	dev.Stop()
	cursor.Store(0)
	active.Store(&b)

	if err := dev.Start(); err != nil {
		// A sleep/wake cycle invalidates the device; rebuild it once.
		dev.Uninit()
		if err := openDevice(); err != nil {
			active.Store(nil)
			return
		}
		if err := dev.Start(); err != nil {
			active.Store(nil)
		}
	}
}

func Init()      { setup.Do(setupPlayback) }
func PlayStart() { play(&startPCM) }
func PlayEnd()   { play(&endPCM) }
func PlayError() { play(&errPCM) }
