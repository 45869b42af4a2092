//go:build linux

package audio

import (
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

// captureBoost scales the source volume above the hardware default.
// Laptop microphones tend to record far below full scale.
const captureBoost = 3

type paContext struct {
	conn *pulse.Client
}

// NewContext connects to the PulseAudio (or PipeWire) server.
func NewContext() (Context, error) {
	cl, err := pulse.NewClient()
	if err != nil {
		return nil, &CaptureError{Op: "connect", Err: err}
	}
	return &paContext{conn: cl}, nil
}

func (p *paContext) Devices() ([]DeviceInfo, error) {
	sources, err := p.conn.ListSources()
	if err != nil {
		return nil, &CaptureError{Op: "list sources", Err: err}
	}
	devices := make([]DeviceInfo, len(sources))
	for i, s := range sources {
		devices[i] = DeviceInfo{ID: s.ID(), Name: s.Name()}
	}
	return devices, nil
}

func (p *paContext) NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error) {
	return &paCapture{conn: p.conn, device: device, cfg: config}, nil
}

func (p *paContext) Close() { p.conn.Close() }

type paCapture struct {
	conn   *pulse.Client
	device *DeviceInfo
	cfg    CaptureConfig
	cb     atomic.Pointer[DataCallback]

	mu      sync.Mutex
	stream  *pulse.RecordStream
	halt    chan struct{}
	drained chan struct{}
}

// recordOptions assembles the stream parameters: mono at the configured
// rate, 50ms latency, source volume boosted captureBoost times norm.
func (c *paCapture) recordOptions() []pulse.RecordOption {
	opts := []pulse.RecordOption{
		pulse.RecordMono,
		pulse.RecordSampleRate(int(c.cfg.SampleRate)),
		pulse.RecordLatency(0.05),
		pulse.RecordRawOption(func(r *proto.CreateRecordStream) {
			r.ChannelVolumes = proto.ChannelVolumes{uint32(proto.VolumeNorm) * captureBoost}
		}),
	}
	if c.device != nil {
		if source, err := c.conn.SourceByID(c.device.ID); err == nil && source != nil {
			opts = append(opts, pulse.RecordSource(source))
		}
	}
	return opts
}

// deliver copies the server's buffer before handing it to the callback;
// pulse reuses buf between reads.
func (c *paCapture) deliver(buf []float32) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	fn := c.cb.Load()
	if fn == nil {
		return len(buf), nil
	}
	samples := make([]float32, len(buf))
	copy(samples, buf)
	(*fn)(samples, uint32(len(samples)))
	return len(buf), nil
}

func (c *paCapture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, err := c.conn.NewRecord(pulse.Float32Writer(c.deliver), c.recordOptions()...)
	if err != nil {
		return &CaptureError{Op: "record", Err: err}
	}

	c.stream = rec
	c.halt = make(chan struct{})
	c.drained = make(chan struct{})

	go func() {
		defer close(c.drained)
		rec.Start()
		<-c.halt
		rec.Stop()
		rec.Close()
	}()
	return nil
}

func (c *paCapture) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.halt == nil {
		return
	}
	select {
	case <-c.halt:
	default:
		close(c.halt)
	}
	<-c.drained
}

func (c *paCapture) Close() { c.Stop() }

func (c *paCapture) SetCallback(fn DataCallback) { c.cb.Store(&fn) }

func (c *paCapture) ClearCallback() { c.cb.Store(nil) }

func (c *paCapture) DeviceName() string {
	if c.device != nil {
		return c.device.Name
	}
	return "system default"
}
