//go:build linux

package beep

import (
	"math"
	"sync"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

var (
	renderOnce sync.Once
	startPCM   []int16
	endPCM     []int16
	errPCM     []int16
)

func renderAll() {
	startPCM = render(cueStart, 0.2)
	endPCM = render(cueEnd, 0.2)
	errPCM = render(cueError, 0.08)
}

// sine renders one burst as interleaved stereo PCM.
func sine(c cue, seconds float64) []int16 {
	n := int(sampleRate * seconds)
	out := make([]int16, 0, 2*n)
	for i := 0; i < n; i++ {
		t := float64(i) / sampleRate
		s := int16(math.Sin(2*math.Pi*c.freq*t) * math.Exp(-t*c.decay) * c.volume * 32767)
		out = append(out, s, s)
	}
	return out
}

func render(c cue, seconds float64) []int16 {
	out := sine(c, seconds)
	if c.twice {
		out = append(out, make([]int16, 2*int(sampleRate*beepGap))...)
		out = append(out, sine(c, seconds)...)
	}
	return out
}

// stream opens a short-lived pulse playback for one cue and blocks
// until it has drained. Callers run it on its own goroutine.
func stream(pcm []int16) {
	if len(pcm) == 0 {
		return
	}
	cl, err := pulse.NewClient()
	if err != nil {
		return
	}
	defer cl.Close()

	pos := 0
	src := pulse.Int16Reader(func(buf []int16) (int, error) {
		if pos >= len(pcm) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, pcm[pos:])
		pos += n
		return n, nil
	})
	pb, err := cl.NewPlayback(src,
		pulse.PlaybackStereo,
		pulse.PlaybackSampleRate(sampleRate),
		pulse.PlaybackLatency(0.1),
		pulse.PlaybackRawOption(func(p *proto.CreatePlaybackStream) {
			p.ChannelVolumes = proto.ChannelVolumes{uint32(proto.VolumeNorm), uint32(proto.VolumeNorm)}
		}),
	)
	if err != nil {
		return
	}
	pb.Start()
	pb.Drain()
	pb.Stop()
	pb.Close()
}

func play(pcm *[]int16) {
	if disabled {
		return
	}
	renderOnce.Do(renderAll)
	go stream(*pcm)
}

func Init() {
	if disabled {
		return
	}
	renderOnce.Do(renderAll)
}

func PlayStart() { play(&startPCM) }
func PlayEnd()   { play(&endPCM) }
func PlayError() { play(&errPCM) }
