// Package beep plays the audible cues around a recording: a high tick
// when capture opens, a lower one when it closes, and a double buzz on
// failure. Playback is best-effort; without a usable output device the
// cues are skipped.
package beep

var disabled bool

// Disable mutes every cue for the life of the process.
func Disable() { disabled = true }

const (
	sampleRate = 44100
	beepGap    = 0.05 // seconds between the bursts of a double cue
)

// cue is a sine burst shaped by an exponential decay envelope. Burst
// length is chosen per platform; twice renders the failure double-buzz.
type cue struct {
	freq   float64
	volume float64
	decay  float64
	twice  bool
}

var (
	cueStart = cue{freq: 1200, volume: 0.5, decay: 60}
	cueEnd   = cue{freq: 900, volume: 0.5, decay: 40}
	cueError = cue{freq: 350, volume: 0.6, decay: 30, twice: true}
)
