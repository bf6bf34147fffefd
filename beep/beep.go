package beep

import (
	"math"
	"sync"
)

// Cue is an audible signal for a session transition.
type Cue int

const (
	Start Cue = iota
	Stop
	Cancel
	Error
)

var disabled bool

func Disable() { disabled = true }

const sampleRate = 44100

type toneSpec struct {
	freq     float64
	duration float64
	volume   float64
	decay    float64
	double   bool
}

var tones = map[Cue]toneSpec{
	// high pitch, short
	Start: {freq: 1200, duration: tickDuration, volume: 0.5, decay: 60},
	// medium pitch, slightly longer
	Stop: {freq: 900, duration: tickDuration * 1.5, volume: 0.5, decay: 40},
	// falling low tick
	Cancel: {freq: 600, duration: tickDuration, volume: 0.5, decay: 50},
	// low pitch double-beep
	Error: {freq: 350, duration: 0.08, volume: 0.6, decay: 30, double: true},
}

var (
	cache   = map[Cue][]int16{}
	cacheMu sync.Mutex
)

// samples returns the mono 16-bit PCM for c.
func samples(c Cue) []int16 {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	if s, ok := cache[c]; ok {
		return s
	}
	spec, ok := tones[c]
	if !ok {
		return nil
	}
	s := generateTick(sampleRate, spec.freq, spec.duration, spec.volume, spec.decay)
	if spec.double {
		gap := make([]int16, int(float64(sampleRate)*0.05))
		s = append(append(append([]int16{}, s...), gap...), s...)
	}
	cache[c] = s
	return s
}

func generateTick(sampleRate int, freq float64, duration float64, volume float64, decay float64) []int16 {
	n := int(float64(sampleRate) * duration)
	out := make([]int16, n)
	for i := range n {
		t := float64(i) / float64(sampleRate)
		envelope := math.Exp(-t * decay)
		out[i] = int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
	}
	return out
}

// Play sounds c without blocking. It does nothing after Disable.
func Play(c Cue) {
	if disabled {
		return
	}
	s := samples(c)
	if len(s) == 0 {
		return
	}
	play(s)
}
