//go:build !linux && !darwin

package beep

// No audio playback here, cues are silent.

const tickDuration = 0.2

func play([]int16) {}
