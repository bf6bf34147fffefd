package beep

import "testing"

func TestSamples(t *testing.T) {
	for _, c := range []Cue{Start, Stop, Cancel, Error} {
		s := samples(c)
		if len(s) == 0 {
			t.Errorf("cue %d: no samples", c)
			continue
		}
		var peak int16
		for _, v := range s {
			if v > peak {
				peak = v
			}
		}
		if peak == 0 {
			t.Errorf("cue %d: silent", c)
		}
	}
	if samples(Cue(42)) != nil {
		t.Error("unknown cue should have no samples")
	}
}

func TestErrorIsDoubleBeep(t *testing.T) {
	single := generateTick(sampleRate, tones[Error].freq, tones[Error].duration, tones[Error].volume, tones[Error].decay)
	gap := int(float64(sampleRate) * 0.05)
	if got, want := len(samples(Error)), 2*len(single)+gap; got != want {
		t.Errorf("error cue = %d samples, want %d", got, want)
	}
}

func TestGenerateTickDecays(t *testing.T) {
	s := generateTick(sampleRate, 1000, 0.2, 0.5, 60)
	if len(s) != int(sampleRate*0.2) {
		t.Fatalf("len = %d", len(s))
	}
	peak := func(part []int16) int16 {
		var p int16
		for _, v := range part {
			if v > p {
				p = v
			}
		}
		return p
	}
	q := len(s) / 4
	if peak(s[:q]) <= peak(s[3*q:]) {
		t.Error("envelope does not decay")
	}
}

func TestPlayDisabled(t *testing.T) {
	Disable()
	defer func() { disabled = false }()
	Play(Start)
}
