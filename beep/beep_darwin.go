//go:build darwin

package beep

import (
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

const tickDuration = 0.04

// speaker feeds one cue at a time to a malgo playback device. The data
// callback runs on the audio thread and only touches the atomics.
type speaker struct {
	mu     sync.Mutex
	ctx    *malgo.AllocatedContext
	device *malgo.Device

	cue atomic.Pointer[[]byte]
	pos atomic.Uint32
}

var (
	out     *speaker
	outOnce sync.Once
)

func openSpeaker() *speaker {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil
	}
	s := &speaker{ctx: ctx}
	if err := s.openDevice(); err != nil {
		ctx.Uninit()
		return nil
	}
	return s
}

func (s *speaker) openDevice() error {
	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = 1
	cfg.SampleRate = sampleRate

	dev, err := malgo.InitDevice(s.ctx.Context, cfg, malgo.DeviceCallbacks{Data: s.fill})
	if err != nil {
		return err
	}
	s.device = dev
	return nil
}

func (s *speaker) fill(output, _ []byte, frames uint32) {
	want := frames * 2
	n := uint32(0)
	if cue := s.cue.Load(); cue != nil {
		pos := s.pos.Load()
		if left := uint32(len(*cue)) - pos; left > 0 {
			n = min(want, left)
			copy(output[:n], (*cue)[pos:pos+n])
			s.pos.Store(pos + n)
		} else {
			s.cue.Store(nil)
		}
	}
	clear(output[n:want])
}

func (s *speaker) play(pcm []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.device == nil {
		return
	}

	s.device.Stop()
	s.pos.Store(0)
	s.cue.Store(&pcm)
	if err := s.device.Start(); err == nil {
		return
	}

	// The device can go stale across sleep/wake; reopen it once.
	s.device.Uninit()
	s.device = nil
	if err := s.openDevice(); err != nil || s.device.Start() != nil {
		s.cue.Store(nil)
	}
}

func pcmBytes(mono []int16) []byte {
	buf := make([]byte, len(mono)*2)
	for i, v := range mono {
		buf[i*2] = byte(v)
		buf[i*2+1] = byte(v >> 8)
	}
	return buf
}

func play(mono []int16) {
	outOnce.Do(func() { out = openSpeaker() })
	if out == nil {
		return
	}
	out.play(pcmBytes(mono))
}
