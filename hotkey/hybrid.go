package hotkey

import (
	"sync"
	"time"
)

// Hybrid turns chord presses into toggles with tap-to-toggle and
// hold-to-talk on the same chord. A tap toggles on press; the next press
// toggles again on release. Holding longer than longPress toggles on
// press and again on release.
type Hybrid struct {
	toggles chan struct{}
	stop    chan struct{}
	once    sync.Once
	active  func() bool
}

// NewHybrid starts reading hk. active reports whether a recording is in
// progress, so a run that ended on its own is not toggled back on.
func NewHybrid(hk Hotkey, longPress time.Duration, active func() bool) *Hybrid {
	h := &Hybrid{
		toggles: make(chan struct{}, 1),
		stop:    make(chan struct{}),
		active:  active,
	}
	go h.run(hk, longPress)
	return h
}

func (h *Hybrid) Toggles() <-chan struct{} { return h.toggles }

func (h *Hybrid) Close() {
	h.once.Do(func() { close(h.stop) })
}

func (h *Hybrid) wait(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	case <-h.stop:
		return false
	}
}

func (h *Hybrid) run(hk Hotkey, longPress time.Duration) {
	tapped := false
	for {
		if !h.wait(hk.Keydown()) {
			return
		}

		if tapped && h.active() {
			// Second press after a tap: stop on release.
			if !h.wait(hk.Keyup()) {
				return
			}
			send(h.toggles)
			tapped = false
			continue
		}

		send(h.toggles)
		timer := time.NewTimer(longPress)
		select {
		case <-timer.C:
			if !h.wait(hk.Keyup()) {
				return
			}
			if h.active() {
				send(h.toggles)
			}
			tapped = false
		case <-hk.Keyup():
			timer.Stop()
			tapped = true
		case <-h.stop:
			timer.Stop()
			return
		}
	}
}
