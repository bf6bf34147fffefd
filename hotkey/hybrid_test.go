package hotkey

import (
	"sync/atomic"
	"testing"
	"time"
)

// fakeSession flips its recording flag on every toggle it receives.
type fakeSession struct {
	recording atomic.Bool
	toggles   atomic.Int32
}

func (s *fakeSession) active() bool { return s.recording.Load() }

func (s *fakeSession) follow(t *testing.T, hy *Hybrid) {
	t.Helper()
	select {
	case <-hy.Toggles():
		s.toggles.Add(1)
		s.recording.Store(!s.recording.Load())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for toggle")
	}
}

func expectNoToggle(t *testing.T, hy *Hybrid) {
	t.Helper()
	select {
	case <-hy.Toggles():
		t.Fatal("unexpected toggle")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHybridLongPress(t *testing.T) {
	fk := NewFake()
	s := &fakeSession{}
	threshold := 50 * time.Millisecond
	hy := NewHybrid(fk, threshold, s.active)
	defer hy.Close()

	fk.SimKeydown()
	s.follow(t, hy)
	if !s.active() {
		t.Fatal("expected recording after press")
	}

	time.Sleep(threshold + 20*time.Millisecond)
	fk.SimKeyup()
	s.follow(t, hy)
	if s.active() {
		t.Error("expected release after hold to stop")
	}
}

func TestHybridShortTap(t *testing.T) {
	fk := NewFake()
	s := &fakeSession{}
	hy := NewHybrid(fk, 200*time.Millisecond, s.active)
	defer hy.Close()

	fk.SimKeydown()
	s.follow(t, hy)
	fk.SimKeyup()
	expectNoToggle(t, hy)

	fk.SimKeydown()
	expectNoToggle(t, hy)
	fk.SimKeyup()
	s.follow(t, hy)
	if s.active() || s.toggles.Load() != 2 {
		t.Errorf("active=%v toggles=%d", s.active(), s.toggles.Load())
	}
}

func TestHybridTapAfterRunEndedStartsAgain(t *testing.T) {
	fk := NewFake()
	s := &fakeSession{}
	hy := NewHybrid(fk, 200*time.Millisecond, s.active)
	defer hy.Close()

	fk.SimKeydown()
	s.follow(t, hy)
	fk.SimKeyup()
	time.Sleep(10 * time.Millisecond)

	// The session was cancelled elsewhere.
	s.recording.Store(false)

	fk.SimKeydown()
	s.follow(t, hy)
	if !s.active() {
		t.Error("press after external stop should start a new recording")
	}
	fk.SimKeyup()
}

func TestHybridHoldWhileIdleDoesNotRestart(t *testing.T) {
	fk := NewFake()
	s := &fakeSession{}
	threshold := 30 * time.Millisecond
	hy := NewHybrid(fk, threshold, s.active)
	defer hy.Close()

	fk.SimKeydown()
	<-hy.Toggles() // session refused to start, stays idle
	time.Sleep(threshold + 20*time.Millisecond)
	fk.SimKeyup()
	expectNoToggle(t, hy)
}

func TestHybridMultipleCycles(t *testing.T) {
	fk := NewFake()
	s := &fakeSession{}
	threshold := 50 * time.Millisecond
	hy := NewHybrid(fk, threshold, s.active)
	defer hy.Close()

	// Cycle 1: hold
	fk.SimKeydown()
	s.follow(t, hy)
	time.Sleep(threshold + 20*time.Millisecond)
	fk.SimKeyup()
	s.follow(t, hy)

	// Cycle 2: tap, tap
	fk.SimKeydown()
	s.follow(t, hy)
	fk.SimKeyup()
	time.Sleep(20 * time.Millisecond)
	fk.SimKeydown()
	fk.SimKeyup()
	s.follow(t, hy)

	if s.active() || s.toggles.Load() != 4 {
		t.Errorf("active=%v toggles=%d", s.active(), s.toggles.Load())
	}
}
