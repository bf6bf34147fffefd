package main

import (
	"errors"
	"sync/atomic"

	"dictate/beep"
	"dictate/log"
	"dictate/session"
)

// EventSink abstracts the display layer so the terminal UI and the
// headless driver receive the same session events.
type EventSink interface {
	RecordingStart()
	RecordingStop()
	Cancelled()
	Transcription(text, target string, err error)
	Failed(err error)
}

// host delivers text to the run's target and fans session events out to
// beeps, the log and the display.
type host struct {
	sink     EventSink
	fallback func() session.Target
	logText  bool
	count    atomic.Int32
}

func newHost(sink EventSink, fallback func() session.Target) *host {
	return &host{sink: sink, fallback: fallback}
}

func (h *host) OnStart() {
	beep.Play(beep.Start)
	h.sink.RecordingStart()
}

func (h *host) OnStopRequested() {
	beep.Play(beep.Stop)
	h.sink.RecordingStop()
}

func (h *host) OnCancelled() {
	beep.Play(beep.Cancel)
	log.Info("cancelled")
	h.sink.Cancelled()
}

func (h *host) OnTranscription(text string, t session.Target) {
	if t == nil {
		t = h.fallback()
	}
	err := t.Insert(text)
	h.count.Add(1)
	if h.logText {
		log.TranscriptionText(text)
	}
	log.Delivered(t.String(), len(text), err)
	if err != nil {
		beep.Play(beep.Error)
	}
	h.sink.Transcription(text, t.String(), err)
}

func (h *host) OnError(err error) {
	if errors.Is(err, session.ErrNoSpeech) {
		log.Info("no_speech")
	} else {
		beep.Play(beep.Error)
		log.Errorf("session error: %v", err)
	}
	h.sink.Failed(err)
}

// Count is the number of transcriptions delivered so far.
func (h *host) Count() int { return int(h.count.Load()) }
