package main

import (
	"bufio"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"dictate/log"
	"dictate/session"
)

const (
	exitFailed    exitCode = 1
	exitCancelled exitCode = 130
)

type onceResult struct {
	err       error
	cancelled bool
}

// onceSink reports the end of the single run.
type onceSink struct {
	result chan onceResult
}

func (s *onceSink) send(r onceResult) {
	select {
	case s.result <- r:
	default:
	}
}

func (s *onceSink) RecordingStart() {}
func (s *onceSink) RecordingStop()  {}
func (s *onceSink) Cancelled()      { s.send(onceResult{cancelled: true}) }
func (s *onceSink) Failed(err error) {
	s.send(onceResult{err: err})
}

func (s *onceSink) Transcription(_, target string, err error) {
	if err != nil {
		err = fmt.Errorf("deliver to %s: %w", target, err)
	}
	s.send(onceResult{err: err})
}

// runOnce records until Enter, transcribes, delivers the text and
// exits. Ctrl+C abandons the run.
func runOnce(cmd *cobra.Command, opts *options) error {
	setupLogging(opts)
	defer log.Close()

	a, err := newApp(opts)
	if err != nil {
		return err
	}

	out := cmd.ErrOrStderr()
	sink := &onceSink{result: make(chan onceResult, 1)}
	h := a.host(sink)
	r := a.start(cmd.Context(), h)
	defer func() {
		r.Close()
		log.SessionEnd(h.Count())
	}()

	if err := r.Toggle(a.targets.Get()); err != nil {
		return err
	}
	fmt.Fprintln(out, "Recording... press Enter to stop, Ctrl+C to cancel")

	enter := make(chan struct{})
	go func() {
		bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		close(enter)
	}()

	for {
		select {
		case <-enter:
			enter = nil
			if r.State() != session.Recording {
				continue
			}
			fmt.Fprintln(out, "Transcribing...")
			if err := r.Toggle(nil); err != nil {
				return err
			}
		case <-r.ctx.Done():
			r.Close()
			fmt.Fprintln(out, "Cancelled")
			return exitCancelled
		case res := <-sink.result:
			switch {
			case res.cancelled:
				fmt.Fprintln(out, "Cancelled")
				return exitCancelled
			case errors.Is(res.err, session.ErrNoSpeech):
				fmt.Fprintln(out, "No speech detected")
				return exitFailed
			case res.err != nil:
				fmt.Fprintf(out, "Error: %v\n", res.err)
				return exitFailed
			}
			return nil
		}
	}
}
