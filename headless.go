package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"dictate/hotkey"
	"dictate/log"
	"dictate/session"
)

// lineSink prints one status line per session event. done holds the
// status of the latest run that ended, until a new run starts.
type lineSink struct {
	out  io.Writer
	done chan string
}

func newLineSink(out io.Writer) *lineSink {
	return &lineSink{out: out, done: make(chan string, 1)}
}

func (s *lineSink) finished(status string) {
	s.reset()
	select {
	case s.done <- status:
	default:
	}
}

// reset drops a status nobody waited for.
func (s *lineSink) reset() {
	select {
	case <-s.done:
	default:
	}
}

func (s *lineSink) RecordingStart() {
	s.reset()
	fmt.Fprintln(s.out, "recording")
}

func (s *lineSink) RecordingStop() { fmt.Fprintln(s.out, "transcribing") }

func (s *lineSink) Cancelled() {
	fmt.Fprintln(s.out, "cancelled")
	s.finished("cancelled")
}

func (s *lineSink) Transcription(text, target string, err error) {
	if err != nil {
		fmt.Fprintf(s.out, "delivery to %s failed: %v\n", target, err)
		s.finished("error")
		return
	}
	fmt.Fprintf(s.out, "transcribed %d chars to %s\n", len(text), target)
	s.finished("transcribed")
}

func (s *lineSink) Failed(err error) {
	fmt.Fprintf(s.out, "error: %v\n", err)
	s.finished("error")
}

// runHeadless drives a session from stdin commands, one per line:
//
//	TOGGLE        start or stop recording
//	CANCEL        abandon the current run
//	KEYDOWN/KEYUP simulate the record chord
//	HOTCANCEL     simulate the cancel chord
//	TARGET        switch to the next target
//	STATUS        print the coordinator state
//	WAIT          block until a run ends
//	SLEEP <ms>    pause
//	QUIT          exit
func runHeadless(cmd *cobra.Command, opts *options) error {
	setupLogging(opts)
	defer log.Close()

	a, err := newApp(opts)
	if err != nil {
		return err
	}

	out := cmd.ErrOrStderr()
	sink := newLineSink(out)
	h := a.host(sink)
	r := a.start(cmd.Context(), h)
	defer func() {
		r.Close()
		log.SessionEnd(h.Count())
	}()

	fake := hotkey.NewFake()
	if err := listenHotkey(r.ctx, fake, opts.longPress, r, a.targets); err != nil {
		return err
	}
	if opts.hotkey {
		if err := listenHotkey(r.ctx, hotkey.New(), opts.longPress, r, a.targets); err != nil {
			fmt.Fprintf(out, "Warning: hotkey unavailable: %v\n", err)
		}
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
	}()

	for {
		var line string
		var ok bool
		select {
		case <-r.ctx.Done():
			return nil
		case line, ok = <-lines:
			if !ok {
				return nil
			}
		}

		verb, arg, _ := strings.Cut(line, " ")
		switch strings.ToUpper(verb) {
		case "":
		case "TOGGLE":
			if r.State() == session.Idle {
				sink.reset()
			}
			if err := r.Toggle(a.targets.Get()); err != nil {
				fmt.Fprintf(out, "toggle: %v\n", err)
			}
		case "CANCEL":
			if err := r.Cancel(); err != nil {
				fmt.Fprintf(out, "cancel: %v\n", err)
			}
		case "KEYDOWN":
			if r.State() == session.Idle {
				sink.reset()
			}
			fake.SimKeydown()
		case "KEYUP":
			fake.SimKeyup()
		case "HOTCANCEL":
			fake.SimCancel()
		case "TARGET":
			name, err := a.targets.Next()
			if err != nil {
				fmt.Fprintf(out, "target: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "target %s\n", name)
		case "STATUS":
			fmt.Fprintln(out, r.State())
		case "WAIT":
			select {
			case <-sink.done:
			case <-r.ctx.Done():
				return nil
			}
		case "SLEEP":
			ms, err := strconv.Atoi(strings.TrimSpace(arg))
			if err != nil {
				fmt.Fprintf(out, "sleep: bad duration %q\n", arg)
				continue
			}
			time.Sleep(time.Duration(ms) * time.Millisecond)
		case "QUIT":
			return nil
		default:
			fmt.Fprintf(out, "unknown command %q\n", verb)
		}
	}
}
