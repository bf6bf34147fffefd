package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"dictate/beep"
	"dictate/config"
	"dictate/credential"
	"dictate/log"
	"dictate/proc"
	"dictate/recorder"
	"dictate/session"
	"dictate/shutdown"
	"dictate/target"
	"dictate/uploader"
)

// exitCode lets a command choose the process status without printing
// an error.
type exitCode int

func (e exitCode) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

func asExitCode(err error, ec *exitCode) bool { return errors.As(err, ec) }

type app struct {
	cfg     *config.Config
	rec     *recorder.Launcher
	up      *uploader.Launcher
	creds   uploader.CredentialSource
	targets *targetSwitch
}

// setupLogging resolves the log directory, opens the log files and
// routes runtime crash output next to them.
func setupLogging(opts *options) {
	logPath, err := log.ResolveDir(opts.logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to resolve log directory: %v\n", err)
		return
	}
	log.SetDir(logPath)

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
		return
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
		crashFile.Close()
	}
}

func newApp(opts *options) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.target != "" {
		if !config.ValidTarget(opts.target) {
			return nil, fmt.Errorf("invalid --target %q (use clipboard, paste, stdout or file:<path>)", opts.target)
		}
		cfg.Target = opts.target
	}
	if opts.noBeep {
		cfg.Beep = false
	}
	if !cfg.Beep {
		beep.Disable()
	}

	targets, err := newTargetSwitch(cfg.Target)
	if err != nil {
		return nil, err
	}

	sp := proc.Exec{}
	a := &app{
		cfg:     cfg,
		rec:     recorder.New(cfg.Recorder.Command, sp),
		up:      uploader.New(cfg.UploaderConfig(), sp),
		creds:   credential.Netrc{Path: cfg.Netrc},
		targets: targets,
	}
	if cfg.Target == target.PasteName {
		if err := target.InitKeystroke(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: paste init failed: %v\n", err)
			fmt.Fprintln(os.Stderr, "Fix with: sudo chmod 660 /dev/uinput && sudo chgrp input /dev/uinput")
		}
	}
	log.AppStart(version, cfg.Target, cfg.MaxDuration)
	return a, nil
}

func (a *app) host(sink EventSink) *host {
	h := newHost(sink, a.targets.Get)
	h.logText = a.cfg.TranscriptLog
	return h
}

func (a *app) coordinator(h session.Host) *session.Coordinator {
	return session.New(a.cfg.SessionConfig(), a.rec, a.up, h,
		session.WithLogger(log.Logger()),
		session.WithCredentialSource(a.creds),
	)
}

// running is a coordinator whose loop ends when ctx is cancelled or a
// termination signal arrives.
type running struct {
	*session.Coordinator
	ctx  context.Context
	stop context.CancelFunc
	done chan struct{}
}

func (a *app) start(parent context.Context, h session.Host) *running {
	ctx, stop := shutdown.Context(parent)
	r := &running{
		Coordinator: a.coordinator(h),
		ctx:         ctx,
		stop:        stop,
		done:        make(chan struct{}),
	}
	go func() {
		defer close(r.done)
		if err := r.Run(ctx); err != nil {
			log.Errorf("coordinator: %v", err)
		}
	}()
	return r
}

// Close ends the loop, which cancels any run in flight, and waits for
// cleanup to finish.
func (r *running) Close() {
	r.stop()
	<-r.done
}

// recordingActive reports whether a toggle now would end a recording.
func (r *running) recordingActive() bool {
	s := r.State()
	return s == session.Recording || s == session.StopRequested
}

// targetSwitch holds the target new runs are started with.
type targetSwitch struct {
	mu       sync.Mutex
	spec     string
	fileSpec string
	cur      session.Target
}

func newTargetSwitch(spec string) (*targetSwitch, error) {
	t, err := target.Parse(spec)
	if err != nil {
		return nil, err
	}
	ts := &targetSwitch{spec: spec, cur: t}
	if _, ok := t.(*target.File); ok {
		ts.fileSpec = spec
	}
	return ts, nil
}

func (ts *targetSwitch) Get() session.Target {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.cur
}

// Next switches to the following target and returns its name.
func (ts *targetSwitch) Next() (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	spec := target.Cycle(ts.spec, ts.fileSpec)
	t, err := target.Parse(spec)
	if err != nil {
		return ts.spec, err
	}
	if spec == target.PasteName {
		if err := target.InitKeystroke(); err != nil {
			log.Warnf("paste init failed: %v", err)
		}
	}
	ts.spec, ts.cur = spec, t
	return spec, nil
}
