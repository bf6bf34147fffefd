// Package session drives one recording from first toggle to delivered
// text: recorder, then uploader, never both at once.
//
// All session state is owned by the goroutine running Coordinator.Run.
// Public methods post a message to it and wait for the answer. Process
// exits arrive on the same inbox, so every transition is serialized.
package session

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"dictate/proc"
	"dictate/recorder"
	"dictate/uploader"
)

const (
	DefaultMaxDuration   = 60 * time.Second
	DefaultWatchdogGrace = 2 * time.Second
	DefaultLogin         = "apikey"

	stderrTail = 512
	// shutdownWait bounds how long Run waits for killed processes to be
	// reaped before removing their artifacts.
	shutdownWait = 2 * time.Second
)

type Config struct {
	MaxDuration time.Duration
	Endpoint    string
	// Credential, when empty, is looked up by endpoint host and Login.
	Credential string
	Login      string
	TempDir    string
	Extension  string
	// KeepFailedAudio leaves the artifact on disk when the upload or
	// its response fails, so the recording is not lost.
	KeepFailedAudio bool
}

type Option func(*Coordinator)

func WithLogger(l zerolog.Logger) Option {
	return func(c *Coordinator) { c.log = l }
}

func WithCredentialSource(src uploader.CredentialSource) Option {
	return func(c *Coordinator) { c.creds = src }
}

// WithWatchdogGrace sets how long past MaxDuration a recorder may run
// before the coordinator stops it, and how long a stopping recorder may
// take to exit before it is killed. Negative disables the watchdog.
func WithWatchdogGrace(d time.Duration) Option {
	return func(c *Coordinator) { c.grace = d }
}

type run struct {
	id        string
	target    Target
	artifact  string
	recorder  proc.Handle
	uploader  proc.Handle
	started   time.Time
	watchdog  *time.Timer
	cancelled bool
}

func (r *run) live() proc.Handle {
	if proc.Alive(r.uploader) {
		return r.uploader
	}
	if proc.Alive(r.recorder) {
		return r.recorder
	}
	return nil
}

type (
	toggleMsg struct {
		target Target
		reply  chan error
	}
	cancelMsg struct{ reply chan error }
	stopMsg   struct{ id string }
	killMsg   struct{ id string }
	exitMsg   struct {
		id       string
		uploader bool
		exit     proc.Exit
	}
)

type Coordinator struct {
	cfg   Config
	rec   *recorder.Launcher
	up    *uploader.Launcher
	host  Host
	creds uploader.CredentialSource
	log   zerolog.Logger
	grace time.Duration

	inbox   chan any
	done    chan struct{}
	running atomic.Bool
	state   atomic.Int32
	events  *notifier

	// Owned by the Run goroutine.
	cur      *run
	draining map[string]*run
}

func New(cfg Config, rec *recorder.Launcher, up *uploader.Launcher, host Host, opts ...Option) *Coordinator {
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = DefaultMaxDuration
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = uploader.DefaultEndpoint
	}
	if cfg.Login == "" {
		cfg.Login = DefaultLogin
	}
	c := &Coordinator{
		cfg:      cfg,
		rec:      rec,
		up:       up,
		host:     host,
		log:      zerolog.Nop(),
		grace:    DefaultWatchdogGrace,
		inbox:    make(chan any),
		done:     make(chan struct{}),
		draining: make(map[string]*run),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// State is safe to call from any goroutine.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// Toggle starts a run when idle and requests a graceful stop while
// recording. target is where this run's text goes. Like Cancel, it
// blocks until Run is processing actions.
func (c *Coordinator) Toggle(target Target) error {
	reply := make(chan error, 1)
	if err := c.post(toggleMsg{target: target, reply: reply}); err != nil {
		return err
	}
	return c.await(reply)
}

// Cancel abandons the current run. Calling it when idle does nothing.
func (c *Coordinator) Cancel() error {
	reply := make(chan error, 1)
	if err := c.post(cancelMsg{reply: reply}); err != nil {
		return err
	}
	return c.await(reply)
}

func (c *Coordinator) post(m any) error {
	select {
	case c.inbox <- m:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

func (c *Coordinator) await(reply chan error) error {
	select {
	case err := <-reply:
		return err
	case <-c.done:
		return ErrClosed
	}
}

// Run processes actions and process exits until ctx ends. Live processes
// are then killed and their artifacts removed. Run may be called once.
func (c *Coordinator) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return errors.New("coordinator already running")
	}
	c.events = newNotifier()
	defer c.events.close()
	defer close(c.done)

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return nil
		case m := <-c.inbox:
			c.handle(m)
		}
	}
}

func (c *Coordinator) handle(m any) {
	switch m := m.(type) {
	case toggleMsg:
		m.reply <- c.toggle(m.target)
	case cancelMsg:
		c.cancel()
		m.reply <- nil
	case stopMsg:
		if c.cur != nil && c.cur.id == m.id && c.State() == Recording {
			c.log.Warn().Str("run", m.id).Dur("max_duration", c.cfg.MaxDuration).Msg("watchdog_stop")
			c.requestStop()
		}
	case killMsg:
		r := c.cur
		if r != nil && r.id == m.id && c.State() == StopRequested && proc.Alive(r.recorder) {
			c.log.Warn().Str("run", m.id).Dur("grace", c.grace).Msg("watchdog_kill")
			if err := r.recorder.Kill(); err != nil {
				c.log.Warn().Err(err).Str("run", m.id).Msg("kill")
			}
		}
	case exitMsg:
		if m.uploader {
			c.uploaderExited(m.id, m.exit)
		} else {
			c.recorderExited(m.id, m.exit)
		}
	}
}

func (c *Coordinator) setState(s State) {
	c.state.Store(int32(s))
}

func (c *Coordinator) notify(f func(Host)) {
	if c.host == nil {
		return
	}
	c.events.push(func() { f(c.host) })
}

func (c *Coordinator) toggle(target Target) error {
	switch c.State() {
	case Idle:
		return c.start(target)
	case Recording:
		c.requestStop()
		return nil
	case StopRequested:
		return nil
	default:
		return ErrBusy
	}
}

func (c *Coordinator) start(target Target) error {
	if len(c.draining) > 0 {
		return ErrBusy
	}
	if err := c.rec.Check(); err != nil {
		return err
	}
	if err := c.up.Check(); err != nil {
		return err
	}

	id := uuid.NewString()
	artifact, err := recorder.CreateArtifact(c.cfg.TempDir, id, c.cfg.Extension)
	if err != nil {
		return err
	}
	h, err := c.rec.Start(c.cfg.MaxDuration, artifact)
	if err != nil {
		recorder.RemoveArtifact(artifact)
		return err
	}

	r := &run{id: id, target: target, artifact: artifact, recorder: h, started: time.Now()}
	if c.grace >= 0 {
		r.watchdog = time.AfterFunc(c.cfg.MaxDuration+c.grace, func() { c.post(stopMsg{id: id}) })
	}
	c.cur = r
	c.setState(Recording)
	go c.watch(id, h, false)

	ev := c.log.Info().Str("run", id).Int("pid", h.Pid()).Str("artifact", artifact)
	if target != nil {
		ev = ev.Str("target", target.String())
	}
	ev.Msg("recording_started")
	c.notify(func(h Host) { h.OnStart() })
	return nil
}

func (c *Coordinator) watch(id string, h proc.Handle, isUploader bool) {
	<-h.Done()
	c.post(exitMsg{id: id, uploader: isUploader, exit: h.Exit()})
}

func (c *Coordinator) requestStop() {
	r := c.cur
	if err := r.recorder.Interrupt(); err != nil {
		c.log.Warn().Err(err).Str("run", r.id).Msg("interrupt recorder")
	}
	c.setState(StopRequested)
	stopTimer(r)
	if c.grace >= 0 {
		id := r.id
		r.watchdog = time.AfterFunc(c.grace, func() { c.post(killMsg{id: id}) })
	}
	c.log.Info().Str("run", r.id).Dur("elapsed", time.Since(r.started)).Msg("stop_requested")
	c.notify(func(h Host) { h.OnStopRequested() })
}

func (c *Coordinator) cancel() {
	r := c.cur
	if r == nil {
		return
	}
	r.cancelled = true
	stopTimer(r)
	if h := r.live(); h != nil {
		if err := h.Kill(); err != nil {
			c.log.Warn().Err(err).Str("run", r.id).Msg("kill")
		}
		c.draining[r.id] = r
	} else if err := recorder.RemoveArtifact(r.artifact); err != nil {
		c.log.Warn().Err(err).Str("run", r.id).Msg("remove artifact")
	}
	c.cur = nil
	c.setState(Idle)
	c.log.Info().Str("run", r.id).Int("draining", len(c.draining)).Msg("cancelled")
	c.notify(func(h Host) { h.OnCancelled() })
}

// drained handles the exit of a process belonging to a cancelled run.
func (c *Coordinator) drained(id string) bool {
	r, ok := c.draining[id]
	if !ok {
		return false
	}
	if r.live() == nil {
		delete(c.draining, id)
		if err := recorder.RemoveArtifact(r.artifact); err != nil {
			c.log.Warn().Err(err).Str("run", id).Msg("remove artifact")
		}
		c.log.Debug().Str("run", id).Msg("drained")
	}
	return true
}

func (c *Coordinator) recorderExited(id string, ex proc.Exit) {
	if c.drained(id) {
		return
	}
	r := c.cur
	if r == nil || r.id != id || c.State() == Uploading {
		c.log.Debug().Str("run", id).Msg("stale recorder exit")
		return
	}
	stopTimer(r)
	c.log.Info().
		Str("run", id).
		Str("exit", ex.Describe()).
		Dur("recorded", time.Since(r.started)).
		Msg("recorder_exit")

	if !recorder.Succeeded(ex) {
		c.fail(r, &ExitError{Exit: ex, Stderr: ex.StderrTail(stderrTail)}, false)
		return
	}
	if err := recorder.ConfirmArtifact(r.artifact); err != nil {
		c.fail(r, &ExitError{Exit: ex, Stderr: ex.StderrTail(stderrTail), Cause: err}, false)
		return
	}

	cred, err := uploader.ResolveCredential(c.cfg.Credential, c.cfg.Endpoint, c.cfg.Login, c.creds)
	if err != nil {
		c.fail(r, err, true)
		return
	}
	h, err := c.up.Start(r.artifact, c.cfg.Endpoint, cred)
	if err != nil {
		c.fail(r, err, true)
		return
	}
	r.uploader = h
	c.setState(Uploading)
	go c.watch(id, h, true)
	c.log.Info().Str("run", id).Int("pid", h.Pid()).Str("endpoint", c.cfg.Endpoint).Msg("upload_started")
}

func (c *Coordinator) uploaderExited(id string, ex proc.Exit) {
	if c.drained(id) {
		return
	}
	r := c.cur
	if r == nil || r.id != id {
		c.log.Debug().Str("run", id).Msg("stale uploader exit")
		return
	}
	c.log.Info().
		Str("run", id).
		Str("exit", ex.Describe()).
		Dur("upload", ex.Duration).
		Int("bytes", len(ex.Stdout)).
		Msg("uploader_exit")

	if ex.Err != nil || ex.Signal != nil || ex.Code != 0 {
		c.fail(r, &UploadError{Exit: ex, Stderr: ex.StderrTail(stderrTail)}, true)
		return
	}
	res, err := uploader.ParseResponse(ex.Stdout)
	if err != nil {
		c.fail(r, errors.Join(ErrNoTranscription, err), true)
		return
	}
	text := strings.TrimSpace(res.Text)
	if text == "" {
		c.fail(r, ErrNoSpeech, false)
		return
	}

	c.finish(r, true)
	target := r.target
	c.log.Info().Str("run", id).Int("chars", len(text)).Dur("total", time.Since(r.started)).Msg("transcribed")
	c.notify(func(h Host) { h.OnTranscription(text, target) })
}

func (c *Coordinator) fail(r *run, err error, keepable bool) {
	keep := keepable && c.cfg.KeepFailedAudio
	c.finish(r, !keep)
	ev := c.log.Error().Err(err).Str("run", r.id)
	if keep {
		ev = ev.Str("kept", r.artifact)
	}
	ev.Msg("run_failed")
	c.notify(func(h Host) { h.OnError(err) })
}

func (c *Coordinator) finish(r *run, removeArtifact bool) {
	stopTimer(r)
	if removeArtifact {
		if err := recorder.RemoveArtifact(r.artifact); err != nil {
			c.log.Warn().Err(err).Str("run", r.id).Msg("remove artifact")
		}
	}
	c.cur = nil
	c.setState(Idle)
}

func (c *Coordinator) shutdown() {
	runs := make([]*run, 0, len(c.draining)+1)
	for _, r := range c.draining {
		runs = append(runs, r)
	}
	active := c.cur
	if active != nil {
		active.cancelled = true
		runs = append(runs, active)
	}

	wait, cancel := context.WithTimeout(context.Background(), shutdownWait)
	defer cancel()
	for _, r := range runs {
		stopTimer(r)
		for _, h := range []proc.Handle{r.recorder, r.uploader} {
			if !proc.Alive(h) {
				continue
			}
			if err := h.Kill(); err != nil {
				c.log.Warn().Err(err).Str("run", r.id).Msg("kill")
			}
			select {
			case <-h.Done():
			case <-wait.Done():
			}
		}
		if err := recorder.RemoveArtifact(r.artifact); err != nil {
			c.log.Warn().Err(err).Str("run", r.id).Msg("remove artifact")
		}
	}

	c.cur = nil
	clear(c.draining)
	c.setState(Idle)
	if active != nil {
		c.log.Info().Str("run", active.id).Msg("cancelled on shutdown")
		c.notify(func(h Host) { h.OnCancelled() })
	}
}

func stopTimer(r *run) {
	if r.watchdog != nil {
		r.watchdog.Stop()
	}
}
