package proc

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// Exec spawns real processes. Each process gets its own process group so
// Interrupt and Kill reach wrapper scripts and their children alike.
type Exec struct{}

func (Exec) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (Exec) Spawn(cmd Command) (Handle, error) {
	if cmd.Binary == "" {
		return nil, errors.New("proc: binary is required")
	}

	c := exec.Command(cmd.Binary, cmd.Args...) //nolint:gosec // running configured programs is the point
	c.Dir = cmd.Dir
	c.Env = mergeEnv(cmd.Env)
	c.Stdin = cmd.Stdin

	h := &execHandle{cmd: c, done: make(chan struct{})}
	c.Stdout = &h.stdout
	c.Stderr = &h.stderr
	setProcessGroup(c)

	start := time.Now()
	if err := c.Start(); err != nil {
		return nil, fmt.Errorf("proc: start %s: %w", cmd.Binary, err)
	}
	go h.wait(start)
	return h, nil
}

type execHandle struct {
	cmd    *exec.Cmd
	stdout bytes.Buffer
	stderr bytes.Buffer
	done   chan struct{}
	exit   Exit
}

func (h *execHandle) wait(start time.Time) {
	err := h.cmd.Wait()
	ex := Exit{
		Code:     -1,
		Stdout:   h.stdout.Bytes(),
		Stderr:   h.stderr.Bytes(),
		Duration: time.Since(start),
	}
	if ps := h.cmd.ProcessState; ps != nil {
		ex.Code = ps.ExitCode()
		ex.Signal = exitSignal(ps)
	}
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		ex.Err = err
	}
	h.exit = ex
	close(h.done)
}

func (h *execHandle) Pid() int { return h.cmd.Process.Pid }

func (h *execHandle) Done() <-chan struct{} { return h.done }

func (h *execHandle) Exit() Exit {
	<-h.done
	return h.exit
}

func (h *execHandle) Interrupt() error {
	if !Alive(h) {
		return nil
	}
	return ignoreDone(interruptGroup(h.cmd.Process))
}

func (h *execHandle) Kill() error {
	if !Alive(h) {
		return nil
	}
	return ignoreDone(killGroup(h.cmd.Process))
}

func ignoreDone(err error) error {
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

// mergeEnv merges additional env vars with the current environment.
func mergeEnv(extra []string) []string {
	if len(extra) == 0 {
		return nil // inherit parent env
	}
	return append(os.Environ(), extra...)
}
