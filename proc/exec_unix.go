//go:build !windows

package proc

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

func setProcessGroup(c *exec.Cmd) {
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func interruptGroup(p *os.Process) error {
	return signalGroup(p, syscall.SIGINT)
}

func killGroup(p *os.Process) error {
	return signalGroup(p, syscall.SIGKILL)
}

// signalGroup signals the whole group led by p, falling back to p alone
// when the group is already gone.
func signalGroup(p *os.Process, sig syscall.Signal) error {
	err := syscall.Kill(-p.Pid, sig)
	if err == nil {
		return nil
	}
	if errors.Is(err, syscall.ESRCH) {
		return p.Signal(sig)
	}
	return err
}

func exitSignal(ps *os.ProcessState) os.Signal {
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return ws.Signal()
	}
	return nil
}
