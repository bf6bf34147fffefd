//go:build windows

package proc

import (
	"os"
	"os/exec"
)

func setProcessGroup(*exec.Cmd) {}

// Windows has no SIGINT for child processes; Interrupt degrades to Kill.
func interruptGroup(p *os.Process) error {
	if err := p.Signal(os.Interrupt); err != nil {
		return p.Kill()
	}
	return nil
}

func killGroup(p *os.Process) error {
	return p.Kill()
}

func exitSignal(*os.ProcessState) os.Signal { return nil }
