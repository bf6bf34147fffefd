//go:build !windows

package proc

import (
	"os"
	"strings"
	"syscall"
	"testing"
	"time"
)

func spawn(t *testing.T, cmd Command) Handle {
	t.Helper()
	h, err := Exec{}.Spawn(cmd)
	if err != nil {
		t.Fatalf("Spawn(%s): %v", cmd, err)
	}
	t.Cleanup(func() { h.Kill() })
	return h
}

func waitExit(t *testing.T, h Handle) Exit {
	t.Helper()
	select {
	case <-h.Done():
		return h.Exit()
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit")
		return Exit{}
	}
}

func TestExecStdout(t *testing.T) {
	h := spawn(t, Command{Binary: "echo", Args: []string{"hello", "world"}})
	ex := waitExit(t, h)
	if ex.Code != 0 || ex.Signal != nil {
		t.Fatalf("got %s, want clean exit", ex.Describe())
	}
	if got := strings.TrimSpace(string(ex.Stdout)); got != "hello world" {
		t.Errorf("stdout = %q", got)
	}
}

func TestExecStdinAndEnv(t *testing.T) {
	h := spawn(t, Command{
		Binary: "sh",
		Args:   []string{"-c", `read line; echo "$line $DICTATE_TEST_VAR"`},
		Env:    []string{"DICTATE_TEST_VAR=env"},
		Stdin:  strings.NewReader("from stdin\n"),
	})
	ex := waitExit(t, h)
	if got := strings.TrimSpace(string(ex.Stdout)); got != "from stdin env" {
		t.Errorf("stdout = %q", got)
	}
}

func TestExecExitCodeAndStderr(t *testing.T) {
	h := spawn(t, Command{Binary: "sh", Args: []string{"-c", "echo oops >&2; exit 42"}})
	ex := waitExit(t, h)
	if ex.Code != 42 {
		t.Fatalf("code = %d, want 42", ex.Code)
	}
	if ex.Err != nil {
		t.Errorf("Err = %v, want nil for a plain non-zero exit", ex.Err)
	}
	if got := ex.StderrTail(64); got != "oops" {
		t.Errorf("stderr = %q", got)
	}
	if ex.Interrupted() {
		t.Error("exit 42 must not count as interrupted")
	}
}

func TestExecInterrupt(t *testing.T) {
	h := spawn(t, Command{Binary: "sleep", Args: []string{"10"}})
	if err := h.Interrupt(); err != nil {
		t.Fatalf("Interrupt: %v", err)
	}
	ex := waitExit(t, h)
	if !ex.Interrupted() {
		t.Fatalf("got %s, want interrupted", ex.Describe())
	}
	if ex.Duration > 5*time.Second {
		t.Errorf("interrupt took %v", ex.Duration)
	}
}

func TestExecKillReachesGroup(t *testing.T) {
	// The wrapper shell traps INT, so only a kill ends the whole group.
	h := spawn(t, Command{Binary: "sh", Args: []string{"-c", `trap "" INT; sleep 10`}})
	if err := h.Kill(); err != nil {
		t.Fatalf("Kill: %v", err)
	}
	ex := waitExit(t, h)
	if ex.Signal != syscall.SIGKILL {
		t.Fatalf("got %s, want SIGKILL", ex.Describe())
	}
	if err := h.Kill(); err != nil {
		t.Errorf("second Kill: %v", err)
	}
	if err := h.Interrupt(); err != nil {
		t.Errorf("Interrupt after exit: %v", err)
	}
}

func TestExecEmptyBinary(t *testing.T) {
	if _, err := (Exec{}).Spawn(Command{}); err == nil {
		t.Fatal("expected error for empty binary")
	}
}

func TestExecMissingBinary(t *testing.T) {
	if _, err := (Exec{}).LookPath("dictate-no-such-binary"); err == nil {
		t.Fatal("expected LookPath error")
	}
	if _, err := (Exec{}).Spawn(Command{Binary: "dictate-no-such-binary"}); err == nil {
		t.Fatal("expected Spawn error")
	}
}

func TestExitInterrupted(t *testing.T) {
	for _, tt := range []struct {
		name string
		exit Exit
		want bool
	}{
		{"clean", Exit{Code: 0}, false},
		{"sigint", Exit{Code: -1, Signal: os.Interrupt}, true},
		{"code 130", Exit{Code: 130}, true},
		{"sigkill", Exit{Code: -1, Signal: os.Kill}, false},
		{"code 1", Exit{Code: 1}, false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.exit.Interrupted(); got != tt.want {
				t.Errorf("Interrupted() = %v, want %v", got, tt.want)
			}
		})
	}
}
