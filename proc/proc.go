// Package proc spawns external programs and reports how they ended.
//
// A Handle is owned by exactly one caller. Interrupt asks the program to
// finish on its own (it can flush output), Kill ends it and its children
// unconditionally. Done is closed once the program has been reaped, after
// which Exit describes the outcome.
package proc

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Command is a structured argument vector. No shell is involved, so
// arguments are passed to the program verbatim.
type Command struct {
	Binary string
	Args   []string
	// Env is appended to the parent environment.
	Env   []string
	Dir   string
	Stdin io.Reader
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Binary}, c.Args...), " ")
}

// Exit describes a finished process.
type Exit struct {
	// Code is the exit status, -1 when the process was ended by a signal.
	Code int
	// Signal is the terminating signal, nil for a normal exit.
	Signal   os.Signal
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
	// Err is set when the process could not be waited for at all.
	Err error
}

// sigintCode is the status shells and most CLI tools report after SIGINT.
const sigintCode = 128 + 2

// Interrupted reports whether the process ended because of an interrupt.
func (e Exit) Interrupted() bool {
	return e.Signal == os.Interrupt || e.Code == sigintCode
}

func (e Exit) Describe() string {
	switch {
	case e.Err != nil:
		return "wait failed: " + e.Err.Error()
	case e.Signal != nil:
		return "killed by " + e.Signal.String()
	default:
		return "exit code " + strconv.Itoa(e.Code)
	}
}

// StderrTail returns at most n trailing bytes of stderr, trimmed.
func (e Exit) StderrTail(n int) string {
	s := e.Stderr
	if len(s) > n {
		s = s[len(s)-n:]
	}
	return strings.TrimSpace(string(s))
}

type Handle interface {
	Pid() int
	Interrupt() error
	Kill() error
	Done() <-chan struct{}
	// Exit blocks until the process has been reaped.
	Exit() Exit
}

// Spawner starts programs. Exec is the real implementation, FakeSpawner
// lets tests decide when and how processes end.
type Spawner interface {
	LookPath(file string) (string, error)
	Spawn(cmd Command) (Handle, error)
}

// Alive reports whether h has not been reaped yet.
func Alive(h Handle) bool {
	if h == nil {
		return false
	}
	select {
	case <-h.Done():
		return false
	default:
		return true
	}
}
