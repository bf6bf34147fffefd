// Package recorder starts the external audio recorder.
package recorder

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"dictate/proc"
)

var (
	ErrMissingDependency = errors.New("recorder executable not found")
	ErrNoAudio           = errors.New("recorder produced no audio")
)

const (
	DurationToken = "{duration}"
	OutputToken   = "{output}"
)

// DefaultCommand records 16 kHz mono 16-bit audio with sox and stops on
// its own after {duration} seconds.
var DefaultCommand = []string{"rec", "-q", "-c", "1", "-r", "16000", "-b", "16", OutputToken, "trim", "0", DurationToken}

// ValidateTemplate checks that a command template names a program and
// has somewhere to put the output path.
func ValidateTemplate(command []string) error {
	if len(command) == 0 || strings.TrimSpace(command[0]) == "" {
		return errors.New("recorder command is empty")
	}
	if !slices.ContainsFunc(command[1:], func(a string) bool { return strings.Contains(a, OutputToken) }) {
		return fmt.Errorf("recorder command must contain %s", OutputToken)
	}
	return nil
}

type Launcher struct {
	command []string
	spawner proc.Spawner
}

func New(command []string, spawner proc.Spawner) *Launcher {
	if len(command) == 0 {
		command = DefaultCommand
	}
	return &Launcher{command: slices.Clone(command), spawner: spawner}
}

func (l *Launcher) Binary() string { return l.command[0] }

// Check resolves the recorder executable without starting anything.
func (l *Launcher) Check() error {
	if _, err := l.spawner.LookPath(l.Binary()); err != nil {
		return fmt.Errorf("%w: %s (%v)", ErrMissingDependency, l.Binary(), err)
	}
	return nil
}

// Command expands the template. The output path is substituted into
// argv as-is, so it never needs shell escaping.
func (l *Launcher) Command(maxDuration time.Duration, outputPath string) proc.Command {
	secs := strconv.Itoa(durationSeconds(maxDuration))
	args := make([]string, 0, len(l.command)-1)
	for _, a := range l.command[1:] {
		a = strings.ReplaceAll(a, DurationToken, secs)
		a = strings.ReplaceAll(a, OutputToken, outputPath)
		args = append(args, a)
	}
	return proc.Command{Binary: l.Binary(), Args: args}
}

func (l *Launcher) Start(maxDuration time.Duration, outputPath string) (proc.Handle, error) {
	if err := l.Check(); err != nil {
		return nil, err
	}
	return l.spawner.Spawn(l.Command(maxDuration, outputPath))
}

func durationSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// Succeeded reports whether an exit means the recording is usable: a clean
// exit after the fixed duration, or the graceful interrupt.
func Succeeded(ex proc.Exit) bool {
	return ex.Err == nil && (ex.Code == 0 || ex.Interrupted())
}

// CreateArtifact creates the empty output file for run id in dir
// (os.TempDir when empty) and returns its path.
func CreateArtifact(dir, id, ext string) (string, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if ext == "" {
		ext = "wav"
	}
	path := filepath.Join(dir, "dictate-"+id+"."+strings.TrimPrefix(ext, "."))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("create artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("create artifact: %w", err)
	}
	return path, nil
}

// ConfirmArtifact checks that the recorder left audio behind.
func ConfirmArtifact(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoAudio, err)
	}
	if fi.Size() == 0 {
		return fmt.Errorf("%w: %s is empty", ErrNoAudio, path)
	}
	return nil
}

// RemoveArtifact deletes path, ignoring files that are already gone.
func RemoveArtifact(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
