package session

import (
	"errors"
	"fmt"

	"dictate/proc"
)

var (
	ErrAbnormalRecorderExit = errors.New("recorder exited abnormally")
	ErrNoTranscription      = errors.New("no transcription")
	ErrUploadFailed         = errors.New("upload failed")
	ErrNoSpeech             = errors.New("transcription is empty")
	// ErrCancelled describes a run the user abandoned. It is never
	// passed to Host.OnError.
	ErrCancelled = errors.New("cancelled by user")
	ErrBusy      = errors.New("session busy")
	ErrClosed    = errors.New("coordinator stopped")
)

// ExitError reports a recorder that ended outside the success set, or
// that ended cleanly without leaving audio behind.
type ExitError struct {
	Exit   proc.Exit
	Stderr string
	Cause  error
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s (%s)", ErrAbnormalRecorderExit, e.Exit.Describe())
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ExitError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrAbnormalRecorderExit}
	}
	return []error{ErrAbnormalRecorderExit, e.Cause}
}

// UploadError reports an uploader that did not exit cleanly, typically a
// network or TLS failure.
type UploadError struct {
	Exit   proc.Exit
	Stderr string
}

func (e *UploadError) Error() string {
	msg := fmt.Sprintf("%s (%s)", ErrUploadFailed, e.Exit.Describe())
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *UploadError) Unwrap() error { return ErrUploadFailed }
