package session

import "fmt"

type State int32

const (
	Idle State = iota
	Recording
	StopRequested
	Uploading
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case StopRequested:
		return "stopping"
	case Uploading:
		return "transcribing"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Target receives the transcription of a run. It is captured when the
// run starts, so switching targets mid-run does not redirect text.
type Target interface {
	Insert(text string) error
	String() string
}

// Host is notified of session transitions. Callbacks run one at a time,
// in order, on a goroutine owned by the coordinator, and may call back
// into the coordinator.
type Host interface {
	OnStart()
	OnStopRequested()
	OnCancelled()
	OnTranscription(text string, target Target)
	OnError(err error)
}
