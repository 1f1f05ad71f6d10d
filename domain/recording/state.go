package recording

import (
	"errors"
	"fmt"
)

// State of a recording session. Stopped is terminal.
type State int

const (
	StateIdle State = iota
	StateRecording
	StatePaused
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Event is a control request to the session.
type Event string

const (
	EventStart    Event = "start"
	EventPause    Event = "pause"
	EventResume   Event = "resume"
	EventStop     Event = "stop"
	EventFinalize Event = "finalize"
)

var (
	// ErrInvalidTransition is the precondition failure of an event not
	// allowed in the current state. The session is left unchanged.
	ErrInvalidTransition = errors.New("recording: invalid transition")
	// ErrSessionDiscarded is returned by every call after Finalize or Discard.
	ErrSessionDiscarded = errors.New("recording: session discarded")
	// ErrEncoderUnsupported reports a container/codec pair no encoder serves.
	ErrEncoderUnsupported = errors.New("recording: encoder unsupported")
)

// TransitionError describes a rejected event.
type TransitionError struct {
	From  State
	Event Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("recording: cannot %s while %s", e.Event, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// next returns the target state for ev from s, or false when ev is not
// allowed.
func next(s State, ev Event) (State, bool) {
	switch ev {
	case EventStart:
		if s == StateIdle {
			return StateRecording, true
		}
	case EventPause:
		if s == StateRecording {
			return StatePaused, true
		}
	case EventResume:
		if s == StatePaused {
			return StateRecording, true
		}
	case EventStop:
		if s == StateRecording || s == StatePaused {
			return StateStopped, true
		}
	case EventFinalize:
		if s == StateStopped {
			return StateStopped, true
		}
	}
	return s, false
}
