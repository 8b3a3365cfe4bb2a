package stream

// State is a session's lifecycle state. Transitions happen only on the
// session's own goroutine; callers read it through Session.Status.
type State int32

const (
	Created State = iota
	Connecting
	Subscribing
	Streaming
	Backoff
	Closing
	Terminated
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Connecting:
		return "connecting"
	case Subscribing:
		return "subscribing"
	case Streaming:
		return "streaming"
	case Backoff:
		return "backoff"
	case Closing:
		return "closing"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}
