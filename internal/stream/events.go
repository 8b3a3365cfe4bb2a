package stream

import "time"

// EventType names the reportable moments in a session's life.
type EventType int

const (
	EventConnected EventType = iota
	EventSubscribed
	EventBackoff
	EventStatusFrame
	EventFrameDropped
	EventNoData
	EventSinkError
	EventTerminated
)

func (t EventType) String() string {
	switch t {
	case EventConnected:
		return "connected"
	case EventSubscribed:
		return "subscribed"
	case EventBackoff:
		return "backoff"
	case EventStatusFrame:
		return "status_frame"
	case EventFrameDropped:
		return "frame_dropped"
	case EventNoData:
		return "no_data"
	case EventSinkError:
		return "sink_error"
	case EventTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Event is one reportable session occurrence. Backoff events carry the
// attempt number, chosen delay, and the error that caused the transition, so
// a degraded stream is always observable by the caller.
type Event struct {
	Type    EventType
	Ticker  string
	State   State
	Err     error
	Attempt int
	Delay   time.Duration
	Payload []byte
}

// EventFunc receives session events. It is invoked from the session's own
// goroutines and must not block.
type EventFunc func(Event)
