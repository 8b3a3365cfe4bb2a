package stream

import (
	"errors"
	"fmt"
)

// Kind classifies a session error. Only InvalidArgument surfaces
// synchronously from StartStream; the recoverable kinds drive the backoff
// transition and reach the caller through events.
type Kind int

const (
	KindUnknown Kind = iota
	InvalidArgument
	ConnectionError
	ProtocolError
	TransportClosed
	SinkError
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid_argument"
	case ConnectionError:
		return "connection_error"
	case ProtocolError:
		return "protocol_error"
	case TransportClosed:
		return "transport_closed"
	case SinkError:
		return "sink_error"
	default:
		return "unknown"
	}
}

// Error carries a Kind alongside the underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func NewError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func wrapError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the Kind from err, or KindUnknown if err does not carry one.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

var (
	ErrEmptyTicker = NewError(InvalidArgument, "ticker must be non-empty")
	ErrEmptyToken  = NewError(InvalidArgument, "api token must be non-empty")
)
