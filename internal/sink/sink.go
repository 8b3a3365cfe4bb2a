package sink

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Frame is one delivered inbound payload, forwarded verbatim. The payload is
// opaque to this package; tick semantics are the downstream consumer's
// problem.
type Frame struct {
	Symbol   string
	Payload  []byte
	Received time.Time
}

// Sink receives frames from stream sessions in arrival order. Implementations
// must be safe for concurrent use: multiple sessions may share one sink.
type Sink interface {
	Deliver(ctx context.Context, frame Frame) error
}

// Log writes every frame to a zap logger. Useful on its own for smoke-testing
// a feed, and as a tap alongside a real sink via Multi.
type Log struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Deliver(_ context.Context, f Frame) error {
	l.logger.Info("frame",
		zap.String("symbol", f.Symbol),
		zap.ByteString("payload", f.Payload))
	return nil
}

// Multi fans one delivery out to several sinks, in order. The first failure
// wins; later sinks still see the frame.
type Multi []Sink

func (m Multi) Deliver(ctx context.Context, f Frame) error {
	var first error
	for _, s := range m {
		if err := s.Deliver(ctx, f); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Chan pushes frames onto a channel. The delivery blocks until the channel
// accepts the frame or ctx is done; pair it with the session's bounded queue
// rather than sizing the channel for the whole stream.
type Chan chan Frame

func (c Chan) Deliver(ctx context.Context, f Frame) error {
	select {
	case c <- f:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
