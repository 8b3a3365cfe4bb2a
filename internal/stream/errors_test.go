package stream

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	base := errors.New("dial tcp: connection refused")
	err := wrapError(ConnectionError, "connect", base)

	assert.Equal(t, ConnectionError, KindOf(err))
	assert.Equal(t, ConnectionError, KindOf(fmt.Errorf("session: %w", err)))
	assert.Equal(t, KindUnknown, KindOf(base))
	assert.Equal(t, KindUnknown, KindOf(nil))

	assert.ErrorIs(t, err, base, "wrapped cause must remain reachable")
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "invalid_argument: ticker must be non-empty", ErrEmptyTicker.Error())

	wrapped := wrapError(TransportClosed, "receive", errors.New("unexpected EOF"))
	assert.Equal(t, "transport_closed: receive: unexpected EOF", wrapped.Error())
}
