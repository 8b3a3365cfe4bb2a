package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersAndCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ActiveSessions.Inc()
	m.SessionsStarted.Inc()
	m.FramesReceived.Inc()
	m.FramesReceived.Inc()
	m.FramesDropped.Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveSessions))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.FramesReceived))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FramesDropped))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["streamer_active_sessions"])
	assert.True(t, names["streamer_frames_received_total"])
	assert.True(t, names["streamer_reconnects_total"])
}
