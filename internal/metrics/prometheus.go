package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the streamer.
type Metrics struct {
	// Session lifecycle
	ActiveSessions  prometheus.Gauge
	SessionsStarted prometheus.Counter
	Reconnects      prometheus.Counter

	// Frame flow
	FramesReceived  prometheus.Counter
	FramesDelivered prometheus.Counter
	FramesDropped   prometheus.Counter
	StatusFrames    prometheus.Counter

	// Failures
	SinkErrors prometheus.Counter
}

// New creates and registers all metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "streamer_active_sessions",
			Help: "Number of live stream sessions",
		}),
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "streamer_sessions_started_total",
			Help: "Total stream sessions started",
		}),
		Reconnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "streamer_reconnects_total",
			Help: "Total backoff/reconnect cycles across all sessions",
		}),
		FramesReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "streamer_frames_received_total",
			Help: "Frames read from the feed",
		}),
		FramesDelivered: factory.NewCounter(prometheus.CounterOpts{
			Name: "streamer_frames_delivered_total",
			Help: "Frames handed to the sink",
		}),
		FramesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "streamer_frames_dropped_total",
			Help: "Frames dropped by the bounded delivery queue",
		}),
		StatusFrames: factory.NewCounter(prometheus.CounterOpts{
			Name: "streamer_status_frames_total",
			Help: "Provider handshake/status frames (not delivered)",
		}),
		SinkErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "streamer_sink_errors_total",
			Help: "Failed sink deliveries",
		}),
	}
}
