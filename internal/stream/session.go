package stream

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"stockops-streamer/internal/feed"
	"stockops-streamer/internal/metrics"
	"stockops-streamer/internal/sink"
)

// DeliveryPolicy decides what happens when the delivery queue is full because
// the sink is slower than the feed.
type DeliveryPolicy int

const (
	// DropOldest evicts the oldest queued frame to make room. Drops are
	// counted, logged and reported, never silent.
	DropOldest DeliveryPolicy = iota
	// Block stalls the receive loop until the sink catches up.
	Block
)

func (p DeliveryPolicy) String() string {
	switch p {
	case DropOldest:
		return "drop-oldest"
	case Block:
		return "block"
	default:
		return "unknown"
	}
}

// ParseDeliveryPolicy maps a configuration string to a DeliveryPolicy.
func ParseDeliveryPolicy(s string) (DeliveryPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "drop-oldest":
		return DropOldest, nil
	case "block":
		return Block, nil
	default:
		return 0, fmt.Errorf("unknown delivery policy: %q", s)
	}
}

const (
	DefaultQueueSize        = 256
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultGraceWindow      = 15 * time.Second
)

// Options configures a session. The zero value is usable: EODHD trades
// stream, log sink, drop-oldest delivery, default backoff.
type Options struct {
	// Feed overrides the provider entirely; when nil, one is built from
	// Provider/BaseURL and the session's token.
	Feed     feed.Feed
	Provider string
	BaseURL  string
	Stream   feed.Kind

	Sink    sink.Sink
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	OnEvent EventFunc

	QueueSize int
	Policy    DeliveryPolicy
	// TerminateOnSinkError stops the session on the first failed delivery
	// instead of dropping the frame and continuing.
	TerminateOnSinkError bool

	BackoffBase time.Duration
	BackoffMax  time.Duration
	// GraceWindow bounds the wait for the first frame after subscribing
	// before a warning is reported. Zero applies DefaultGraceWindow; a
	// negative value disables the warning.
	GraceWindow      time.Duration
	HandshakeTimeout time.Duration
}

// Session is one live subscription: connect, subscribe, receive, reconnect,
// until cancelled. All I/O happens on the session's own goroutines; the
// caller only cancels and observes.
type Session struct {
	ticker   string
	endpoint string
	subFrame []byte
	feed     feed.Feed

	sink    sink.Sink
	logger  *zap.Logger
	metrics *metrics.Metrics
	onEvent EventFunc

	queue                chan []byte
	policy               DeliveryPolicy
	terminateOnSinkError bool
	dropped              atomic.Uint64

	backoffBase      time.Duration
	backoffMax       time.Duration
	graceWindow      time.Duration
	handshakeTimeout time.Duration

	state  atomic.Int32
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	done   chan struct{}
}

// StartStream validates the request, then hands the connection lifecycle to a
// dedicated goroutine and returns immediately. The only synchronous failures
// are InvalidArgument (empty ticker/token, unknown provider or stream kind)
// and ProtocolError (unencodable subscription); no network I/O happens before
// return.
func StartStream(ticker, apiToken string, opts Options) (*Session, error) {
	return startSession([]string{ticker}, apiToken, opts)
}

// StartGroupStream opens one session carrying every symbol in a single
// subscribe frame (comma-joined on the wire). Delivered frames are keyed by
// the joined symbol list; per-tick attribution stays inside the payload.
func StartGroupStream(symbols []string, apiToken string, opts Options) (*Session, error) {
	if len(symbols) == 0 {
		return nil, NewError(InvalidArgument, "at least one symbol required")
	}
	return startSession(symbols, apiToken, opts)
}

func startSession(symbols []string, apiToken string, opts Options) (*Session, error) {
	for _, sym := range symbols {
		if strings.TrimSpace(sym) == "" {
			return nil, ErrEmptyTicker
		}
	}
	if apiToken == "" {
		return nil, ErrEmptyToken
	}
	name := strings.Join(symbols, ",")

	f := opts.Feed
	if f == nil {
		var err error
		f, err = feed.New(feed.Config{
			Provider: opts.Provider,
			Token:    apiToken,
			BaseURL:  opts.BaseURL,
		})
		if err != nil {
			return nil, wrapError(InvalidArgument, "configure feed", err)
		}
	}

	kind := opts.Stream
	if kind == "" {
		kind = feed.Trades
	}
	endpoint, err := f.Endpoint(kind)
	if err != nil {
		return nil, wrapError(InvalidArgument, "resolve endpoint", err)
	}
	subFrame, err := f.Subscription(symbols)
	if err != nil {
		return nil, wrapError(ProtocolError, "build subscription frame", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(
		zap.String("ticker", name),
		zap.String("provider", f.Provider()),
		zap.String("stream", string(kind)))

	snk := opts.Sink
	if snk == nil {
		snk = sink.NewLog(logger)
	}
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	handshakeTimeout := opts.HandshakeTimeout
	if handshakeTimeout <= 0 {
		handshakeTimeout = DefaultHandshakeTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ticker:               name,
		endpoint:             endpoint,
		subFrame:             subFrame,
		feed:                 f,
		sink:                 snk,
		logger:               logger,
		metrics:              opts.Metrics,
		onEvent:              opts.OnEvent,
		queue:                make(chan []byte, queueSize),
		policy:               opts.Policy,
		terminateOnSinkError: opts.TerminateOnSinkError,
		backoffBase:          opts.BackoffBase,
		backoffMax:           opts.BackoffMax,
		graceWindow:          resolveGraceWindow(opts.GraceWindow),
		handshakeTimeout:     handshakeTimeout,
		ctx:                  ctx,
		cancel:               cancel,
		done:                 make(chan struct{}),
	}
	s.state.Store(int32(Created))

	if s.metrics != nil {
		s.metrics.SessionsStarted.Inc()
		s.metrics.ActiveSessions.Inc()
	}

	s.wg.Add(2)
	go s.run()
	go s.deliver()
	go func() {
		s.wg.Wait()
		s.setState(Terminated)
		s.emit(Event{Type: EventTerminated})
		if s.metrics != nil {
			s.metrics.ActiveSessions.Dec()
		}
		s.logger.Info("session terminated")
		close(s.done)
	}()
	return s, nil
}

// resolveGraceWindow maps the Options convention onto the internal one,
// where zero means the warning is off.
func resolveGraceWindow(d time.Duration) time.Duration {
	switch {
	case d == 0:
		return DefaultGraceWindow
	case d < 0:
		return 0
	default:
		return d
	}
}

func (s *Session) Ticker() string { return s.ticker }

// Status reports the current lifecycle state.
func (s *Session) Status() State { return State(s.state.Load()) }

// Cancel asks the session to stop. The worker observes the signal at its next
// suspension point; Done is closed once everything has unwound.
func (s *Session) Cancel() { s.cancel() }

// Done is closed when the session reaches Terminated and no further sink
// deliveries can occur.
func (s *Session) Done() <-chan struct{} { return s.done }

// Dropped returns how many frames the bounded queue has evicted.
func (s *Session) Dropped() uint64 { return s.dropped.Load() }

func (s *Session) setState(st State) { s.state.Store(int32(st)) }

func (s *Session) emit(ev Event) {
	if s.onEvent == nil {
		return
	}
	ev.Ticker = s.ticker
	ev.State = s.Status()
	s.onEvent(ev)
}

// run owns the connection: one connect, one subscribe, one receive loop at a
// time, strictly sequential. Connection-level failures never end the session;
// they feed the backoff cycle until Cancel.
func (s *Session) run() {
	defer s.wg.Done()
	defer close(s.queue)
	defer s.setState(Closing)

	attempt := 0
	for s.ctx.Err() == nil {
		s.setState(Connecting)
		conn, err := s.connect()
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.backoffWait(&attempt, wrapError(ConnectionError, "connect", err))
			continue
		}
		s.logger.Info("connected")
		s.emit(Event{Type: EventConnected})

		// Subscription state does not survive a dropped connection, so the
		// frame is re-sent on every (re)connect. Fire-and-forget: the feed
		// may or may not ack; the grace timer in readLoop covers silence.
		s.setState(Subscribing)
		if err := conn.WriteMessage(websocket.TextMessage, s.subFrame); err != nil {
			conn.Close()
			if s.ctx.Err() != nil {
				return
			}
			s.backoffWait(&attempt, wrapError(ConnectionError, "send subscribe", err))
			continue
		}
		s.setState(Streaming)
		s.emit(Event{Type: EventSubscribed})
		attempt = 0

		err = s.readLoop(conn)
		conn.Close()
		if s.ctx.Err() != nil {
			return
		}
		s.backoffWait(&attempt, wrapError(TransportClosed, "receive", err))
	}
}

func (s *Session) connect() (*websocket.Conn, error) {
	dialer := &websocket.Dialer{HandshakeTimeout: s.handshakeTimeout}
	conn, resp, err := dialer.DialContext(s.ctx, s.endpoint, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (s *Session) readLoop(conn *websocket.Conn) error {
	// Cancellation closes the connection to unblock ReadMessage.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-s.ctx.Done():
			conn.Close()
		case <-watchDone:
		}
	}()

	var grace *time.Timer
	if s.graceWindow > 0 {
		grace = time.AfterFunc(s.graceWindow, func() {
			s.logger.Warn("no data received after subscribing",
				zap.Duration("window", s.graceWindow))
			s.emit(Event{Type: EventNoData})
		})
		defer grace.Stop()
	}

	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		// Ping/pong and close are handled inside the transport; anything
		// surfacing here carries a payload.
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		if grace != nil {
			grace.Stop()
			grace = nil
		}
		if s.metrics != nil {
			s.metrics.FramesReceived.Inc()
		}
		if s.feed.Classify(payload) == feed.ClassStatus {
			s.logger.Info("feed status frame", zap.ByteString("payload", payload))
			if s.metrics != nil {
				s.metrics.StatusFrames.Inc()
			}
			s.emit(Event{Type: EventStatusFrame, Payload: payload})
			continue
		}
		s.enqueue(payload)
	}
}

func (s *Session) enqueue(payload []byte) {
	if s.policy == Block {
		select {
		case s.queue <- payload:
		case <-s.ctx.Done():
		}
		return
	}
	for {
		select {
		case s.queue <- payload:
			return
		default:
		}
		select {
		case <-s.queue:
			s.dropped.Add(1)
			if s.metrics != nil {
				s.metrics.FramesDropped.Inc()
			}
			s.logger.Warn("delivery queue full, dropped oldest frame")
			s.emit(Event{Type: EventFrameDropped})
		default:
		}
	}
}

func (s *Session) deliver() {
	defer s.wg.Done()
	for payload := range s.queue {
		if s.ctx.Err() != nil {
			return
		}
		frame := sink.Frame{Symbol: s.ticker, Payload: payload, Received: time.Now()}
		if err := s.sink.Deliver(s.ctx, frame); err != nil {
			if s.ctx.Err() != nil {
				return
			}
			serr := wrapError(SinkError, "deliver frame", err)
			s.logger.Error("sink rejected frame", zap.Error(serr))
			if s.metrics != nil {
				s.metrics.SinkErrors.Inc()
			}
			s.emit(Event{Type: EventSinkError, Err: serr})
			if s.terminateOnSinkError {
				s.cancel()
				return
			}
			continue
		}
		if s.metrics != nil {
			s.metrics.FramesDelivered.Inc()
		}
	}
}

func (s *Session) backoffWait(attempt *int, cause error) {
	delay := jitteredDelay(s.backoffBase, s.backoffMax, *attempt)
	s.setState(Backoff)
	if s.metrics != nil {
		s.metrics.Reconnects.Inc()
	}
	s.logger.Warn("stream degraded, backing off",
		zap.Int("attempt", *attempt),
		zap.Duration("delay", delay),
		zap.Error(cause))
	s.emit(Event{Type: EventBackoff, Err: cause, Attempt: *attempt, Delay: delay})
	*attempt++

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-s.ctx.Done():
	}
}
