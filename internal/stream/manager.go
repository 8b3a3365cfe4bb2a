package stream

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Manager runs multiple sessions, one per ticker, sharing default options and
// a sink. Sessions are fully independent workers; the manager only tracks
// them for lookup and shutdown.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	opts     Options
	logger   *zap.Logger
}

func NewManager(logger *zap.Logger, opts Options) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Logger == nil {
		opts.Logger = logger
	}
	return &Manager{
		sessions: make(map[string]*Session),
		opts:     opts,
		logger:   logger,
	}
}

// StartStream starts a session for the ticker using the manager's options.
// One session per ticker; a second start for the same ticker fails until the
// first terminates.
func (m *Manager) StartStream(ticker, apiToken string) (*Session, error) {
	return m.register(ticker, func() (*Session, error) {
		return StartStream(ticker, apiToken, m.opts)
	})
}

// StartGroup starts one session subscribing to every symbol at once. The
// session is registered under the comma-joined symbol list.
func (m *Manager) StartGroup(symbols []string, apiToken string) (*Session, error) {
	return m.register(strings.Join(symbols, ","), func() (*Session, error) {
		return StartGroupStream(symbols, apiToken, m.opts)
	})
}

func (m *Manager) register(key string, start func() (*Session, error)) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[key]; ok {
		return nil, wrapError(InvalidArgument, "start stream",
			fmt.Errorf("session for %q already active", key))
	}

	s, err := start()
	if err != nil {
		return nil, err
	}
	m.sessions[key] = s

	go func() {
		<-s.Done()
		m.mu.Lock()
		if m.sessions[key] == s {
			delete(m.sessions, key)
		}
		m.mu.Unlock()
	}()
	return s, nil
}

// Session returns the active session for a ticker, if any.
func (m *Manager) Session(ticker string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[ticker]
	return s, ok
}

// Sessions snapshots the active sessions.
func (m *Manager) Sessions() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// StopAll cancels every session and waits for each to terminate or for ctx to
// expire, whichever comes first.
func (m *Manager) StopAll(ctx context.Context) error {
	sessions := m.Sessions()
	m.logger.Info("stopping all streams", zap.Int("sessions", len(sessions)))

	for _, s := range sessions {
		s.Cancel()
	}
	for _, s := range sessions {
		select {
		case <-s.Done():
		case <-ctx.Done():
			return fmt.Errorf("stop streams: %w", ctx.Err())
		}
	}
	m.logger.Info("all streams stopped")
	return nil
}
