package feed

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind selects which of a provider's endpoints a session streams from.
type Kind string

const (
	Trades Kind = "trades"
	Quotes Kind = "quotes"
	Crypto Kind = "crypto"
)

// ParseKind maps a configuration string to a stream Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case Trades:
		return Trades, nil
	case Quotes:
		return Quotes, nil
	case Crypto:
		return Crypto, nil
	case "":
		return Trades, nil
	default:
		return "", fmt.Errorf("unknown stream type: %q", s)
	}
}

// Class is the coarse category of an inbound frame. The session only needs to
// know whether a frame is data to forward or provider chatter to report; it
// never inspects tick fields.
type Class int

const (
	ClassData Class = iota
	ClassStatus
)

// Feed abstracts one streaming provider: where to connect, what to send to
// subscribe, and how to tell data frames from provider status frames.
type Feed interface {
	Provider() string
	// Endpoint returns the full connection URL for the given stream kind,
	// credential included. Callers must never log the returned value.
	Endpoint(kind Kind) (string, error)
	// Subscription builds the outbound subscribe frame for the symbols.
	Subscription(symbols []string) ([]byte, error)
	// Classify inspects a raw inbound payload.
	Classify(payload []byte) Class
}

// Config selects and parameterizes a provider.
type Config struct {
	Provider string
	Token    string
	// BaseURL overrides the provider's default endpoint base. Mostly useful
	// for pointing a session at a local test server.
	BaseURL string
}

// New returns the Feed implementation for the configured provider.
func New(cfg Config) (Feed, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "eodhd":
		return NewEODHD(cfg.Token, cfg.BaseURL), nil
	default:
		return nil, fmt.Errorf("unknown streaming provider: %q", cfg.Provider)
	}
}

// subscribeFrame is the wire shape shared by the providers this package
// knows about: {"action":"subscribe","symbols":"A,B"}.
type subscribeFrame struct {
	Action  string `json:"action"`
	Symbols string `json:"symbols"`
}

// EncodeSubscription marshals a subscribe frame. Going through the encoder
// (rather than formatting the string by hand) keeps symbols containing quotes
// or backslashes from producing malformed JSON.
func EncodeSubscription(symbols []string) ([]byte, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no symbols to subscribe")
	}
	frame, err := json.Marshal(subscribeFrame{
		Action:  "subscribe",
		Symbols: strings.Join(symbols, ","),
	})
	if err != nil {
		return nil, fmt.Errorf("encode subscribe frame: %w", err)
	}
	return frame, nil
}
