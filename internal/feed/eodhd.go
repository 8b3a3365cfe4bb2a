package feed

import (
	"encoding/json"
	"fmt"
	"net/url"
)

// DefaultEODHDBaseURL is the production EODHD websocket base. Stream kinds map
// onto its sub-paths (us, us-quote, crypto).
const DefaultEODHDBaseURL = "wss://ws.eodhistoricaldata.com/ws"

// EODHD streams real-time US trades, US quotes, and crypto ticks.
type EODHD struct {
	token   string
	baseURL string
}

func NewEODHD(token, baseURL string) *EODHD {
	if baseURL == "" {
		baseURL = DefaultEODHDBaseURL
	}
	return &EODHD{token: token, baseURL: baseURL}
}

func (e *EODHD) Provider() string { return "eodhd" }

func (e *EODHD) Endpoint(kind Kind) (string, error) {
	var path string
	switch kind {
	case Trades:
		path = "us"
	case Quotes:
		path = "us-quote"
	case Crypto:
		path = "crypto"
	default:
		return "", fmt.Errorf("eodhd: unsupported stream kind: %q", kind)
	}

	u, err := url.Parse(e.baseURL)
	if err != nil {
		return "", fmt.Errorf("eodhd: parse base url: %w", err)
	}
	u = u.JoinPath(path)

	// The token rides in the query string, so it has to be escaped; tokens
	// can contain reserved characters.
	q := url.Values{}
	q.Set("api_token", e.token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (e *EODHD) Subscription(symbols []string) ([]byte, error) {
	return EncodeSubscription(symbols)
}

// statusFrame matches the handshake/status messages EODHD emits after a
// subscribe, e.g. {"status_code":200,"message":"Authorized"}.
type statusFrame struct {
	StatusCode *int    `json:"status_code"`
	Message    *string `json:"message"`
}

func (e *EODHD) Classify(payload []byte) Class {
	var sf statusFrame
	if err := json.Unmarshal(payload, &sf); err != nil {
		// Not a JSON object; treat as data and let the sink decide.
		return ClassData
	}
	if sf.StatusCode != nil && sf.Message != nil {
		return ClassStatus
	}
	return ClassData
}
