package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"stockops-streamer/internal/feed"
	"stockops-streamer/internal/stream"
)

// Config is the top-level struct that holds all configuration.
type Config struct {
	Feed     FeedConfig     `yaml:"feed"`
	Symbols  []string       `yaml:"subscribed_symbols"`
	Delivery DeliveryConfig `yaml:"delivery"`
	Backoff  BackoffConfig  `yaml:"backoff"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// FeedConfig selects the provider and stream. The token can come from the
// file or from the EODHD_API_TOKEN environment variable (the env var wins).
type FeedConfig struct {
	Provider string `yaml:"provider"`
	Token    string `yaml:"token"`
	Stream   string `yaml:"stream"`  // trades | quotes | crypto
	URL      string `yaml:"url"`     // optional base URL override
	Grouped  bool   `yaml:"grouped"` // one session for all symbols
}

// DeliveryConfig bounds the per-session frame queue.
type DeliveryConfig struct {
	BufferSize          int    `yaml:"buffer_size"`
	Policy              string `yaml:"policy"` // drop-oldest | block
	GraceWindowSeconds  int    `yaml:"grace_window_seconds"`
	TerminateOnSinkFail bool   `yaml:"terminate_on_sink_fail"`
}

type BackoffConfig struct {
	BaseSeconds int `yaml:"base_seconds"`
	MaxSeconds  int `yaml:"max_seconds"`
}

// KafkaConfig holds the configuration for the Kafka sink. Empty broker_url
// disables it.
type KafkaConfig struct {
	BrokerURL string `yaml:"broker_url"`
	Topic     string `yaml:"topic"`
}

// RedisConfig holds the configuration for the Redis pub/sub sink. Empty addr
// disables it.
type RedisConfig struct {
	Addr          string `yaml:"addr"`
	Password      string `yaml:"password"`
	DB            int    `yaml:"db"`
	ChannelPrefix string `yaml:"channel_prefix"`
}

// MetricsConfig enables the Prometheus endpoint. Empty addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// LoadConfig reads the configuration file from the given path, applies an
// optional .env file and environment overrides, and validates the result.
func LoadConfig(path string) (*Config, error) {
	// Token lives in .env during development; missing file is fine.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	if token := os.Getenv("EODHD_API_TOKEN"); token != "" {
		cfg.Feed.Token = token
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Feed.Stream == "" {
		c.Feed.Stream = string(feed.Trades)
	}
	if c.Delivery.BufferSize <= 0 {
		c.Delivery.BufferSize = stream.DefaultQueueSize
	}
	if c.Delivery.Policy == "" {
		c.Delivery.Policy = "drop-oldest"
	}
	// Negative passes through and disables the no-data warning.
	if c.Delivery.GraceWindowSeconds == 0 {
		c.Delivery.GraceWindowSeconds = int(stream.DefaultGraceWindow / time.Second)
	}
	if c.Backoff.BaseSeconds <= 0 {
		c.Backoff.BaseSeconds = int(stream.DefaultBackoffBase / time.Second)
	}
	if c.Backoff.MaxSeconds <= 0 {
		c.Backoff.MaxSeconds = int(stream.DefaultBackoffMax / time.Second)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate rejects configurations that would only fail later, inside a
// running session.
func (c *Config) Validate() error {
	if c.Feed.Token == "" {
		return fmt.Errorf("feed token not set (config or EODHD_API_TOKEN)")
	}
	if len(c.Symbols) == 0 {
		return fmt.Errorf("subscribed_symbols must not be empty")
	}
	for _, s := range c.Symbols {
		if s == "" {
			return fmt.Errorf("subscribed_symbols contains an empty symbol")
		}
	}
	if _, err := feed.ParseKind(c.Feed.Stream); err != nil {
		return err
	}
	if _, err := stream.ParseDeliveryPolicy(c.Delivery.Policy); err != nil {
		return err
	}
	if c.Backoff.MaxSeconds < c.Backoff.BaseSeconds {
		return fmt.Errorf("backoff max_seconds (%d) below base_seconds (%d)",
			c.Backoff.MaxSeconds, c.Backoff.BaseSeconds)
	}
	if c.Kafka.BrokerURL != "" && c.Kafka.Topic == "" {
		return fmt.Errorf("kafka topic required when broker_url is set")
	}
	return nil
}

// SessionOptions translates the config into stream options. The sink is wired
// separately by the caller.
func (c *Config) SessionOptions() (stream.Options, error) {
	kind, err := feed.ParseKind(c.Feed.Stream)
	if err != nil {
		return stream.Options{}, err
	}
	policy, err := stream.ParseDeliveryPolicy(c.Delivery.Policy)
	if err != nil {
		return stream.Options{}, err
	}
	return stream.Options{
		Provider:             c.Feed.Provider,
		BaseURL:              c.Feed.URL,
		Stream:               kind,
		QueueSize:            c.Delivery.BufferSize,
		Policy:               policy,
		TerminateOnSinkError: c.Delivery.TerminateOnSinkFail,
		BackoffBase:          time.Duration(c.Backoff.BaseSeconds) * time.Second,
		BackoffMax:           time.Duration(c.Backoff.MaxSeconds) * time.Second,
		GraceWindow:          time.Duration(c.Delivery.GraceWindowSeconds) * time.Second,
	}, nil
}
