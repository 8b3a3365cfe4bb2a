package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	kafkaGo "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"stockops-streamer/internal/config"
	"stockops-streamer/internal/kafka"
	"stockops-streamer/internal/metrics"
	"stockops-streamer/internal/sink"
	"stockops-streamer/internal/stream"
)

func main() {
	configPath := flag.String("config", "config/config.yml", "path to configuration file")
	flag.Parse()

	// - Load Configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	logger, err := newLogger(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Error building logger: %v", err)
	}
	defer logger.Sync()

	// - Setup metrics
	var m *metrics.Metrics
	if cfg.Metrics.Addr != "" {
		m = metrics.New(prometheus.DefaultRegisterer)
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.Metrics.Addr, nil); err != nil {
				logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	// - Setup sinks
	snk, cleanup, err := buildSink(cfg, logger)
	if err != nil {
		logger.Fatal("failed to build sink", zap.Error(err))
	}
	defer cleanup()

	// - Start sessions: one per symbol, or a single grouped subscription
	opts, err := cfg.SessionOptions()
	if err != nil {
		logger.Fatal("invalid session options", zap.Error(err))
	}
	opts.Sink = snk
	opts.Metrics = m

	manager := stream.NewManager(logger, opts)
	if cfg.Feed.Grouped {
		if _, err := manager.StartGroup(cfg.Symbols, cfg.Feed.Token); err != nil {
			logger.Fatal("failed to start grouped stream",
				zap.Strings("symbols", cfg.Symbols), zap.Error(err))
		}
		logger.Info("grouped stream started", zap.Strings("symbols", cfg.Symbols))
	} else {
		for _, symbol := range cfg.Symbols {
			if _, err := manager.StartStream(symbol, cfg.Feed.Token); err != nil {
				logger.Fatal("failed to start stream",
					zap.String("symbol", symbol), zap.Error(err))
			}
			logger.Info("stream started", zap.String("symbol", symbol))
		}
	}

	// - Wait for shutdown signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	<-interrupt
	logger.Info("received interrupt, stopping streams")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := manager.StopAll(ctx); err != nil {
		logger.Error("shutdown incomplete", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

// buildSink wires the configured delivery targets: Kafka and/or Redis
// pub/sub, falling back to the log sink when neither is configured.
func buildSink(cfg *config.Config, logger *zap.Logger) (sink.Sink, func(), error) {
	var (
		sinks    sink.Multi
		cleanups []func()
	)
	cleanup := func() {
		for _, fn := range cleanups {
			fn()
		}
	}

	if cfg.Kafka.BrokerURL != "" {
		// Retry loop to wait for Kafka to be truly ready.
		for {
			err := kafka.EnsureTopic(cfg.Kafka.BrokerURL, cfg.Kafka.Topic, logger)
			if err == nil {
				break
			}
			logger.Warn("could not ensure kafka topic, retrying in 2s", zap.Error(err))
			time.Sleep(2 * time.Second)
		}

		writer := &kafkaGo.Writer{
			Addr:     kafkaGo.TCP(cfg.Kafka.BrokerURL),
			Topic:    cfg.Kafka.Topic,
			Balancer: &kafkaGo.LeastBytes{},
		}
		cleanups = append(cleanups, func() {
			if err := writer.Close(); err != nil {
				logger.Error("failed to close kafka writer", zap.Error(err))
			}
		})
		sinks = append(sinks, sink.NewKafka(writer))
		logger.Info("kafka sink enabled", zap.String("topic", cfg.Kafka.Topic))
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cleanups = append(cleanups, func() {
			if err := client.Close(); err != nil {
				logger.Error("failed to close redis client", zap.Error(err))
			}
		})
		sinks = append(sinks, sink.NewRedis(client, cfg.Redis.ChannelPrefix))
		logger.Info("redis sink enabled", zap.String("addr", cfg.Redis.Addr))
	}

	if len(sinks) == 0 {
		return sink.NewLog(logger), cleanup, nil
	}
	if len(sinks) == 1 {
		return sinks[0], cleanup, nil
	}
	return sinks, cleanup, nil
}
