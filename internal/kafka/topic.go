package kafka

import (
	"fmt"
	"net"
	"strconv"

	kafkaGo "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EnsureTopic creates the tick topic if the broker does not have it yet.
// Safe to call repeatedly; creation of an existing topic is not an error.
func EnsureTopic(brokerURL, topic string, logger *zap.Logger) error {
	conn, err := kafkaGo.Dial("tcp", brokerURL)
	if err != nil {
		return fmt.Errorf("dial kafka broker: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("resolve kafka controller: %w", err)
	}

	controllerConn, err := kafkaGo.Dial("tcp",
		net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("dial kafka controller: %w", err)
	}
	defer controllerConn.Close()

	topicConfig := kafkaGo.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}
	if err := controllerConn.CreateTopics(topicConfig); err != nil {
		return fmt.Errorf("create kafka topic %q: %w", topic, err)
	}

	logger.Info("kafka topic ready", zap.String("topic", topic))
	return nil
}
