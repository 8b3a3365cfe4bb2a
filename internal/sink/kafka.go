package sink

import (
	"context"
	"fmt"

	kafkaGo "github.com/segmentio/kafka-go"
)

// KafkaWriter is the slice of kafka-go's Writer this sink needs. Tests swap
// in a recording fake.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkaGo.Message) error
}

// Kafka publishes frames to a topic, keyed by symbol so one symbol's ticks
// land on one partition in order.
type Kafka struct {
	writer KafkaWriter
}

func NewKafka(writer KafkaWriter) *Kafka {
	return &Kafka{writer: writer}
}

func (k *Kafka) Deliver(ctx context.Context, f Frame) error {
	err := k.writer.WriteMessages(ctx, kafkaGo.Message{
		Key:   []byte(f.Symbol),
		Value: f.Payload,
		Time:  f.Received,
	})
	if err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}
