package sink

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeKafkaWriter struct {
	mu   sync.Mutex
	msgs []kafkaGo.Message
	err  error
}

func (f *fakeKafkaWriter) WriteMessages(_ context.Context, msgs ...kafkaGo.Message) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func TestKafkaSinkDeliver(t *testing.T) {
	writer := &fakeKafkaWriter{}
	k := NewKafka(writer)

	received := time.UnixMilli(1678886400123)
	frame := Frame{
		Symbol:   "AAPL.US",
		Payload:  []byte(`{"s":"AAPL.US","p":150.2}`),
		Received: received,
	}
	require.NoError(t, k.Deliver(context.Background(), frame))

	require.Len(t, writer.msgs, 1)
	msg := writer.msgs[0]
	assert.Equal(t, "AAPL.US", string(msg.Key), "messages must be keyed by symbol")
	assert.Equal(t, `{"s":"AAPL.US","p":150.2}`, string(msg.Value))
	assert.Equal(t, received, msg.Time)
}

func TestKafkaSinkDeliverError(t *testing.T) {
	cause := errors.New("broker unreachable")
	k := NewKafka(&fakeKafkaWriter{err: cause})

	err := k.Deliver(context.Background(), Frame{Symbol: "AAPL.US"})
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
}

func TestRedisSinkPublishes(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	ctx := context.Background()
	pubsub := client.Subscribe(ctx, "prices.AAPL.US")
	t.Cleanup(func() { pubsub.Close() })
	_, err := pubsub.Receive(ctx) // wait for the subscription to settle
	require.NoError(t, err)

	r := NewRedis(client, "")
	payload := `{"s":"AAPL.US","p":150.2}`
	require.NoError(t, r.Deliver(ctx, Frame{Symbol: "AAPL.US", Payload: []byte(payload)}))

	recvCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	msg, err := pubsub.ReceiveMessage(recvCtx)
	require.NoError(t, err)
	assert.Equal(t, "prices.AAPL.US", msg.Channel)
	assert.Equal(t, payload, msg.Payload)
}

func TestRedisSinkChannelPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	ctx := context.Background()
	pubsub := client.Subscribe(ctx, "ticks.MSFT.US")
	t.Cleanup(func() { pubsub.Close() })
	_, err := pubsub.Receive(ctx)
	require.NoError(t, err)

	r := NewRedis(client, "ticks.")
	require.NoError(t, r.Deliver(ctx, Frame{Symbol: "MSFT.US", Payload: []byte("x")}))

	recvCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	msg, err := pubsub.ReceiveMessage(recvCtx)
	require.NoError(t, err)
	assert.Equal(t, "ticks.MSFT.US", msg.Channel)
}

func TestMultiSink(t *testing.T) {
	cause := errors.New("first sink down")
	failing := NewKafka(&fakeKafkaWriter{err: cause})
	recording := &fakeKafkaWriter{}

	m := Multi{failing, NewKafka(recording)}
	err := m.Deliver(context.Background(), Frame{Symbol: "AAPL.US", Payload: []byte("x")})

	require.Error(t, err)
	assert.ErrorIs(t, err, cause, "first failure wins")
	assert.Len(t, recording.msgs, 1, "later sinks still see the frame")
}

func TestChanSink(t *testing.T) {
	c := make(Chan, 1)
	frame := Frame{Symbol: "AAPL.US", Payload: []byte("x")}
	require.NoError(t, c.Deliver(context.Background(), frame))
	assert.Equal(t, frame, <-c)

	// Full channel + cancelled context must not hang.
	c <- frame
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Deliver(ctx, frame)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLogSink(t *testing.T) {
	l := NewLog(zaptest.NewLogger(t))
	assert.NoError(t, l.Deliver(context.Background(), Frame{
		Symbol:  "AAPL.US",
		Payload: []byte(`{"s":"AAPL.US","p":150.2}`),
	}))
}
