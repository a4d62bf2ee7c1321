package publish

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/shivanshkc/esbench/pkg/event"
)

// kafkaBatchTimeout bounds how long the writer waits to fill a batch.
// Every Publish call flushes on its own, so there is nothing to wait for.
const kafkaBatchTimeout = 5 * time.Millisecond

// messageWriter is the part of kafka.Writer used by Kafka.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes events to a Kafka (or Redpanda) cluster. The stream name is
// used as the topic.
type Kafka struct {
	writer messageWriter
}

// NewKafka returns a Kafka publisher for the given comma-separated brokers.
func NewKafka(brokers string) (*Kafka, error) {
	var addrs []string
	for _, broker := range strings.Split(brokers, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			addrs = append(addrs, broker)
		}
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}

	return &Kafka{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(addrs...),
			RequiredAcks:           kafka.RequireAll,
			Balancer:               &kafka.Hash{},
			BatchTimeout:           kafkaBatchTimeout,
			AllowAutoTopicCreation: true,
		},
	}, nil
}

// Publish writes all events of the call in one request. The stream name is
// the message key as well, so the events land on one partition in order.
func (p *Kafka) Publish(ctx context.Context, stream string, events []event.Event) error {
	messages := make([]kafka.Message, len(events))
	for i, e := range events {
		data, metadata, err := encode(e)
		if err != nil {
			return err
		}

		headers := []kafka.Header{{Key: "type", Value: []byte(e.Type)}}
		if metadata != nil {
			headers = append(headers, kafka.Header{Key: "metadata", Value: metadata})
		}

		messages[i] = kafka.Message{
			Topic:   stream,
			Key:     []byte(stream),
			Value:   data,
			Headers: headers,
			Time:    time.Now(),
		}
	}

	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		return fmt.Errorf("failed to write messages: %w", err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *Kafka) Close() error {
	return p.writer.Close()
}
