package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/barbizo19/mapty/internal/observability"
)

// ErrPublisherClosed is returned by Publish after Close.
var ErrPublisherClosed = errors.New("events: publisher closed")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a single topic, keyed by workout id so
// every change to one workout lands on the same partition.
type KafkaPublisher struct {
	brokers []string
	topic   string

	mu        sync.Mutex
	writer    messageWriter
	newWriter func() messageWriter
	closed    bool
}

// NewKafkaPublisher creates a KafkaPublisher. The writer is created on first use.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	p := &KafkaPublisher{brokers: brokers, topic: topic}
	p.newWriter = func() messageWriter {
		return &kafka.Writer{
			Addr:         kafka.TCP(p.brokers...),
			Topic:        p.topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Compression:  kafka.Snappy,
			Async:        false,
		}
	}
	return p
}

// Topic returns the destination topic.
func (p *KafkaPublisher) Topic() string { return p.topic }

// Publish encodes evt as JSON and writes it synchronously.
func (p *KafkaPublisher) Publish(ctx context.Context, evt Event) error {
	writer, err := p.writerOrErr()
	if err != nil {
		return err
	}

	body, err := json.Marshal(evt)
	if err != nil {
		observability.RecordEventFailed(evt.EventType)
		return fmt.Errorf("encode %s: %w", evt.EventType, err)
	}

	key := evt.WorkoutID
	if key == "" {
		key = evt.EventID
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: body,
		Time:  evt.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(evt.EventType)},
		},
	}
	if msg.Time.IsZero() {
		msg.Time = time.Now().UTC()
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		observability.RecordEventFailed(evt.EventType)
		return fmt.Errorf("publish %s to %s: %w", evt.EventType, p.topic, err)
	}
	observability.RecordEventPublished(evt.EventType)
	return nil
}

func (p *KafkaPublisher) writerOrErr() (messageWriter, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPublisherClosed
	}
	if p.writer == nil {
		p.writer = p.newWriter()
	}
	return p.writer, nil
}

// Close releases the writer. Further Publish calls fail with ErrPublisherClosed.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	if p.writer == nil {
		return nil
	}
	err := p.writer.Close()
	p.writer = nil
	return err
}
