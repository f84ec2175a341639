package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/weather-etl-service/internal/config"
	"github.com/couchcryptid/weather-etl-service/internal/domain"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafkago.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher produces committed readings to a Kafka topic.
// It implements pipeline.Publisher.
type Publisher struct {
	writer messageWriter
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured readings topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.LeastBytes{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return newPublisher(w, clockwork.NewRealClock(), logger)
}

func newPublisher(w messageWriter, clock clockwork.Clock, logger *slog.Logger) *Publisher {
	return &Publisher{writer: w, clock: clock, logger: logger}
}

// Publish writes one reading as a JSON message keyed by run ID.
func (p *Publisher) Publish(ctx context.Context, reading domain.ObservedReading) error {
	msg, err := serializeToMessage(reading, p.clock.Now())
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write reading: %w", err)
	}
	p.logger.Debug("reading published", "run_id", reading.RunID)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a reading into a Kafka message.
func serializeToMessage(reading domain.ObservedReading, publishedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(reading)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize reading: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(reading.RunID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(reading.RunID)},
			{Key: "published_at", Value: []byte(publishedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
