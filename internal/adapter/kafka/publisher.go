// Package kafka exports scored cells to a Kafka topic for downstream
// dashboard consumers. The export is fire-and-forget transport: the service
// itself keeps no prediction history.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/invasive-risk-service/internal/config"
	"github.com/couchcryptid/invasive-risk-service/internal/domain"
)

// Publisher produces scored-cell messages. A Publisher built with the
// feature disabled is a safe no-op.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a producer for the configured topic, or a disabled
// no-op publisher when the export feature is off.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	if !cfg.KafkaEnabled {
		return &Publisher{logger: logger}
	}
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// Enabled reports whether the publisher will actually produce.
func (p *Publisher) Enabled() bool { return p.writer != nil }

// Publish serializes and produces one message per scored cell in a single
// WriteMessages call. No-op when disabled or the batch is empty.
func (p *Publisher) Publish(ctx context.Context, cells []domain.ScoredCell) error {
	if p.writer == nil || len(cells) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(cells))
	for i := range cells {
		msg, err := serializeToMessage(cells[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return p.writer.WriteMessages(ctx, msgs...)
}

// Close releases the underlying writer.
func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// serializeToMessage marshals a ScoredCell into a Kafka message keyed by
// cell ID with label and timestamp headers.
func serializeToMessage(cell domain.ScoredCell) (kafkago.Message, error) {
	data, err := json.Marshal(cell)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize scored cell: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(cell.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "risk_label", Value: []byte(cell.Label)},
			{Key: "scored_at", Value: []byte(cell.ScoredAt.Format(time.RFC3339))},
		},
	}, nil
}
