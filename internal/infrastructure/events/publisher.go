// Package events publishes applied ledger updates to Kafka so downstream
// consumers can follow what the tagger changed.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/eshaffer321/ledger-tagger/internal/domain/ledger"
	"github.com/eshaffer321/ledger-tagger/internal/domain/retag"
	"github.com/segmentio/kafka-go"
)

// Writer is the subset of *kafka.Writer the publisher needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// UpdateEvent is the message body for one applied update.
type UpdateEvent struct {
	RunID         string                `json:"run_id"`
	TransactionID string                `json:"transaction_id"`
	Outcome       string                `json:"outcome"`
	Split         bool                  `json:"split"`
	Original      *ledger.Transaction   `json:"original"`
	Proposed      []*ledger.Transaction `json:"proposed"`
	PublishedAt   time.Time             `json:"published_at"`
}

// Publisher writes update events to one topic.
type Publisher struct {
	writer Writer
	logger *slog.Logger
	now    func() time.Time
}

// NewPublisher creates a publisher for topic on brokers.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	return NewPublisherWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}, logger)
}

// NewPublisherWithWriter creates a publisher over an existing writer.
func NewPublisherWithWriter(w Writer, logger *slog.Logger) *Publisher {
	return &Publisher{writer: w, logger: logger, now: time.Now}
}

// PublishUpdate sends one event keyed by transaction ID, so every event for
// a ledger entry lands on the same partition.
func (p *Publisher) PublishUpdate(ctx context.Context, runID string, outcome retag.Outcome, u ledger.Update) error {
	event := UpdateEvent{
		RunID:         runID,
		TransactionID: u.Original.ID,
		Outcome:       string(outcome),
		Split:         u.IsSplit(),
		Original:      u.Original,
		Proposed:      u.Proposed,
		PublishedAt:   p.now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode update event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(u.Original.ID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "outcome", Value: []byte(outcome)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish update for %s: %w", u.Original.ID, err)
	}

	if p.logger != nil {
		p.logger.Debug("Published update event", "transaction_id", u.Original.ID, "run_id", runID)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
