// Package kafka publishes scoring results and anomaly alerts to Kafka
// topics for downstream consumers (dashboards, alerting, warehousing).
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/livinglab/uci-engine/internal/domain"
)

// Publisher produces computed indexes and anomaly alerts to their topics.
// It implements engine.IndexSink and engine.AlertSink.
type Publisher struct {
	indexes *kafkago.Writer
	alerts  *kafkago.Writer
	clock   clockwork.Clock
	logger  *slog.Logger
}

// NewPublisher creates Kafka producers for the index and alert topics.
func NewPublisher(brokers []string, indexTopic, alertTopic string, clock clockwork.Clock, logger *slog.Logger) *Publisher {
	newWriter := func(topic string) *kafkago.Writer {
		return &kafkago.Writer{
			Addr:         kafkago.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafkago.LeastBytes{},
			RequiredAcks: kafkago.RequireAll,
		}
	}
	return &Publisher{
		indexes: newWriter(indexTopic),
		alerts:  newWriter(alertTopic),
		clock:   clock,
		logger:  logger,
	}
}

// SaveIndex publishes one computed comfort index, keyed by unit so a
// unit's scores stay ordered within a partition.
func (p *Publisher) SaveIndex(ctx context.Context, idx domain.ComputedIndex) error {
	msg, err := indexMessage(idx, p.clock.Now())
	if err != nil {
		return err
	}
	if err := p.indexes.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish index for %s/%s: %w", idx.UnitID, idx.Date, err)
	}
	return nil
}

// SaveAlert publishes one flagged anomaly result.
func (p *Publisher) SaveAlert(ctx context.Context, res domain.AnomalyResult) error {
	msg, err := alertMessage(res, p.clock.Now())
	if err != nil {
		return err
	}
	if err := p.alerts.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish alert for %s/%s: %w", res.UnitID, res.Date, err)
	}
	return nil
}

// Close closes both producers, returning the first error.
func (p *Publisher) Close() error {
	indexErr := p.indexes.Close()
	alertErr := p.alerts.Close()
	if indexErr != nil {
		return indexErr
	}
	return alertErr
}

func indexMessage(idx domain.ComputedIndex, now time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(idx)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize index for %s/%s: %w", idx.UnitID, idx.Date, err)
	}
	return kafkago.Message{
		Key:   []byte(idx.UnitID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "grade", Value: []byte(idx.Grade)},
			{Key: "computed_at", Value: []byte(now.UTC().Format(time.RFC3339))},
		},
	}, nil
}

func alertMessage(res domain.AnomalyResult, now time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(res)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize alert for %s/%s: %w", res.UnitID, res.Date, err)
	}
	return kafkago.Message{
		Key:   []byte(res.UnitID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "anomaly_flag", Value: []byte(strconv.FormatBool(res.AnomalyFlag))},
			{Key: "computed_at", Value: []byte(now.UTC().Format(time.RFC3339))},
		},
	}, nil
}
