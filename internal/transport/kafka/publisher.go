// Package kafka publishes risk alerts to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/kailas-cloud/agroverse/internal/domain/hazard"
	"github.com/kailas-cloud/agroverse/internal/metrics"
)

// messageWriter is the subset of *kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Alert is the JSON payload of one published risk alert.
type Alert struct {
	AlertID         string    `json:"alert_id"`
	BatchID         string    `json:"batch_id"`
	Kind            string    `json:"kind"`
	Probability     float64   `json:"probability"`
	RiskLevel       string    `json:"risk_level"`
	ModelType       string    `json:"model_type"`
	Factors         []string  `json:"factors"`
	Recommendations []string  `json:"recommendations"`
	ForecastWindow  string    `json:"forecast_window"`
	CropType        string    `json:"crop_type"`
	Latitude        float64   `json:"latitude"`
	Longitude       float64   `json:"longitude"`
	AssessedAt      time.Time `json:"assessed_at"`
}

// Publisher produces one message per assessment of a batch.
type Publisher struct {
	writer messageWriter
	newID  func() uuid.UUID
	logger *zap.Logger
}

// NewPublisher creates a Kafka producer for the alert topic.
func NewPublisher(brokers []string, topic string, logger *zap.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	return newPublisher(w, logger)
}

func newPublisher(w messageWriter, logger *zap.Logger) *Publisher {
	return &Publisher{writer: w, newID: uuid.New, logger: logger}
}

// Publish sends every assessment in the batch in a single WriteMessages call.
// Filtering by level is the caller's job.
func (p *Publisher) Publish(ctx context.Context, batch hazard.Batch) error {
	if len(batch.Assessments) == 0 {
		return nil
	}

	msgs := make([]kafkago.Message, 0, len(batch.Assessments))
	for i := range batch.Assessments {
		msg, err := p.serialize(batch, &batch.Assessments[i])
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d alerts: %w", len(msgs), err)
	}

	for i := range batch.Assessments {
		a := &batch.Assessments[i]
		metrics.AlertsPublishedTotal.WithLabelValues(string(a.Kind()), string(a.Level())).Inc()
	}
	p.logger.Debug("Risk alerts published",
		zap.String("batch_id", batch.ID),
		zap.Int("count", len(msgs)),
	)
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

func (p *Publisher) serialize(batch hazard.Batch, a *hazard.Assessment) (kafkago.Message, error) {
	alert := Alert{
		AlertID:         p.newID().String(),
		BatchID:         batch.ID,
		Kind:            string(a.Kind()),
		Probability:     a.Probability(),
		RiskLevel:       string(a.Level()),
		ModelType:       a.Method(),
		Factors:         a.Factors(),
		Recommendations: a.Recommendations(),
		ForecastWindow:  a.ForecastWindow(),
		CropType:        batch.Features.CropType,
		Latitude:        batch.Features.Latitude,
		Longitude:       batch.Features.Longitude,
		AssessedAt:      batch.AssessedAt.UTC(),
	}

	data, err := json.Marshal(alert)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize alert: %w", err)
	}

	// Keyed by batch so every alert of one observation lands on one partition.
	return kafkago.Message{
		Key:   []byte(batch.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "hazard_kind", Value: []byte(alert.Kind)},
			{Key: "risk_level", Value: []byte(alert.RiskLevel)},
			{Key: "assessed_at", Value: []byte(alert.AssessedAt.Format(time.RFC3339))},
		},
	}, nil
}
