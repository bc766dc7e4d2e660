package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/lumen-studio/checkout-service/internal/config"
	"github.com/lumen-studio/checkout-service/internal/models"
)

// EventType tags an analytics event.
type EventType string

const (
	EventTypeCheckoutConfirmed EventType = "checkout.confirmed"
	EventTypeCheckoutDegraded  EventType = "checkout.degraded"
	EventTypeCheckoutCancelled EventType = "checkout.cancelled"
	EventTypeCheckoutFailed    EventType = "checkout.failed"
)

// ItemSummary is the per-line summary included in analytics payloads.
type ItemSummary struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

// OutcomeEvent is the analytics payload emitted once per terminal outcome.
type OutcomeEvent struct {
	ID        string        `json:"id"`
	Type      EventType     `json:"type"`
	SessionID string        `json:"session_id"`
	Reference string        `json:"reference,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	Total     int64         `json:"total"`
	Currency  string        `json:"currency,omitempty"`
	Items     []ItemSummary `json:"items,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// KafkaAnalyticsPublisher emits outcome events to the analytics topic.
// Strictly one-way: a publish failure is the caller's to log and ignore.
type KafkaAnalyticsPublisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewKafkaAnalyticsPublisher creates a Kafka-based analytics publisher.
func NewKafkaAnalyticsPublisher(cfg config.KafkaConfig, logger *zap.Logger) *KafkaAnalyticsPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.OutcomesTopic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
	}

	return &KafkaAnalyticsPublisher{
		writer: writer,
		logger: logger,
	}
}

// PublishOutcome emits the terminal outcome for a session. Totals come
// from the authoritative order when present, so analytics and UI report
// the same numbers.
func (p *KafkaAnalyticsPublisher) PublishOutcome(ctx context.Context, session *models.CheckoutSession, outcome *models.ReconciliationOutcome) error {
	event := &OutcomeEvent{
		ID:        "evt_" + uuid.NewString(),
		Type:      eventTypeFor(outcome.Kind),
		SessionID: session.ID,
		Reference: session.Reference,
		Reason:    outcome.Reason,
		Timestamp: outcome.ResolvedAt,
	}

	if outcome.Order != nil {
		event.Total = outcome.Order.Total.Amount
		event.Currency = outcome.Order.Total.Currency
		for _, item := range outcome.Order.Items {
			event.Items = append(event.Items, ItemSummary{
				Name:      item.Name,
				Quantity:  item.Quantity,
				UnitPrice: item.UnitPrice.Amount,
			})
		}
	} else if session.Totals != nil {
		event.Total = session.Totals.Total.Amount
		event.Currency = session.Totals.Total.Currency
		for _, item := range session.Items {
			event.Items = append(event.Items, ItemSummary{
				Name:      item.Name,
				Quantity:  item.Quantity,
				UnitPrice: item.UnitPrice.Amount,
			})
		}
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(session.ID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish outcome event",
			zap.String("event_id", event.ID),
			zap.String("session_id", session.ID),
			zap.Error(err))
		return err
	}

	p.logger.Info("Outcome event published",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.String("session_id", session.ID))

	return nil
}

// Close closes the Kafka writer.
func (p *KafkaAnalyticsPublisher) Close() error {
	p.logger.Info("Closing analytics publisher")
	return p.writer.Close()
}

func eventTypeFor(kind models.OutcomeKind) EventType {
	switch kind {
	case models.OutcomeConfirmed:
		return EventTypeCheckoutConfirmed
	case models.OutcomeDegraded:
		return EventTypeCheckoutDegraded
	case models.OutcomeCancelled:
		return EventTypeCheckoutCancelled
	default:
		return EventTypeCheckoutFailed
	}
}

// MockAnalyticsPublisher is an in-memory publisher for tests.
type MockAnalyticsPublisher struct {
	Events []*OutcomeEvent
}

func NewMockAnalyticsPublisher() *MockAnalyticsPublisher {
	return &MockAnalyticsPublisher{
		Events: make([]*OutcomeEvent, 0),
	}
}

func (m *MockAnalyticsPublisher) PublishOutcome(ctx context.Context, session *models.CheckoutSession, outcome *models.ReconciliationOutcome) error {
	m.Events = append(m.Events, &OutcomeEvent{
		Type:      eventTypeFor(outcome.Kind),
		SessionID: session.ID,
		Reference: session.Reference,
		Reason:    outcome.Reason,
	})
	return nil
}
