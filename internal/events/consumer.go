package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/lumen-studio/checkout-service/internal/config"
)

// OrderEventType tags an event from the backend order service.
type OrderEventType string

const (
	OrderEventConfirmed OrderEventType = "order.confirmed"
	OrderEventCancelled OrderEventType = "order.cancelled"
)

// OrderEvent is the order service's event envelope.
type OrderEvent struct {
	ID          string          `json:"id"`
	Type        OrderEventType  `json:"type"`
	Reference   string          `json:"reference"`
	OrderNumber string          `json:"order_number"`
	Data        json.RawMessage `json:"data,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}

// LateConfirmer upgrades journaled outcomes when the backend confirms an
// order after reconciliation already degraded.
type LateConfirmer interface {
	MarkConfirmed(ctx context.Context, reference, orderNumber string) error
}

// KafkaOrderConsumer listens for backend order events. Reconciliation is
// strictly one attempt, so an order confirmed after the customer already
// saw the degraded screen is resolved here: the journal row is upgraded so
// support sees the real state when the customer quotes their reference.
type KafkaOrderConsumer struct {
	reader  *kafka.Reader
	journal LateConfirmer
	logger  *zap.Logger
	stopCh  chan struct{}
}

// NewKafkaOrderConsumer creates a Kafka-based order event consumer.
func NewKafkaOrderConsumer(cfg config.KafkaConfig, journal LateConfirmer, logger *zap.Logger) *KafkaOrderConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.OrdersTopic,
		GroupID:  cfg.ConsumerGroup,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  time.Second,
	})

	return &KafkaOrderConsumer{
		reader:  reader,
		journal: journal,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}
}

// Start begins consuming events. Blocks until the context is cancelled or
// Stop is called.
func (c *KafkaOrderConsumer) Start(ctx context.Context) error {
	c.logger.Info("Starting order event consumer")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			c.logger.Info("Order event consumer stopped")
			return nil
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				c.logger.Error("Failed to read message", zap.Error(err))
				continue
			}

			c.handleMessage(ctx, msg)
		}
	}
}

// Stop stops the consumer.
func (c *KafkaOrderConsumer) Stop() {
	close(c.stopCh)
	c.reader.Close()
}

func (c *KafkaOrderConsumer) handleMessage(ctx context.Context, msg kafka.Message) {
	var event OrderEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.logger.Error("Failed to unmarshal order event", zap.Error(err))
		return
	}

	switch event.Type {
	case OrderEventConfirmed:
		c.handleOrderConfirmed(ctx, &event)
	default:
		c.logger.Debug("Ignoring order event", zap.String("type", string(event.Type)))
	}
}

func (c *KafkaOrderConsumer) handleOrderConfirmed(ctx context.Context, event *OrderEvent) {
	if event.Reference == "" {
		return
	}

	c.logger.Info("Handling order confirmed event",
		zap.String("reference", event.Reference),
		zap.String("order_number", event.OrderNumber))

	if err := c.journal.MarkConfirmed(ctx, event.Reference, event.OrderNumber); err != nil {
		c.logger.Error("Failed to apply late confirmation",
			zap.String("reference", event.Reference),
			zap.Error(err))
	}
}
