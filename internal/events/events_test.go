package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/lumen-studio/checkout-service/internal/models"
)

func TestEventTypeFor(t *testing.T) {
	tests := []struct {
		kind     models.OutcomeKind
		expected EventType
	}{
		{models.OutcomeConfirmed, EventTypeCheckoutConfirmed},
		{models.OutcomeDegraded, EventTypeCheckoutDegraded},
		{models.OutcomeCancelled, EventTypeCheckoutCancelled},
		{models.OutcomeFailed, EventTypeCheckoutFailed},
	}

	for _, tt := range tests {
		if got := eventTypeFor(tt.kind); got != tt.expected {
			t.Errorf("eventTypeFor(%s) = %s, expected %s", tt.kind, got, tt.expected)
		}
	}
}

func TestMockPublisher_RecordsEvents(t *testing.T) {
	pub := NewMockAnalyticsPublisher()

	session := &models.CheckoutSession{ID: "cs_1", Reference: "sess_123"}
	outcome := &models.ReconciliationOutcome{
		Kind:   models.OutcomeDegraded,
		Reason: "lookup_failed",
	}

	if err := pub.PublishOutcome(context.Background(), session, outcome); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(pub.Events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(pub.Events))
	}
	if pub.Events[0].Type != EventTypeCheckoutDegraded {
		t.Errorf("Expected type checkout.degraded, got %s", pub.Events[0].Type)
	}
	if pub.Events[0].Reference != "sess_123" {
		t.Errorf("Expected reference sess_123, got %s", pub.Events[0].Reference)
	}
}

func TestOrderEvent_Decoding(t *testing.T) {
	raw := []byte(`{
		"id": "evt_1",
		"type": "order.confirmed",
		"reference": "sess_123",
		"order_number": "ORD-2024-001",
		"timestamp": "2024-05-01T12:00:00Z"
	}`)

	var event OrderEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		t.Fatalf("Failed to decode event: %v", err)
	}

	if event.Type != OrderEventConfirmed {
		t.Errorf("Expected type order.confirmed, got %s", event.Type)
	}
	if event.Reference != "sess_123" {
		t.Errorf("Expected reference sess_123, got %s", event.Reference)
	}
	if event.Timestamp.IsZero() {
		t.Error("Expected a parsed timestamp")
	}
}
