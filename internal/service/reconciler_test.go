package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/lumen-studio/checkout-service/internal/clients"
	"github.com/lumen-studio/checkout-service/internal/models"
)

type mockOrderFetcher struct {
	lookup *clients.OrderLookup
	err    error
	calls  int
}

func (m *mockOrderFetcher) GetByReference(ctx context.Context, reference string) (*clients.OrderLookup, error) {
	m.calls++
	return m.lookup, m.err
}

func confirmableOrder() *models.Order {
	return &models.Order{
		OrderNumber: "ORD-2024-001",
		Total:       models.Money{Amount: 55000, Currency: "USD"},
		Items: []models.OrderItem{
			{Name: "Logo Design", Quantity: 1, UnitPrice: models.Money{Amount: 50000, Currency: "USD"}},
		},
		Payment: models.OrderPayment{Method: "card", TransactionID: "txn_1"},
	}
}

func TestReconcile_ConfirmedOrder(t *testing.T) {
	fetcher := &mockOrderFetcher{
		lookup: &clients.OrderLookup{Status: clients.OrderLookupCompleted, Order: confirmableOrder()},
	}
	r := NewReconciler(fetcher, 5*time.Second, zap.NewNop())

	outcome := r.Reconcile(context.Background(), "sess_123")

	if outcome.Kind != models.OutcomeConfirmed {
		t.Fatalf("Expected confirmed outcome, got %s", outcome.Kind)
	}
	if outcome.Order == nil || outcome.Order.OrderNumber != "ORD-2024-001" {
		t.Errorf("Expected order ORD-2024-001 on outcome, got %+v", outcome.Order)
	}
	if !strings.Contains(outcome.Message, "ORD-2024-001") {
		t.Errorf("Expected confirmation message to carry the order number, got %q", outcome.Message)
	}
}

func TestReconcile_LookupErrorDegrades(t *testing.T) {
	fetcher := &mockOrderFetcher{err: errors.New("connection refused")}
	r := NewReconciler(fetcher, 5*time.Second, zap.NewNop())

	outcome := r.Reconcile(context.Background(), "sess_123")

	if outcome.Kind != models.OutcomeDegraded {
		t.Fatalf("Expected degraded outcome on lookup error, got %s", outcome.Kind)
	}
	if outcome.Kind == models.OutcomeFailed {
		t.Error("A lookup failure must never be reported as a payment failure")
	}
	if outcome.Reason != ReasonLookupFailed {
		t.Errorf("Expected reason %s, got %s", ReasonLookupFailed, outcome.Reason)
	}
	if outcome.PartialReference != "sess_123" {
		t.Errorf("Expected reference sess_123 preserved, got %s", outcome.PartialReference)
	}
	if !strings.Contains(outcome.Message, "sess_123") {
		t.Errorf("Expected degraded message to quote the reference, got %q", outcome.Message)
	}
	if !strings.Contains(outcome.Message, "support") {
		t.Errorf("Expected degraded message to point at support, got %q", outcome.Message)
	}
}

func TestReconcile_SingleAttempt(t *testing.T) {
	fetcher := &mockOrderFetcher{err: errors.New("timeout")}
	r := NewReconciler(fetcher, 5*time.Second, zap.NewNop())

	r.Reconcile(context.Background(), "sess_123")

	if fetcher.calls != 1 {
		t.Errorf("Expected exactly one lookup attempt, got %d", fetcher.calls)
	}
}

func TestReconcile_UnknownReferenceCancels(t *testing.T) {
	fetcher := &mockOrderFetcher{lookup: nil, err: nil}
	r := NewReconciler(fetcher, 5*time.Second, zap.NewNop())

	outcome := r.Reconcile(context.Background(), "sess_unknown")

	if outcome.Kind != models.OutcomeCancelled {
		t.Fatalf("Expected cancelled outcome for unknown reference, got %s", outcome.Kind)
	}
	if outcome.Reason != "reference_unknown" {
		t.Errorf("Expected reason reference_unknown, got %s", outcome.Reason)
	}
}

func TestReconcile_MalformedOrderDegrades(t *testing.T) {
	order := confirmableOrder()
	order.OrderNumber = ""

	fetcher := &mockOrderFetcher{
		lookup: &clients.OrderLookup{Status: clients.OrderLookupCompleted, Order: order},
	}
	r := NewReconciler(fetcher, 5*time.Second, zap.NewNop())

	outcome := r.Reconcile(context.Background(), "sess_123")

	if outcome.Kind != models.OutcomeDegraded {
		t.Fatalf("Expected degraded outcome for malformed order, got %s", outcome.Kind)
	}
	if outcome.Reason != ReasonMalformedOrder {
		t.Errorf("Expected reason %s, got %s", ReasonMalformedOrder, outcome.Reason)
	}
}

func TestReconcile_PendingOrderDegrades(t *testing.T) {
	fetcher := &mockOrderFetcher{
		lookup: &clients.OrderLookup{Status: clients.OrderLookupPending},
	}
	r := NewReconciler(fetcher, 5*time.Second, zap.NewNop())

	outcome := r.Reconcile(context.Background(), "sess_123")

	if outcome.Kind != models.OutcomeDegraded {
		t.Fatalf("Expected degraded outcome for pending order, got %s", outcome.Kind)
	}
	if outcome.Reason != ReasonOrderPending {
		t.Errorf("Expected reason %s, got %s", ReasonOrderPending, outcome.Reason)
	}
}

func TestReconcile_DeclinedAndFailedStatuses(t *testing.T) {
	tests := []struct {
		name           string
		lookup         *clients.OrderLookup
		expectedReason string
	}{
		{
			name:           "declined with provider reason",
			lookup:         &clients.OrderLookup{Status: clients.OrderLookupDeclined, Reason: "card_declined"},
			expectedReason: "card_declined",
		},
		{
			name:           "failed without reason falls back to status",
			lookup:         &clients.OrderLookup{Status: clients.OrderLookupFailed},
			expectedReason: clients.OrderLookupFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &mockOrderFetcher{lookup: tt.lookup}
			r := NewReconciler(fetcher, 5*time.Second, zap.NewNop())

			outcome := r.Reconcile(context.Background(), "sess_123")

			if outcome.Kind != models.OutcomeFailed {
				t.Fatalf("Expected failed outcome, got %s", outcome.Kind)
			}
			if outcome.Reason != tt.expectedReason {
				t.Errorf("Expected reason %s, got %s", tt.expectedReason, outcome.Reason)
			}
		})
	}
}

func TestReconcile_CancelledStatus(t *testing.T) {
	fetcher := &mockOrderFetcher{
		lookup: &clients.OrderLookup{Status: clients.OrderLookupCancelled},
	}
	r := NewReconciler(fetcher, 5*time.Second, zap.NewNop())

	outcome := r.Reconcile(context.Background(), "sess_123")

	if outcome.Kind != models.OutcomeCancelled {
		t.Fatalf("Expected cancelled outcome, got %s", outcome.Kind)
	}
}

func TestReconcile_UnrecognizedStatusDegrades(t *testing.T) {
	fetcher := &mockOrderFetcher{
		lookup: &clients.OrderLookup{Status: "archived"},
	}
	r := NewReconciler(fetcher, 5*time.Second, zap.NewNop())

	outcome := r.Reconcile(context.Background(), "sess_123")

	if outcome.Kind != models.OutcomeDegraded {
		t.Fatalf("Expected degraded outcome for unrecognized status, got %s", outcome.Kind)
	}
}
