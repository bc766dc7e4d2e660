package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lumen-studio/checkout-service/internal/clients"
	"github.com/lumen-studio/checkout-service/internal/metrics"
	"github.com/lumen-studio/checkout-service/internal/models"
)

// Degraded reasons.
const (
	ReasonLookupFailed   = "lookup_failed"
	ReasonOrderPending   = "order_pending"
	ReasonMalformedOrder = "malformed_order"
)

// OrderFetcher is the read-only order lookup boundary.
type OrderFetcher interface {
	GetByReference(ctx context.Context, reference string) (*clients.OrderLookup, error)
}

// Reconciler resolves a provider reference token into the authoritative
// order outcome. Exactly one lookup attempt per call, bounded by a timeout;
// there are no silent retries. The critical rule: a failed lookup is never
// reported as a failed payment — the charge may already have succeeded, so
// the outcome degrades with the reference exposed for support.
type Reconciler struct {
	orders  OrderFetcher
	timeout time.Duration
	logger  *zap.Logger
}

// NewReconciler creates a reconciler with the given lookup timeout.
func NewReconciler(orders OrderFetcher, timeout time.Duration, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		orders:  orders,
		timeout: timeout,
		logger:  logger,
	}
}

// Reconcile classifies the outcome for a reference. Always returns an
// outcome; lookup problems surface as Degraded, not as an error.
func (r *Reconciler) Reconcile(ctx context.Context, reference string) *models.ReconciliationOutcome {
	r.logger.Info("Reconciling payment reference", zap.String("reference", reference))

	start := time.Now()
	defer func() {
		metrics.ReconcileDuration.Observe(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	lookup, err := r.orders.GetByReference(ctx, reference)
	if err != nil {
		r.logger.Warn("Order lookup failed, degrading outcome",
			zap.String("reference", reference),
			zap.Error(err))
		return DegradedOutcome(ReasonLookupFailed, reference)
	}

	if lookup == nil {
		// The backend has no record for this reference: the provider never
		// completed a charge against it.
		return CancelledOutcome("reference_unknown")
	}

	switch lookup.Status {
	case clients.OrderLookupCompleted:
		if !lookup.Order.IsWellFormed() {
			r.logger.Warn("Order record malformed, degrading outcome",
				zap.String("reference", reference))
			return DegradedOutcome(ReasonMalformedOrder, reference)
		}
		return ConfirmedOutcome(lookup.Order)
	case clients.OrderLookupCancelled:
		return CancelledOutcome("provider_cancelled")
	case clients.OrderLookupDeclined, clients.OrderLookupFailed:
		reason := lookup.Reason
		if reason == "" {
			reason = lookup.Status
		}
		return FailedOutcome(reason)
	case clients.OrderLookupPending:
		// The order exists but is not confirmable yet. The charge may have
		// completed, so this is degraded, never failed.
		return DegradedOutcome(ReasonOrderPending, reference)
	default:
		r.logger.Warn("Unrecognized lookup status, degrading outcome",
			zap.String("reference", reference),
			zap.String("status", lookup.Status))
		return DegradedOutcome(ReasonLookupFailed, reference)
	}
}

// ConfirmedOutcome builds the terminal outcome for a confirmed order.
func ConfirmedOutcome(order *models.Order) *models.ReconciliationOutcome {
	return &models.ReconciliationOutcome{
		Kind:       models.OutcomeConfirmed,
		Order:      order,
		Message:    fmt.Sprintf("Order %s is confirmed. A receipt is on its way.", order.OrderNumber),
		ResolvedAt: time.Now().UTC(),
	}
}

// DegradedOutcome builds the terminal outcome for a payment that likely
// succeeded without a confirmable order record. The message points at
// support and carries the reference; it must never read like a failure.
func DegradedOutcome(reason, reference string) *models.ReconciliationOutcome {
	return &models.ReconciliationOutcome{
		Kind:             models.OutcomeDegraded,
		Reason:           reason,
		PartialReference: reference,
		Message: fmt.Sprintf(
			"Your payment was likely processed, but we could not confirm your order yet. Please contact support and quote reference %s.",
			reference),
		ResolvedAt: time.Now().UTC(),
	}
}

// CancelledOutcome builds the terminal outcome for a flow that ended before
// any charge was attempted.
func CancelledOutcome(reason string) *models.ReconciliationOutcome {
	return &models.ReconciliationOutcome{
		Kind:       models.OutcomeCancelled,
		Reason:     reason,
		Message:    "Payment was cancelled before any charge was made. You can return to your cart and try again.",
		ResolvedAt: time.Now().UTC(),
	}
}

// FailedOutcome builds the terminal outcome for a declined or errored
// payment. Retrying requires a fresh attempt confirmed by the user.
func FailedOutcome(reason string) *models.ReconciliationOutcome {
	return &models.ReconciliationOutcome{
		Kind:       models.OutcomeFailed,
		Reason:     reason,
		Message:    fmt.Sprintf("Payment was not completed (%s). Choose a payment method to try again; you have not been charged.", reason),
		ResolvedAt: time.Now().UTC(),
	}
}
