package models

import "time"

// OrderPayment describes how an order was paid.
type OrderPayment struct {
	Method        string `json:"method"`
	TransactionID string `json:"transaction_id"`
}

// OrderItem is a line of the authoritative order record.
type OrderItem struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice Money  `json:"unit_price"`
}

// Order is the authoritative order record owned by the backend order
// service. The checkout service never constructs one; it only requests it
// by reference.
type Order struct {
	OrderNumber string       `json:"order_number"`
	Total       Money        `json:"total"`
	Items       []OrderItem  `json:"items"`
	Payment     OrderPayment `json:"payment"`
}

// IsWellFormed reports whether the order carries the fields required to
// confirm it to the customer.
func (o *Order) IsWellFormed() bool {
	return o != nil && o.OrderNumber != "" && o.Total.Amount > 0 && o.Total.Currency != ""
}

// OutcomeKind tags a ReconciliationOutcome variant.
type OutcomeKind string

const (
	// OutcomeConfirmed means the authoritative order was found and is
	// well-formed.
	OutcomeConfirmed OutcomeKind = "confirmed"
	// OutcomeDegraded means the payment likely succeeded but the order
	// record could not be confirmed. Never presented as a failure.
	OutcomeDegraded OutcomeKind = "degraded"
	// OutcomeCancelled means no charge was attempted.
	OutcomeCancelled OutcomeKind = "cancelled"
	// OutcomeFailed means the provider declined or errored before
	// completion.
	OutcomeFailed OutcomeKind = "failed"
)

// ReconciliationOutcome is the terminal artifact of a checkout session and
// the only thing handed to the analytics sink.
type ReconciliationOutcome struct {
	Kind             OutcomeKind `json:"kind"`
	Order            *Order      `json:"order,omitempty"`
	Reason           string      `json:"reason,omitempty"`
	PartialReference string      `json:"partial_reference,omitempty"`
	Message          string      `json:"message"`
	ResolvedAt       time.Time   `json:"resolved_at"`
}
