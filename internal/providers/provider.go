// Package providers normalizes the two payment integrations behind one
// capability contract. The controller never branches on provider identity;
// it selects an adapter at runtime based on which credentials the billing
// settings carry.
package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/lumen-studio/checkout-service/internal/models"
)

var (
	// ErrUnreachable indicates a network or initiation failure before any
	// charge was attempted. Safe to retry.
	ErrUnreachable = errors.New("payment provider unreachable")
	// ErrUserCancelled indicates the user explicitly cancelled. No charge
	// was attempted.
	ErrUserCancelled = errors.New("payment cancelled by user")
)

// DeclinedError indicates a charge was attempted and rejected. Never
// retried silently; a new attempt requires explicit user confirmation.
type DeclinedError struct {
	Code    string
	Message string
}

func (e *DeclinedError) Error() string {
	return fmt.Sprintf("payment declined (%s): %s", e.Code, e.Message)
}

// InitiationKind tags an InitiationResult variant.
type InitiationKind string

const (
	// KindRedirecting means the browser must navigate to an external URL;
	// completion arrives on a later page load carrying the reference token.
	KindRedirecting InitiationKind = "redirecting"
	// KindWidgetReady means payment continues in-page; completion arrives
	// via the widget callback.
	KindWidgetReady InitiationKind = "widget_ready"
)

// WidgetHandle is what the storefront needs to mount the embedded widget.
type WidgetHandle struct {
	IntentID    string `json:"intent_id"`
	ClientID    string `json:"client_id"`
	ClientToken string `json:"client_token"`
}

// InitiationResult is the normalized outcome of initiating a provider
// session. Exactly one of the variant fields is set, per Kind.
type InitiationResult struct {
	Kind        InitiationKind `json:"kind"`
	Reference   string         `json:"reference"`
	RedirectURL string         `json:"redirect_url,omitempty"`
	Widget      *WidgetHandle  `json:"widget,omitempty"`
}

// Adapter is the capability contract both provider variants implement.
// Neither completes synchronously: the redirect variant resolves on a later
// page load, the widget variant via an in-page callback.
type Adapter interface {
	Name() models.ProviderName
	Initiate(ctx context.Context, session *models.CheckoutSession) (*InitiationResult, error)
}
