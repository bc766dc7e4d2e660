package models

import "time"

// ProviderName identifies a payment provider integration.
type ProviderName string

const (
	// ProviderRedirect is the hosted-checkout provider: the browser navigates
	// to an external payment page and returns with a reference token.
	ProviderRedirect ProviderName = "redirect"
	// ProviderWidget is the embedded provider: payment completes in-page and
	// the result arrives via a client callback.
	ProviderWidget ProviderName = "widget"
)

// CartItem is a single line of the cart as supplied by the storefront.
// The cart itself is owned by the storefront; it is read-only here.
type CartItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	UnitPrice Money  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

// BillingSettings is the public billing configuration fetched from the
// catalog service. Immutable for the lifetime of one checkout session.
type BillingSettings struct {
	TaxRatePercent            float64 `json:"tax_rate_percent"`
	CurrencyCode              string  `json:"currency_code"`
	RedirectProviderPublicKey string  `json:"redirect_provider_public_key,omitempty"`
	WidgetProviderClientID    string  `json:"widget_provider_client_id,omitempty"`
}

// HasProvider reports whether credentials for the given provider are present.
func (s BillingSettings) HasProvider(name ProviderName) bool {
	switch name {
	case ProviderRedirect:
		return s.RedirectProviderPublicKey != ""
	case ProviderWidget:
		return s.WidgetProviderClientID != ""
	}
	return false
}

// AvailableProviders lists the providers that can be offered to the user.
func (s BillingSettings) AvailableProviders() []ProviderName {
	var providers []ProviderName
	if s.HasProvider(ProviderRedirect) {
		providers = append(providers, ProviderRedirect)
	}
	if s.HasProvider(ProviderWidget) {
		providers = append(providers, ProviderWidget)
	}
	return providers
}

// SessionState is a state of the checkout session state machine.
type SessionState string

const (
	SessionStateIdle                  SessionState = "idle"
	SessionStateConfigLoading         SessionState = "config_loading"
	SessionStateConfigReady           SessionState = "config_ready"
	SessionStateConfigUnavailable     SessionState = "config_unavailable"
	SessionStateProviderSelected      SessionState = "provider_selected"
	SessionStateInitiating            SessionState = "initiating"
	SessionStateAwaitingRedirect      SessionState = "awaiting_redirect_return"
	SessionStateAwaitingWidget        SessionState = "awaiting_widget_callback"
	SessionStateReconciling           SessionState = "reconciling"
	SessionStateConfirmed             SessionState = "confirmed"
	SessionStateDegraded              SessionState = "degraded"
	SessionStateCancelled             SessionState = "cancelled"
	SessionStateFailed                SessionState = "failed"
)

// IsTerminal reports whether the state ends the session.
func (s SessionState) IsTerminal() bool {
	switch s {
	case SessionStateConfigUnavailable, SessionStateConfirmed,
		SessionStateDegraded, SessionStateCancelled, SessionStateFailed:
		return true
	}
	return false
}

// CheckoutSession is the server-side record of one checkout attempt.
// Only the reference token survives the redirect boundary; everything else
// is best-effort state that may expire with the session.
type CheckoutSession struct {
	ID               string                 `json:"id"`
	State            SessionState           `json:"state"`
	Items            []CartItem             `json:"items"`
	Settings         *BillingSettings       `json:"settings,omitempty"`
	Totals           *Totals                `json:"totals,omitempty"`
	SelectedProvider ProviderName           `json:"selected_provider,omitempty"`
	Reference        string                 `json:"reference,omitempty"`
	Attempt          int                    `json:"attempt"`
	Outcome          *ReconciliationOutcome `json:"outcome,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// Totals is the derived pricing breakdown. Never persisted as a source of
// truth; recomputed from cart and settings.
type Totals struct {
	Subtotal Money `json:"subtotal"`
	Tax      Money `json:"tax"`
	Total    Money `json:"total"`
}
