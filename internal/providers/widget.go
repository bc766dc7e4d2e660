package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/lumen-studio/checkout-service/internal/config"
	"github.com/lumen-studio/checkout-service/internal/models"
)

// Widget error codes that map to benign outcomes rather than declines.
const (
	widgetCodeUserCancelled = "user_cancelled"
	widgetCodeNetworkError  = "network_error"
)

// WidgetAdapter integrates the embedded-widget provider. Initiation creates
// a payment intent and hands the storefront a client token; the result
// arrives later through an in-page callback, not a redirect.
type WidgetAdapter struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewWidgetAdapter creates the embedded-widget adapter.
func NewWidgetAdapter(cfg config.ProviderConfig, logger *zap.Logger) *WidgetAdapter {
	return &WidgetAdapter{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

func (a *WidgetAdapter) Name() models.ProviderName {
	return models.ProviderWidget
}

type widgetIntentRequest struct {
	ClientID string `json:"client_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type widgetIntentResponse struct {
	IntentID    string `json:"intent_id"`
	ClientToken string `json:"client_token"`
}

// Initiate creates a widget payment intent. Failures here happen before any
// charge attempt and map to ErrUnreachable.
func (a *WidgetAdapter) Initiate(ctx context.Context, session *models.CheckoutSession) (*InitiationResult, error) {
	a.logger.Debug("Creating widget payment intent",
		zap.String("session_id", session.ID),
		zap.Int64("amount", session.Totals.Total.Amount))

	body, err := json.Marshal(widgetIntentRequest{
		ClientID: session.Settings.WidgetProviderClientID,
		Amount:   session.Totals.Total.Amount,
		Currency: session.Totals.Total.Currency,
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v1/widget-intents", a.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		a.logger.Error("Widget intent request failed",
			zap.String("session_id", session.ID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		a.logger.Error("Widget intent request returned error",
			zap.String("session_id", session.ID),
			zap.Int("status_code", resp.StatusCode))
		return nil, fmt.Errorf("%w: provider returned status %d", ErrUnreachable, resp.StatusCode)
	}

	var result widgetIntentResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	if result.IntentID == "" {
		return nil, fmt.Errorf("%w: provider response missing intent", ErrUnreachable)
	}

	a.logger.Info("Widget payment intent created",
		zap.String("session_id", session.ID),
		zap.String("reference", result.IntentID))

	return &InitiationResult{
		Kind:      KindWidgetReady,
		Reference: result.IntentID,
		Widget: &WidgetHandle{
			IntentID:    result.IntentID,
			ClientID:    session.Settings.WidgetProviderClientID,
			ClientToken: result.ClientToken,
		},
	}, nil
}

// WidgetSuccess is the client-side success payload. The reference it
// carries starts reconciliation; it is never trusted as the order of record.
type WidgetSuccess struct {
	ClientReference string       `json:"client_reference" binding:"required"`
	AmountCharged   models.Money `json:"amount_charged"`
}

// WidgetError is the client-side error payload.
type WidgetError struct {
	Code    string `json:"code" binding:"required"`
	Message string `json:"message"`
}

// WidgetCallback is the in-page completion payload delivered by the
// storefront. Exactly one of Success or Error is set.
type WidgetCallback struct {
	Success *WidgetSuccess `json:"success,omitempty"`
	Error   *WidgetError   `json:"error,omitempty"`
}

// ResolveCallback normalizes a widget callback into either a reference
// token to reconcile or a failure from the provider taxonomy.
func (a *WidgetAdapter) ResolveCallback(cb WidgetCallback) (string, error) {
	if cb.Success != nil {
		if cb.Success.ClientReference == "" {
			return "", fmt.Errorf("%w: success payload missing client reference", ErrUnreachable)
		}
		return cb.Success.ClientReference, nil
	}

	if cb.Error == nil {
		return "", fmt.Errorf("%w: callback carries neither success nor error", ErrUnreachable)
	}

	switch cb.Error.Code {
	case widgetCodeUserCancelled:
		return "", ErrUserCancelled
	case widgetCodeNetworkError:
		return "", fmt.Errorf("%w: %s", ErrUnreachable, cb.Error.Message)
	default:
		return "", &DeclinedError{Code: cb.Error.Code, Message: cb.Error.Message}
	}
}
