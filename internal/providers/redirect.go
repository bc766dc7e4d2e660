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

// RedirectAdapter integrates the hosted-checkout provider. Initiation
// creates a hosted session server-side; the browser is then sent away to
// the provider's page and returns with the session reference in the entry
// URL. No in-memory state survives that navigation.
type RedirectAdapter struct {
	baseURL    string
	httpClient *http.Client
	returnURL  string
	cancelURL  string
	logger     *zap.Logger
}

// NewRedirectAdapter creates the hosted-checkout adapter.
func NewRedirectAdapter(cfg config.ProviderConfig, checkout config.CheckoutConfig, logger *zap.Logger) *RedirectAdapter {
	return &RedirectAdapter{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		returnURL: checkout.ReturnURL,
		cancelURL: checkout.CancelURL,
		logger:    logger,
	}
}

func (a *RedirectAdapter) Name() models.ProviderName {
	return models.ProviderRedirect
}

type hostedSessionRequest struct {
	PublicKey   string `json:"public_key"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
	ReturnURL   string `json:"return_url"`
	CancelURL   string `json:"cancel_url"`
}

type hostedSessionResponse struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}

// Initiate creates a hosted checkout session. Failures here happen before
// any charge attempt and map to ErrUnreachable.
func (a *RedirectAdapter) Initiate(ctx context.Context, session *models.CheckoutSession) (*InitiationResult, error) {
	a.logger.Debug("Creating hosted checkout session",
		zap.String("session_id", session.ID),
		zap.Int64("amount", session.Totals.Total.Amount))

	body, err := json.Marshal(hostedSessionRequest{
		PublicKey:   session.Settings.RedirectProviderPublicKey,
		Amount:      session.Totals.Total.Amount,
		Currency:    session.Totals.Total.Currency,
		Description: itemSummary(session.Items),
		ReturnURL:   a.returnURL,
		CancelURL:   a.cancelURL,
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v1/hosted-sessions", a.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		a.logger.Error("Hosted session request failed",
			zap.String("session_id", session.ID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		a.logger.Error("Hosted session request returned error",
			zap.String("session_id", session.ID),
			zap.Int("status_code", resp.StatusCode))
		return nil, fmt.Errorf("%w: provider returned status %d", ErrUnreachable, resp.StatusCode)
	}

	var result hostedSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	if result.SessionID == "" || result.CheckoutURL == "" {
		return nil, fmt.Errorf("%w: provider response missing session", ErrUnreachable)
	}

	a.logger.Info("Hosted checkout session created",
		zap.String("session_id", session.ID),
		zap.String("reference", result.SessionID))

	return &InitiationResult{
		Kind:        KindRedirecting,
		Reference:   result.SessionID,
		RedirectURL: result.CheckoutURL,
	}, nil
}

func itemSummary(items []models.CartItem) string {
	if len(items) == 0 {
		return ""
	}
	if len(items) == 1 {
		return items[0].Name
	}
	return fmt.Sprintf("%s and %d more", items[0].Name, len(items)-1)
}
