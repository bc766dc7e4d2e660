package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/lumen-studio/checkout-service/internal/config"
	"github.com/lumen-studio/checkout-service/internal/models"
)

// ErrConfigUnavailable indicates the billing configuration could not be
// fetched or was malformed. Checkout cannot proceed without it.
var ErrConfigUnavailable = errors.New("billing configuration unavailable")

// HTTPBillingClient fetches the public billing configuration from the
// catalog service. The settings are public (no auth) and treated as config,
// not secrets.
type HTTPBillingClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPBillingClient creates a new HTTP-based billing config client.
func NewHTTPBillingClient(cfg config.ServiceConfig, logger *zap.Logger) *HTTPBillingClient {
	return &HTTPBillingClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// Load fetches and validates the billing settings. Idempotent; called once
// per checkout entry before any provider UI is offered.
func (c *HTTPBillingClient) Load(ctx context.Context) (*models.BillingSettings, error) {
	c.logger.Debug("Loading billing settings")

	url := fmt.Sprintf("%s/api/v1/billing-settings", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Billing settings request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrConfigUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Billing settings request returned error",
			zap.Int("status_code", resp.StatusCode))
		return nil, fmt.Errorf("%w: catalog service returned status %d", ErrConfigUnavailable, resp.StatusCode)
	}

	var settings models.BillingSettings
	if err := json.NewDecoder(resp.Body).Decode(&settings); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigUnavailable, err)
	}

	if err := validateSettings(&settings); err != nil {
		c.logger.Error("Billing settings malformed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrConfigUnavailable, err)
	}

	c.logger.Info("Billing settings loaded",
		zap.Float64("tax_rate_percent", settings.TaxRatePercent),
		zap.String("currency", settings.CurrencyCode),
		zap.Bool("redirect_provider", settings.HasProvider(models.ProviderRedirect)),
		zap.Bool("widget_provider", settings.HasProvider(models.ProviderWidget)),
	)

	return &settings, nil
}

func validateSettings(s *models.BillingSettings) error {
	if s.TaxRatePercent < 0 || s.TaxRatePercent > 100 {
		return fmt.Errorf("tax rate out of range: %.2f", s.TaxRatePercent)
	}
	if len(s.CurrencyCode) != 3 {
		return fmt.Errorf("currency code must be ISO-4217: %q", s.CurrencyCode)
	}
	return nil
}
