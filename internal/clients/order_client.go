package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/lumen-studio/checkout-service/internal/config"
	"github.com/lumen-studio/checkout-service/internal/models"
)

// Lookup statuses reported by the order service alongside the record.
const (
	OrderLookupCompleted = "completed"
	OrderLookupPending   = "pending"
	OrderLookupCancelled = "cancelled"
	OrderLookupDeclined  = "declined"
	OrderLookupFailed    = "failed"
)

// OrderLookup is the order service's answer for a reference token. A nil
// result with a nil error means the reference is unknown, which is
// distinguishable from a hard lookup error.
type OrderLookup struct {
	Status string        `json:"status"`
	Reason string        `json:"reason,omitempty"`
	Order  *models.Order `json:"order,omitempty"`
}

// HTTPOrderClient fetches authoritative order records from the backend
// order service. Lookups are read-only; reconciling the same reference
// twice never creates a second order.
type HTTPOrderClient struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
	logger     *zap.Logger
}

// NewHTTPOrderClient creates a new HTTP-based order lookup client.
func NewHTTPOrderClient(cfg config.ServiceConfig, logger *zap.Logger) *HTTPOrderClient {
	return &HTTPOrderClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		apiKey: cfg.APIKey,
		logger: logger,
	}
}

// GetByReference fetches the order correlated with a provider reference
// token. Returns (nil, nil) when the reference is unknown to the backend.
func (c *HTTPOrderClient) GetByReference(ctx context.Context, reference string) (*OrderLookup, error) {
	c.logger.Debug("Looking up order by reference", zap.String("reference", reference))

	lookupURL := fmt.Sprintf("%s/api/v1/orders/by-reference/%s", c.baseURL, url.PathEscape(reference))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Order lookup failed",
			zap.String("reference", reference),
			zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		c.logger.Debug("No order for reference", zap.String("reference", reference))
		return nil, nil
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Order lookup returned error",
			zap.String("reference", reference),
			zap.Int("status_code", resp.StatusCode))
		return nil, fmt.Errorf("order service returned status %d", resp.StatusCode)
	}

	var lookup OrderLookup
	if err := json.NewDecoder(resp.Body).Decode(&lookup); err != nil {
		return nil, err
	}

	c.logger.Debug("Order lookup resolved",
		zap.String("reference", reference),
		zap.String("status", lookup.Status))

	return &lookup, nil
}
