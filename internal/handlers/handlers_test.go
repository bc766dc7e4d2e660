package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lumen-studio/checkout-service/internal/config"
	"github.com/lumen-studio/checkout-service/internal/models"
	"github.com/lumen-studio/checkout-service/internal/providers"
	"github.com/lumen-studio/checkout-service/internal/repository"
	"github.com/lumen-studio/checkout-service/internal/service"
)

type stubBilling struct {
	settings *models.BillingSettings
	err      error
}

func (s *stubBilling) Load(ctx context.Context) (*models.BillingSettings, error) {
	return s.settings, s.err
}

type stubStore struct {
	sessions map[string]*models.CheckoutSession
	refs     map[string]string
}

func newStubStore() *stubStore {
	return &stubStore{
		sessions: make(map[string]*models.CheckoutSession),
		refs:     make(map[string]string),
	}
}

func (s *stubStore) Get(ctx context.Context, id string) (*models.CheckoutSession, error) {
	return s.sessions[id], nil
}

func (s *stubStore) Save(ctx context.Context, session *models.CheckoutSession) error {
	s.sessions[session.ID] = session
	return nil
}

func (s *stubStore) FindByReference(ctx context.Context, reference string) (*models.CheckoutSession, error) {
	return s.sessions[s.refs[reference]], nil
}

func (s *stubStore) IndexReference(ctx context.Context, reference, sessionID string) error {
	s.refs[reference] = sessionID
	return nil
}

func (s *stubStore) Ping(ctx context.Context) error {
	return nil
}

type stubAdapter struct {
	name   models.ProviderName
	result *providers.InitiationResult
	err    error
}

func (a *stubAdapter) Name() models.ProviderName { return a.name }

func (a *stubAdapter) Initiate(ctx context.Context, session *models.CheckoutSession) (*providers.InitiationResult, error) {
	return a.result, a.err
}

type stubReconciler struct {
	outcome *models.ReconciliationOutcome
}

func (r *stubReconciler) Reconcile(ctx context.Context, reference string) *models.ReconciliationOutcome {
	return r.outcome
}

type stubJournal struct{}

func (stubJournal) Record(ctx context.Context, session *models.CheckoutSession, outcome *models.ReconciliationOutcome) error {
	return nil
}

type stubAnalytics struct{}

func (stubAnalytics) PublishOutcome(ctx context.Context, session *models.CheckoutSession, outcome *models.ReconciliationOutcome) error {
	return nil
}

type stubOutcomes struct {
	record *repository.OutcomeRecord
}

func (s *stubOutcomes) GetByReference(ctx context.Context, reference string) (*repository.OutcomeRecord, error) {
	return s.record, nil
}

type fixture struct {
	router  *gin.Engine
	store   *stubStore
	billing *stubBilling
}

func testRouter(t *testing.T) (*gin.Engine, *stubStore) {
	f := newFixture(t)
	return f.router, f.store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := newStubStore()
	billing := &stubBilling{
		settings: &models.BillingSettings{
			TaxRatePercent:            10.0,
			CurrencyCode:              "USD",
			RedirectProviderPublicKey: "pk_test_123",
			WidgetProviderClientID:    "client_456",
		},
	}
	redirect := &stubAdapter{
		name: models.ProviderRedirect,
		result: &providers.InitiationResult{
			Kind:        providers.KindRedirecting,
			Reference:   "sess_123",
			RedirectURL: "https://pay.example.com/sess_123",
		},
	}
	widget := &stubAdapter{
		name: models.ProviderWidget,
		result: &providers.InitiationResult{
			Kind:      providers.KindWidgetReady,
			Reference: "pi_789",
			Widget:    &providers.WidgetHandle{IntentID: "pi_789", ClientToken: "tok_abc"},
		},
	}

	order := &models.Order{
		OrderNumber: "ORD-2024-001",
		Total:       models.Money{Amount: 55000, Currency: "USD"},
	}

	svc := service.NewCheckoutService(
		billing,
		redirect,
		widget,
		providers.NewWidgetAdapter(config.ProviderConfig{}, zap.NewNop()),
		&stubReconciler{outcome: service.ConfirmedOutcome(order)},
		store,
		stubJournal{},
		stubAnalytics{},
		&config.Config{},
		zap.NewNop(),
	)

	h := NewHandlers(svc, &stubOutcomes{}, store, nil, &config.Config{}, zap.NewNop())

	r := gin.New()
	r.GET("/health", h.Health)
	r.GET("/live", h.Live)
	v1 := r.Group("/api/v1")
	{
		v1.POST("/checkout/sessions", h.StartCheckout)
		v1.GET("/checkout/sessions/:id", h.GetSession)
		v1.POST("/checkout/sessions/:id/provider", h.SelectProvider)
		v1.POST("/checkout/sessions/:id/initiate", h.Initiate)
		v1.POST("/checkout/sessions/:id/widget-callback", h.WidgetCallback)
		v1.POST("/checkout/sessions/:id/restart", h.Restart)
		v1.GET("/checkout/return", h.RedirectReturn)
		v1.GET("/checkout/outcomes/:reference", h.GetOutcome)
	}

	return &fixture{router: r, store: store, billing: billing}
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r, _ := testRouter(t)

	w := doJSON(t, r, http.MethodGet, "/health", nil)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp["service"] != "checkout-service" {
		t.Errorf("Expected service 'checkout-service', got %v", resp["service"])
	}
}

func TestLive(t *testing.T) {
	r, _ := testRouter(t)

	w := doJSON(t, r, http.MethodGet, "/live", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestStartCheckout(t *testing.T) {
	r, _ := testRouter(t)

	body := map[string]interface{}{
		"items": []models.CartItem{
			{ID: "item_logo", Name: "Logo Design", UnitPrice: models.Money{Amount: 50000, Currency: "USD"}, Quantity: 1},
		},
	}

	w := doJSON(t, r, http.MethodPost, "/api/v1/checkout/sessions", body)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Session            models.CheckoutSession `json:"session"`
		AvailableProviders []models.ProviderName  `json:"available_providers"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if resp.Session.State != models.SessionStateConfigReady {
		t.Errorf("Expected state config_ready, got %s", resp.Session.State)
	}
	if len(resp.AvailableProviders) != 2 {
		t.Errorf("Expected 2 providers, got %d", len(resp.AvailableProviders))
	}
	if resp.Session.Totals.Total.Amount != 55000 {
		t.Errorf("Expected total 55000, got %d", resp.Session.Totals.Total.Amount)
	}
}

func TestStartCheckout_PaymentUnavailable(t *testing.T) {
	f := newFixture(t)
	f.billing.settings = nil
	f.billing.err = errors.New("catalog service down")

	body := map[string]interface{}{
		"items": []models.CartItem{
			{ID: "item_logo", UnitPrice: models.Money{Amount: 50000, Currency: "USD"}, Quantity: 1},
		},
	}

	w := doJSON(t, f.router, http.MethodPost, "/api/v1/checkout/sessions", body)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected status 422, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["error"] != "payment_unavailable" {
		t.Errorf("Expected error payment_unavailable, got %v", resp["error"])
	}
}

func TestStartCheckout_EmptyCart(t *testing.T) {
	r, _ := testRouter(t)

	body := map[string]interface{}{"items": []models.CartItem{}}

	w := doJSON(t, r, http.MethodPost, "/api/v1/checkout/sessions", body)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", w.Code)
	}

	var resp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["error"] != "invalid_cart" {
		t.Errorf("Expected error invalid_cart, got %v", resp["error"])
	}
}

func TestStartCheckout_MalformedBody(t *testing.T) {
	r, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/sessions", bytes.NewBufferString("not json"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestGetSession_NotFound(t *testing.T) {
	r, _ := testRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/v1/checkout/sessions/cs_missing", nil)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestSelectProvider_NotConfigured(t *testing.T) {
	r, store := testRouter(t)

	store.sessions["cs_1"] = &models.CheckoutSession{
		ID:    "cs_1",
		State: models.SessionStateConfigReady,
		Settings: &models.BillingSettings{
			CurrencyCode:              "USD",
			RedirectProviderPublicKey: "pk_test_123",
		},
	}

	w := doJSON(t, r, http.MethodPost, "/api/v1/checkout/sessions/cs_1/provider",
		map[string]string{"provider": "widget"})

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRedirectReturn_FreshEntry(t *testing.T) {
	r, _ := testRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/v1/checkout/return", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp["state"] != "idle" {
		t.Errorf("Expected state idle, got %v", resp["state"])
	}
}

func TestRedirectReturn_WithReference(t *testing.T) {
	r, _ := testRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/v1/checkout/return?reference=sess_123", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var session models.CheckoutSession
	if err := json.Unmarshal(w.Body.Bytes(), &session); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if session.State != models.SessionStateConfirmed {
		t.Errorf("Expected state confirmed, got %s", session.State)
	}
}

func TestRestart_Conflict(t *testing.T) {
	r, store := testRouter(t)

	store.sessions["cs_1"] = &models.CheckoutSession{
		ID:    "cs_1",
		State: models.SessionStateConfirmed,
	}

	w := doJSON(t, r, http.MethodPost, "/api/v1/checkout/sessions/cs_1/restart", nil)

	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", w.Code)
	}
}

func TestGetOutcome_Unknown(t *testing.T) {
	r, _ := testRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/v1/checkout/outcomes/sess_unknown", nil)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestHandleError_Unclassified(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	handleError(c, errors.New("boom"))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}
}
