package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumen-studio/checkout-service/internal/config"
	"github.com/lumen-studio/checkout-service/internal/metrics"
	"github.com/lumen-studio/checkout-service/internal/models"
	"github.com/lumen-studio/checkout-service/internal/providers"
)

var (
	// ErrSessionNotFound indicates an unknown or expired checkout session.
	ErrSessionNotFound = errors.New("checkout session not found")
	// ErrProviderNotAvailable indicates a provider was selected whose
	// credentials are absent from the billing settings.
	ErrProviderNotAvailable = errors.New("payment provider not available")
)

// BillingConfigLoader fetches the public billing configuration.
type BillingConfigLoader interface {
	Load(ctx context.Context) (*models.BillingSettings, error)
}

// SessionStore persists checkout sessions and the reference index used to
// resume after the redirect boundary. Get and FindByReference return
// (nil, nil) when nothing is stored.
type SessionStore interface {
	Get(ctx context.Context, id string) (*models.CheckoutSession, error)
	Save(ctx context.Context, session *models.CheckoutSession) error
	FindByReference(ctx context.Context, reference string) (*models.CheckoutSession, error)
	IndexReference(ctx context.Context, reference, sessionID string) error
}

// OutcomeJournal records terminal outcomes so support can resolve the
// reference shown in degraded messaging.
type OutcomeJournal interface {
	Record(ctx context.Context, session *models.CheckoutSession, outcome *models.ReconciliationOutcome) error
}

// AnalyticsPublisher is the one-way analytics sink. Publish failures must
// never affect checkout state.
type AnalyticsPublisher interface {
	PublishOutcome(ctx context.Context, session *models.CheckoutSession, outcome *models.ReconciliationOutcome) error
}

// OutcomeReconciler resolves a reference token into a terminal outcome.
type OutcomeReconciler interface {
	Reconcile(ctx context.Context, reference string) *models.ReconciliationOutcome
}

// WidgetCallbackResolver normalizes widget completion payloads.
type WidgetCallbackResolver interface {
	ResolveCallback(cb providers.WidgetCallback) (string, error)
}

// CheckoutService owns the checkout session state machine: it loads billing
// settings, selects and drives provider adapters, and hands completed
// attempts to the reconciler. Exactly one session is active per storefront
// tab; sessions are never resumed concurrently from multiple triggers.
type CheckoutService struct {
	billing        BillingConfigLoader
	adapters       map[models.ProviderName]providers.Adapter
	widgetResolver WidgetCallbackResolver
	reconciler     OutcomeReconciler
	sessions       SessionStore
	journal        OutcomeJournal
	analytics      AnalyticsPublisher
	config         *config.Config
	logger         *zap.Logger
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(
	billing BillingConfigLoader,
	redirect providers.Adapter,
	widget providers.Adapter,
	widgetResolver WidgetCallbackResolver,
	reconciler OutcomeReconciler,
	sessions SessionStore,
	journal OutcomeJournal,
	analytics AnalyticsPublisher,
	cfg *config.Config,
	logger *zap.Logger,
) *CheckoutService {
	return &CheckoutService{
		billing: billing,
		adapters: map[models.ProviderName]providers.Adapter{
			redirect.Name(): redirect,
			widget.Name():   widget,
		},
		widgetResolver: widgetResolver,
		reconciler:     reconciler,
		sessions:       sessions,
		journal:        journal,
		analytics:      analytics,
		config:         cfg,
		logger:         logger,
	}
}

// StartSession validates the cart, loads billing settings and computes
// totals. The returned session is in config_ready, or config_unavailable
// when no provider is configured - the caller renders "payment unavailable"
// for that terminal state, never an empty provider selector.
func (s *CheckoutService) StartSession(ctx context.Context, items []models.CartItem) (*models.CheckoutSession, error) {
	if err := ValidateCart(items); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session := &models.CheckoutSession{
		ID:        "cs_" + uuid.NewString(),
		State:     models.SessionStateConfigLoading,
		Items:     items,
		Attempt:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.logger.Info("Starting checkout session",
		zap.String("session_id", session.ID),
		zap.Int("item_count", len(items)))

	settings, err := s.billing.Load(ctx)
	if err != nil {
		s.logger.Warn("Billing settings unavailable",
			zap.String("session_id", session.ID),
			zap.Error(err))
		if terr := transition(session, models.SessionStateConfigUnavailable); terr != nil {
			return nil, terr
		}
		s.save(ctx, session)
		return session, nil
	}

	if len(settings.AvailableProviders()) == 0 {
		s.logger.Warn("No payment provider configured",
			zap.String("session_id", session.ID))
		if terr := transition(session, models.SessionStateConfigUnavailable); terr != nil {
			return nil, terr
		}
		s.save(ctx, session)
		return session, nil
	}

	totals := CalculateTotals(items, settings)
	session.Settings = settings
	session.Totals = &totals

	if err := transition(session, models.SessionStateConfigReady); err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	metrics.SessionsStarted.Inc()

	s.logger.Info("Checkout session ready",
		zap.String("session_id", session.ID),
		zap.Int64("total", totals.Total.Amount),
		zap.String("currency", totals.Total.Currency))

	return session, nil
}

// GetSession retrieves a session by id.
func (s *CheckoutService) GetSession(ctx context.Context, id string) (*models.CheckoutSession, error) {
	session, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// SelectProvider records the user's provider choice. Only providers whose
// credentials are present in the billing settings may be selected.
func (s *CheckoutService) SelectProvider(ctx context.Context, id string, provider models.ProviderName) (*models.CheckoutSession, error) {
	session, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}

	if session.Settings == nil || !session.Settings.HasProvider(provider) {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotAvailable, provider)
	}
	if _, ok := s.adapters[provider]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotAvailable, provider)
	}

	if err := transition(session, models.SessionStateProviderSelected); err != nil {
		return nil, err
	}
	session.SelectedProvider = provider

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("Provider selected",
		zap.String("session_id", session.ID),
		zap.String("provider", string(provider)))

	return session, nil
}

// Initiate drives the selected adapter. On success the session suspends in
// awaiting_redirect_return or awaiting_widget_callback; completion arrives
// asynchronously, never from this call. Unreachable providers and user
// cancellation short-circuit to cancelled without entering reconciliation.
func (s *CheckoutService) Initiate(ctx context.Context, id string) (*providers.InitiationResult, *models.CheckoutSession, error) {
	session, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	adapter, ok := s.adapters[session.SelectedProvider]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrProviderNotAvailable, session.SelectedProvider)
	}

	if err := transition(session, models.SessionStateInitiating); err != nil {
		return nil, nil, err
	}
	s.save(ctx, session)

	result, err := adapter.Initiate(ctx, session)
	if err != nil {
		session = s.resolveProviderFailure(ctx, session, err)
		return nil, session, nil
	}

	session.Reference = result.Reference

	next := models.SessionStateAwaitingRedirect
	if result.Kind == providers.KindWidgetReady {
		next = models.SessionStateAwaitingWidget
	}
	if err := transition(session, next); err != nil {
		return nil, nil, err
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, nil, err
	}
	if err := s.sessions.IndexReference(ctx, result.Reference, session.ID); err != nil {
		// The redirect return can still reconcile from the reference alone.
		s.logger.Error("Failed to index reference",
			zap.String("session_id", session.ID),
			zap.String("reference", result.Reference),
			zap.Error(err))
	}

	s.logger.Info("Provider session initiated",
		zap.String("session_id", session.ID),
		zap.String("provider", string(session.SelectedProvider)),
		zap.String("kind", string(result.Kind)),
		zap.String("reference", result.Reference))

	return result, session, nil
}

// HandleRedirectReturn resumes a checkout after the hosted-checkout page
// navigates back. Only the reference token survives the redirect boundary;
// an empty reference is a fresh entry (nil session), never an error.
func (s *CheckoutService) HandleRedirectReturn(ctx context.Context, reference string) (*models.CheckoutSession, error) {
	if reference == "" {
		s.logger.Debug("Redirect entry without reference, treating as fresh entry")
		return nil, nil
	}

	session, err := s.sessions.FindByReference(ctx, reference)
	if err != nil {
		s.logger.Error("Reference index lookup failed",
			zap.String("reference", reference),
			zap.Error(err))
	}
	if session == nil {
		// Session state is gone (expired or lost across the redirect).
		// Resume from the reference alone.
		now := time.Now().UTC()
		session = &models.CheckoutSession{
			ID:               "cs_" + uuid.NewString(),
			State:            models.SessionStateAwaitingRedirect,
			SelectedProvider: models.ProviderRedirect,
			Reference:        reference,
			Attempt:          1,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		s.logger.Info("Resuming checkout from reference only",
			zap.String("session_id", session.ID),
			zap.String("reference", reference))
	}

	if session.State.IsTerminal() {
		// Already reconciled; re-entry is idempotent.
		return session, nil
	}

	if err := transition(session, models.SessionStateReconciling); err != nil {
		return nil, err
	}
	s.save(ctx, session)

	outcome := s.reconciler.Reconcile(ctx, reference)
	if err := s.finalize(ctx, session, outcome); err != nil {
		return nil, err
	}

	return session, nil
}

// HandleWidgetCallback completes a widget attempt from the in-page
// callback payload. A success payload starts reconciliation using the
// client-side reference; the client payload is never trusted as the order
// of record.
func (s *CheckoutService) HandleWidgetCallback(ctx context.Context, id string, cb providers.WidgetCallback) (*models.CheckoutSession, error) {
	session, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}

	if session.State.IsTerminal() {
		return session, nil
	}

	reference, err := s.widgetResolver.ResolveCallback(cb)
	if err != nil {
		session = s.resolveProviderFailure(ctx, session, err)
		return session, nil
	}

	session.Reference = reference
	if err := s.sessions.IndexReference(ctx, reference, session.ID); err != nil {
		s.logger.Error("Failed to index reference",
			zap.String("session_id", session.ID),
			zap.Error(err))
	}

	if err := transition(session, models.SessionStateReconciling); err != nil {
		return nil, err
	}
	s.save(ctx, session)

	outcome := s.reconciler.Reconcile(ctx, reference)
	if err := s.finalize(ctx, session, outcome); err != nil {
		return nil, err
	}

	return session, nil
}

// Restart begins a fresh attempt after a failed payment. Nothing from the
// failed attempt is reused - a new reference is issued at initiation, which
// prevents double submission against a provider.
func (s *CheckoutService) Restart(ctx context.Context, id string) (*models.CheckoutSession, error) {
	session, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}

	if session.Settings == nil || session.Totals == nil {
		// A session resumed from the reference token alone has no cart or
		// settings to initiate with; the storefront starts a fresh checkout.
		return nil, ErrSessionNotFound
	}

	if err := transition(session, models.SessionStateProviderSelected); err != nil {
		return nil, err
	}

	session.Reference = ""
	session.Outcome = nil
	session.Attempt++

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("Checkout attempt restarted",
		zap.String("session_id", session.ID),
		zap.Int("attempt", session.Attempt))

	return session, nil
}

// resolveProviderFailure maps adapter failures into terminal states:
// unreachable providers and user cancellation are benign and short-circuit
// to cancelled; a decline means a charge was attempted and goes to failed.
func (s *CheckoutService) resolveProviderFailure(ctx context.Context, session *models.CheckoutSession, err error) *models.CheckoutSession {
	var declined *providers.DeclinedError

	var outcome *models.ReconciliationOutcome
	switch {
	case errors.As(err, &declined):
		outcome = FailedOutcome(declined.Code)
	case errors.Is(err, providers.ErrUserCancelled):
		outcome = CancelledOutcome("user_cancelled")
	default:
		// Includes ErrUnreachable and anything unclassified: no charge was
		// attempted, so the flow cancels rather than fails.
		outcome = CancelledOutcome("provider_unreachable")
	}

	s.logger.Info("Provider attempt resolved without reconciliation",
		zap.String("session_id", session.ID),
		zap.String("outcome", string(outcome.Kind)),
		zap.String("reason", outcome.Reason),
		zap.Error(err))

	if ferr := s.finalize(ctx, session, outcome); ferr != nil {
		s.logger.Error("Failed to finalize session",
			zap.String("session_id", session.ID),
			zap.Error(ferr))
	}
	return session
}

// finalize moves the session into its terminal state exactly once, then
// journals the outcome and notifies analytics. Journal and analytics are
// side effects: their failures are logged and never surface to the caller.
func (s *CheckoutService) finalize(ctx context.Context, session *models.CheckoutSession, outcome *models.ReconciliationOutcome) error {
	if session.Outcome != nil {
		return nil
	}

	var terminal models.SessionState
	switch outcome.Kind {
	case models.OutcomeConfirmed:
		terminal = models.SessionStateConfirmed
	case models.OutcomeDegraded:
		terminal = models.SessionStateDegraded
	case models.OutcomeCancelled:
		terminal = models.SessionStateCancelled
	default:
		terminal = models.SessionStateFailed
	}

	if err := transition(session, terminal); err != nil {
		return err
	}
	session.Outcome = outcome

	if err := s.sessions.Save(ctx, session); err != nil {
		return err
	}

	metrics.OutcomesTotal.WithLabelValues(string(outcome.Kind)).Inc()

	if s.config.Features.EnableOutcomeJournal {
		if err := s.journal.Record(ctx, session, outcome); err != nil {
			s.logger.Error("Failed to journal outcome",
				zap.String("session_id", session.ID),
				zap.Error(err))
		}
	}

	if s.config.Features.EnableAnalyticsEvents {
		if err := s.analytics.PublishOutcome(ctx, session, outcome); err != nil {
			s.logger.Error("Failed to publish outcome event",
				zap.String("session_id", session.ID),
				zap.Error(err))
		}
	}

	s.logger.Info("Checkout session finalized",
		zap.String("session_id", session.ID),
		zap.String("outcome", string(outcome.Kind)),
		zap.String("reference", session.Reference))

	return nil
}

func (s *CheckoutService) save(ctx context.Context, session *models.CheckoutSession) {
	if err := s.sessions.Save(ctx, session); err != nil {
		s.logger.Error("Failed to save session",
			zap.String("session_id", session.ID),
			zap.Error(err))
	}
}
