package handlers

import (
	"context"

	"go.uber.org/zap"

	"github.com/lumen-studio/checkout-service/internal/config"
	"github.com/lumen-studio/checkout-service/internal/repository"
	"github.com/lumen-studio/checkout-service/internal/service"
)

// OutcomeReader serves support lookups from the outcome journal.
type OutcomeReader interface {
	GetByReference(ctx context.Context, reference string) (*repository.OutcomeRecord, error)
}

// Pinger is a dependency that can report liveness for readiness checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers holds all HTTP handlers for the checkout service.
type Handlers struct {
	checkout *service.CheckoutService
	outcomes OutcomeReader
	sessions Pinger
	journal  Pinger
	config   *config.Config
	logger   *zap.Logger
}

// NewHandlers creates a new handlers instance.
func NewHandlers(
	checkout *service.CheckoutService,
	outcomes OutcomeReader,
	sessions Pinger,
	journal Pinger,
	cfg *config.Config,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		checkout: checkout,
		outcomes: outcomes,
		sessions: sessions,
		journal:  journal,
		config:   cfg,
		logger:   logger,
	}
}
