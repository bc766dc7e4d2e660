package service

import (
	"errors"
	"testing"

	"github.com/lumen-studio/checkout-service/internal/models"
)

func TestSessionTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    models.SessionState
		to      models.SessionState
		allowed bool
	}{
		{"idle to config loading", models.SessionStateIdle, models.SessionStateConfigLoading, true},
		{"config loading to ready", models.SessionStateConfigLoading, models.SessionStateConfigReady, true},
		{"config loading to unavailable", models.SessionStateConfigLoading, models.SessionStateConfigUnavailable, true},
		{"config ready to provider selected", models.SessionStateConfigReady, models.SessionStateProviderSelected, true},
		{"reselect provider", models.SessionStateProviderSelected, models.SessionStateProviderSelected, true},
		{"provider selected to initiating", models.SessionStateProviderSelected, models.SessionStateInitiating, true},
		{"initiating to awaiting redirect", models.SessionStateInitiating, models.SessionStateAwaitingRedirect, true},
		{"initiating to awaiting widget", models.SessionStateInitiating, models.SessionStateAwaitingWidget, true},
		{"initiating fails fast", models.SessionStateInitiating, models.SessionStateCancelled, true},
		{"awaiting redirect to reconciling", models.SessionStateAwaitingRedirect, models.SessionStateReconciling, true},
		{"awaiting widget to reconciling", models.SessionStateAwaitingWidget, models.SessionStateReconciling, true},
		{"awaiting widget declined", models.SessionStateAwaitingWidget, models.SessionStateFailed, true},
		{"reconciling to confirmed", models.SessionStateReconciling, models.SessionStateConfirmed, true},
		{"reconciling to degraded", models.SessionStateReconciling, models.SessionStateDegraded, true},
		{"reconciling to cancelled", models.SessionStateReconciling, models.SessionStateCancelled, true},
		{"reconciling to failed", models.SessionStateReconciling, models.SessionStateFailed, true},
		{"failed restarts at provider selection", models.SessionStateFailed, models.SessionStateProviderSelected, true},

		{"idle cannot skip to ready", models.SessionStateIdle, models.SessionStateConfigReady, false},
		{"config ready cannot initiate directly", models.SessionStateConfigReady, models.SessionStateInitiating, false},
		{"failed cannot resume mid-flow", models.SessionStateFailed, models.SessionStateReconciling, false},
		{"failed cannot jump to initiating", models.SessionStateFailed, models.SessionStateInitiating, false},
		{"confirmed is terminal", models.SessionStateConfirmed, models.SessionStateProviderSelected, false},
		{"degraded is terminal", models.SessionStateDegraded, models.SessionStateReconciling, false},
		{"cancelled is terminal", models.SessionStateCancelled, models.SessionStateProviderSelected, false},
		{"config unavailable is terminal", models.SessionStateConfigUnavailable, models.SessionStateConfigLoading, false},
		{"reconciling cannot loop", models.SessionStateReconciling, models.SessionStateReconciling, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := canTransition(tt.from, tt.to); got != tt.allowed {
				t.Errorf("canTransition(%s, %s) = %v, expected %v", tt.from, tt.to, got, tt.allowed)
			}
		})
	}
}

func TestTransition_UpdatesState(t *testing.T) {
	session := &models.CheckoutSession{State: models.SessionStateIdle}

	if err := transition(session, models.SessionStateConfigLoading); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if session.State != models.SessionStateConfigLoading {
		t.Errorf("Expected state config_loading, got %s", session.State)
	}
}

func TestTransition_RejectsAndPreservesState(t *testing.T) {
	session := &models.CheckoutSession{State: models.SessionStateConfirmed}

	err := transition(session, models.SessionStateReconciling)
	if err == nil {
		t.Fatal("Expected transition error, got nil")
	}

	var transErr *InvalidTransitionError
	if !errors.As(err, &transErr) {
		t.Fatalf("Expected InvalidTransitionError, got %T", err)
	}
	if transErr.From != models.SessionStateConfirmed {
		t.Errorf("Expected From confirmed, got %s", transErr.From)
	}
	if session.State != models.SessionStateConfirmed {
		t.Errorf("Expected state unchanged, got %s", session.State)
	}
}
