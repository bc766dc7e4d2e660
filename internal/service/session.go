package service

import (
	"fmt"

	"github.com/lumen-studio/checkout-service/internal/models"
)

// InvalidTransitionError indicates an attempted state machine move that the
// transition table does not allow.
type InvalidTransitionError struct {
	From models.SessionState
	To   models.SessionState
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid session transition from %s to %s", e.From, e.To)
}

// validTransitions is the checkout session state machine. Terminal states
// have no outgoing edges except failed, which allows a fresh attempt from
// provider selection — never a resume mid-flow, to prevent double
// submission against a provider.
var validTransitions = map[models.SessionState][]models.SessionState{
	models.SessionStateIdle:          {models.SessionStateConfigLoading},
	models.SessionStateConfigLoading: {models.SessionStateConfigReady, models.SessionStateConfigUnavailable},
	models.SessionStateConfigReady:   {models.SessionStateProviderSelected},
	models.SessionStateProviderSelected: {
		models.SessionStateProviderSelected,
		models.SessionStateInitiating,
	},
	models.SessionStateInitiating: {
		models.SessionStateAwaitingRedirect,
		models.SessionStateAwaitingWidget,
		models.SessionStateCancelled,
		models.SessionStateFailed,
	},
	models.SessionStateAwaitingRedirect: {
		models.SessionStateReconciling,
		models.SessionStateCancelled,
	},
	models.SessionStateAwaitingWidget: {
		models.SessionStateReconciling,
		models.SessionStateCancelled,
		models.SessionStateFailed,
	},
	models.SessionStateReconciling: {
		models.SessionStateConfirmed,
		models.SessionStateDegraded,
		models.SessionStateCancelled,
		models.SessionStateFailed,
	},
	models.SessionStateConfigUnavailable: {},
	models.SessionStateConfirmed:         {},
	models.SessionStateDegraded:          {},
	models.SessionStateCancelled:         {},
	models.SessionStateFailed:            {models.SessionStateProviderSelected},
}

func canTransition(from, to models.SessionState) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, state := range allowed {
		if state == to {
			return true
		}
	}
	return false
}

func transition(session *models.CheckoutSession, to models.SessionState) error {
	if !canTransition(session.State, to) {
		return &InvalidTransitionError{From: session.State, To: to}
	}
	session.State = to
	return nil
}
