package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lumen-studio/checkout-service/internal/models"
	"github.com/lumen-studio/checkout-service/internal/providers"
	"github.com/lumen-studio/checkout-service/internal/service"
)

type startCheckoutRequest struct {
	Items []models.CartItem `json:"items" binding:"required"`
}

type selectProviderRequest struct {
	Provider models.ProviderName `json:"provider" binding:"required"`
}

// StartCheckout handles POST /api/v1/checkout/sessions
func (h *Handlers) StartCheckout(c *gin.Context) {
	var req startCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Failed to bind checkout request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	session, err := h.checkout.StartSession(c.Request.Context(), req.Items)
	if err != nil {
		handleError(c, err)
		return
	}

	if session.State == models.SessionStateConfigUnavailable {
		// Terminal: the storefront renders "payment unavailable", never an
		// empty provider selector.
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "payment_unavailable",
			"session": session,
			"message": "Payment is temporarily unavailable. Please try again later.",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"session":             session,
		"available_providers": session.Settings.AvailableProviders(),
	})
}

// GetSession handles GET /api/v1/checkout/sessions/:id
func (h *Handlers) GetSession(c *gin.Context) {
	session, err := h.checkout.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// SelectProvider handles POST /api/v1/checkout/sessions/:id/provider
func (h *Handlers) SelectProvider(c *gin.Context) {
	var req selectProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	session, err := h.checkout.SelectProvider(c.Request.Context(), c.Param("id"), req.Provider)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// Initiate handles POST /api/v1/checkout/sessions/:id/initiate
func (h *Handlers) Initiate(c *gin.Context) {
	result, session, err := h.checkout.Initiate(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	if result == nil {
		// The provider attempt resolved without suspending (unreachable or
		// cancelled); the session already carries the terminal outcome.
		c.JSON(http.StatusOK, gin.H{"session": session})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session":    session,
		"initiation": result,
	})
}

// WidgetCallback handles POST /api/v1/checkout/sessions/:id/widget-callback
func (h *Handlers) WidgetCallback(c *gin.Context) {
	var cb providers.WidgetCallback
	if err := c.ShouldBindJSON(&cb); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	session, err := h.checkout.HandleWidgetCallback(c.Request.Context(), c.Param("id"), cb)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// RedirectReturn handles GET /api/v1/checkout/return
//
// Entry after the hosted checkout navigates back. A missing reference is a
// fresh entry, not an error - leftover query parameters never fail here.
func (h *Handlers) RedirectReturn(c *gin.Context) {
	reference := c.Query("reference")

	session, err := h.checkout.HandleRedirectReturn(c.Request.Context(), reference)
	if err != nil {
		handleError(c, err)
		return
	}

	if session == nil {
		c.JSON(http.StatusOK, gin.H{"state": string(models.SessionStateIdle)})
		return
	}

	c.JSON(http.StatusOK, session)
}

// Restart handles POST /api/v1/checkout/sessions/:id/restart
func (h *Handlers) Restart(c *gin.Context) {
	session, err := h.checkout.Restart(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// GetOutcome handles GET /api/v1/checkout/outcomes/:reference
//
// Support lookup for the reference a customer quotes from the degraded
// confirmation screen.
func (h *Handlers) GetOutcome(c *gin.Context) {
	reference := c.Param("reference")

	record, err := h.outcomes.GetByReference(c.Request.Context(), reference)
	if err != nil {
		handleError(c, err)
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown reference"})
		return
	}

	c.JSON(http.StatusOK, record)
}

func handleError(c *gin.Context, err error) {
	var invalidCart *service.InvalidCartError
	var invalidTransition *service.InvalidTransitionError

	switch {
	case errors.As(err, &invalidCart):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_cart",
			"message": invalidCart.Message,
		})
	case errors.Is(err, service.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "session_not_found",
			"message": "checkout session not found or expired",
		})
	case errors.Is(err, service.ErrProviderNotAvailable):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "provider_not_available",
			"message": "the selected payment provider is not configured",
		})
	case errors.As(err, &invalidTransition):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "invalid_state",
			"message": invalidTransition.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "an unexpected error occurred",
		})
	}
}
