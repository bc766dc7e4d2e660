package service

import (
	"math"

	"github.com/lumen-studio/checkout-service/internal/models"
)

// CalculateTax computes the tax amount for a subtotal. Half-up rounding to
// whole cents happens here, at computation time, so repeated calculation is
// idempotent and totals stay consistent across UI and analytics payloads.
func CalculateTax(subtotal models.Money, taxRatePercent float64) models.Money {
	cents := int64(math.Floor(float64(subtotal.Amount)*taxRatePercent/100 + 0.5))
	return models.Money{Amount: cents, Currency: subtotal.Currency}
}

// CalculateTotals computes the full pricing breakdown from cart items and
// billing settings. Pure and deterministic; the cart must already be
// validated.
func CalculateTotals(items []models.CartItem, settings *models.BillingSettings) models.Totals {
	subtotal := models.Money{Currency: settings.CurrencyCode}
	for _, item := range items {
		subtotal.Amount += item.UnitPrice.Amount * int64(item.Quantity)
	}

	tax := CalculateTax(subtotal, settings.TaxRatePercent)

	return models.Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}
