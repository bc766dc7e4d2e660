package service

import (
	"fmt"

	"github.com/lumen-studio/checkout-service/internal/models"
)

// InvalidCartError indicates the cart violates a checkout precondition.
// Surfaced immediately; blocks initiation.
type InvalidCartError struct {
	Field   string
	Message string
}

func (e *InvalidCartError) Error() string {
	return fmt.Sprintf("invalid cart: %s: %s", e.Field, e.Message)
}

// ValidateCart checks the cart against checkout preconditions: non-empty,
// positive quantities, positive unit prices.
func ValidateCart(items []models.CartItem) error {
	if len(items) == 0 {
		return &InvalidCartError{Field: "items", Message: "cart is empty"}
	}

	for i, item := range items {
		if item.ID == "" {
			return &InvalidCartError{Field: "items", Message: fmt.Sprintf("item %d is missing an id", i)}
		}
		if item.Quantity <= 0 {
			return &InvalidCartError{Field: "items", Message: fmt.Sprintf("item %q has non-positive quantity", item.ID)}
		}
		if item.UnitPrice.Amount <= 0 {
			return &InvalidCartError{Field: "items", Message: fmt.Sprintf("item %q has non-positive price", item.ID)}
		}
	}

	return nil
}
