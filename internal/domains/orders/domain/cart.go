package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyCart           = errors.New("cart must contain at least one item")
	ErrMissingProductID    = errors.New("cart item is missing a product id")
	ErrInvalidQuantity     = errors.New("quantity must be greater than zero")
	ErrNegativeUnitPrice   = errors.New("unit price cannot be negative")
	ErrMissingCustomerName = errors.New("customer name is required")
	ErrNegativeTotals      = errors.New("order totals cannot be negative")
)

// VariantSelector identifies a size/color combination of a product. Color may be either
// the color name or its hex code.
type VariantSelector struct {
	Size  string
	Color string
}

// Complete reports whether both size and color are present.
func (s *VariantSelector) Complete() bool {
	if s == nil {
		return false
	}
	return strings.TrimSpace(s.Size) != "" && strings.TrimSpace(s.Color) != ""
}

func (s *VariantSelector) String() string {
	if s == nil {
		return ""
	}
	return fmt.Sprintf("%s/%s", s.Size, s.Color)
}

// CartItem is one requested line of a checkout.
type CartItem struct {
	ProductID uuid.UUID
	Quantity  int
	Selector  *VariantSelector
	UnitPrice decimal.Decimal
}

// Customer carries the contact fields copied onto the order.
type Customer struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

// Totals are computed upstream (coupons, shipping) and stored as supplied.
type Totals struct {
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// Cart is the checkout payload consumed by order placement.
type Cart struct {
	Items          []CartItem
	Customer       Customer
	Totals         Totals
	PaymentMethod  string
	Notes          string
	IdempotencyKey string
}

// Validate enforces the input invariants that must hold before a transaction is opened.
func (c *Cart) Validate() error {
	if c == nil || len(c.Items) == 0 {
		return ErrEmptyCart
	}
	for i, item := range c.Items {
		if item.ProductID == uuid.Nil {
			return fmt.Errorf("item %d: %w", i, ErrMissingProductID)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("item %d: %w", i, ErrInvalidQuantity)
		}
		if item.UnitPrice.IsNegative() {
			return fmt.Errorf("item %d: %w", i, ErrNegativeUnitPrice)
		}
	}
	if strings.TrimSpace(c.Customer.Name) == "" {
		return ErrMissingCustomerName
	}
	t := c.Totals
	if t.Subtotal.IsNegative() || t.Shipping.IsNegative() || t.Discount.IsNegative() || t.Total.IsNegative() {
		return ErrNegativeTotals
	}
	return nil
}
