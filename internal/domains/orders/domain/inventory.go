package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrZeroDelta = errors.New("stock adjustment delta must not be zero")

// StockLevel tells which counter rejected a request.
type StockLevel string

const (
	LevelVariant StockLevel = "variant"
	LevelProduct StockLevel = "product"
)

// ProductStock is the locked view of a product row.
type ProductStock struct {
	ID        uuid.UUID
	Name      string
	Available int
}

// VariantStock is the locked view of a product variant row.
type VariantStock struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	Size      string
	Color     string
	ColorHex  string
	Available int
}

// Snapshot copies the descriptive fields for storage on a line item.
func (v *VariantStock) Snapshot() *VariantSnapshot {
	id := v.ID
	return &VariantSnapshot{Size: v.Size, Color: v.Color, ColorHex: v.ColorHex, VariantID: &id}
}

// DecrementPlan is the validated set of stock writes for one cart line. VariantID is nil
// when only the product aggregate is touched.
type DecrementPlan struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
	Snapshot  *VariantSnapshot
	Degraded  bool
}

// StockAdjustment is a back-office edit of stock counters. A positive delta restocks.
type StockAdjustment struct {
	ProductID uuid.UUID
	Selector  *VariantSelector
	Delta     int
}

// Validate rejects adjustments that would not change anything.
func (a StockAdjustment) Validate() error {
	if a.ProductID == uuid.Nil {
		return ErrMissingProductID
	}
	if a.Delta == 0 {
		return ErrZeroDelta
	}
	return nil
}

// OutOfStockError reports which product (and variant) could not cover a request.
type OutOfStockError struct {
	ProductID   uuid.UUID
	ProductName string
	Selector    *VariantSelector
	Requested   int
	Available   int
	Level       StockLevel
}

func (e *OutOfStockError) Error() string {
	name := e.ProductName
	if name == "" {
		name = e.ProductID.String()
	}
	if e.Level == LevelVariant && e.Selector != nil {
		return fmt.Sprintf("insufficient stock for %s (%s): requested %d, available %d",
			name, e.Selector, e.Requested, e.Available)
	}
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", name, e.Requested, e.Available)
}
