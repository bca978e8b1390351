package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status enumerates order progression after placement.
type Status string

const (
	StatusPending    Status = "pending"
	StatusPaid       Status = "paid"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

var (
	ErrInvalidStatus           = errors.New("order status is invalid")
	ErrInvalidStatusTransition = errors.New("order status transition is not allowed")
)

var allowedTransitions = map[Status][]Status{
	StatusPending:    {StatusPaid, StatusProcessing, StatusCancelled},
	StatusPaid:       {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

// VariantSnapshot is the descriptive copy of the variant stored with a line item.
// It is informational only and never references the variant row.
type VariantSnapshot struct {
	Size      string     `json:"size,omitempty"`
	Color     string     `json:"color,omitempty"`
	ColorHex  string     `json:"color_hex,omitempty"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
}

// LineItem is a persisted order line.
type LineItem struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
	Variant   *VariantSnapshot
}

// Subtotal is quantity times the stored unit price.
func (l LineItem) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Order is the persisted order aggregate: header plus line items.
type Order struct {
	ID            uuid.UUID
	Number        string
	Sequence      int64
	Status        Status
	Customer      Customer
	Totals        Totals
	PaymentMethod string
	Notes         string
	TrackingCode  string
	Items         []LineItem
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewPendingOrder builds the header for a freshly placed cart.
func NewPendingOrder(seq int64, cart Cart) *Order {
	return &Order{
		Number:        FormatOrderNumber(seq),
		Sequence:      seq,
		Status:        StatusPending,
		Customer:      cart.Customer,
		Totals:        cart.Totals,
		PaymentMethod: cart.PaymentMethod,
		Notes:         cart.Notes,
	}
}

// TransitionTo moves the order to next if the transition table allows it.
func (o *Order) TransitionTo(next Status) error {
	if !next.Valid() {
		return ErrInvalidStatus
	}
	if !o.Status.CanTransitionTo(next) {
		return ErrInvalidStatusTransition
	}
	o.Status = next
	return nil
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// CanTransitionTo reports whether next may follow s.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PlacedOrder is the result handed back to the checkout caller.
type PlacedOrder struct {
	OrderID       uuid.UUID
	OrderNumber   string
	Sequence      int64
	DegradedLines int
	// Replayed marks a result returned for a resubmitted idempotency key.
	Replayed bool
}

// ListFilter narrows order listings for the back office.
type ListFilter struct {
	Status Status
	Limit  int
	Offset int
}
