package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/Apurer/go-gin-storefront/internal/domains/orders/domain"
	"github.com/Apurer/go-gin-storefront/internal/domains/orders/ports"
)

type normalizedCart struct {
	Items         []normalizedItem `json:"items"`
	Customer      domain.Customer  `json:"customer"`
	Totals        [4]string        `json:"totals"`
	PaymentMethod string           `json:"paymentMethod"`
	Notes         string           `json:"notes"`
}

type normalizedItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
	UnitPrice string `json:"unitPrice"`
}

// FingerprintCart builds a deterministic hash of the cart (excluding the idempotency key).
// Money is compared by value, so "19.9" and "19.90" hash the same.
func FingerprintCart(cart domain.Cart) (string, error) {
	normalized := normalizedCart{
		Items: make([]normalizedItem, 0, len(cart.Items)),
		Customer: domain.Customer{
			Name:    strings.TrimSpace(cart.Customer.Name),
			Email:   strings.ToLower(strings.TrimSpace(cart.Customer.Email)),
			Phone:   strings.TrimSpace(cart.Customer.Phone),
			Address: strings.TrimSpace(cart.Customer.Address),
		},
		Totals: [4]string{
			cart.Totals.Subtotal.String(),
			cart.Totals.Shipping.String(),
			cart.Totals.Discount.String(),
			cart.Totals.Total.String(),
		},
		PaymentMethod: strings.TrimSpace(cart.PaymentMethod),
		Notes:         strings.TrimSpace(cart.Notes),
	}
	for _, item := range cart.Items {
		n := normalizedItem{
			ProductID: item.ProductID.String(),
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.String(),
		}
		if item.Selector != nil {
			n.Size = strings.ToLower(strings.TrimSpace(item.Selector.Size))
			n.Color = strings.ToLower(strings.TrimSpace(item.Selector.Color))
		}
		normalized.Items = append(normalized.Items, n)
	}
	payload, err := json.Marshal(normalized)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// replay returns the order an earlier submission with the same key placed, or nil when
// the key is new. The cart fingerprint is returned for remember.
func (s *Service) replay(ctx context.Context, cart domain.Cart) (string, *domain.PlacedOrder, error) {
	key := strings.TrimSpace(cart.IdempotencyKey)
	if s.idempotency == nil || key == "" {
		return "", nil, nil
	}
	fingerprint, err := FingerprintCart(cart)
	if err != nil {
		return "", nil, err
	}
	record, err := s.idempotency.Get(ctx, key)
	if err != nil || record == nil {
		return fingerprint, nil, err
	}
	if record.RequestHash != fingerprint {
		return "", nil, ports.ErrIdempotencyConflict
	}
	return fingerprint, &domain.PlacedOrder{
		OrderID:     record.OrderID,
		OrderNumber: record.OrderNumber,
		Sequence:    record.OrderSequence,
		Replayed:    true,
	}, nil
}

// claim records the key inside the placement transaction when the store supports it, so
// two submissions racing past replay cannot both commit. ErrIdempotencyKeyTaken is
// returned unmapped so PlaceOrder can replay the winner.
func (s *Service) claim(ctx context.Context, tx ports.Tx, cart domain.Cart, fingerprint string, placed *domain.PlacedOrder) (bool, error) {
	key := strings.TrimSpace(cart.IdempotencyKey)
	claimer, ok := tx.(ports.IdempotencyClaimer)
	if !ok || s.idempotency == nil || key == "" {
		return false, nil
	}
	err := claimer.ClaimIdempotencyKey(ctx, newRecord(key, fingerprint, placed))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ports.ErrIdempotencyKeyTaken):
		return false, err
	default:
		return false, mapError(err)
	}
}

// remember stores the key after the order committed. A failure here cannot undo the
// order, so it is logged rather than returned.
func (s *Service) remember(ctx context.Context, cart domain.Cart, fingerprint string, placed *domain.PlacedOrder) {
	key := strings.TrimSpace(cart.IdempotencyKey)
	if s.idempotency == nil || key == "" {
		return
	}
	_, err := s.idempotency.Save(ctx, newRecord(key, fingerprint, placed))
	switch {
	case err == nil:
	case errors.Is(err, ports.ErrIdempotencyConflict):
		s.logger.ErrorContext(ctx, "idempotency key claimed by a concurrent order",
			slog.String("order.number", placed.OrderNumber))
	default:
		s.logger.WarnContext(ctx, "failed to store idempotency key",
			slog.String("order.number", placed.OrderNumber), slog.String("error", err.Error()))
	}
}

func newRecord(key, fingerprint string, placed *domain.PlacedOrder) ports.IdempotencyRecord {
	return ports.IdempotencyRecord{
		Key:           key,
		RequestHash:   fingerprint,
		OrderID:       placed.OrderID,
		OrderNumber:   placed.OrderNumber,
		OrderSequence: placed.Sequence,
	}
}
