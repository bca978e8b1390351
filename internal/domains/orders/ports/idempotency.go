package ports

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrIdempotencyConflict indicates the same key was used with a different cart.
	ErrIdempotencyConflict = errors.New("idempotency conflict")
	// ErrIdempotencyKeyTaken means a concurrent transaction committed an order under the key first.
	ErrIdempotencyKeyTaken = errors.New("idempotency key already recorded")
)

// IdempotencyRecord ties a client-supplied key to the order its first submission placed.
type IdempotencyRecord struct {
	Key           string
	RequestHash   string
	OrderID       uuid.UUID
	OrderNumber   string
	OrderSequence int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IdempotencyStore persists idempotency keys so resubmitted carts can be replayed safely.
type IdempotencyStore interface {
	// Get returns the stored record for the key, or nil when unknown.
	Get(ctx context.Context, key string) (*IdempotencyRecord, error)
	// Save persists the record; if the key already exists with the same hash and order, the stored record is returned.
	// When the key exists but points to a different request/order, ErrIdempotencyConflict is returned with the stored record.
	Save(ctx context.Context, record IdempotencyRecord) (*IdempotencyRecord, error)
}

// IdempotencyClaimer is implemented by transactions that record the idempotency key together
// with the order, so two submissions racing on one key cannot both commit.
type IdempotencyClaimer interface {
	// ClaimIdempotencyKey fails with ErrIdempotencyKeyTaken when another transaction holds the key.
	ClaimIdempotencyKey(ctx context.Context, record IdempotencyRecord) error
}
