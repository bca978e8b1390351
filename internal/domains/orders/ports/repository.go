package ports

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/Apurer/go-gin-storefront/internal/domains/orders/domain"
)

var (
	ErrNotFound             = errors.New("order not found")
	ErrProductNotFound      = errors.New("product not found")
	ErrVariantNotFound      = errors.New("product variant not found")
	ErrDuplicateOrderNumber = errors.New("order number already in use")
	// ErrStoreUnavailable marks failures of the backing store itself: timeouts, lost
	// connections, deadlocks, serialization failures.
	ErrStoreUnavailable = errors.New("order store unavailable")
)

// Transactor opens the single atomic unit of work used by order placement and stock edits.
type Transactor interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is an open transaction. Rows returned by the Lock methods stay locked until Commit or
// Rollback. Rollback after Commit is a no-op.
type Tx interface {
	NextOrderSequence(ctx context.Context) (int64, error)

	LockProduct(ctx context.Context, productID uuid.UUID) (*domain.ProductStock, error)
	LockVariant(ctx context.Context, productID uuid.UUID, selector domain.VariantSelector) (*domain.VariantStock, error)
	DecrementVariant(ctx context.Context, variantID uuid.UUID, quantity int) error
	DecrementProduct(ctx context.Context, productID uuid.UUID, quantity int) error

	InsertOrder(ctx context.Context, order *domain.Order) (uuid.UUID, error)
	LockOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status domain.Status, trackingCode string) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// OrderReader serves read-only order lookups outside of placement.
type OrderReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	// GetByNumber returns the most recent order carrying number.
	GetByNumber(ctx context.Context, number string) (*domain.Order, error)
	List(ctx context.Context, filter domain.ListFilter) ([]*domain.Order, error)
}

// CatalogSeeder loads products and variants, used for fixtures and bootstrap catalogs.
// Existing rows with the same ids are overwritten.
type CatalogSeeder interface {
	SeedProduct(ctx context.Context, product domain.ProductStock, variants ...domain.VariantStock) error
}

// Repository is the full persistence port of the orders context.
type Repository interface {
	Transactor
	OrderReader
}
