package ports

import (
	"context"

	"github.com/Apurer/go-gin-storefront/internal/domains/orders/domain"
)

// WorkflowOrchestrator runs order placement durably, deduplicated by the cart's idempotency key.
type WorkflowOrchestrator interface {
	PlaceOrder(ctx context.Context, cart domain.Cart) (*domain.PlacedOrder, error)
}
