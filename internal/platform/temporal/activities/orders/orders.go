package orders

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	ordersapp "github.com/Apurer/go-gin-storefront/internal/domains/orders/application"
	ordersdomain "github.com/Apurer/go-gin-storefront/internal/domains/orders/domain"
	ordersports "github.com/Apurer/go-gin-storefront/internal/domains/orders/ports"
)

const (
	// PlaceOrderActivityName runs one placement transaction.
	PlaceOrderActivityName = "orders.activities.PlaceOrder"
)

// Activities groups activities that operate on the orders bounded context.
type Activities struct {
	service ordersports.Service
}

// NewActivities wires the orders service into the Temporal activities bundle.
func NewActivities(service ordersports.Service) *Activities {
	return &Activities{service: service}
}

// PlaceOrder runs the placement transaction. Caller errors are returned as non-retryable
// application errors typed with their failure reason; store failures and duplicate order
// numbers are left to the retry policy, each retry allocating a fresh sequence value.
func (a *Activities) PlaceOrder(ctx context.Context, cart ordersdomain.Cart) (*ordersdomain.PlacedOrder, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.service == nil {
		logger.Error("place order activity not initialized")
		return nil, errors.New("place order activity not initialized")
	}
	info := activity.GetInfo(ctx)
	logger.Info("PlaceOrder activity started", "lines", len(cart.Items), "attempt", info.Attempt)
	placed, err := a.service.PlaceOrder(ctx, cart)
	if err != nil {
		reason := ordersapp.FailureReason(err)
		logger.Error("PlaceOrder activity failed", "reason", reason, "error", err)
		return nil, ToApplicationError(err)
	}
	logger.Info("PlaceOrder activity completed", "orderId", placed.OrderID.String(), "orderNumber", placed.OrderNumber)
	return placed, nil
}

// ToApplicationError converts a placement failure into a Temporal application error whose
// type is the failure reason. Out-of-stock details travel as the error details.
func ToApplicationError(err error) error {
	reason := ordersapp.FailureReason(err)
	var details []interface{}
	var oos *ordersdomain.OutOfStockError
	if errors.As(err, &oos) {
		details = append(details, *oos)
	}
	if ordersapp.Retryable(err) {
		return temporal.NewApplicationErrorWithCause(err.Error(), reason, err, details...)
	}
	return temporal.NewNonRetryableApplicationError(err.Error(), reason, err, details...)
}

// FromApplicationError restores the orders error taxonomy from a Temporal failure chain.
// Errors that carry no recognised application error are reported as transaction failures.
func FromApplicationError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		return errors.Join(ordersapp.ErrTransactionFailed, err)
	}
	var sentinel error
	switch appErr.Type() {
	case "invalid_input":
		sentinel = ordersapp.ErrInvalidInput
	case "product_not_found":
		sentinel = ordersapp.ErrProductNotFound
	case "out_of_stock":
		sentinel = ordersapp.ErrOutOfStock
		if appErr.HasDetails() {
			var oos ordersdomain.OutOfStockError
			if appErr.Details(&oos) == nil {
				return errors.Join(sentinel, &oos)
			}
		}
	case "duplicate_order_number":
		sentinel = ordersapp.ErrDuplicateOrderNumber
	case "idempotency_conflict":
		sentinel = ordersapp.ErrIdempotencyConflict
	default:
		sentinel = ordersapp.ErrTransactionFailed
	}
	return errors.Join(sentinel, errors.New(appErr.Message()))
}
