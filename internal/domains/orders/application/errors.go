package application

import (
	"errors"
	"fmt"

	"github.com/Apurer/go-gin-storefront/internal/domains/orders/domain"
	"github.com/Apurer/go-gin-storefront/internal/domains/orders/ports"
)

var (
	// ErrInvalidInput signals the request violated a domain invariant. No transaction was opened.
	ErrInvalidInput = errors.New("invalid order input")
	// ErrProductNotFound means a referenced product (or an explicitly edited variant) does not exist.
	ErrProductNotFound = errors.New("product not found")
	// ErrOutOfStock wraps a *domain.OutOfStockError describing the shortfall.
	ErrOutOfStock = errors.New("out of stock")
	// ErrDuplicateOrderNumber is safe to retry; a retry allocates a fresh sequence value.
	ErrDuplicateOrderNumber = errors.New("duplicate order number")
	// ErrTransactionFailed covers every other store failure. Nothing was committed.
	ErrTransactionFailed = errors.New("order transaction failed")
	// ErrInvalidStatusTransition rejects a status change the order lifecycle does not allow.
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	// ErrIdempotencyConflict means the idempotency key was already used for a different cart.
	ErrIdempotencyConflict = errors.New("idempotency key reused with a different cart")
)

var classified = []error{
	ErrInvalidInput,
	ErrProductNotFound,
	ErrOutOfStock,
	ErrDuplicateOrderNumber,
	ErrTransactionFailed,
	ErrInvalidStatusTransition,
	ErrIdempotencyConflict,
	ports.ErrNotFound,
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	for _, target := range classified {
		if errors.Is(err, target) {
			return err
		}
	}
	var oos *domain.OutOfStockError
	switch {
	case errors.As(err, &oos):
		return fmt.Errorf("%w: %w", ErrOutOfStock, err)
	case errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrMissingProductID),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrNegativeUnitPrice),
		errors.Is(err, domain.ErrMissingCustomerName),
		errors.Is(err, domain.ErrNegativeTotals),
		errors.Is(err, domain.ErrZeroDelta),
		errors.Is(err, domain.ErrInvalidOrderNumber),
		errors.Is(err, domain.ErrInvalidStatus):
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	case errors.Is(err, domain.ErrInvalidStatusTransition):
		return fmt.Errorf("%w: %w", ErrInvalidStatusTransition, err)
	case errors.Is(err, ports.ErrProductNotFound), errors.Is(err, ports.ErrVariantNotFound):
		return fmt.Errorf("%w: %w", ErrProductNotFound, err)
	case errors.Is(err, ports.ErrDuplicateOrderNumber):
		return fmt.Errorf("%w: %w", ErrDuplicateOrderNumber, err)
	case errors.Is(err, ports.ErrIdempotencyConflict):
		return fmt.Errorf("%w: %w", ErrIdempotencyConflict, err)
	default:
		return fmt.Errorf("%w: %w", ErrTransactionFailed, err)
	}
}

// FailureReason returns a short label for err, used as a metric attribute and by the
// durable workflow to decide whether a retry can help.
func FailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrProductNotFound):
		return "product_not_found"
	case errors.Is(err, ErrOutOfStock):
		return "out_of_stock"
	case errors.Is(err, ErrDuplicateOrderNumber):
		return "duplicate_order_number"
	case errors.Is(err, ErrInvalidStatusTransition):
		return "invalid_status_transition"
	case errors.Is(err, ErrIdempotencyConflict):
		return "idempotency_conflict"
	case errors.Is(err, ports.ErrNotFound):
		return "not_found"
	default:
		return "transaction_failed"
	}
}

// Retryable reports whether running the same request again may succeed.
func Retryable(err error) bool {
	switch FailureReason(err) {
	case "duplicate_order_number", "transaction_failed":
		return true
	default:
		return false
	}
}
