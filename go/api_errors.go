package storefrontserver

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	ordersapp "github.com/Apurer/go-gin-storefront/internal/domains/orders/application"
	ordersdomain "github.com/Apurer/go-gin-storefront/internal/domains/orders/domain"
	ordersports "github.com/Apurer/go-gin-storefront/internal/domains/orders/ports"
	apierrors "github.com/Apurer/go-gin-storefront/internal/shared/errors"
)

// placementRetryDelay is the Retry-After hint for transient placement failures.
const placementRetryDelay = time.Second

var ordersResponder = apierrors.NewResponder(apierrors.WithMappers(mapOrdersError))

// respondOrdersError renders an orders failure as problem details.
func respondOrdersError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	ordersResponder.RespondError(c, err)
}

func respondBadRequest(c *gin.Context, err error) {
	ordersResponder.Respond(c, apierrors.ErrBadRequest.WithDetail(err.Error()))
}

func respondBindingError(c *gin.Context, err error) {
	ordersResponder.RespondBindingError(c, err)
}

// mapOrdersError maps the orders error taxonomy onto problem details.
func mapOrdersError(err error) (apierrors.ProblemDetail, bool) {
	var oos *ordersdomain.OutOfStockError
	switch {
	case errors.As(err, &oos):
		return outOfStockProblem(oos), true
	case errors.Is(err, ordersapp.ErrInvalidInput):
		return apierrors.ErrValidation.WithDetail(err.Error()), true
	case errors.Is(err, ordersapp.ErrProductNotFound):
		return apierrors.ErrUnprocessable.WithDetail(err.Error()), true
	case errors.Is(err, ordersapp.ErrOutOfStock):
		return apierrors.ErrOutOfStock.WithDetail(err.Error()), true
	case errors.Is(err, ordersapp.ErrInvalidStatusTransition), errors.Is(err, ordersapp.ErrIdempotencyConflict):
		return apierrors.ErrConflict.WithDetail(err.Error()), true
	case errors.Is(err, ordersports.ErrNotFound):
		return apierrors.ErrNotFound.WithDetail(err.Error()), true
	case errors.Is(err, ordersapp.ErrDuplicateOrderNumber), errors.Is(err, ordersapp.ErrTransactionFailed):
		return apierrors.ErrServiceUnavailable.WithDetail(err.Error()).Retryable(placementRetryDelay), true
	}
	return apierrors.ProblemDetail{}, false
}

func outOfStockProblem(oos *ordersdomain.OutOfStockError) apierrors.ProblemDetail {
	members := map[string]any{
		"productId": oos.ProductID.String(),
		"requested": oos.Requested,
		"available": oos.Available,
		"level":     string(oos.Level),
	}
	if oos.ProductName != "" {
		members["productName"] = oos.ProductName
	}
	if oos.Selector != nil {
		members["size"] = oos.Selector.Size
		members["color"] = oos.Selector.Color
	}
	return apierrors.ErrOutOfStock.WithDetail(oos.Error()).WithExtensions(members)
}
