package storefrontserver

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	ordershttpmapper "github.com/Apurer/go-gin-storefront/internal/domains/orders/adapters/http/mapper"
	ordersdomain "github.com/Apurer/go-gin-storefront/internal/domains/orders/domain"
	ordersports "github.com/Apurer/go-gin-storefront/internal/domains/orders/ports"
)

// IdempotencyKeyHeader lets a checkout client resubmit a cart without placing it twice.
const IdempotencyKeyHeader = "Idempotency-Key"

// OrdersAPI wires HTTP transport with the orders service and placement workflows.
type OrdersAPI struct {
	service   ordersports.Service
	workflows ordersports.WorkflowOrchestrator
}

// NewOrdersAPI creates an OrdersAPI backed by the provided service.
func NewOrdersAPI(service ordersports.Service, workflows ordersports.WorkflowOrchestrator) OrdersAPI {
	return OrdersAPI{service: service, workflows: workflows}
}

// Post /api/orders
// Places an order from the submitted cart
func (api *OrdersAPI) PlaceOrder(c *gin.Context) {
	var payload ordershttpmapper.PlaceOrderRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindingError(c, err)
		return
	}
	cart := ordershttpmapper.ToCart(payload, c.GetHeader(IdempotencyKeyHeader))
	placed, err := api.placeOrder(c.Request.Context(), cart)
	if err != nil {
		respondOrdersError(c, err)
		return
	}
	status := http.StatusCreated
	if placed.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, ordershttpmapper.FromPlacedOrder(placed))
}

func (api *OrdersAPI) placeOrder(ctx context.Context, cart ordersdomain.Cart) (*ordersdomain.PlacedOrder, error) {
	if api.workflows != nil {
		return api.workflows.PlaceOrder(ctx, cart)
	}
	return api.service.PlaceOrder(ctx, cart)
}

// Get /api/orders/:orderId
// Find order by ID
func (api *OrdersAPI) GetOrder(c *gin.Context) {
	id, ok := parseUUIDParam(c, "orderId")
	if !ok {
		return
	}
	order, err := api.service.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondOrdersError(c, err)
		return
	}
	c.JSON(http.StatusOK, ordershttpmapper.FromDomainOrder(order))
}

// Get /api/orders/by-number/:orderNumber
// Find order by its customer-facing number
func (api *OrdersAPI) GetOrderByNumber(c *gin.Context) {
	order, err := api.service.GetOrderByNumber(c.Request.Context(), c.Param("orderNumber"))
	if err != nil {
		respondOrdersError(c, err)
		return
	}
	c.JSON(http.StatusOK, ordershttpmapper.FromDomainOrder(order))
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondBadRequest(c, err)
		return uuid.Nil, false
	}
	return id, true
}
