package storefrontserver

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	ordershttpmapper "github.com/Apurer/go-gin-storefront/internal/domains/orders/adapters/http/mapper"
	ordersdomain "github.com/Apurer/go-gin-storefront/internal/domains/orders/domain"
	ordersports "github.com/Apurer/go-gin-storefront/internal/domains/orders/ports"
)

// AdminAPI exposes back-office order and stock operations.
type AdminAPI struct {
	service ordersports.Service
}

func NewAdminAPI(service ordersports.Service) AdminAPI {
	return AdminAPI{service: service}
}

// Get /api/admin/orders
// Lists orders, newest first, optionally filtered by status
func (api *AdminAPI) ListOrders(c *gin.Context) {
	filter := ordersdomain.ListFilter{Status: ordersdomain.Status(c.Query("status"))}
	var ok bool
	if filter.Limit, ok = parseIntQuery(c, "limit"); !ok {
		return
	}
	if filter.Offset, ok = parseIntQuery(c, "offset"); !ok {
		return
	}
	orders, err := api.service.ListOrders(c.Request.Context(), filter)
	if err != nil {
		respondOrdersError(c, err)
		return
	}
	c.JSON(http.StatusOK, ordershttpmapper.FromDomainOrders(orders))
}

// Patch /api/admin/orders/:orderId/status
// Moves an order to a new status
func (api *AdminAPI) UpdateOrderStatus(c *gin.Context) {
	id, ok := parseUUIDParam(c, "orderId")
	if !ok {
		return
	}
	var payload ordershttpmapper.StatusUpdate
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindingError(c, err)
		return
	}
	order, err := api.service.UpdateStatus(c.Request.Context(), id, ordersdomain.Status(payload.Status), payload.TrackingCode)
	if err != nil {
		respondOrdersError(c, err)
		return
	}
	c.JSON(http.StatusOK, ordershttpmapper.FromDomainOrder(order))
}

// Post /api/admin/products/:productId/stock
// Applies a locked stock delta to a product and, with size and color, to one variant
func (api *AdminAPI) AdjustStock(c *gin.Context) {
	productID, ok := parseUUIDParam(c, "productId")
	if !ok {
		return
	}
	var payload ordershttpmapper.StockAdjustment
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindingError(c, err)
		return
	}
	if err := api.service.AdjustStock(c.Request.Context(), ordershttpmapper.ToStockAdjustment(productID, payload)); err != nil {
		respondOrdersError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func parseIntQuery(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		respondBadRequest(c, err)
		return 0, false
	}
	return value, true
}
