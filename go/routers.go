package storefrontserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apierrors "github.com/Apurer/go-gin-storefront/internal/shared/errors"
)

// Route is the information for every URI.
type Route struct {
	// Name is the name of this Route.
	Name string
	// Method is the string for the HTTP method. ex) GET, POST etc..
	Method string
	// Pattern is the pattern of the URI.
	Pattern string
	// HandlerFunc is the handler function of this route.
	HandlerFunc gin.HandlerFunc
}

// NewRouter returns a new router.
func NewRouter(handleFunctions ApiHandleFunctions) *gin.Engine {
	return NewRouterWithGinEngine(gin.Default(), handleFunctions)
}

// NewRouterWithGinEngine adds the storefront routes to an existing engine.
func NewRouterWithGinEngine(router *gin.Engine, handleFunctions ApiHandleFunctions) *gin.Engine {
	apierrors.UseJSONFieldNames()
	for _, route := range getRoutes(handleFunctions) {
		if route.HandlerFunc == nil {
			route.HandlerFunc = DefaultHandleFunc
		}
		switch route.Method {
		case http.MethodGet:
			router.GET(route.Pattern, route.HandlerFunc)
		case http.MethodPost:
			router.POST(route.Pattern, route.HandlerFunc)
		case http.MethodPatch:
			router.PATCH(route.Pattern, route.HandlerFunc)
		}
	}
	return router
}

// DefaultHandleFunc answers routes whose handler is not wired.
func DefaultHandleFunc(c *gin.Context) {
	c.String(http.StatusNotImplemented, "501 not implemented")
}

// ApiHandleFunctions groups the handlers for every storefront route.
type ApiHandleFunctions struct {
	OrdersAPI OrdersAPI
	AdminAPI  AdminAPI
	HealthAPI HealthAPI
}

func getRoutes(handleFunctions ApiHandleFunctions) []Route {
	return []Route{
		{"PlaceOrder", http.MethodPost, "/api/orders", handleFunctions.OrdersAPI.PlaceOrder},
		{"GetOrderByNumber", http.MethodGet, "/api/orders/by-number/:orderNumber", handleFunctions.OrdersAPI.GetOrderByNumber},
		{"GetOrder", http.MethodGet, "/api/orders/:orderId", handleFunctions.OrdersAPI.GetOrder},
		{"ListOrders", http.MethodGet, "/api/admin/orders", handleFunctions.AdminAPI.ListOrders},
		{"UpdateOrderStatus", http.MethodPatch, "/api/admin/orders/:orderId/status", handleFunctions.AdminAPI.UpdateOrderStatus},
		{"AdjustStock", http.MethodPost, "/api/admin/products/:productId/stock", handleFunctions.AdminAPI.AdjustStock},
		{"Healthz", http.MethodGet, "/healthz", handleFunctions.HealthAPI.Healthz},
	}
}
