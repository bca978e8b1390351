package mapper

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	ordersdomain "github.com/Apurer/go-gin-storefront/internal/domains/orders/domain"
)

// CartItem is one checkout line as submitted by the storefront.
type CartItem struct {
	ProductID uuid.UUID       `json:"productId"`
	Quantity  int             `json:"quantity"`
	Size      string          `json:"size,omitempty"`
	Color     string          `json:"color,omitempty"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type Customer struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

// PlaceOrderRequest is the checkout payload accepted by POST /api/orders.
type PlaceOrderRequest struct {
	Items         []CartItem `json:"items"`
	Customer      Customer   `json:"customer"`
	Totals        Totals     `json:"totals"`
	PaymentMethod string     `json:"paymentMethod,omitempty"`
	Notes         string     `json:"notes,omitempty"`
}

// PlacedOrder is returned once the placement transaction commits.
type PlacedOrder struct {
	OrderID       uuid.UUID `json:"orderId"`
	OrderNumber   string    `json:"orderNumber"`
	DegradedLines int       `json:"degradedLines,omitempty"`
}

type Variant struct {
	Size      string     `json:"size,omitempty"`
	Color     string     `json:"color,omitempty"`
	ColorHex  string     `json:"colorHex,omitempty"`
	VariantID *uuid.UUID `json:"variantId,omitempty"`
}

type LineItem struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Variant   *Variant        `json:"variant,omitempty"`
}

// Order is the back-office view of a persisted order.
type Order struct {
	ID            uuid.UUID  `json:"id"`
	OrderNumber   string     `json:"orderNumber"`
	Status        string     `json:"status"`
	Customer      Customer   `json:"customer"`
	Totals        Totals     `json:"totals"`
	PaymentMethod string     `json:"paymentMethod,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	TrackingCode  string     `json:"trackingCode,omitempty"`
	Items         []LineItem `json:"items"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

type StatusUpdate struct {
	Status       string `json:"status" binding:"required"`
	TrackingCode string `json:"trackingCode,omitempty"`
}

type StockAdjustment struct {
	Size  string `json:"size,omitempty"`
	Color string `json:"color,omitempty"`
	Delta int    `json:"delta"`
}

// ToCart converts the checkout payload into the domain cart. Blank size or color yields no selector.
func ToCart(req PlaceOrderRequest, idempotencyKey string) ordersdomain.Cart {
	items := make([]ordersdomain.CartItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, ordersdomain.CartItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Selector:  toSelector(item.Size, item.Color),
			UnitPrice: item.UnitPrice,
		})
	}
	return ordersdomain.Cart{
		Items: items,
		Customer: ordersdomain.Customer{
			Name:    strings.TrimSpace(req.Customer.Name),
			Email:   strings.TrimSpace(req.Customer.Email),
			Phone:   strings.TrimSpace(req.Customer.Phone),
			Address: strings.TrimSpace(req.Customer.Address),
		},
		Totals: ordersdomain.Totals{
			Subtotal: req.Totals.Subtotal,
			Shipping: req.Totals.Shipping,
			Discount: req.Totals.Discount,
			Total:    req.Totals.Total,
		},
		PaymentMethod:  strings.TrimSpace(req.PaymentMethod),
		Notes:          strings.TrimSpace(req.Notes),
		IdempotencyKey: strings.TrimSpace(idempotencyKey),
	}
}

func ToStockAdjustment(productID uuid.UUID, req StockAdjustment) ordersdomain.StockAdjustment {
	return ordersdomain.StockAdjustment{
		ProductID: productID,
		Selector:  toSelector(req.Size, req.Color),
		Delta:     req.Delta,
	}
}

func toSelector(size, color string) *ordersdomain.VariantSelector {
	if strings.TrimSpace(size) == "" && strings.TrimSpace(color) == "" {
		return nil
	}
	return &ordersdomain.VariantSelector{Size: strings.TrimSpace(size), Color: strings.TrimSpace(color)}
}

func FromPlacedOrder(placed *ordersdomain.PlacedOrder) PlacedOrder {
	if placed == nil {
		return PlacedOrder{}
	}
	return PlacedOrder{OrderID: placed.OrderID, OrderNumber: placed.OrderNumber, DegradedLines: placed.DegradedLines}
}

// FromDomainOrder converts a domain order to the transport representation.
func FromDomainOrder(order *ordersdomain.Order) Order {
	if order == nil {
		return Order{}
	}
	items := make([]LineItem, 0, len(order.Items))
	for _, item := range order.Items {
		line := LineItem{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.Subtotal(),
		}
		if item.Variant != nil {
			line.Variant = &Variant{
				Size:      item.Variant.Size,
				Color:     item.Variant.Color,
				ColorHex:  item.Variant.ColorHex,
				VariantID: item.Variant.VariantID,
			}
		}
		items = append(items, line)
	}
	return Order{
		ID:          order.ID,
		OrderNumber: order.Number,
		Status:      string(order.Status),
		Customer: Customer{
			Name:    order.Customer.Name,
			Email:   order.Customer.Email,
			Phone:   order.Customer.Phone,
			Address: order.Customer.Address,
		},
		Totals: Totals{
			Subtotal: order.Totals.Subtotal,
			Shipping: order.Totals.Shipping,
			Discount: order.Totals.Discount,
			Total:    order.Totals.Total,
		},
		PaymentMethod: order.PaymentMethod,
		Notes:         order.Notes,
		TrackingCode:  order.TrackingCode,
		Items:         items,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	}
}

func FromDomainOrders(orders []*ordersdomain.Order) []Order {
	out := make([]Order, 0, len(orders))
	for _, order := range orders {
		out = append(out, FromDomainOrder(order))
	}
	return out
}
