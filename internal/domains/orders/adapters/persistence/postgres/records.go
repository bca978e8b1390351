package postgres

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Apurer/go-gin-storefront/internal/domains/orders/domain"
)

type productRecord struct {
	ID          uuid.UUID       `gorm:"primaryKey;column:id;type:uuid"`
	Name        string          `gorm:"column:name"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2)"`
	StockActual int             `gorm:"column:stock_actual"`
	CreatedAt   time.Time       `gorm:"column:created_at"`
	UpdatedAt   time.Time       `gorm:"column:updated_at"`
}

func (productRecord) TableName() string { return "products" }

func (r productRecord) toDomain() *domain.ProductStock {
	return &domain.ProductStock{ID: r.ID, Name: r.Name, Available: r.StockActual}
}

type variantRecord struct {
	ID        uuid.UUID `gorm:"primaryKey;column:id;type:uuid"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid"`
	Size      string    `gorm:"column:size"`
	Color     string    `gorm:"column:color"`
	ColorHex  string    `gorm:"column:color_hex"`
	Stock     int       `gorm:"column:stock"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (variantRecord) TableName() string { return "product_variants" }

func (r variantRecord) toDomain() *domain.VariantStock {
	return &domain.VariantStock{
		ID:        r.ID,
		ProductID: r.ProductID,
		Size:      r.Size,
		Color:     r.Color,
		ColorHex:  r.ColorHex,
		Available: r.Stock,
	}
}

type orderRecord struct {
	ID              uuid.UUID         `gorm:"primaryKey;column:id;type:uuid"`
	OrderNumber     string            `gorm:"column:order_number"`
	OrderSequence   int64             `gorm:"column:order_sequence"`
	Status          string            `gorm:"column:status"`
	CustomerName    string            `gorm:"column:customer_name"`
	CustomerEmail   string            `gorm:"column:customer_email"`
	CustomerPhone   string            `gorm:"column:customer_phone"`
	ShippingAddress string            `gorm:"column:shipping_address"`
	Subtotal        decimal.Decimal   `gorm:"column:subtotal;type:numeric(12,2)"`
	ShippingCost    decimal.Decimal   `gorm:"column:shipping_cost;type:numeric(12,2)"`
	Discount        decimal.Decimal   `gorm:"column:discount;type:numeric(12,2)"`
	Total           decimal.Decimal   `gorm:"column:total;type:numeric(12,2)"`
	PaymentMethod   string            `gorm:"column:payment_method"`
	Notes           string            `gorm:"column:notes"`
	TrackingCode    string            `gorm:"column:tracking_code"`
	Items           []orderItemRecord `gorm:"foreignKey:OrderID"`
	CreatedAt       time.Time         `gorm:"column:created_at"`
	UpdatedAt       time.Time         `gorm:"column:updated_at"`
}

func (orderRecord) TableName() string { return "orders" }

type orderItemRecord struct {
	ID        uuid.UUID               `gorm:"primaryKey;column:id;type:uuid"`
	OrderID   uuid.UUID               `gorm:"column:order_id;type:uuid"`
	LineNo    int                     `gorm:"column:line_no"`
	ProductID uuid.UUID               `gorm:"column:product_id;type:uuid"`
	Quantity  int                     `gorm:"column:quantity"`
	UnitPrice decimal.Decimal         `gorm:"column:unit_price;type:numeric(12,2)"`
	Variant   *domain.VariantSnapshot `gorm:"column:variant;type:jsonb;serializer:json"`
	CreatedAt time.Time               `gorm:"column:created_at"`
}

func (orderItemRecord) TableName() string { return "order_items" }

func toOrderRecord(order *domain.Order) orderRecord {
	rec := orderRecord{
		ID:              order.ID,
		OrderNumber:     order.Number,
		OrderSequence:   order.Sequence,
		Status:          string(order.Status),
		CustomerName:    order.Customer.Name,
		CustomerEmail:   order.Customer.Email,
		CustomerPhone:   order.Customer.Phone,
		ShippingAddress: order.Customer.Address,
		Subtotal:        order.Totals.Subtotal,
		ShippingCost:    order.Totals.Shipping,
		Discount:        order.Totals.Discount,
		Total:           order.Totals.Total,
		PaymentMethod:   order.PaymentMethod,
		Notes:           order.Notes,
		TrackingCode:    order.TrackingCode,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
	rec.Items = make([]orderItemRecord, 0, len(order.Items))
	for i, item := range order.Items {
		rec.Items = append(rec.Items, orderItemRecord{
			ID:        item.ID,
			OrderID:   order.ID,
			LineNo:    i,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Variant:   item.Variant,
			CreatedAt: order.CreatedAt,
		})
	}
	return rec
}

func (r orderRecord) toDomain() *domain.Order {
	order := &domain.Order{
		ID:       r.ID,
		Number:   r.OrderNumber,
		Sequence: r.OrderSequence,
		Status:   domain.Status(r.Status),
		Customer: domain.Customer{
			Name:    r.CustomerName,
			Email:   r.CustomerEmail,
			Phone:   r.CustomerPhone,
			Address: r.ShippingAddress,
		},
		Totals: domain.Totals{
			Subtotal: r.Subtotal,
			Shipping: r.ShippingCost,
			Discount: r.Discount,
			Total:    r.Total,
		},
		PaymentMethod: r.PaymentMethod,
		Notes:         r.Notes,
		TrackingCode:  r.TrackingCode,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	order.Items = make([]domain.LineItem, 0, len(r.Items))
	for _, item := range r.Items {
		order.Items = append(order.Items, domain.LineItem{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Variant:   item.Variant,
		})
	}
	return order
}
