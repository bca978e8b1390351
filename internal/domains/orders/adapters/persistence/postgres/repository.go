package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/go-gin-storefront/internal/domains/orders/domain"
	"github.com/Apurer/go-gin-storefront/internal/domains/orders/ports"
)

var (
	_ ports.Repository    = (*Repository)(nil)
	_ ports.CatalogSeeder = (*Repository)(nil)
	_ ports.Tx            = (*tx)(nil)
)

// Repository persists orders and reserves stock in PostgreSQL using GORM. Schema is owned by
// the migrations package.
type Repository struct {
	db               *gorm.DB
	statementTimeout time.Duration
	lockTimeout      time.Duration
}

type Option func(*Repository)

// WithStatementTimeout bounds every statement of a transaction via SET LOCAL statement_timeout.
func WithStatementTimeout(d time.Duration) Option {
	return func(r *Repository) {
		r.statementTimeout = d
	}
}

// WithLockTimeout bounds how long a transaction waits for a row lock via SET LOCAL lock_timeout.
func WithLockTimeout(d time.Duration) Option {
	return func(r *Repository) {
		r.lockTimeout = d
	}
}

// NewRepository wires a PostgreSQL-backed repository. Caller manages DB lifecycle.
func NewRepository(db *gorm.DB, opts ...Option) *Repository {
	repo := &Repository{db: db}
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}
	return repo
}

// Begin opens a transaction and applies the configured local timeouts.
func (r *Repository) Begin(ctx context.Context) (ports.Tx, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	gtx := r.db.WithContext(ctx).Begin()
	if gtx.Error != nil {
		return nil, classify(gtx.Error)
	}
	for setting, d := range map[string]time.Duration{
		"statement_timeout": r.statementTimeout,
		"lock_timeout":      r.lockTimeout,
	} {
		if d <= 0 {
			continue
		}
		// SET does not accept bind parameters.
		if err := gtx.Exec(fmt.Sprintf("SET LOCAL %s = %d", setting, d.Milliseconds())).Error; err != nil {
			gtx.Rollback()
			return nil, classify(err)
		}
	}
	return &tx{db: gtx}, nil
}

// GetByID fetches an order and its line items.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var record orderRecord
	err := r.db.WithContext(ctx).Preload("Items", orderedItems).Take(&record, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, classify(err)
	}
	return record.toDomain(), nil
}

// GetByNumber returns the most recent order carrying number.
func (r *Repository) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var record orderRecord
	err := r.db.WithContext(ctx).
		Preload("Items", orderedItems).
		Where("order_number = ?", number).
		Order("order_sequence DESC").
		Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, classify(err)
	}
	return record.toDomain(), nil
}

// List returns orders newest first.
func (r *Repository) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	query := r.db.WithContext(ctx).Preload("Items", orderedItems).Order("order_sequence DESC")
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	var records []orderRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, classify(err)
	}
	orders := make([]*domain.Order, 0, len(records))
	for i := range records {
		orders = append(orders, records[i].toDomain())
	}
	return orders, nil
}

// SeedProduct upserts a product and its variants.
func (r *Repository) SeedProduct(ctx context.Context, product domain.ProductStock, variants ...domain.VariantStock) error {
	if err := r.ensureDB(); err != nil {
		return err
	}
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		rec := productRecord{ID: product.ID, Name: product.Name, StockActual: product.Available}
		if err := gtx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"name":         rec.Name,
				"stock_actual": rec.StockActual,
				"updated_at":   gorm.Expr("NOW()"),
			}),
		}).Create(&rec).Error; err != nil {
			return classify(err)
		}
		for _, v := range variants {
			if v.ID == uuid.Nil {
				v.ID = uuid.New()
			}
			vrec := variantRecord{
				ID:        v.ID,
				ProductID: product.ID,
				Size:      v.Size,
				Color:     v.Color,
				ColorHex:  v.ColorHex,
				Stock:     v.Available,
			}
			if err := gtx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "id"}},
				DoUpdates: clause.Assignments(map[string]any{
					"size":       vrec.Size,
					"color":      vrec.Color,
					"color_hex":  vrec.ColorHex,
					"stock":      vrec.Stock,
					"updated_at": gorm.Expr("NOW()"),
				}),
			}).Create(&vrec).Error; err != nil {
				return classify(err)
			}
		}
		return nil
	})
}

// ProductStock reads the committed product counter without locking.
func (r *Repository) ProductStock(ctx context.Context, id uuid.UUID) (*domain.ProductStock, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var rec productRecord
	if err := r.db.WithContext(ctx).Take(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrProductNotFound
		}
		return nil, classify(err)
	}
	return rec.toDomain(), nil
}

// VariantStock reads the committed variant counter without locking.
func (r *Repository) VariantStock(ctx context.Context, id uuid.UUID) (*domain.VariantStock, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var rec variantRecord
	if err := r.db.WithContext(ctx).Take(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrVariantNotFound
		}
		return nil, classify(err)
	}
	return rec.toDomain(), nil
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres order repository not configured")
	}
	return nil
}

// orderedItems returns line items in the order they appeared in the cart.
func orderedItems(db *gorm.DB) *gorm.DB {
	return db.Order("line_no")
}

// tx is one open database transaction. Locked rows stay locked until Commit or Rollback.
type tx struct {
	db   *gorm.DB
	done bool
}

func (t *tx) NextOrderSequence(ctx context.Context) (int64, error) {
	var seq int64
	if err := t.db.WithContext(ctx).Raw("SELECT nextval('order_number_seq')").Scan(&seq).Error; err != nil {
		return 0, classify(err)
	}
	return seq, nil
}

func (t *tx) LockProduct(ctx context.Context, productID uuid.UUID) (*domain.ProductStock, error) {
	var rec productRecord
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Take(&rec, "id = ?", productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrProductNotFound
		}
		return nil, classify(err)
	}
	return rec.toDomain(), nil
}

// LockVariant matches size exactly and color against either the color name or its hex code,
// both case-insensitively.
func (t *tx) LockVariant(ctx context.Context, productID uuid.UUID, selector domain.VariantSelector) (*domain.VariantStock, error) {
	size, color := strings.TrimSpace(selector.Size), strings.TrimSpace(selector.Color)
	var rec variantRecord
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ? AND LOWER(size) = LOWER(?) AND (LOWER(color) = LOWER(?) OR LOWER(color_hex) = LOWER(?))",
			productID, size, color, color).
		Order("id").
		Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrVariantNotFound
		}
		return nil, classify(err)
	}
	return rec.toDomain(), nil
}

func (t *tx) DecrementVariant(ctx context.Context, variantID uuid.UUID, quantity int) error {
	result := t.db.WithContext(ctx).Model(&variantRecord{}).
		Where("id = ?", variantID).
		Updates(map[string]any{
			"stock":      gorm.Expr("stock - ?", quantity),
			"updated_at": gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return classify(result.Error)
	}
	if result.RowsAffected == 0 {
		return ports.ErrVariantNotFound
	}
	return nil
}

func (t *tx) DecrementProduct(ctx context.Context, productID uuid.UUID, quantity int) error {
	result := t.db.WithContext(ctx).Model(&productRecord{}).
		Where("id = ?", productID).
		Updates(map[string]any{
			"stock_actual": gorm.Expr("stock_actual - ?", quantity),
			"updated_at":   gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return classify(result.Error)
	}
	if result.RowsAffected == 0 {
		return ports.ErrProductNotFound
	}
	return nil
}

// InsertOrder writes the header and its line items and returns the generated order id.
func (t *tx) InsertOrder(ctx context.Context, order *domain.Order) (uuid.UUID, error) {
	if order == nil {
		return uuid.Nil, errors.New("order is nil")
	}
	clone := *order
	clone.ID = uuid.New()
	now := time.Now().UTC()
	clone.CreatedAt, clone.UpdatedAt = now, now
	clone.Items = make([]domain.LineItem, len(order.Items))
	for i, item := range order.Items {
		item.ID = uuid.New()
		clone.Items[i] = item
	}
	record := toOrderRecord(&clone)
	items := record.Items
	record.Items = nil

	db := t.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Create(&record).Error; err != nil {
		return uuid.Nil, classify(err)
	}
	if len(items) > 0 {
		if err := db.Create(&items).Error; err != nil {
			return uuid.Nil, classify(err)
		}
	}
	return record.ID, nil
}

func (t *tx) LockOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	var record orderRecord
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Take(&record, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, classify(err)
	}
	if err := orderedItems(t.db.WithContext(ctx)).Where("order_id = ?", id).Find(&record.Items).Error; err != nil {
		return nil, classify(err)
	}
	return record.toDomain(), nil
}

func (t *tx) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status domain.Status, trackingCode string) error {
	result := t.db.WithContext(ctx).Model(&orderRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        string(status),
			"tracking_code": trackingCode,
			"updated_at":    gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return classify(result.Error)
	}
	if result.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (t *tx) Commit(_ context.Context) error {
	if t.done {
		return classify(sql.ErrTxDone)
	}
	t.done = true
	return classify(t.db.Commit().Error)
}

func (t *tx) Rollback(_ context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	err := t.db.Rollback().Error
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return classify(err)
	}
	return nil
}
