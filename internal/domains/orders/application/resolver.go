package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/Apurer/go-gin-storefront/internal/domains/orders/domain"
	"github.com/Apurer/go-gin-storefront/internal/domains/orders/ports"
)

// stockStrategy validates one cart line against locked stock and returns the writes to apply.
// Implementations never write.
type stockStrategy interface {
	plan(ctx context.Context, tx ports.Tx, product *domain.ProductStock, item domain.CartItem) (domain.DecrementPlan, error)
}

type resolver struct {
	logger *slog.Logger
}

func (r resolver) resolve(ctx context.Context, tx ports.Tx, item domain.CartItem) (domain.DecrementPlan, error) {
	product, err := tx.LockProduct(ctx, item.ProductID)
	if err != nil {
		return domain.DecrementPlan{}, err
	}
	return r.strategyFor(item).plan(ctx, tx, product, item)
}

func (r resolver) strategyFor(item domain.CartItem) stockStrategy {
	if item.Selector.Complete() {
		return variantStock{logger: r.logger}
	}
	return aggregateStock{}
}

// aggregateStock checks and decrements the product-level counter only.
type aggregateStock struct {
	degraded bool
}

func (a aggregateStock) plan(_ context.Context, _ ports.Tx, product *domain.ProductStock, item domain.CartItem) (domain.DecrementPlan, error) {
	if product.Available < item.Quantity {
		return domain.DecrementPlan{}, &domain.OutOfStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Selector:    item.Selector,
			Requested:   item.Quantity,
			Available:   product.Available,
			Level:       domain.LevelProduct,
		}
	}
	return domain.DecrementPlan{
		ProductID: product.ID,
		Quantity:  item.Quantity,
		Snapshot:  selectorSnapshot(item.Selector),
		Degraded:  a.degraded,
	}, nil
}

// variantStock checks the variant counter and the product aggregate, falling back to the
// aggregate alone when the requested variant does not exist.
type variantStock struct {
	logger *slog.Logger
}

func (v variantStock) plan(ctx context.Context, tx ports.Tx, product *domain.ProductStock, item domain.CartItem) (domain.DecrementPlan, error) {
	variant, err := tx.LockVariant(ctx, product.ID, *item.Selector)
	if errors.Is(err, ports.ErrVariantNotFound) {
		v.logger.LogAttrs(ctx, slog.LevelWarn, "variant not found, validating against product stock",
			slog.String("product.id", product.ID.String()),
			slog.String("variant.size", item.Selector.Size),
			slog.String("variant.color", item.Selector.Color))
		return aggregateStock{degraded: true}.plan(ctx, tx, product, item)
	}
	if err != nil {
		return domain.DecrementPlan{}, err
	}
	if variant.Available < item.Quantity {
		return domain.DecrementPlan{}, &domain.OutOfStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Selector:    item.Selector,
			Requested:   item.Quantity,
			Available:   variant.Available,
			Level:       domain.LevelVariant,
		}
	}
	if product.Available < item.Quantity {
		return domain.DecrementPlan{}, &domain.OutOfStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Selector:    item.Selector,
			Requested:   item.Quantity,
			Available:   product.Available,
			Level:       domain.LevelProduct,
		}
	}
	variantID := variant.ID
	return domain.DecrementPlan{
		ProductID: product.ID,
		VariantID: &variantID,
		Quantity:  item.Quantity,
		Snapshot:  variant.Snapshot(),
	}, nil
}

func selectorSnapshot(sel *domain.VariantSelector) *domain.VariantSnapshot {
	if sel == nil {
		return nil
	}
	size, color := strings.TrimSpace(sel.Size), strings.TrimSpace(sel.Color)
	if size == "" && color == "" {
		return nil
	}
	snap := &domain.VariantSnapshot{Size: size}
	if strings.HasPrefix(color, "#") {
		snap.ColorHex = color
	} else {
		snap.Color = color
	}
	return snap
}
