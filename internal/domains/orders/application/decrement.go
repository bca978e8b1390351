package application

import (
	"context"

	"github.com/Apurer/go-gin-storefront/internal/domains/orders/domain"
	"github.com/Apurer/go-gin-storefront/internal/domains/orders/ports"
)

// applyPlan performs the writes of a validated plan: the variant counter when one was
// resolved, then always the product aggregate.
func applyPlan(ctx context.Context, tx ports.Tx, plan domain.DecrementPlan) error {
	if plan.VariantID != nil {
		if err := tx.DecrementVariant(ctx, *plan.VariantID, plan.Quantity); err != nil {
			return err
		}
	}
	return tx.DecrementProduct(ctx, plan.ProductID, plan.Quantity)
}
