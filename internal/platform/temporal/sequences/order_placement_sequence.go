package sequences

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	ordersdomain "github.com/Apurer/go-gin-storefront/internal/domains/orders/domain"
	orderactivities "github.com/Apurer/go-gin-storefront/internal/platform/temporal/activities/orders"
)

// NonRetryablePlacementFailures lists failure reasons the retry policy must not retry.
var NonRetryablePlacementFailures = []string{
	"invalid_input",
	"product_not_found",
	"out_of_stock",
	"idempotency_conflict",
}

// PlacementActivityOptions returns the activity options used for a placement transaction.
func PlacementActivityOptions() workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        500 * time.Millisecond,
			BackoffCoefficient:     2.0,
			MaximumInterval:        5 * time.Second,
			MaximumAttempts:        4,
			NonRetryableErrorTypes: NonRetryablePlacementFailures,
		},
	}
}

// RunOrderPlacementSequence executes the placement transaction as a single activity.
func RunOrderPlacementSequence(ctx workflow.Context, cart ordersdomain.Cart) (*ordersdomain.PlacedOrder, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("order placement sequence started", "lines", len(cart.Items))

	var placed ordersdomain.PlacedOrder
	err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, PlacementActivityOptions()), orderactivities.PlaceOrderActivityName, cart).Get(ctx, &placed)
	if err != nil {
		logger.Error("order placement sequence failed", "error", err)
		return nil, err
	}
	logger.Info("order placement sequence committed", "orderId", placed.OrderID.String(), "orderNumber", placed.OrderNumber)
	return &placed, nil
}
