package orders

import (
	"go.temporal.io/sdk/workflow"

	ordersdomain "github.com/Apurer/go-gin-storefront/internal/domains/orders/domain"
	"github.com/Apurer/go-gin-storefront/internal/platform/temporal/sequences"
)

const (
	// PlacementWorkflowName is the public identifier for registering the workflow.
	PlacementWorkflowName = "orders.workflows.Placement"
	// PlacementTaskQueue is the queue consumed by the worker processing order placements.
	PlacementTaskQueue = "ORDER_PLACEMENT"
)

// PlacementWorkflowInput captures the cart submitted at checkout.
type PlacementWorkflowInput struct {
	Cart    ordersdomain.Cart
	TraceID string
}

// PlacementWorkflow runs the order placement sequence for one checkout submission.
func PlacementWorkflow(ctx workflow.Context, input PlacementWorkflowInput) (*ordersdomain.PlacedOrder, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("PlacementWorkflow started", withTraceID(input.TraceID, "lines", len(input.Cart.Items))...)
	placed, err := sequences.RunOrderPlacementSequence(ctx, input.Cart)
	if err != nil {
		logger.Error("PlacementWorkflow failed", withTraceID(input.TraceID, "error", err)...)
		return nil, err
	}
	logger.Info("PlacementWorkflow completed", withTraceID(input.TraceID, "orderNumber", placed.OrderNumber)...)
	return placed, nil
}

func withTraceID(traceID string, keyvals ...interface{}) []interface{} {
	if traceID == "" {
		return keyvals
	}
	return append(keyvals, "traceId", traceID)
}
