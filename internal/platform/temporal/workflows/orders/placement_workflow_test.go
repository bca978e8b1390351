package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/converter"
	"go.temporal.io/sdk/testsuite"

	"github.com/Apurer/go-gin-storefront/internal/domains/orders/adapters/memory"
	ordersapp "github.com/Apurer/go-gin-storefront/internal/domains/orders/application"
	ordersdomain "github.com/Apurer/go-gin-storefront/internal/domains/orders/domain"
	orderactivities "github.com/Apurer/go-gin-storefront/internal/platform/temporal/activities/orders"
)

type placementFixture struct {
	env       *testsuite.TestWorkflowEnvironment
	repo      *memory.Repository
	productID uuid.UUID
}

func newPlacementFixture(t *testing.T, stock int) placementFixture {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	repo := memory.NewRepository()
	productID := uuid.New()
	require.NoError(t, repo.SeedProduct(context.Background(),
		ordersdomain.ProductStock{ID: productID, Name: "Camiseta", Available: stock},
		ordersdomain.VariantStock{ID: uuid.New(), ProductID: productID, Size: "M", Color: "Rojo", ColorHex: "#FF0000", Available: stock},
	))
	acts := orderactivities.NewActivities(ordersapp.NewService(repo))
	env.RegisterActivityWithOptions(acts.PlaceOrder, activity.RegisterOptions{Name: orderactivities.PlaceOrderActivityName})
	return placementFixture{env: env, repo: repo, productID: productID}
}

func (f placementFixture) cart(qty int) ordersdomain.Cart {
	return ordersdomain.Cart{
		Items: []ordersdomain.CartItem{{
			ProductID: f.productID,
			Quantity:  qty,
			Selector:  &ordersdomain.VariantSelector{Size: "M", Color: "Rojo"},
			UnitPrice: decimal.RequireFromString("19.90"),
		}},
		Customer: ordersdomain.Customer{Name: "Lucía"},
	}
}

func TestPlacementWorkflow_Commits(t *testing.T) {
	f := newPlacementFixture(t, 3)
	f.env.ExecuteWorkflow(PlacementWorkflow, PlacementWorkflowInput{Cart: f.cart(2), TraceID: "trace"})

	require.True(t, f.env.IsWorkflowCompleted())
	require.NoError(t, f.env.GetWorkflowError())
	var placed ordersdomain.PlacedOrder
	require.NoError(t, f.env.GetWorkflowResult(&placed))
	require.Equal(t, "orden-00001", placed.OrderNumber)

	product, ok := f.repo.ProductStock(f.productID)
	require.True(t, ok)
	require.Equal(t, 1, product.Available)
}

func TestPlacementWorkflow_OutOfStockIsNotRetried(t *testing.T) {
	f := newPlacementFixture(t, 1)
	attempts := 0
	f.env.SetOnActivityStartedListener(func(*activity.Info, context.Context, converter.EncodedValues) {
		attempts++
	})
	f.env.ExecuteWorkflow(PlacementWorkflow, PlacementWorkflowInput{Cart: f.cart(2)})

	require.True(t, f.env.IsWorkflowCompleted())
	err := f.env.GetWorkflowError()
	require.Error(t, err)
	require.Equal(t, 1, attempts)

	mapped := orderactivities.FromApplicationError(err)
	require.ErrorIs(t, mapped, ordersapp.ErrOutOfStock)
	var oos *ordersdomain.OutOfStockError
	require.True(t, errors.As(mapped, &oos))
	require.Equal(t, 2, oos.Requested)
	require.Equal(t, 1, oos.Available)
	require.Equal(t, ordersdomain.LevelVariant, oos.Level)
}

func TestPlacementWorkflow_UnknownProductMapsToProductNotFound(t *testing.T) {
	f := newPlacementFixture(t, 3)
	cart := f.cart(1)
	cart.Items[0].ProductID = uuid.New()
	f.env.ExecuteWorkflow(PlacementWorkflow, PlacementWorkflowInput{Cart: cart})

	require.True(t, f.env.IsWorkflowCompleted())
	require.ErrorIs(t, orderactivities.FromApplicationError(f.env.GetWorkflowError()), ordersapp.ErrProductNotFound)
}
