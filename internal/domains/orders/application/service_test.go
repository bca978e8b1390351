package application

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/go-gin-storefront/internal/domains/orders/adapters/memory"
	"github.com/Apurer/go-gin-storefront/internal/domains/orders/domain"
	"github.com/Apurer/go-gin-storefront/internal/domains/orders/ports"
)

type catalog struct {
	repo      *memory.Repository
	shirtID   uuid.UUID
	mediumRed uuid.UUID
	mugID     uuid.UUID
}

// newCatalog seeds a shirt with aggregate stock 10 and one variant (M, Rojo, #FF0000) with
// stock 3, plus a mug without variants and stock 5.
func newCatalog(t *testing.T) catalog {
	t.Helper()
	repo := memory.NewRepository()
	c := catalog{repo: repo, shirtID: uuid.New(), mediumRed: uuid.New(), mugID: uuid.New()}
	require.NoError(t, repo.SeedProduct(context.Background(), domain.ProductStock{ID: c.shirtID, Name: "Remera", Available: 10},
		domain.VariantStock{ID: c.mediumRed, Size: "M", Color: "Rojo", ColorHex: "#FF0000", Available: 3}))
	require.NoError(t, repo.SeedProduct(context.Background(), domain.ProductStock{ID: c.mugID, Name: "Taza", Available: 5}))
	return c
}

func (c catalog) productStock(t *testing.T, id uuid.UUID) int {
	t.Helper()
	p, ok := c.repo.ProductStock(id)
	require.True(t, ok)
	return p.Available
}

func (c catalog) variantStock(t *testing.T, id uuid.UUID) int {
	t.Helper()
	v, ok := c.repo.VariantStock(id)
	require.True(t, ok)
	return v.Available
}

func cartOf(items ...domain.CartItem) domain.Cart {
	return domain.Cart{
		Items:         items,
		Customer:      domain.Customer{Name: "Lucía", Email: "lucia@example.com"},
		Totals:        domain.Totals{Subtotal: decimal.NewFromInt(100), Total: decimal.NewFromInt(100)},
		PaymentMethod: "transfer",
	}
}

func line(productID uuid.UUID, qty int, sel *domain.VariantSelector) domain.CartItem {
	return domain.CartItem{ProductID: productID, Quantity: qty, Selector: sel, UnitPrice: decimal.RequireFromString("12.50")}
}

func TestPlaceOrder_VariantLineDecrementsVariantAndAggregate(t *testing.T) {
	c := newCatalog(t)
	svc := NewService(c.repo)

	placed, err := svc.PlaceOrder(context.Background(), cartOf(line(c.shirtID, 2, &domain.VariantSelector{Size: "M", Color: "Rojo"})))
	require.NoError(t, err)
	require.Equal(t, "orden-00001", placed.OrderNumber)
	require.Equal(t, int64(1), placed.Sequence)
	require.Zero(t, placed.DegradedLines)
	require.Equal(t, 1, c.variantStock(t, c.mediumRed))
	require.Equal(t, 8, c.productStock(t, c.shirtID))

	order, err := svc.GetOrder(context.Background(), placed.OrderID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, order.Status)
	require.Len(t, order.Items, 1)
	require.True(t, decimal.RequireFromString("12.50").Equal(order.Items[0].UnitPrice))
	require.NotNil(t, order.Items[0].Variant)
	require.Equal(t, "M", order.Items[0].Variant.Size)
	require.Equal(t, "#FF0000", order.Items[0].Variant.ColorHex)
	require.Equal(t, c.mediumRed, *order.Items[0].Variant.VariantID)
}

func TestPlaceOrder_SecondCartSeesReducedVariantStock(t *testing.T) {
	c := newCatalog(t)
	svc := NewService(c.repo)
	sel := &domain.VariantSelector{Size: "M", Color: "Rojo"}

	_, err := svc.PlaceOrder(context.Background(), cartOf(line(c.shirtID, 2, sel)))
	require.NoError(t, err)

	_, err = svc.PlaceOrder(context.Background(), cartOf(line(c.shirtID, 2, sel)))
	require.ErrorIs(t, err, ErrOutOfStock)
	var oos *domain.OutOfStockError
	require.ErrorAs(t, err, &oos)
	require.Equal(t, domain.LevelVariant, oos.Level)
	require.Equal(t, 2, oos.Requested)
	require.Equal(t, 1, oos.Available)
	require.Equal(t, "Remera", oos.ProductName)
	require.Equal(t, 1, c.variantStock(t, c.mediumRed))
	require.Equal(t, 8, c.productStock(t, c.shirtID))
}

func TestPlaceOrder_MatchesVariantByColorHex(t *testing.T) {
	c := newCatalog(t)
	svc := NewService(c.repo)

	_, err := svc.PlaceOrder(context.Background(), cartOf(line(c.shirtID, 1, &domain.VariantSelector{Size: "M", Color: "#ff0000"})))
	require.NoError(t, err)
	require.Equal(t, 2, c.variantStock(t, c.mediumRed))
	require.Equal(t, 9, c.productStock(t, c.shirtID))
}

func TestPlaceOrder_MissingProductRollsBackEarlierLines(t *testing.T) {
	c := newCatalog(t)
	svc := NewService(c.repo)

	_, err := svc.PlaceOrder(context.Background(), cartOf(
		line(c.mugID, 2, nil),
		line(uuid.New(), 1, nil),
	))
	require.ErrorIs(t, err, ErrProductNotFound)
	require.Equal(t, 5, c.productStock(t, c.mugID))

	orders, err := svc.ListOrders(context.Background(), domain.ListFilter{})
	require.NoError(t, err)
	require.Empty(t, orders)

	placed, err := svc.PlaceOrder(context.Background(), cartOf(line(c.mugID, 1, nil)))
	require.NoError(t, err)
	require.Equal(t, int64(2), placed.Sequence, "rolled back sequence values are not reused")
	require.Equal(t, "orden-00002", placed.OrderNumber)
}

func TestPlaceOrder_OutOfStockOnLaterLineLeavesStockUntouched(t *testing.T) {
	c := newCatalog(t)
	svc := NewService(c.repo)

	_, err := svc.PlaceOrder(context.Background(), cartOf(
		line(c.shirtID, 1, &domain.VariantSelector{Size: "M", Color: "Rojo"}),
		line(c.mugID, 6, nil),
	))
	require.ErrorIs(t, err, ErrOutOfStock)
	require.Equal(t, 3, c.variantStock(t, c.mediumRed))
	require.Equal(t, 10, c.productStock(t, c.shirtID))
	require.Equal(t, 5, c.productStock(t, c.mugID))
}

func TestPlaceOrder_MissingVariantFallsBackToAggregate(t *testing.T) {
	c := newCatalog(t)
	svc := NewService(c.repo)

	placed, err := svc.PlaceOrder(context.Background(), cartOf(line(c.shirtID, 7, &domain.VariantSelector{Size: "XL", Color: "Azul"})))
	require.NoError(t, err)
	require.Equal(t, 1, placed.DegradedLines)
	require.Equal(t, 3, c.productStock(t, c.shirtID))
	require.Equal(t, 3, c.variantStock(t, c.mediumRed))

	order, err := svc.GetOrder(context.Background(), placed.OrderID)
	require.NoError(t, err)
	require.Equal(t, "XL", order.Items[0].Variant.Size)
	require.Equal(t, "Azul", order.Items[0].Variant.Color)
	require.Nil(t, order.Items[0].Variant.VariantID)

	_, err = svc.PlaceOrder(context.Background(), cartOf(line(c.shirtID, 4, &domain.VariantSelector{Size: "XL", Color: "Azul"})))
	require.ErrorIs(t, err, ErrOutOfStock)
	var oos *domain.OutOfStockError
	require.ErrorAs(t, err, &oos)
	require.Equal(t, domain.LevelProduct, oos.Level)
	require.Equal(t, 3, oos.Available)
}

func TestPlaceOrder_IncompleteSelectorUsesAggregateOnly(t *testing.T) {
	c := newCatalog(t)
	svc := NewService(c.repo)

	placed, err := svc.PlaceOrder(context.Background(), cartOf(line(c.shirtID, 2, &domain.VariantSelector{Size: "M"})))
	require.NoError(t, err)
	require.Zero(t, placed.DegradedLines)
	require.Equal(t, 8, c.productStock(t, c.shirtID))
	require.Equal(t, 3, c.variantStock(t, c.mediumRed))
}

func TestPlaceOrder_AggregateGuardOnVariantPath(t *testing.T) {
	repo := memory.NewRepository()
	productID, variantID := uuid.New(), uuid.New()
	require.NoError(t, repo.SeedProduct(context.Background(), domain.ProductStock{ID: productID, Name: "Buzo", Available: 1},
		domain.VariantStock{ID: variantID, Size: "S", Color: "Negro", Available: 4}))
	svc := NewService(repo)

	_, err := svc.PlaceOrder(context.Background(), cartOf(line(productID, 2, &domain.VariantSelector{Size: "S", Color: "Negro"})))
	var oos *domain.OutOfStockError
	require.ErrorAs(t, err, &oos)
	require.Equal(t, domain.LevelProduct, oos.Level)
	v, _ := repo.VariantStock(variantID)
	require.Equal(t, 4, v.Available)
}

func TestPlaceOrder_SameProductTwiceInCart(t *testing.T) {
	c := newCatalog(t)
	svc := NewService(c.repo)

	_, err := svc.PlaceOrder(context.Background(), cartOf(line(c.mugID, 3, nil), line(c.mugID, 3, nil)))
	require.ErrorIs(t, err, ErrOutOfStock)
	require.Equal(t, 5, c.productStock(t, c.mugID))

	_, err = svc.PlaceOrder(context.Background(), cartOf(line(c.mugID, 3, nil), line(c.mugID, 2, nil)))
	require.NoError(t, err)
	require.Zero(t, c.productStock(t, c.mugID))
}

func TestPlaceOrder_InvalidInputConsumesNothing(t *testing.T) {
	c := newCatalog(t)
	svc := NewService(c.repo)

	_, err := svc.PlaceOrder(context.Background(), cartOf())
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.PlaceOrder(context.Background(), cartOf(line(c.mugID, 0, nil)))
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.PlaceOrder(context.Background(), cartOf(line(uuid.Nil, 1, nil)))
	require.ErrorIs(t, err, ErrInvalidInput)
	require.NotErrorIs(t, err, ErrProductNotFound)

	placed, err := svc.PlaceOrder(context.Background(), cartOf(line(c.mugID, 1, nil)))
	require.NoError(t, err)
	require.Equal(t, int64(1), placed.Sequence)
}

func TestPlaceOrder_DuplicateSequenceIsRetryable(t *testing.T) {
	c := newCatalog(t)
	svc := NewService(c.repo)

	_, err := svc.PlaceOrder(context.Background(), cartOf(line(c.mugID, 1, nil)))
	require.NoError(t, err)

	c.repo.RestartSequence(1)
	_, err = svc.PlaceOrder(context.Background(), cartOf(line(c.mugID, 1, nil)))
	require.ErrorIs(t, err, ErrDuplicateOrderNumber)
	require.True(t, Retryable(err))
	require.Equal(t, 4, c.productStock(t, c.mugID))

	placed, err := svc.PlaceOrder(context.Background(), cartOf(line(c.mugID, 1, nil)))
	require.NoError(t, err)
	require.Equal(t, int64(2), placed.Sequence)
}

func TestPlaceOrder_StoreFailureIsTransactionFailed(t *testing.T) {
	c := newCatalog(t)
	boom := errors.New("connection reset by peer")
	svc := NewService(&failingRepo{Repository: c.repo, insertErr: boom})

	_, err := svc.PlaceOrder(context.Background(), cartOf(line(c.shirtID, 1, &domain.VariantSelector{Size: "M", Color: "Rojo"})))
	require.ErrorIs(t, err, ErrTransactionFailed)
	require.ErrorIs(t, err, boom)
	require.True(t, Retryable(err))
	require.Equal(t, 3, c.variantStock(t, c.mediumRed))
	require.Equal(t, 10, c.productStock(t, c.shirtID))
}

func TestPlaceOrder_CancelledContext(t *testing.T) {
	c := newCatalog(t)
	svc := NewService(c.repo)

	// hold the store so Begin has to wait
	held, err := c.repo.Begin(context.Background())
	require.NoError(t, err)
	defer held.Rollback(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.PlaceOrder(ctx, cartOf(line(c.mugID, 1, nil)))
	require.ErrorIs(t, err, ErrTransactionFailed)
	require.ErrorIs(t, err, context.Canceled)
}

func TestPlaceOrder_ConcurrentCallsNeverOversell(t *testing.T) {
	c := newCatalog(t)
	svc := NewService(c.repo)
	sel := &domain.VariantSelector{Size: "M", Color: "Rojo"}

	const callers = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = map[string]struct{}{}
		seqs    = map[int64]struct{}{}
		errs    []error
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			placed, err := svc.PlaceOrder(context.Background(), cartOf(line(c.shirtID, 1, sel)))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			numbers[placed.OrderNumber] = struct{}{}
			seqs[placed.Sequence] = struct{}{}
		}()
	}
	wg.Wait()

	require.Len(t, numbers, 3)
	require.Len(t, seqs, 3)
	require.Len(t, errs, callers-3)
	for _, err := range errs {
		require.ErrorIs(t, err, ErrOutOfStock)
	}
	require.Zero(t, c.variantStock(t, c.mediumRed))
	require.Equal(t, 7, c.productStock(t, c.shirtID))
}

func TestGetOrderByNumber(t *testing.T) {
	c := newCatalog(t)
	svc := NewService(c.repo)
	placed, err := svc.PlaceOrder(context.Background(), cartOf(line(c.mugID, 1, nil)))
	require.NoError(t, err)

	order, err := svc.GetOrderByNumber(context.Background(), " ORDEN-00001 ")
	require.NoError(t, err)
	require.Equal(t, placed.OrderID, order.ID)

	_, err = svc.GetOrderByNumber(context.Background(), "orden-00002")
	require.ErrorIs(t, err, ports.ErrNotFound)
	_, err = svc.GetOrderByNumber(context.Background(), "12")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestListOrders_FiltersByStatus(t *testing.T) {
	c := newCatalog(t)
	svc := NewService(c.repo)
	first, err := svc.PlaceOrder(context.Background(), cartOf(line(c.mugID, 1, nil)))
	require.NoError(t, err)
	_, err = svc.PlaceOrder(context.Background(), cartOf(line(c.mugID, 1, nil)))
	require.NoError(t, err)
	_, err = svc.UpdateStatus(context.Background(), first.OrderID, domain.StatusPaid, "")
	require.NoError(t, err)

	all, err := svc.ListOrders(context.Background(), domain.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, int64(2), all[0].Sequence)

	paid, err := svc.ListOrders(context.Background(), domain.ListFilter{Status: domain.StatusPaid})
	require.NoError(t, err)
	require.Len(t, paid, 1)
	require.Equal(t, first.OrderID, paid[0].ID)

	_, err = svc.ListOrders(context.Background(), domain.ListFilter{Status: "lost"})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateStatus(t *testing.T) {
	c := newCatalog(t)
	svc := NewService(c.repo)
	placed, err := svc.PlaceOrder(context.Background(), cartOf(line(c.mugID, 1, nil)))
	require.NoError(t, err)

	order, err := svc.UpdateStatus(context.Background(), placed.OrderID, domain.StatusProcessing, "")
	require.NoError(t, err)
	require.Equal(t, domain.StatusProcessing, order.Status)

	order, err = svc.UpdateStatus(context.Background(), placed.OrderID, domain.StatusShipped, "AR123456")
	require.NoError(t, err)
	require.Equal(t, "AR123456", order.TrackingCode)

	_, err = svc.UpdateStatus(context.Background(), placed.OrderID, domain.StatusPending, "")
	require.ErrorIs(t, err, ErrInvalidStatusTransition)

	stored, err := svc.GetOrder(context.Background(), placed.OrderID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusShipped, stored.Status)
	require.Equal(t, "AR123456", stored.TrackingCode)

	_, err = svc.UpdateStatus(context.Background(), uuid.New(), domain.StatusPaid, "")
	require.ErrorIs(t, err, ports.ErrNotFound)
}

func TestAdjustStock(t *testing.T) {
	c := newCatalog(t)
	svc := NewService(c.repo)
	sel := &domain.VariantSelector{Size: "M", Color: "Rojo"}

	require.NoError(t, svc.AdjustStock(context.Background(), domain.StockAdjustment{ProductID: c.shirtID, Selector: sel, Delta: 4}))
	require.Equal(t, 7, c.variantStock(t, c.mediumRed))
	require.Equal(t, 14, c.productStock(t, c.shirtID))

	require.NoError(t, svc.AdjustStock(context.Background(), domain.StockAdjustment{ProductID: c.mugID, Delta: -5}))
	require.Zero(t, c.productStock(t, c.mugID))

	err := svc.AdjustStock(context.Background(), domain.StockAdjustment{ProductID: c.mugID, Delta: -1})
	require.ErrorIs(t, err, ErrOutOfStock)

	err = svc.AdjustStock(context.Background(), domain.StockAdjustment{ProductID: c.shirtID, Selector: sel, Delta: -8})
	require.ErrorIs(t, err, ErrOutOfStock)
	require.Equal(t, 7, c.variantStock(t, c.mediumRed))

	err = svc.AdjustStock(context.Background(), domain.StockAdjustment{ProductID: c.shirtID, Selector: &domain.VariantSelector{Size: "XS", Color: "Verde"}, Delta: 1})
	require.ErrorIs(t, err, ErrProductNotFound)

	err = svc.AdjustStock(context.Background(), domain.StockAdjustment{ProductID: c.shirtID})
	require.ErrorIs(t, err, ErrInvalidInput)
}

// failingRepo injects a store failure at order insert time.
type failingRepo struct {
	*memory.Repository
	insertErr error
}

func (f *failingRepo) Begin(ctx context.Context) (ports.Tx, error) {
	tx, err := f.Repository.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &failingTx{Tx: tx, insertErr: f.insertErr}, nil
}

type failingTx struct {
	ports.Tx
	insertErr error
}

func (f *failingTx) InsertOrder(context.Context, *domain.Order) (uuid.UUID, error) {
	return uuid.Nil, f.insertErr
}
