package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Apurer/go-gin-storefront/internal/domains/orders/domain"
	"github.com/Apurer/go-gin-storefront/internal/domains/orders/ports"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Service orchestrates order placement and the back-office order use cases.
type Service struct {
	repo        ports.Repository
	idempotency ports.IdempotencyStore
	resolver    resolver
	logger      *slog.Logger
}

type Option func(*Service)

// WithLogger sets the logger used for degraded inventory warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithIdempotencyStore replays earlier placements for carts resubmitted with the same key.
func WithIdempotencyStore(store ports.IdempotencyStore) Option {
	return func(s *Service) {
		s.idempotency = store
	}
}

func NewService(repo ports.Repository, opts ...Option) *Service {
	s := &Service{repo: repo, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.resolver = resolver{logger: s.logger}
	return s
}

type placementState int

const (
	stateIdle placementState = iota
	stateOpen
	stateCommitted
	stateRolledBack
)

// unitOfWork tracks one transaction through Idle -> Open -> Committed | RolledBack.
type unitOfWork struct {
	state placementState
	tx    ports.Tx
}

func (u *unitOfWork) open(ctx context.Context, t ports.Transactor) error {
	if u.state != stateIdle {
		return errors.New("transaction already started")
	}
	tx, err := t.Begin(ctx)
	if err != nil {
		return err
	}
	u.tx = tx
	u.state = stateOpen
	return nil
}

func (u *unitOfWork) commit(ctx context.Context) error {
	if u.state != stateOpen {
		return errors.New("transaction is not open")
	}
	if err := u.tx.Commit(ctx); err != nil {
		u.state = stateRolledBack
		return err
	}
	u.state = stateCommitted
	return nil
}

// close rolls back anything still open. It runs on every exit path.
func (u *unitOfWork) close(ctx context.Context) {
	if u.state != stateOpen {
		return
	}
	_ = u.tx.Rollback(context.WithoutCancel(ctx))
	u.state = stateRolledBack
}

// PlaceOrder validates the cart, reserves stock line by line, and persists the order in a
// single transaction. On any failure nothing is written except the consumed sequence value.
// A cart resubmitted with a known idempotency key returns the original order.
func (s *Service) PlaceOrder(ctx context.Context, cart domain.Cart) (*domain.PlacedOrder, error) {
	if err := cart.Validate(); err != nil {
		return nil, mapError(err)
	}
	fingerprint, replayed, err := s.replay(ctx, cart)
	if err != nil {
		return nil, mapError(err)
	}
	if replayed != nil {
		return replayed, nil
	}
	placed, claimed, err := s.placeOrder(ctx, cart, fingerprint)
	if errors.Is(err, ports.ErrIdempotencyKeyTaken) {
		// A concurrent submission with the same key committed first.
		_, replayed, err := s.replay(ctx, cart)
		switch {
		case err != nil:
			return nil, mapError(err)
		case replayed == nil:
			return nil, mapError(ports.ErrIdempotencyKeyTaken)
		}
		return replayed, nil
	}
	if err != nil {
		return nil, err
	}
	if !claimed {
		s.remember(ctx, cart, fingerprint, placed)
	}
	return placed, nil
}

// placeOrder runs the placement transaction. claimed reports whether the idempotency key
// was recorded inside it.
func (s *Service) placeOrder(ctx context.Context, cart domain.Cart, fingerprint string) (placed *domain.PlacedOrder, claimed bool, err error) {
	uow := &unitOfWork{}
	defer uow.close(ctx)
	if err := uow.open(ctx, s.repo); err != nil {
		return nil, false, mapError(err)
	}

	seq, err := uow.tx.NextOrderSequence(ctx)
	if err != nil {
		return nil, false, mapError(err)
	}
	order := domain.NewPendingOrder(seq, cart)

	degraded := 0
	order.Items = make([]domain.LineItem, 0, len(cart.Items))
	for i, item := range cart.Items {
		plan, err := s.resolver.resolve(ctx, uow.tx, item)
		if err != nil {
			return nil, false, mapError(fmt.Errorf("line %d: %w", i+1, err))
		}
		if err := applyPlan(ctx, uow.tx, plan); err != nil {
			return nil, false, mapError(fmt.Errorf("line %d: %w", i+1, err))
		}
		if plan.Degraded {
			degraded++
		}
		order.Items = append(order.Items, domain.LineItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Variant:   plan.Snapshot,
		})
	}

	orderID, err := uow.tx.InsertOrder(ctx, order)
	if err != nil {
		return nil, false, mapError(err)
	}
	placed = &domain.PlacedOrder{
		OrderID:       orderID,
		OrderNumber:   order.Number,
		Sequence:      seq,
		DegradedLines: degraded,
	}
	claimed, err = s.claim(ctx, uow.tx, cart, fingerprint, placed)
	if err != nil {
		return nil, false, err
	}
	if err := uow.commit(ctx); err != nil {
		return nil, false, mapError(err)
	}
	return placed, claimed, nil
}

func (s *Service) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order, err := s.repo.GetByID(ctx, id)
	return order, mapError(err)
}

// GetOrderByNumber accepts any casing or surrounding whitespace of a formatted order number.
func (s *Service) GetOrderByNumber(ctx context.Context, number string) (*domain.Order, error) {
	n, err := domain.ParseOrderNumber(number)
	if err != nil {
		return nil, mapError(err)
	}
	order, err := s.repo.GetByNumber(ctx, domain.FormatOrderNumber(n))
	return order, mapError(err)
}

func (s *Service) ListOrders(ctx context.Context, filter domain.ListFilter) ([]*domain.Order, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, mapError(domain.ErrInvalidStatus)
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	orders, err := s.repo.List(ctx, filter)
	return orders, mapError(err)
}

// UpdateStatus moves an order along the status table under a row lock.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status, trackingCode string) (*domain.Order, error) {
	uow := &unitOfWork{}
	defer uow.close(ctx)
	if err := uow.open(ctx, s.repo); err != nil {
		return nil, mapError(err)
	}
	order, err := uow.tx.LockOrder(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	if err := order.TransitionTo(status); err != nil {
		return nil, mapError(err)
	}
	if trackingCode != "" {
		order.TrackingCode = trackingCode
	}
	if err := uow.tx.UpdateOrderStatus(ctx, id, order.Status, order.TrackingCode); err != nil {
		return nil, mapError(err)
	}
	if err := uow.commit(ctx); err != nil {
		return nil, mapError(err)
	}
	return order, nil
}

// AdjustStock applies a back-office stock edit while holding the same row locks checkout
// takes, so edits and placements never interleave on a counter.
func (s *Service) AdjustStock(ctx context.Context, adj domain.StockAdjustment) error {
	if err := adj.Validate(); err != nil {
		return mapError(err)
	}
	uow := &unitOfWork{}
	defer uow.close(ctx)
	if err := uow.open(ctx, s.repo); err != nil {
		return mapError(err)
	}
	product, err := uow.tx.LockProduct(ctx, adj.ProductID)
	if err != nil {
		return mapError(err)
	}
	if adj.Selector.Complete() {
		variant, err := uow.tx.LockVariant(ctx, product.ID, *adj.Selector)
		if err != nil {
			return mapError(err)
		}
		if variant.Available+adj.Delta < 0 {
			return mapError(&domain.OutOfStockError{
				ProductID:   product.ID,
				ProductName: product.Name,
				Selector:    adj.Selector,
				Requested:   -adj.Delta,
				Available:   variant.Available,
				Level:       domain.LevelVariant,
			})
		}
		if err := uow.tx.DecrementVariant(ctx, variant.ID, -adj.Delta); err != nil {
			return mapError(err)
		}
	}
	if product.Available+adj.Delta < 0 {
		return mapError(&domain.OutOfStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Requested:   -adj.Delta,
			Available:   product.Available,
			Level:       domain.LevelProduct,
		})
	}
	if err := uow.tx.DecrementProduct(ctx, product.ID, -adj.Delta); err != nil {
		return mapError(err)
	}
	return mapError(uow.commit(ctx))
}

var _ ports.Service = (*Service)(nil)
