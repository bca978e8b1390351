package memory

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Apurer/go-gin-storefront/internal/domains/orders/domain"
	"github.com/Apurer/go-gin-storefront/internal/domains/orders/ports"
)

var (
	_ ports.Repository         = (*Repository)(nil)
	_ ports.CatalogSeeder      = (*Repository)(nil)
	_ ports.Tx                 = (*tx)(nil)
	_ ports.IdempotencyClaimer = (*claimingTx)(nil)
)

// Repository is an in-memory order and inventory store. Transactions are serialized: only
// one may be open at a time, which stands in for the row locks of the SQL adapter.
type Repository struct {
	sem chan struct{}

	mu       sync.RWMutex
	products map[uuid.UUID]domain.ProductStock
	variants map[uuid.UUID]domain.VariantStock
	orders   map[uuid.UUID]*domain.Order

	seq atomic.Int64

	keys *IdempotencyStore
}

func NewRepository() *Repository {
	return &Repository{
		sem:      make(chan struct{}, 1),
		products: map[uuid.UUID]domain.ProductStock{},
		variants: map[uuid.UUID]domain.VariantStock{},
		orders:   map[uuid.UUID]*domain.Order{},
	}
}

// SeedProduct stores a product and its variants, replacing existing rows with the same ids.
func (r *Repository) SeedProduct(_ context.Context, product domain.ProductStock, variants ...domain.VariantStock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	r.products[product.ID] = product
	for _, v := range variants {
		if v.ID == uuid.Nil {
			v.ID = uuid.New()
		}
		v.ProductID = product.ID
		r.variants[v.ID] = v
	}
	return nil
}

// ProductStock returns the committed product counter.
func (r *Repository) ProductStock(id uuid.UUID) (domain.ProductStock, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[id]
	return p, ok
}

// VariantStock returns the committed variant counter.
func (r *Repository) VariantStock(id uuid.UUID) (domain.VariantStock, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.variants[id]
	return v, ok
}

// RestartSequence makes next the value handed out by the following allocation.
func (r *Repository) RestartSequence(next int64) {
	r.seq.Store(next - 1)
}

// ShareIdempotencyStore lets placement transactions record idempotency keys in store on
// commit. Pass the same store to the orders service.
func (r *Repository) ShareIdempotencyStore(store *IdempotencyStore) {
	r.keys = store
}

// Begin waits for the store to be free or for ctx to end.
func (r *Repository) Begin(ctx context.Context) (ports.Tx, error) {
	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ports.ErrStoreUnavailable, ctx.Err())
	}
	t := &tx{
		repo:     r,
		products: map[uuid.UUID]domain.ProductStock{},
		variants: map[uuid.UUID]domain.VariantStock{},
		orders:   map[uuid.UUID]*domain.Order{},
	}
	if r.keys != nil {
		return &claimingTx{tx: t}, nil
	}
	return t, nil
}

func (r *Repository) GetByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return cloneOrder(order), nil
}

func (r *Repository) GetByNumber(_ context.Context, number string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *domain.Order
	for _, order := range r.orders {
		if order.Number == number && (latest == nil || order.Sequence > latest.Sequence) {
			latest = order
		}
	}
	if latest == nil {
		return nil, ports.ErrNotFound
	}
	return cloneOrder(latest), nil
}

func (r *Repository) List(_ context.Context, filter domain.ListFilter) ([]*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*domain.Order, 0, len(r.orders))
	for _, order := range r.orders {
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		list = append(list, order)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Sequence > list[j].Sequence })
	if filter.Offset >= len(list) {
		return []*domain.Order{}, nil
	}
	list = list[filter.Offset:]
	if filter.Limit > 0 && len(list) > filter.Limit {
		list = list[:filter.Limit]
	}
	out := make([]*domain.Order, 0, len(list))
	for _, order := range list {
		out = append(out, cloneOrder(order))
	}
	return out, nil
}

// tx stages every change on copies and publishes them on Commit.
type tx struct {
	repo     *Repository
	products map[uuid.UUID]domain.ProductStock
	variants map[uuid.UUID]domain.VariantStock
	orders   map[uuid.UUID]*domain.Order
	claim    *ports.IdempotencyRecord
	done     bool
}

// claimingTx is handed out when the repository shares an idempotency store.
type claimingTx struct {
	*tx
}

// ClaimIdempotencyKey stages the key for commit. Transactions are serialized, so a key
// committed by an earlier transaction is always visible here.
func (t *claimingTx) ClaimIdempotencyKey(ctx context.Context, record ports.IdempotencyRecord) error {
	if t.done {
		return errTxDone
	}
	existing, err := t.repo.keys.Get(ctx, record.Key)
	if err != nil {
		return err
	}
	if existing != nil {
		return ports.ErrIdempotencyKeyTaken
	}
	t.claim = &record
	return nil
}

func (t *tx) NextOrderSequence(_ context.Context) (int64, error) {
	if t.done {
		return 0, errTxDone
	}
	return t.repo.seq.Add(1), nil
}

func (t *tx) LockProduct(_ context.Context, productID uuid.UUID) (*domain.ProductStock, error) {
	if t.done {
		return nil, errTxDone
	}
	if p, ok := t.products[productID]; ok {
		return &p, nil
	}
	p, ok := t.repo.ProductStock(productID)
	if !ok {
		return nil, ports.ErrProductNotFound
	}
	t.products[productID] = p
	return &p, nil
}

// LockVariant matches like the SQL adapter: size exactly and color against either the color
// name or its hex code, case-insensitively. Several matches resolve to the lowest id.
func (t *tx) LockVariant(_ context.Context, productID uuid.UUID, selector domain.VariantSelector) (*domain.VariantStock, error) {
	if t.done {
		return nil, errTxDone
	}
	size, color := strings.TrimSpace(selector.Size), strings.TrimSpace(selector.Color)
	t.repo.mu.RLock()
	var found *domain.VariantStock
	for _, v := range t.repo.variants {
		if v.ProductID != productID || !strings.EqualFold(v.Size, size) ||
			!(strings.EqualFold(v.Color, color) || strings.EqualFold(v.ColorHex, color)) {
			continue
		}
		if found == nil || bytes.Compare(v.ID[:], found.ID[:]) < 0 {
			found = &v
		}
	}
	t.repo.mu.RUnlock()
	if found == nil {
		return nil, ports.ErrVariantNotFound
	}
	if staged, ok := t.variants[found.ID]; ok {
		return &staged, nil
	}
	t.variants[found.ID] = *found
	return found, nil
}

func (t *tx) DecrementVariant(_ context.Context, variantID uuid.UUID, quantity int) error {
	if t.done {
		return errTxDone
	}
	v, ok := t.variants[variantID]
	if !ok {
		if v, ok = t.repo.VariantStock(variantID); !ok {
			return ports.ErrVariantNotFound
		}
	}
	if v.Available-quantity < 0 {
		return fmt.Errorf("variant %s stock would become negative", variantID)
	}
	v.Available -= quantity
	t.variants[variantID] = v
	return nil
}

func (t *tx) DecrementProduct(_ context.Context, productID uuid.UUID, quantity int) error {
	if t.done {
		return errTxDone
	}
	p, ok := t.products[productID]
	if !ok {
		if p, ok = t.repo.ProductStock(productID); !ok {
			return ports.ErrProductNotFound
		}
	}
	if p.Available-quantity < 0 {
		return fmt.Errorf("product %s stock would become negative", productID)
	}
	p.Available -= quantity
	t.products[productID] = p
	return nil
}

func (t *tx) InsertOrder(_ context.Context, order *domain.Order) (uuid.UUID, error) {
	if t.done {
		return uuid.Nil, errTxDone
	}
	if order == nil {
		return uuid.Nil, fmt.Errorf("order is nil")
	}
	t.repo.mu.RLock()
	for _, existing := range t.repo.orders {
		if existing.Sequence == order.Sequence {
			t.repo.mu.RUnlock()
			return uuid.Nil, ports.ErrDuplicateOrderNumber
		}
	}
	t.repo.mu.RUnlock()
	for _, staged := range t.orders {
		if staged.Sequence == order.Sequence {
			return uuid.Nil, ports.ErrDuplicateOrderNumber
		}
	}

	clone := cloneOrder(order)
	clone.ID = uuid.New()
	now := time.Now().UTC()
	clone.CreatedAt, clone.UpdatedAt = now, now
	for i := range clone.Items {
		clone.Items[i].ID = uuid.New()
	}
	t.orders[clone.ID] = clone
	return clone.ID, nil
}

func (t *tx) LockOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	if t.done {
		return nil, errTxDone
	}
	if order, ok := t.orders[id]; ok {
		return cloneOrder(order), nil
	}
	order, err := t.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	t.orders[id] = order
	return cloneOrder(order), nil
}

func (t *tx) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status domain.Status, trackingCode string) error {
	if _, err := t.LockOrder(ctx, id); err != nil {
		return err
	}
	order := t.orders[id]
	order.Status = status
	order.TrackingCode = trackingCode
	order.UpdatedAt = time.Now().UTC()
	return nil
}

func (t *tx) Commit(ctx context.Context) error {
	if t.done {
		return errTxDone
	}
	if t.claim != nil {
		if _, err := t.repo.keys.Save(ctx, *t.claim); err != nil {
			t.release()
			return err
		}
	}
	t.repo.mu.Lock()
	for id, p := range t.products {
		t.repo.products[id] = p
	}
	for id, v := range t.variants {
		t.repo.variants[id] = v
	}
	for id, o := range t.orders {
		t.repo.orders[id] = o
	}
	t.repo.mu.Unlock()
	t.release()
	return nil
}

func (t *tx) Rollback(_ context.Context) error {
	if t.done {
		return nil
	}
	t.release()
	return nil
}

func (t *tx) release() {
	t.done = true
	<-t.repo.sem
}

var errTxDone = fmt.Errorf("%w: transaction already finished", ports.ErrStoreUnavailable)

func cloneOrder(order *domain.Order) *domain.Order {
	clone := *order
	clone.Items = make([]domain.LineItem, len(order.Items))
	for i, item := range order.Items {
		clone.Items[i] = item
		if item.Variant != nil {
			snap := *item.Variant
			clone.Items[i].Variant = &snap
		}
	}
	return &clone
}
