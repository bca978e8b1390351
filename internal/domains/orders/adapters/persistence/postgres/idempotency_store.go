package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/go-gin-storefront/internal/domains/orders/ports"
)

var (
	_ ports.IdempotencyStore   = (*IdempotencyStore)(nil)
	_ ports.IdempotencyClaimer = (*tx)(nil)
)

// IdempotencyStore persists checkout idempotency keys in PostgreSQL.
type IdempotencyStore struct {
	db *gorm.DB
}

func NewIdempotencyStore(db *gorm.DB) *IdempotencyStore {
	return &IdempotencyStore{db: db}
}

// Get loads a record by key, returning nil when absent.
func (s *IdempotencyStore) Get(ctx context.Context, key string) (*ports.IdempotencyRecord, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	var record idempotencyRecord
	if err := s.db.WithContext(ctx).Take(&record, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, classify(err)
	}
	return record.toPort(), nil
}

// Save inserts the record. A taken key returns the stored record, with
// ErrIdempotencyConflict when it points at a different cart or order.
func (s *IdempotencyStore) Save(ctx context.Context, record ports.IdempotencyRecord) (*ports.IdempotencyRecord, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	dbRecord := newIdempotencyRecord(record)
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&dbRecord)
	if result.Error != nil {
		return nil, classify(result.Error)
	}
	if result.RowsAffected == 1 {
		return dbRecord.toPort(), nil
	}
	existing, err := s.Get(ctx, record.Key)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, errors.New("idempotency key vanished after conflict")
	}
	if existing.RequestHash != record.RequestHash || existing.OrderID != record.OrderID {
		return existing, ports.ErrIdempotencyConflict
	}
	return existing, nil
}

// ClaimIdempotencyKey inserts the key in the placement transaction. An insert racing an
// uncommitted claim of the same key blocks on the primary key until that transaction ends.
func (t *tx) ClaimIdempotencyKey(ctx context.Context, record ports.IdempotencyRecord) error {
	dbRecord := newIdempotencyRecord(record)
	result := t.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&dbRecord)
	if result.Error != nil {
		return classify(result.Error)
	}
	if result.RowsAffected == 0 {
		return ports.ErrIdempotencyKeyTaken
	}
	return nil
}

func (s *IdempotencyStore) ensureDB() error {
	if s == nil || s.db == nil {
		return errors.New("postgres idempotency store not configured")
	}
	return nil
}

type idempotencyRecord struct {
	Key           string    `gorm:"primaryKey;column:key;size:255"`
	RequestHash   string    `gorm:"column:request_hash;size:64"`
	OrderID       uuid.UUID `gorm:"column:order_id;type:uuid"`
	OrderNumber   string    `gorm:"column:order_number;size:16"`
	OrderSequence int64     `gorm:"column:order_sequence"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func newIdempotencyRecord(record ports.IdempotencyRecord) idempotencyRecord {
	return idempotencyRecord{
		Key:           record.Key,
		RequestHash:   record.RequestHash,
		OrderID:       record.OrderID,
		OrderNumber:   record.OrderNumber,
		OrderSequence: record.OrderSequence,
	}
}

func (idempotencyRecord) TableName() string { return "order_idempotency_keys" }

func (r *idempotencyRecord) toPort() *ports.IdempotencyRecord {
	return &ports.IdempotencyRecord{
		Key:           r.Key,
		RequestHash:   r.RequestHash,
		OrderID:       r.OrderID,
		OrderNumber:   r.OrderNumber,
		OrderSequence: r.OrderSequence,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}
