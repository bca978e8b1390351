package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Apurer/go-gin-storefront/internal/domains/orders/ports"
)

const orderSequenceConstraint = "orders_order_sequence_key"

// classify maps driver errors onto the repository port sentinels. Deadlocks, lock and
// statement timeouts, serialization failures and lost connections all become
// ports.ErrStoreUnavailable.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			if pgErr.ConstraintName == orderSequenceConstraint {
				return fmt.Errorf("%w: %s", ports.ErrDuplicateOrderNumber, pgErr.ConstraintName)
			}
		case pgerrcode.CheckViolation:
			return fmt.Errorf("%w: stock constraint %s violated: %w", ports.ErrStoreUnavailable, pgErr.ConstraintName, err)
		}
	}
	return fmt.Errorf("%w: %w", ports.ErrStoreUnavailable, err)
}
