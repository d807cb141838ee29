package stock

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Store persists reservations. Create must adjudicate availability and
// insert atomically: check-then-insert split across calls is exactly the
// oversell race this ledger exists to close.
type Store interface {
	// Create inserts r if quantity fits within on-hand minus active holds,
	// evaluated at now under a lock on the stock row. When a reservation for
	// the same (reference, item, location) already exists it is returned
	// with existed=true and nothing is inserted. Over-capacity requests fail
	// with *InsufficientStockError.
	Create(ctx context.Context, r Reservation, now time.Time) (Reservation, bool, error)

	Get(ctx context.Context, id string) (Reservation, error)

	// Delete removes a reservation; ErrNotFound if the id is unknown.
	Delete(ctx context.Context, id string) error

	UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error

	// ReservedQuantity sums holds still active at now.
	ReservedQuantity(ctx context.Context, itemID string, lt LocationType, locationID string, now time.Time) (decimal.Decimal, error)

	OnHand(ctx context.Context, itemID string, lt LocationType, locationID string) (decimal.Decimal, error)

	// DeleteExpired purges up to limit holds with expires_at <= now and
	// returns them so the caller can emit expiry events. limit <= 0 means
	// no bound.
	DeleteExpired(ctx context.Context, now time.Time, limit int) ([]Reservation, error)
}
