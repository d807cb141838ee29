package stock

import (
	"time"

	"github.com/shopspring/decimal"
)

type LocationType string

const (
	LocationWarehouse LocationType = "warehouse"
	LocationBranch    LocationType = "branch"
)

func (t LocationType) Valid() bool {
	return t == LocationWarehouse || t == LocationBranch
}

// Reservation is a time-bounded soft hold on a quantity of an item at a
// location. There is no stored status: active/expired is derived from
// ExpiresAt so the flag can never drift from the timestamp.
type Reservation struct {
	ID            string
	ItemID        string
	LocationType  LocationType
	LocationID    string
	Quantity      decimal.Decimal
	ReferenceType string // sale | transfer
	ReferenceID   string
	CreatedBy     string
	ExpiresAt     time.Time
	CreatedAt     time.Time
}

func (r Reservation) Active(now time.Time) bool  { return r.ExpiresAt.After(now) }
func (r Reservation) Expired(now time.Time) bool { return !r.Active(now) }

// Availability is the reported stock position for one item at one location.
type Availability struct {
	OnHand    decimal.Decimal
	Reserved  decimal.Decimal
	Available decimal.Decimal
}
