package stock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warungtech/stockhold/internal/auth"
)

const (
	MinHoldHours = 1
	MaxHoldHours = 168 // one week
)

type ReserveRequest struct {
	ItemID        string
	LocationType  LocationType
	LocationID    string
	Quantity      decimal.Decimal
	ReferenceType string
	ReferenceID   string
	TTL           time.Duration // zero means DefaultTTL
}

// Ledger adjudicates soft holds so concurrent sales and transfers cannot
// oversell pending stock. Authorization is decided here, once per
// operation, from the explicit actor.
type Ledger struct {
	Store      Store
	Auth       auth.Authorizer
	DefaultTTL time.Duration
	Now        func() time.Time // overridable in tests
}

func (l *Ledger) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now().UTC()
}

// Reserve grants a hold when the quantity fits within on-hand minus active
// holds. Idempotent per (reference, item, location): replaying the same
// request returns the original reservation with existed=true.
func (l *Ledger) Reserve(ctx context.Context, actor auth.Actor, req ReserveRequest) (Reservation, bool, error) {
	if !l.Auth.Can(actor, auth.PermStockReserve) {
		return Reservation{}, false, auth.ErrForbidden
	}
	if err := validateReserve(req); err != nil {
		return Reservation{}, false, err
	}

	ttl := req.TTL
	if ttl == 0 {
		ttl = l.DefaultTTL
	}
	if ttl < MinHoldHours*time.Hour || ttl > MaxHoldHours*time.Hour {
		return Reservation{}, false, &ValidationError{
			Reason: fmt.Sprintf("ttl must be between %d and %d hours", MinHoldHours, MaxHoldHours),
		}
	}

	now := l.now()
	r := Reservation{
		ID:            uuid.NewString(),
		ItemID:        req.ItemID,
		LocationType:  req.LocationType,
		LocationID:    req.LocationID,
		Quantity:      req.Quantity,
		ReferenceType: req.ReferenceType,
		ReferenceID:   req.ReferenceID,
		CreatedBy:     actor.UserID,
		ExpiresAt:     now.Add(ttl),
		CreatedAt:     now,
	}
	return l.Store.Create(ctx, r, now)
}

func (l *Ledger) Get(ctx context.Context, id string) (Reservation, error) {
	return l.Store.Get(ctx, id)
}

// Release drops a hold early, e.g. when the owning sale is cancelled.
func (l *Ledger) Release(ctx context.Context, actor auth.Actor, id string) error {
	if !l.Auth.Can(actor, auth.PermStockManage) {
		return auth.ErrForbidden
	}
	return l.Store.Delete(ctx, id)
}

// Extend pushes the expiry forward by exactly hours. Admin only; an already
// expired hold is treated as gone.
func (l *Ledger) Extend(ctx context.Context, actor auth.Actor, id string, hours int) (Reservation, error) {
	if !l.Auth.Can(actor, auth.PermStockExtend) {
		return Reservation{}, auth.ErrForbidden
	}
	if hours < MinHoldHours || hours > MaxHoldHours {
		return Reservation{}, &ValidationError{
			Reason: fmt.Sprintf("hours must be between %d and %d", MinHoldHours, MaxHoldHours),
		}
	}

	r, err := l.Store.Get(ctx, id)
	if err != nil {
		return Reservation{}, err
	}
	now := l.now()
	if r.Expired(now) {
		return Reservation{}, ErrNotFound
	}

	r.ExpiresAt = r.ExpiresAt.Add(time.Duration(hours) * time.Hour)
	if err := l.Store.UpdateExpiry(ctx, id, r.ExpiresAt); err != nil {
		return Reservation{}, err
	}
	return r, nil
}

// SweepExpired purges up to limit lapsed holds (limit <= 0 for all). Safe
// to run from several workers at once; a second sweep over the same window
// deletes nothing.
func (l *Ledger) SweepExpired(ctx context.Context, limit int) ([]Reservation, error) {
	return l.Store.DeleteExpired(ctx, l.now(), limit)
}

func (l *Ledger) ReservedQuantity(ctx context.Context, itemID string, lt LocationType, locationID string) (decimal.Decimal, error) {
	if !lt.Valid() {
		return decimal.Zero, &ValidationError{Reason: "location_type must be warehouse or branch"}
	}
	return l.Store.ReservedQuantity(ctx, itemID, lt, locationID, l.now())
}

func (l *Ledger) Availability(ctx context.Context, itemID string, lt LocationType, locationID string) (Availability, error) {
	if !lt.Valid() {
		return Availability{}, &ValidationError{Reason: "location_type must be warehouse or branch"}
	}
	onHand, err := l.Store.OnHand(ctx, itemID, lt, locationID)
	if err != nil {
		return Availability{}, err
	}
	reserved, err := l.Store.ReservedQuantity(ctx, itemID, lt, locationID, l.now())
	if err != nil {
		return Availability{}, err
	}
	return Availability{OnHand: onHand, Reserved: reserved, Available: onHand.Sub(reserved)}, nil
}

func validateReserve(req ReserveRequest) error {
	switch {
	case req.ItemID == "":
		return &ValidationError{Reason: "item_id is required"}
	case !req.LocationType.Valid():
		return &ValidationError{Reason: "location_type must be warehouse or branch"}
	case req.LocationID == "":
		return &ValidationError{Reason: "location_id is required"}
	case req.ReferenceType == "" || req.ReferenceID == "":
		return &ValidationError{Reason: "reference is required"}
	case req.Quantity.Sign() <= 0:
		return &ValidationError{Reason: "quantity must be > 0"}
	}
	return nil
}
