package stock

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// MemStore keeps everything behind one mutex, enforcing the same
// availability invariant as PGStore. Used by tests and local runs without
// Postgres.
type MemStore struct {
	mu           sync.Mutex
	reservations map[string]Reservation
	onHand       map[levelKey]decimal.Decimal
}

type levelKey struct {
	itemID       string
	locationType LocationType
	locationID   string
}

func NewMemStore() *MemStore {
	return &MemStore{
		reservations: make(map[string]Reservation),
		onHand:       make(map[levelKey]decimal.Decimal),
	}
}

func (s *MemStore) SetOnHand(itemID string, lt LocationType, locationID string, qty decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onHand[levelKey{itemID, lt, locationID}] = qty
}

func (s *MemStore) Create(ctx context.Context, r Reservation, now time.Time) (Reservation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ex := range s.reservations {
		if ex.ReferenceType == r.ReferenceType && ex.ReferenceID == r.ReferenceID &&
			ex.ItemID == r.ItemID && ex.LocationType == r.LocationType && ex.LocationID == r.LocationID {
			return ex, true, nil
		}
	}

	available := s.onHand[levelKey{r.ItemID, r.LocationType, r.LocationID}].Sub(s.reservedLocked(r.ItemID, r.LocationType, r.LocationID, now))
	if r.Quantity.GreaterThan(available) {
		return Reservation{}, false, &InsufficientStockError{
			ItemID:    r.ItemID,
			Requested: r.Quantity,
			Available: available,
		}
	}

	s.reservations[r.ID] = r
	return r, false, nil
}

func (s *MemStore) Get(ctx context.Context, id string) (Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok {
		return Reservation{}, ErrNotFound
	}
	return r, nil
}

func (s *MemStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reservations[id]; !ok {
		return ErrNotFound
	}
	delete(s.reservations, id)
	return nil
}

func (s *MemStore) UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok {
		return ErrNotFound
	}
	r.ExpiresAt = expiresAt
	s.reservations[id] = r
	return nil
}

func (s *MemStore) ReservedQuantity(ctx context.Context, itemID string, lt LocationType, locationID string, now time.Time) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reservedLocked(itemID, lt, locationID, now), nil
}

func (s *MemStore) OnHand(ctx context.Context, itemID string, lt LocationType, locationID string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.onHand[levelKey{itemID, lt, locationID}], nil
}

func (s *MemStore) DeleteExpired(ctx context.Context, now time.Time, limit int) ([]Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Reservation
	for id, r := range s.reservations {
		if limit > 0 && len(out) >= limit {
			break
		}
		if r.Expired(now) {
			out = append(out, r)
			delete(s.reservations, id)
		}
	}
	return out, nil
}

func (s *MemStore) reservedLocked(itemID string, lt LocationType, locationID string, now time.Time) decimal.Decimal {
	sum := decimal.Zero
	for _, r := range s.reservations {
		if r.ItemID == itemID && r.LocationType == lt && r.LocationID == locationID && r.Active(now) {
			sum = sum.Add(r.Quantity)
		}
	}
	return sum
}
