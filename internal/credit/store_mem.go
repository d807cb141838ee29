package credit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore mirrors PGStore's locking semantics behind a mutex. Used by
// tests and local runs without Postgres.
type MemStore struct {
	mu       sync.Mutex
	credits  map[string]Credit
	lines    map[string][]PurchaseLine // purchase_id -> lines
	payments map[string][]Payment      // credit_id -> payments
}

func NewMemStore() *MemStore {
	return &MemStore{
		credits:  make(map[string]Credit),
		lines:    make(map[string][]PurchaseLine),
		payments: make(map[string][]Payment),
	}
}

func (s *MemStore) PutCredit(c Credit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.Status = StatusFor(c.Amount, c.PaidAmount)
	s.credits[c.ID] = c
}

func (s *MemStore) PutPurchaseLines(purchaseID string, lines []PurchaseLine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines[purchaseID] = lines
}

func (s *MemStore) Payments(creditID string) []Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Payment(nil), s.payments[creditID]...)
}

func (s *MemStore) Get(ctx context.Context, id string) (Credit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.credits[id]
	if !ok {
		return Credit{}, ErrNotFound
	}
	return c, nil
}

func (s *MemStore) PurchaseLines(ctx context.Context, purchaseID string) ([]PurchaseLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PurchaseLine(nil), s.lines[purchaseID]...), nil
}

func (s *MemStore) AddPayment(ctx context.Context, p Payment) (Credit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.credits[p.CreditID]
	if !ok {
		return Credit{}, ErrNotFound
	}
	if c.Status == StatusPaid {
		return Credit{}, ErrAlreadySettled
	}
	if p.Amount.GreaterThan(c.Balance()) {
		return Credit{}, &ValidationError{Reason: "payment exceeds outstanding balance"}
	}

	c.PaidAmount = c.PaidAmount.Add(p.Amount)
	c.Status = StatusFor(c.Amount, c.PaidAmount)
	s.credits[c.ID] = c
	s.payments[c.ID] = append(s.payments[c.ID], p)
	return c, nil
}

func (s *MemStore) Settle(ctx context.Context, creditID, note string, at time.Time) (Credit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.credits[creditID]
	if !ok {
		return Credit{}, ErrNotFound
	}
	if c.Status == StatusPaid {
		return Credit{}, ErrAlreadySettled
	}

	p := Payment{
		ID:       uuid.NewString(),
		CreditID: creditID,
		Amount:   c.Balance(),
		Mode:     "settlement",
		Note:     note,
		PaidAt:   at,
	}
	c.PaidAmount = c.Amount
	c.Status = StatusPaid
	s.credits[c.ID] = c
	s.payments[c.ID] = append(s.payments[c.ID], p)
	return c, nil
}
