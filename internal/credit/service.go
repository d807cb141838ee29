package credit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warungtech/stockhold/internal/auth"
)

// Service wraps the closure calculator and payment rules behind explicit
// authorization checks.
type Service struct {
	Store Store
	Auth  auth.Authorizer
	Now   func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) Get(ctx context.Context, id string) (Credit, error) {
	return s.Store.Get(ctx, id)
}

// ClosingOffer returns the negotiation baseline: eligibility plus the
// original per-item unit costs of the linked purchase.
func (s *Service) ClosingOffer(ctx context.Context, actor auth.Actor, id string) (Offer, error) {
	if !s.Auth.Can(actor, auth.PermCreditClose) {
		return Offer{}, auth.ErrForbidden
	}
	c, err := s.Store.Get(ctx, id)
	if err != nil {
		return Offer{}, err
	}
	lines, err := s.purchaseLines(ctx, c)
	if err != nil {
		return Offer{}, err
	}
	return Offer{CreditID: c.ID, Eligible: Eligible(c), Balance: c.Balance(), Lines: lines}, nil
}

// PreviewClosure computes the financial outcome of the negotiated prices
// without touching the credit.
func (s *Service) PreviewClosure(ctx context.Context, actor auth.Actor, id string, negotiated map[string]decimal.Decimal) (ProfitLoss, error) {
	if !s.Auth.Can(actor, auth.PermCreditClose) {
		return ProfitLoss{}, auth.ErrForbidden
	}
	c, err := s.Store.Get(ctx, id)
	if err != nil {
		return ProfitLoss{}, err
	}
	if c.Status == StatusPaid {
		return ProfitLoss{}, ErrAlreadySettled
	}
	if !Eligible(c) {
		return ProfitLoss{}, ErrNotEligible
	}
	lines, err := s.purchaseLines(ctx, c)
	if err != nil {
		return ProfitLoss{}, err
	}
	return CalculateProfitLoss(lines, negotiated)
}

type ClosureResult struct {
	Credit     Credit
	ProfitLoss ProfitLoss
	Message    string
}

// AcceptClosure settles the credit in full at the negotiated prices. All
// validation happens before any mutation; the store settles under a row
// lock so a concurrent second submission gets ErrAlreadySettled.
func (s *Service) AcceptClosure(ctx context.Context, actor auth.Actor, id string, negotiated map[string]decimal.Decimal, isFullPayment bool) (ClosureResult, error) {
	if !s.Auth.Can(actor, auth.PermCreditClose) {
		return ClosureResult{}, auth.ErrForbidden
	}
	c, err := s.Store.Get(ctx, id)
	if err != nil {
		return ClosureResult{}, err
	}
	if c.Status == StatusPaid {
		return ClosureResult{}, ErrAlreadySettled
	}
	if !Eligible(c) {
		return ClosureResult{}, ErrNotEligible
	}
	lines, err := s.purchaseLines(ctx, c)
	if err != nil {
		return ClosureResult{}, err
	}
	pl, err := CalculateProfitLoss(lines, negotiated)
	if err != nil {
		return ClosureResult{}, err
	}

	note := fmt.Sprintf("early closure: delta %s (%s%%), full_payment=%v",
		pl.Delta, pl.DeltaPct, isFullPayment)
	updated, err := s.Store.Settle(ctx, id, note, s.now())
	if err != nil {
		return ClosureResult{}, err
	}

	return ClosureResult{
		Credit:     updated,
		ProfitLoss: pl,
		Message:    closureMessage(pl.Delta),
	}, nil
}

// AddPayment records a partial or final payment against the credit.
func (s *Service) AddPayment(ctx context.Context, actor auth.Actor, id string, amount decimal.Decimal, mode string) (Credit, error) {
	if !s.Auth.Can(actor, auth.PermCreditPay) {
		return Credit{}, auth.ErrForbidden
	}
	if amount.Sign() <= 0 {
		return Credit{}, &ValidationError{Reason: "payment amount must be > 0"}
	}
	return s.Store.AddPayment(ctx, Payment{
		ID:       uuid.NewString(),
		CreditID: id,
		Amount:   amount,
		Mode:     mode,
		PaidAt:   s.now(),
	})
}

func (s *Service) purchaseLines(ctx context.Context, c Credit) ([]PurchaseLine, error) {
	if c.Type != TypePayable || c.ReferenceType != "purchase" || c.ReferenceID == "" {
		return nil, ErrMissingPurchase
	}
	lines, err := s.Store.PurchaseLines(ctx, c.ReferenceID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrMissingPurchase
	}
	return lines, nil
}

func closureMessage(delta decimal.Decimal) string {
	switch delta.Sign() {
	case -1:
		return fmt.Sprintf("credit closed with a saving of %s", delta.Neg())
	case 1:
		return fmt.Sprintf("credit closed with a loss of %s", delta)
	default:
		return "credit closed at original cost"
	}
}
