package credit

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var two = decimal.NewFromInt(2)

// Eligible reports whether a credit qualifies for early-closure
// negotiation: payable, not yet settled, and at least half paid. The half
// boundary is exact; 49.99% never rounds up.
func Eligible(c Credit) bool {
	if c.Type != TypePayable || c.Status == StatusPaid {
		return false
	}
	if c.Amount.Sign() <= 0 {
		return false
	}
	return c.PaidAmount.Mul(two).GreaterThanOrEqual(c.Amount)
}

// Offer is the baseline handed to the negotiation: the original unit costs.
// The system proposes no discount itself, the negotiated prices come back
// from the supplier.
type Offer struct {
	CreditID string
	Eligible bool
	Balance  decimal.Decimal
	Lines    []PurchaseLine
}

type ProfitLoss struct {
	TotalOriginal   decimal.Decimal
	TotalNegotiated decimal.Decimal
	Delta           decimal.Decimal // negative = saving
	DeltaPct        decimal.Decimal
}

// CalculateProfitLoss sums (negotiated - original cost) * quantity over all
// purchase lines. Every line must carry a negotiated price >= 0.
func CalculateProfitLoss(lines []PurchaseLine, negotiated map[string]decimal.Decimal) (ProfitLoss, error) {
	var pl ProfitLoss
	for _, line := range lines {
		price, ok := negotiated[line.ItemID]
		if !ok {
			return ProfitLoss{}, &ValidationError{
				Reason: fmt.Sprintf("missing negotiated price for item %s", line.ItemID),
			}
		}
		if price.Sign() < 0 {
			return ProfitLoss{}, &ValidationError{
				Reason: fmt.Sprintf("negotiated price for item %s must be >= 0", line.ItemID),
			}
		}
		pl.TotalOriginal = pl.TotalOriginal.Add(line.UnitCost.Mul(line.Quantity))
		pl.TotalNegotiated = pl.TotalNegotiated.Add(price.Mul(line.Quantity))
	}
	pl.Delta = pl.TotalNegotiated.Sub(pl.TotalOriginal)
	if pl.TotalOriginal.Sign() > 0 {
		pl.DeltaPct = pl.Delta.Div(pl.TotalOriginal).Mul(decimal.NewFromInt(100)).Round(4)
	}
	return pl, nil
}
