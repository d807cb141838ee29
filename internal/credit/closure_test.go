package credit_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warungtech/stockhold/internal/credit"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestEligible(t *testing.T) {
	tests := []struct {
		name     string
		ctype    credit.Type
		amount   string
		paid     string
		status   credit.Status
		eligible bool
	}{
		{name: "payable exactly half paid", ctype: credit.TypePayable, amount: "1000", paid: "500", status: credit.StatusPartiallyPaid, eligible: true},
		{name: "payable just under half", ctype: credit.TypePayable, amount: "10000", paid: "4999", status: credit.StatusPartiallyPaid, eligible: false},
		{name: "payable 49.99 percent", ctype: credit.TypePayable, amount: "1", paid: "0.4999", status: credit.StatusPartiallyPaid, eligible: false},
		{name: "payable 60 percent paid", ctype: credit.TypePayable, amount: "1000", paid: "600", status: credit.StatusPartiallyPaid, eligible: true},
		{name: "payable fully paid", ctype: credit.TypePayable, amount: "1000", paid: "1000", status: credit.StatusPaid, eligible: false},
		{name: "receivable never eligible", ctype: credit.TypeReceivable, amount: "1000", paid: "900", status: credit.StatusPartiallyPaid, eligible: false},
		{name: "payable nothing paid", ctype: credit.TypePayable, amount: "1000", paid: "0", status: credit.StatusDue, eligible: false},
		{name: "zero amount", ctype: credit.TypePayable, amount: "0", paid: "0", status: credit.StatusDue, eligible: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := credit.Credit{
				Type:       tt.ctype,
				Amount:     dec(tt.amount),
				PaidAmount: dec(tt.paid),
				Status:     tt.status,
			}
			assert.Equal(t, tt.eligible, credit.Eligible(c))
		})
	}
}

func TestCalculateProfitLoss(t *testing.T) {
	lines := []credit.PurchaseLine{
		{ItemID: "item-a", Quantity: dec("10"), UnitCost: dec("50")},
		{ItemID: "item-b", Quantity: dec("5"), UnitCost: dec("20")},
	}

	t.Run("negotiated below cost is a saving", func(t *testing.T) {
		pl, err := credit.CalculateProfitLoss(lines, map[string]decimal.Decimal{
			"item-a": dec("45"),
			"item-b": dec("20"),
		})
		require.NoError(t, err)
		assert.True(t, pl.TotalOriginal.Equal(dec("600")), "total original = %s", pl.TotalOriginal)
		assert.True(t, pl.TotalNegotiated.Equal(dec("550")), "total negotiated = %s", pl.TotalNegotiated)
		assert.True(t, pl.Delta.Equal(dec("-50")), "delta = %s", pl.Delta)
	})

	t.Run("same prices yield zero delta", func(t *testing.T) {
		pl, err := credit.CalculateProfitLoss(lines, map[string]decimal.Decimal{
			"item-a": dec("50"),
			"item-b": dec("20"),
		})
		require.NoError(t, err)
		assert.True(t, pl.Delta.IsZero())
		assert.True(t, pl.DeltaPct.IsZero())
	})

	t.Run("missing negotiated price", func(t *testing.T) {
		_, err := credit.CalculateProfitLoss(lines, map[string]decimal.Decimal{
			"item-a": dec("45"),
		})
		var verr *credit.ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("negative negotiated price", func(t *testing.T) {
		_, err := credit.CalculateProfitLoss(lines, map[string]decimal.Decimal{
			"item-a": dec("45"),
			"item-b": dec("-1"),
		})
		var verr *credit.ValidationError
		require.ErrorAs(t, err, &verr)
	})
}

// Doubling every negotiated price doubles the delta against the same baseline.
func TestCalculateProfitLoss_Linearity(t *testing.T) {
	lines := []credit.PurchaseLine{
		{ItemID: "item-a", Quantity: dec("3"), UnitCost: dec("0")},
		{ItemID: "item-b", Quantity: dec("7"), UnitCost: dec("0")},
	}
	single := map[string]decimal.Decimal{"item-a": dec("11"), "item-b": dec("4")}
	double := map[string]decimal.Decimal{"item-a": dec("22"), "item-b": dec("8")}

	pl1, err := credit.CalculateProfitLoss(lines, single)
	require.NoError(t, err)
	pl2, err := credit.CalculateProfitLoss(lines, double)
	require.NoError(t, err)

	assert.True(t, pl2.Delta.Equal(pl1.Delta.Mul(dec("2"))),
		"delta %s should double to %s", pl1.Delta, pl2.Delta)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, credit.StatusDue, credit.StatusFor(dec("100"), dec("0")))
	assert.Equal(t, credit.StatusPartiallyPaid, credit.StatusFor(dec("100"), dec("40")))
	assert.Equal(t, credit.StatusPaid, credit.StatusFor(dec("100"), dec("100")))
}
