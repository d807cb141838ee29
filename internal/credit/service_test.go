package credit_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warungtech/stockhold/internal/auth"
	"github.com/warungtech/stockhold/internal/credit"
)

var (
	admin = auth.Actor{UserID: "u-admin", Role: auth.RoleAdmin}
	clerk = auth.Actor{UserID: "u-clerk", Role: auth.RoleClerk}
)

func newService(t *testing.T) (*credit.Service, *credit.MemStore) {
	t.Helper()
	store := credit.NewMemStore()
	svc := &credit.Service{
		Store: store,
		Auth:  auth.RoleAuthorizer{},
		Now:   func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	}
	return svc, store
}

func seedPayable(store *credit.MemStore) {
	store.PutCredit(credit.Credit{
		ID:            "cr-1",
		ReferenceType: "purchase",
		ReferenceID:   "po-1",
		Type:          credit.TypePayable,
		Amount:        dec("1000"),
		PaidAmount:    dec("600"),
		CreditDate:    time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
	})
	store.PutPurchaseLines("po-1", []credit.PurchaseLine{
		{ItemID: "item-a", Quantity: dec("10"), UnitCost: dec("50")},
		{ItemID: "item-b", Quantity: dec("5"), UnitCost: dec("20")},
	})
}

func TestAcceptClosure(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	seedPayable(store)

	negotiated := map[string]decimal.Decimal{
		"item-a": dec("45"),
		"item-b": dec("20"),
	}

	result, err := svc.AcceptClosure(ctx, admin, "cr-1", negotiated, true)
	require.NoError(t, err)

	assert.True(t, result.ProfitLoss.Delta.Equal(dec("-50")), "delta = %s", result.ProfitLoss.Delta)
	assert.True(t, result.Credit.Balance().IsZero())
	assert.Equal(t, credit.StatusPaid, result.Credit.Status)
	assert.Contains(t, result.Message, "saving")

	// the settlement payment carries the audited delta
	payments := store.Payments("cr-1")
	require.Len(t, payments, 1)
	assert.True(t, payments[0].Amount.Equal(dec("400")))
	assert.Contains(t, payments[0].Note, "delta -50")

	// second submission bounces off the settled credit
	_, err = svc.AcceptClosure(ctx, admin, "cr-1", negotiated, true)
	require.ErrorIs(t, err, credit.ErrAlreadySettled)
}

func TestAcceptClosure_Validation(t *testing.T) {
	ctx := context.Background()

	t.Run("clerk cannot close", func(t *testing.T) {
		svc, store := newService(t)
		seedPayable(store)
		_, err := svc.AcceptClosure(ctx, clerk, "cr-1", map[string]decimal.Decimal{}, false)
		require.ErrorIs(t, err, auth.ErrForbidden)
	})

	t.Run("unknown credit", func(t *testing.T) {
		svc, _ := newService(t)
		_, err := svc.AcceptClosure(ctx, admin, "nope", map[string]decimal.Decimal{}, false)
		require.ErrorIs(t, err, credit.ErrNotFound)
	})

	t.Run("under half paid is not eligible", func(t *testing.T) {
		svc, store := newService(t)
		store.PutCredit(credit.Credit{
			ID: "cr-2", ReferenceType: "purchase", ReferenceID: "po-2",
			Type: credit.TypePayable, Amount: dec("1000"), PaidAmount: dec("499.99"),
		})
		_, err := svc.AcceptClosure(ctx, admin, "cr-2", map[string]decimal.Decimal{}, false)
		require.ErrorIs(t, err, credit.ErrNotEligible)
	})

	t.Run("no purchase linkage leaves credit untouched", func(t *testing.T) {
		svc, store := newService(t)
		store.PutCredit(credit.Credit{
			ID: "cr-3", ReferenceType: "sale", ReferenceID: "s-1",
			Type: credit.TypePayable, Amount: dec("100"), PaidAmount: dec("60"),
		})
		_, err := svc.AcceptClosure(ctx, admin, "cr-3", map[string]decimal.Decimal{}, false)
		require.ErrorIs(t, err, credit.ErrMissingPurchase)

		c, err := store.Get(ctx, "cr-3")
		require.NoError(t, err)
		assert.True(t, c.PaidAmount.Equal(dec("60")))
		assert.Empty(t, store.Payments("cr-3"))
	})

	t.Run("bad negotiated price leaves credit untouched", func(t *testing.T) {
		svc, store := newService(t)
		seedPayable(store)
		_, err := svc.AcceptClosure(ctx, admin, "cr-1", map[string]decimal.Decimal{
			"item-a": dec("-5"),
			"item-b": dec("20"),
		}, false)
		var verr *credit.ValidationError
		require.ErrorAs(t, err, &verr)

		c, err := store.Get(ctx, "cr-1")
		require.NoError(t, err)
		assert.Equal(t, credit.StatusPartiallyPaid, c.Status)
		assert.Empty(t, store.Payments("cr-1"))
	})
}

func TestPreviewClosure_DoesNotMutate(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	seedPayable(store)

	pl, err := svc.PreviewClosure(ctx, admin, "cr-1", map[string]decimal.Decimal{
		"item-a": dec("45"),
		"item-b": dec("20"),
	})
	require.NoError(t, err)
	assert.True(t, pl.Delta.Equal(dec("-50")))

	c, err := store.Get(ctx, "cr-1")
	require.NoError(t, err)
	assert.Equal(t, credit.StatusPartiallyPaid, c.Status)
	assert.True(t, c.Balance().Equal(dec("400")))
}

func TestAddPayment(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	store.PutCredit(credit.Credit{
		ID: "cr-1", ReferenceType: "purchase", ReferenceID: "po-1",
		Type: credit.TypePayable, Amount: dec("1000"),
	})

	c, err := svc.AddPayment(ctx, clerk, "cr-1", dec("400"), "cash")
	require.NoError(t, err)
	assert.Equal(t, credit.StatusPartiallyPaid, c.Status)
	assert.True(t, c.Balance().Equal(dec("600")))

	t.Run("overpayment rejected", func(t *testing.T) {
		_, err := svc.AddPayment(ctx, clerk, "cr-1", dec("600.01"), "cash")
		var verr *credit.ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("non-positive amount rejected", func(t *testing.T) {
		_, err := svc.AddPayment(ctx, clerk, "cr-1", dec("0"), "cash")
		var verr *credit.ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("exact final payment settles", func(t *testing.T) {
		c, err := svc.AddPayment(ctx, clerk, "cr-1", dec("600"), "bank")
		require.NoError(t, err)
		assert.Equal(t, credit.StatusPaid, c.Status)
		assert.True(t, c.Balance().IsZero())
	})

	t.Run("payment on settled credit rejected", func(t *testing.T) {
		_, err := svc.AddPayment(ctx, clerk, "cr-1", dec("1"), "cash")
		require.ErrorIs(t, err, credit.ErrAlreadySettled)
	})
}
