package credit

import (
	"context"
	"time"
)

// Store persists credits and their payments. Settle and AddPayment mutate
// the credit row under a row lock, re-checking status inside the tx so two
// simultaneous submissions cannot double-settle.
type Store interface {
	Get(ctx context.Context, id string) (Credit, error)

	// PurchaseLines returns the line items of the purchase a payable credit
	// refers to.
	PurchaseLines(ctx context.Context, purchaseID string) ([]PurchaseLine, error)

	// AddPayment appends a payment and recomputes balance/status.
	// ErrAlreadySettled when the credit is paid, *ValidationError on
	// overpayment.
	AddPayment(ctx context.Context, p Payment) (Credit, error)

	// Settle closes the remaining balance in full, recording note on the
	// settlement payment.
	Settle(ctx context.Context, creditID, note string, at time.Time) (Credit, error)
}
