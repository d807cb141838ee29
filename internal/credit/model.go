package credit

import (
	"time"

	"github.com/shopspring/decimal"
)

type Type string

const (
	TypePayable    Type = "payable"    // owed to a supplier
	TypeReceivable Type = "receivable" // owed by a customer
)

type Status string

const (
	StatusDue           Status = "due"
	StatusPartiallyPaid Status = "partially_paid"
	StatusPaid          Status = "paid"
)

// Credit is an outstanding balance against a purchase or sale.
type Credit struct {
	ID            string
	ReferenceType string // purchase | sale
	ReferenceID   string
	Type          Type
	Amount        decimal.Decimal
	PaidAmount    decimal.Decimal
	Status        Status
	DueDate       time.Time
	CreditDate    time.Time
}

func (c Credit) Balance() decimal.Decimal { return c.Amount.Sub(c.PaidAmount) }

// StatusFor derives status from the amounts; paid iff nothing is left.
func StatusFor(amount, paid decimal.Decimal) Status {
	switch {
	case paid.GreaterThanOrEqual(amount):
		return StatusPaid
	case paid.Sign() > 0:
		return StatusPartiallyPaid
	default:
		return StatusDue
	}
}

// PurchaseLine is one line item of the purchase a payable credit refers to.
type PurchaseLine struct {
	ItemID   string
	Quantity decimal.Decimal
	UnitCost decimal.Decimal
}

type Payment struct {
	ID       string
	CreditID string
	Amount   decimal.Decimal
	Mode     string
	Note     string
	PaidAt   time.Time
}
