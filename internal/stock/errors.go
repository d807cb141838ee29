package stock

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("reservation not found")

// InsufficientStockError reports how far a reserve request exceeded what is
// left once active holds are subtracted from on-hand.
type InsufficientStockError struct {
	ItemID    string
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %s: requested %s, available %s",
		e.ItemID, e.Requested, e.Available)
}

type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }
