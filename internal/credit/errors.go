package credit

import "errors"

var (
	ErrNotFound        = errors.New("credit not found")
	ErrAlreadySettled  = errors.New("credit already settled")
	ErrNotEligible     = errors.New("credit not eligible for early closure")
	ErrMissingPurchase = errors.New("credit has no purchase linkage")
)

type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }
