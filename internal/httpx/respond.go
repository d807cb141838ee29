package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/warungtech/stockhold/internal/auth"
	"github.com/warungtech/stockhold/internal/config"
	"github.com/warungtech/stockhold/internal/credit"
	"github.com/warungtech/stockhold/internal/stock"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto the HTTP taxonomy. Anything unmapped
// is logged in detail and returned as a generic 500.
func writeError(w http.ResponseWriter, log *logrus.Logger, err error) {
	var insufficient *stock.InsufficientStockError
	var stockVal *stock.ValidationError
	var creditVal *credit.ValidationError
	var fieldErrs validator.ValidationErrors

	switch {
	case errors.As(err, &insufficient):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":     "insufficient_stock",
			"item_id":   insufficient.ItemID,
			"requested": insufficient.Requested,
			"available": insufficient.Available,
		})
	case errors.Is(err, stock.ErrNotFound), errors.Is(err, credit.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, auth.ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
	case errors.Is(err, credit.ErrAlreadySettled):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "already_settled"})
	case errors.Is(err, credit.ErrNotEligible):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "not_eligible"})
	case errors.Is(err, credit.ErrMissingPurchase):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "missing_purchase"})
	case errors.As(err, &stockVal):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": stockVal.Reason})
	case errors.As(err, &creditVal):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": creditVal.Reason})
	case errors.As(err, &fieldErrs):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": fieldErrs.Error()})
	default:
		if log != nil {
			config.LogError(log, "httpx", "writeError", "unmapped error", err)
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
