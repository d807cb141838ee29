package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/warungtech/stockhold/internal/auth"
	"github.com/warungtech/stockhold/internal/credit"
	"github.com/warungtech/stockhold/internal/events"
	kafkax "github.com/warungtech/stockhold/internal/kafka"
)

type CreditsHandler struct {
	Service  *credit.Service
	Producer *kafkax.Producer
	Validate *validator.Validate
	Name     string
	Log      *logrus.Logger
}

type AddPaymentReq struct {
	Amount decimal.Decimal `json:"amount"`
	Mode   string          `json:"mode" validate:"omitempty,oneof=cash bank transfer settlement"`
}

type ClosureReq struct {
	NegotiatedPrices map[string]decimal.Decimal `json:"negotiated_prices" validate:"required,min=1"`
	IsFullPayment    bool                       `json:"is_full_payment"`
}

type CreditResp struct {
	ID            string          `json:"id"`
	ReferenceType string          `json:"reference_type"`
	ReferenceID   string          `json:"reference_id"`
	CreditType    string          `json:"credit_type"`
	Amount        decimal.Decimal `json:"amount"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	Balance       decimal.Decimal `json:"balance"`
	Status        string          `json:"status"`
	DueDate       time.Time       `json:"due_date"`
	CreditDate    time.Time       `json:"credit_date"`
}

func toCreditResp(c credit.Credit) CreditResp {
	return CreditResp{
		ID:            c.ID,
		ReferenceType: c.ReferenceType,
		ReferenceID:   c.ReferenceID,
		CreditType:    string(c.Type),
		Amount:        c.Amount,
		PaidAmount:    c.PaidAmount,
		Balance:       c.Balance(),
		Status:        string(c.Status),
		DueDate:       c.DueDate,
		CreditDate:    c.CreditDate,
	}
}

type profitLossResp struct {
	TotalOriginal   decimal.Decimal `json:"total_original"`
	TotalNegotiated decimal.Decimal `json:"total_negotiated"`
	Delta           decimal.Decimal `json:"delta"`
	DeltaPct        decimal.Decimal `json:"delta_pct"`
}

func toProfitLossResp(pl credit.ProfitLoss) profitLossResp {
	return profitLossResp{
		TotalOriginal:   pl.TotalOriginal,
		TotalNegotiated: pl.TotalNegotiated,
		Delta:           pl.Delta,
		DeltaPct:        pl.DeltaPct,
	}
}

func (h *CreditsHandler) Register(r chi.Router) {
	r.Get("/credits/{id}", h.get)
	r.Post("/credits/{id}/payments", h.addPayment)
	r.Get("/credits/{id}/closing-offer", h.closingOffer)
	r.Post("/credits/{id}/closing-offer/preview", h.preview)
	r.Post("/credits/{id}/closing-offer/accept", h.accept)
}

func (h *CreditsHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	c, err := h.Service.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, toCreditResp(c))
}

func (h *CreditsHandler) addPayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing actor"})
		return
	}

	var req AddPaymentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		writeError(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id := chi.URLParam(r, "id")
	c, err := h.Service.AddPayment(ctx, actor, id, req.Amount, req.Mode)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	h.publish(events.TopicPaymentRecorded, events.EventPaymentRecorded, id,
		r.Header.Get("X-Request-Id"), events.PaymentRecordedPayload{
			CreditID: id,
			Amount:   req.Amount.String(),
			Mode:     req.Mode,
			Balance:  c.Balance().String(),
			Status:   string(c.Status),
		})
	writeJSON(w, http.StatusOK, toCreditResp(c))
}

func (h *CreditsHandler) closingOffer(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing actor"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	offer, err := h.Service.ClosingOffer(ctx, actor, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	lines := make([]map[string]string, 0, len(offer.Lines))
	for _, l := range offer.Lines {
		lines = append(lines, map[string]string{
			"item_id":   l.ItemID,
			"quantity":  l.Quantity.String(),
			"unit_cost": l.UnitCost.String(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"credit_id": offer.CreditID,
		"eligible":  offer.Eligible,
		"balance":   offer.Balance.String(),
		"lines":     lines,
	})
}

func (h *CreditsHandler) preview(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing actor"})
		return
	}

	var req ClosureReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		writeError(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pl, err := h.Service.PreviewClosure(ctx, actor, chi.URLParam(r, "id"), req.NegotiatedPrices)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfitLossResp(pl))
}

func (h *CreditsHandler) accept(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing actor"})
		return
	}

	var req ClosureReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		writeError(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id := chi.URLParam(r, "id")
	result, err := h.Service.AcceptClosure(ctx, actor, id, req.NegotiatedPrices, req.IsFullPayment)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	h.publish(events.TopicCreditClosed, events.EventCreditClosed, id,
		r.Header.Get("X-Request-Id"), events.CreditClosedPayload{
			CreditID:      id,
			Delta:         result.ProfitLoss.Delta.String(),
			DeltaPct:      result.ProfitLoss.DeltaPct.String(),
			IsFullPayment: req.IsFullPayment,
			ClosedBy:      actor.UserID,
		})
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"message":     result.Message,
		"credit":      toCreditResp(result.Credit),
		"profit_loss": toProfitLossResp(result.ProfitLoss),
	})
}

func (h *CreditsHandler) publish(topic, eventType, correlationID, traceID string, payload any) {
	if h.Producer == nil {
		return
	}
	ev := events.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Name,
		TraceID:       traceID,
		CorrelationID: correlationID,
		Payload:       kafkax.MustMarshal(payload),
	}
	h.Producer.Publish(topic, events.PartitionKey(correlationID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
