package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/warungtech/stockhold/internal/auth"
	"github.com/warungtech/stockhold/internal/events"
	kafkax "github.com/warungtech/stockhold/internal/kafka"
	"github.com/warungtech/stockhold/internal/redisx"
	"github.com/warungtech/stockhold/internal/stock"
)

type ReservationsHandler struct {
	Ledger   *stock.Ledger
	Redis    *redis.Client
	Producer *kafkax.Producer
	Validate *validator.Validate
	Service  string
	Log      *logrus.Logger
}

type CreateReservationReq struct {
	ItemID        string          `json:"item_id" validate:"required"`
	LocationType  string          `json:"location_type" validate:"required,oneof=warehouse branch"`
	LocationID    string          `json:"location_id" validate:"required"`
	Quantity      decimal.Decimal `json:"quantity"`
	ReferenceType string          `json:"reference_type" validate:"required,oneof=sale transfer"`
	ReferenceID   string          `json:"reference_id" validate:"required"`
	TTLHours      int             `json:"ttl_hours" validate:"omitempty,min=1,max=168"`
}

type ExtendReservationReq struct {
	Hours int `json:"hours" validate:"required,min=1,max=168"`
}

type ReservationResp struct {
	ID            string          `json:"id"`
	ItemID        string          `json:"item_id"`
	LocationType  string          `json:"location_type"`
	LocationID    string          `json:"location_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	ReferenceType string          `json:"reference_type"`
	ReferenceID   string          `json:"reference_id"`
	ExpiresAt     time.Time       `json:"expires_at"`
	CreatedAt     time.Time       `json:"created_at"`
	Idempotent    bool            `json:"idempotent,omitempty"`
}

func toReservationResp(r stock.Reservation) ReservationResp {
	return ReservationResp{
		ID:            r.ID,
		ItemID:        r.ItemID,
		LocationType:  string(r.LocationType),
		LocationID:    r.LocationID,
		Quantity:      r.Quantity,
		ReferenceType: r.ReferenceType,
		ReferenceID:   r.ReferenceID,
		ExpiresAt:     r.ExpiresAt,
		CreatedAt:     r.CreatedAt,
	}
}

func (h *ReservationsHandler) Register(r chi.Router) {
	r.Post("/reservations", h.create)
	r.Get("/reservations/quantity", h.quantity)
	r.Post("/reservations/sweep", h.sweep)
	r.Get("/reservations/{id}", h.get)
	r.Delete("/reservations/{id}", h.release)
	r.Patch("/reservations/{id}/extend", h.extend)
}

func (h *ReservationsHandler) create(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing actor"})
		return
	}

	var req CreateReservationReq
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

	// fast-path idempotency via Redis; the DB unique reference stays the
	// source of truth
	idemKey := fmt.Sprintf(redisx.KeyIdemReserve, req.ReferenceType, req.ReferenceID)
	if h.Redis != nil {
		if id, err := h.Redis.Get(ctx, idemKey).Result(); err == nil && id != "" {
			if res, err := h.Ledger.Get(ctx, id); err == nil {
				resp := toReservationResp(res)
				resp.Idempotent = true
				writeJSON(w, http.StatusOK, resp)
				return
			}
		}
	}

	res, existed, err := h.Ledger.Reserve(ctx, actor, stock.ReserveRequest{
		ItemID:        req.ItemID,
		LocationType:  stock.LocationType(req.LocationType),
		LocationID:    req.LocationID,
		Quantity:      req.Quantity,
		ReferenceType: req.ReferenceType,
		ReferenceID:   req.ReferenceID,
		TTL:           time.Duration(req.TTLHours) * time.Hour,
	})
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	if h.Redis != nil {
		_ = h.Redis.Set(ctx, idemKey, res.ID, redisx.TTLIdempotency).Err()
	}
	h.invalidateQty(ctx, res)

	if !existed {
		h.publish(events.TopicReservationCreated, events.EventReservationCreated, res.ID,
			r.Header.Get("X-Request-Id"), events.ReservationCreatedPayload{
				ReservationID: res.ID,
				ItemID:        res.ItemID,
				LocationType:  string(res.LocationType),
				LocationID:    res.LocationID,
				Quantity:      res.Quantity.String(),
				ReferenceType: res.ReferenceType,
				ReferenceID:   res.ReferenceID,
				ExpiresAt:     res.ExpiresAt,
			})
	}

	resp := toReservationResp(res)
	resp.Idempotent = existed
	code := http.StatusCreated
	if existed {
		code = http.StatusOK
	}
	writeJSON(w, code, resp)
}

func (h *ReservationsHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	res, err := h.Ledger.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationResp(res))
}

func (h *ReservationsHandler) release(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing actor"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id := chi.URLParam(r, "id")
	res, err := h.Ledger.Get(ctx, id)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if err := h.Ledger.Release(ctx, actor, id); err != nil {
		writeError(w, h.Log, err)
		return
	}

	h.invalidateQty(ctx, res)
	h.publish(events.TopicReservationReleased, events.EventReservationReleased, id,
		r.Header.Get("X-Request-Id"), events.ReservationReleasedPayload{
			ReservationID: id,
			ReleasedBy:    actor.UserID,
		})
	writeJSON(w, http.StatusOK, map[string]string{"status": "released"})
}

func (h *ReservationsHandler) extend(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing actor"})
		return
	}

	var req ExtendReservationReq
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
	res, err := h.Ledger.Extend(ctx, actor, id, req.Hours)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	h.publish(events.TopicReservationExtended, events.EventReservationExtended, id,
		r.Header.Get("X-Request-Id"), events.ReservationExtendedPayload{
			ReservationID: id,
			Hours:         req.Hours,
			NewExpiry:     res.ExpiresAt,
			ExtendedBy:    actor.UserID,
		})
	writeJSON(w, http.StatusOK, map[string]any{"new_expiry": res.ExpiresAt})
}

// sweep is the cron-triggered purge of lapsed holds.
func (h *ReservationsHandler) sweep(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing actor"})
		return
	}
	if !h.Ledger.Auth.Can(actor, auth.PermStockSweep) {
		writeError(w, h.Log, auth.ErrForbidden)
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	deleted, err := h.Ledger.SweepExpired(ctx, limit)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	for _, res := range deleted {
		h.invalidateQty(ctx, res)
		h.publish(events.TopicReservationExpired, events.EventReservationExpired, res.ID,
			r.Header.Get("X-Request-Id"), events.ReservationExpiredPayload{
				ReservationID: res.ID,
				ItemID:        res.ItemID,
				LocationType:  string(res.LocationType),
				LocationID:    res.LocationID,
				Quantity:      res.Quantity.String(),
			})
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted_count": len(deleted)})
}

func (h *ReservationsHandler) quantity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	itemID := q.Get("item_id")
	lt := stock.LocationType(q.Get("location_type"))
	locationID := q.Get("location_id")
	if itemID == "" || locationID == "" || !lt.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyReservedQty, itemID, lt, locationID)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	av, err := h.Ledger.Availability(ctx, itemID, lt, locationID)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	body := map[string]string{
		"on_hand":   av.OnHand.String(),
		"reserved":  av.Reserved.String(),
		"available": av.Available.String(),
	}
	b, _ := json.Marshal(body)
	if h.Redis != nil {
		_ = h.Redis.Set(ctx, key, b, redisx.TTLReservedQty).Err()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *ReservationsHandler) invalidateQty(ctx context.Context, res stock.Reservation) {
	if h.Redis == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyReservedQty, res.ItemID, res.LocationType, res.LocationID)
	_ = h.Redis.Del(ctx, key).Err()
}

func (h *ReservationsHandler) publish(topic, eventType, correlationID, traceID string, payload any) {
	if h.Producer == nil {
		return
	}
	ev := events.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       traceID,
		CorrelationID: correlationID,
		Payload:       kafkax.MustMarshal(payload),
	}
	h.Producer.Publish(topic, events.PartitionKey(correlationID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
