package events

import (
	"encoding/json"
	"time"
)

const (
	EventReservationCreated  = "ReservationCreated"
	EventReservationReleased = "ReservationReleased"
	EventReservationExtended = "ReservationExtended"
	EventReservationExpired  = "ReservationExpired"
	EventPaymentRecorded     = "PaymentRecorded"
	EventCreditClosed        = "CreditClosed"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // reservation_id or credit_id
	Payload       json.RawMessage `json:"payload"`
}

// ---- payload per event ----

type ReservationCreatedPayload struct {
	ReservationID string    `json:"reservation_id"`
	ItemID        string    `json:"item_id"`
	LocationType  string    `json:"location_type"`
	LocationID    string    `json:"location_id"`
	Quantity      string    `json:"quantity"`
	ReferenceType string    `json:"reference_type"`
	ReferenceID   string    `json:"reference_id"`
	ExpiresAt     time.Time `json:"expires_at"`
}

type ReservationReleasedPayload struct {
	ReservationID string `json:"reservation_id"`
	ReleasedBy    string `json:"released_by"`
}

type ReservationExtendedPayload struct {
	ReservationID string    `json:"reservation_id"`
	Hours         int       `json:"hours"`
	NewExpiry     time.Time `json:"new_expiry"`
	ExtendedBy    string    `json:"extended_by"`
}

type ReservationExpiredPayload struct {
	ReservationID string `json:"reservation_id"`
	ItemID        string `json:"item_id"`
	LocationType  string `json:"location_type"`
	LocationID    string `json:"location_id"`
	Quantity      string `json:"quantity"`
}

type PaymentRecordedPayload struct {
	CreditID string `json:"credit_id"`
	Amount   string `json:"amount"`
	Mode     string `json:"mode,omitempty"`
	Balance  string `json:"balance"`
	Status   string `json:"status"`
}

type CreditClosedPayload struct {
	CreditID      string `json:"credit_id"`
	Delta         string `json:"delta"`
	DeltaPct      string `json:"delta_pct"`
	IsFullPayment bool   `json:"is_full_payment"`
	ClosedBy      string `json:"closed_by"`
}
