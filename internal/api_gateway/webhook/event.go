package webhook

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pawsitter-settlement/internal/domain/shared"
)

const (
	EventPaymentAuthorized = "payment.authorized"
	EventPaymentCaptured   = "payment.captured"
	EventPaymentFailed     = "payment.failed"
	EventRefundCreated     = "refund.created"
	EventRefundProcessed   = "refund.processed"
	EventRefundFailed      = "refund.failed"
	EventDisputeCreated    = "dispute.created"
	EventDisputeWon        = "dispute.won"
	EventDisputeLost       = "dispute.lost"
)

// Event is a gateway webhook delivery. Entities arrive wrapped as payload.<kind>.entity.
type Event struct {
	ID        string  `json:"id"`
	Type      string  `json:"event"`
	CreatedAt int64   `json:"created_at"`
	Payload   Payload `json:"payload"`
}

type Payload struct {
	Payment *PaymentEnvelope `json:"payment,omitempty"`
	Refund  *RefundEnvelope  `json:"refund,omitempty"`
	Dispute *DisputeEnvelope `json:"dispute,omitempty"`
}

type PaymentEnvelope struct {
	Entity PaymentEntity `json:"entity"`
}

type RefundEnvelope struct {
	Entity RefundEntity `json:"entity"`
}

type DisputeEnvelope struct {
	Entity DisputeEntity `json:"entity"`
}

type PaymentEntity struct {
	ID               string            `json:"id"`
	OrderID          string            `json:"order_id,omitempty"`
	Amount           int64             `json:"amount"`
	Currency         string            `json:"currency"`
	Status           string            `json:"status"`
	Notes            map[string]string `json:"notes,omitempty"`
	ErrorDescription string            `json:"error_description,omitempty"`
}

type RefundEntity struct {
	ID               string            `json:"id"`
	PaymentID        string            `json:"payment_id"`
	Amount           int64             `json:"amount"`
	Status           string            `json:"status"`
	Notes            map[string]string `json:"notes,omitempty"`
	ErrorDescription string            `json:"error_description,omitempty"`
}

type DisputeEntity struct {
	ID         string `json:"id"`
	PaymentID  string `json:"payment_id"`
	Amount     int64  `json:"amount"`
	ReasonCode string `json:"reason_code,omitempty"`
}

// ParseEvent decodes a verified body. The event id falls back to the delivery header and then
// to a digest of the body, so redeliveries of the same bytes always share an id.
//
// Entities are decoded one by one. An entity that does not decode is left nil, so its handler
// classifies the event instead of the whole delivery failing.
func ParseEvent(raw []byte, eventIDHeader string) (*Event, error) {
	var envelope struct {
		ID        string          `json:"id"`
		Type      string          `json:"event"`
		CreatedAt json.RawMessage `json:"created_at"`
		Payload   json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, shared.ErrValidation{Field: "body", Message: "malformed webhook payload"}
	}

	event := Event{ID: envelope.ID, Type: envelope.Type}
	_ = json.Unmarshal(envelope.CreatedAt, &event.CreatedAt)

	var entities map[string]json.RawMessage
	if err := json.Unmarshal(envelope.Payload, &entities); err == nil {
		event.Payload.Payment = decodeEnvelope[PaymentEnvelope](entities["payment"])
		event.Payload.Refund = decodeEnvelope[RefundEnvelope](entities["refund"])
		event.Payload.Dispute = decodeEnvelope[DisputeEnvelope](entities["dispute"])
	}

	if event.Type == "" {
		return nil, shared.ErrValidation{Field: "event", Message: "webhook event type is required"}
	}

	switch {
	case event.ID != "":
	case eventIDHeader != "":
		event.ID = eventIDHeader
	default:
		sum := sha256.Sum256(raw)
		event.ID = "sha256:" + hex.EncodeToString(sum[:])
	}
	return &event, nil
}

func decodeEnvelope[T any](raw json.RawMessage) *T {
	if len(raw) == 0 {
		return nil
	}
	var envelope *T
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil
	}
	return envelope
}

// OccurredAt converts the gateway's unix timestamp, defaulting to now
func (e *Event) OccurredAt() time.Time {
	if e.CreatedAt <= 0 {
		return time.Now().UTC()
	}
	return time.Unix(e.CreatedAt, 0).UTC()
}

// BookingID reads the booking reference the checkout stored in the payment notes
func (p PaymentEntity) BookingID() (uuid.UUID, bool) {
	return noteUUID(p.Notes, "booking_id")
}

// RefundID reads our refund id, echoed back by the gateway when we initiated the refund
func (r RefundEntity) RefundID() (uuid.UUID, bool) {
	return noteUUID(r.Notes, "refund_id")
}

func noteUUID(notes map[string]string, key string) (uuid.UUID, bool) {
	raw, ok := notes[key]
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
