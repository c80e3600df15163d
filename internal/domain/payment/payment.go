// Package payment models the gateway-side records the webhook reconciler keeps in step:
// payments, refunds, disputes and the log of processed gateway events.
package payment

import (
	"time"

	"github.com/google/uuid"
)

// Status of a gateway payment
type Status string

const (
	StatusCreated    Status = "created"
	StatusAuthorized Status = "authorized"
	StatusCaptured   Status = "captured"
	StatusFailed     Status = "failed"
)

// RefundStatus of a gateway refund
type RefundStatus string

const (
	RefundStatusInitiated RefundStatus = "initiated"
	RefundStatusProcessed RefundStatus = "processed"
	RefundStatusFailed    RefundStatus = "failed"
)

// DisputeStatus of a chargeback
type DisputeStatus string

const (
	DisputeStatusOpen DisputeStatus = "open"
	DisputeStatusWon  DisputeStatus = "won"
	DisputeStatusLost DisputeStatus = "lost"
)

// Payment is a booking payment as known to the gateway
type Payment struct {
	ID               uuid.UUID `json:"id"`
	BookingID        uuid.UUID `json:"booking_id"`
	GatewayPaymentID string    `json:"gateway_payment_id"`
	Amount           int64     `json:"amount"`
	Currency         string    `json:"currency"`
	Status           Status    `json:"status"`
	FailureReason    string    `json:"failure_reason,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Refund is created when a cancellation qualifies for money back and
// closed by the gateway's refund webhooks
type Refund struct {
	ID              uuid.UUID    `json:"id"`
	BookingID       uuid.UUID    `json:"booking_id"`
	PaymentID       uuid.UUID    `json:"payment_id"`
	GatewayRefundID *string      `json:"gateway_refund_id,omitempty"`
	Amount          int64        `json:"amount"`
	Status          RefundStatus `json:"status"`
	FailureReason   string       `json:"failure_reason,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// Dispute is a chargeback raised against a captured payment
type Dispute struct {
	ID               uuid.UUID     `json:"id"`
	BookingID        uuid.UUID     `json:"booking_id"`
	PaymentID        uuid.UUID     `json:"payment_id"`
	GatewayDisputeID string        `json:"gateway_dispute_id"`
	Amount           int64         `json:"amount"`
	Reason           string        `json:"reason,omitempty"`
	Status           DisputeStatus `json:"status"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

func NewPayment(bookingID uuid.UUID, gatewayPaymentID string, amount int64, currency string) *Payment {
	now := time.Now().UTC()
	return &Payment{
		ID:               uuid.New(),
		BookingID:        bookingID,
		GatewayPaymentID: gatewayPaymentID,
		Amount:           amount,
		Currency:         currency,
		Status:           StatusCreated,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func NewRefund(bookingID, paymentID uuid.UUID, amount int64) *Refund {
	now := time.Now().UTC()
	return &Refund{
		ID:        uuid.New(),
		BookingID: bookingID,
		PaymentID: paymentID,
		Amount:    amount,
		Status:    RefundStatusInitiated,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func NewDispute(bookingID, paymentID uuid.UUID, gatewayDisputeID string, amount int64, reason string) *Dispute {
	now := time.Now().UTC()
	return &Dispute{
		ID:               uuid.New(),
		BookingID:        bookingID,
		PaymentID:        paymentID,
		GatewayDisputeID: gatewayDisputeID,
		Amount:           amount,
		Reason:           reason,
		Status:           DisputeStatusOpen,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// CanTransitionTo reports whether the payment may move to next.
// Captured and failed are terminal.
func (p *Payment) CanTransitionTo(next Status) bool {
	switch next {
	case StatusAuthorized:
		return p.Status == StatusCreated
	case StatusCaptured, StatusFailed:
		return p.Status == StatusCreated || p.Status == StatusAuthorized
	default:
		return false
	}
}

// IsTerminal reports whether the refund reached processed or failed
func (r *Refund) IsTerminal() bool {
	return r.Status == RefundStatusProcessed || r.Status == RefundStatusFailed
}

// IsResolved reports whether the dispute was won or lost
func (d *Dispute) IsResolved() bool {
	return d.Status != DisputeStatusOpen
}
