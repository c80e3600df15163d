package booking

import (
	"time"

	"github.com/google/uuid"
)

// Status defines booking lifecycle states relevant to settlement
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// PaymentStatus tracks the booking's payment as reported by the gateway
type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "UNPAID"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
	PaymentStatusDisputed PaymentStatus = "DISPUTED"
)

// Booking is the settlement view of a pet-sitting booking
type Booking struct {
	ID              uuid.UUID     `json:"id"`
	OwnerID         uuid.UUID     `json:"owner_id"`
	SitterID        *uuid.UUID    `json:"sitter_id,omitempty"`
	Status          Status        `json:"status"`
	PaymentStatus   PaymentStatus `json:"payment_status"`
	TotalPrice      int64         `json:"total_price"`
	CommissionBps   *int64        `json:"commission_bps,omitempty"` // per-booking override
	ServiceAt       time.Time     `json:"service_at"`
	SitterEarnings  *int64        `json:"sitter_earnings,omitempty"`
	PlatformFee     *int64        `json:"platform_fee,omitempty"`
	RefundAmount    *int64        `json:"refund_amount,omitempty"`
	DeductionAmount *int64        `json:"deduction_amount,omitempty"`
	CompletedAt     *time.Time    `json:"completed_at,omitempty"`
	CancelledAt     *time.Time    `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// IsOwnedBy reports whether the caller is the pet owner who made the booking
func (b *Booking) IsOwnedBy(callerID uuid.UUID) bool {
	return b.OwnerID == callerID
}

// HasSitter reports whether a sitter has been assigned
func (b *Booking) HasSitter() bool {
	return b.SitterID != nil && *b.SitterID != uuid.Nil
}

// Split computes the sitter's share and the platform fee of the booking total.
// The booking's own commission wins over the default. Integer floor keeps the split exact.
func (b *Booking) Split(defaultCommissionBps int64) (sitterEarnings, platformFee int64) {
	bps := defaultCommissionBps
	if b.CommissionBps != nil {
		bps = *b.CommissionBps
	}
	sitterEarnings = b.TotalPrice * bps / 10000
	platformFee = b.TotalPrice - sitterEarnings
	return sitterEarnings, platformFee
}
