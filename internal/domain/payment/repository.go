package payment

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository persists payments, refunds and disputes. Lookups by gateway id lock the row.
type Repository interface {
	CreatePayment(ctx context.Context, p *Payment) error
	GetPaymentByGatewayID(ctx context.Context, gatewayPaymentID string) (*Payment, error)
	GetPaymentByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	GetCapturedPaymentByBookingID(ctx context.Context, bookingID uuid.UUID) (*Payment, error)
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status Status, failureReason string) error

	CreateRefund(ctx context.Context, r *Refund) error
	GetRefundByID(ctx context.Context, id uuid.UUID) (*Refund, error)
	GetRefundByGatewayID(ctx context.Context, gatewayRefundID string) (*Refund, error)
	AttachGatewayRefundID(ctx context.Context, id uuid.UUID, gatewayRefundID string) error
	UpdateRefundStatus(ctx context.Context, id uuid.UUID, status RefundStatus, failureReason string) error
	SumProcessedRefunds(ctx context.Context, paymentID uuid.UUID) (int64, error)

	CreateDispute(ctx context.Context, d *Dispute) error
	GetDisputeByGatewayID(ctx context.Context, gatewayDisputeID string) (*Dispute, error)
	UpdateDisputeStatus(ctx context.Context, id uuid.UUID, status DisputeStatus) error

	WithTx(tx pgx.Tx) Repository
}

// EventLog records gateway event ids so redeliveries are recognised
type EventLog interface {
	// Record inserts the event and reports false when it was already recorded
	Record(ctx context.Context, event *ProcessedEvent) (bool, error)
	SetOutcome(ctx context.Context, eventID string, outcome EventOutcome) error
	WithTx(tx pgx.Tx) EventLog
}

// ErrPaymentNotFound indicates a payment, refund or dispute the gateway referenced but we do not know
type ErrPaymentNotFound struct {
	Kind      string
	GatewayID string
}

func (e ErrPaymentNotFound) Error() string {
	return e.Kind + " not found: " + e.GatewayID
}

func (e ErrPaymentNotFound) Is(target error) bool {
	t, ok := target.(ErrPaymentNotFound)
	if !ok {
		return false
	}
	return t.Kind == "" || t.Kind == e.Kind
}
