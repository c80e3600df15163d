package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines the booking operations settlement needs
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Booking, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, sitterEarnings, platformFee int64, completedAt time.Time) error
	MarkCancelled(ctx context.Context, id uuid.UUID, refundAmount, deductionAmount int64, cancelledAt time.Time) error
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status PaymentStatus) error
	WithTx(tx pgx.Tx) Repository
}

// ErrBookingNotFound indicates missing booking
type ErrBookingNotFound struct {
	BookingID uuid.UUID
}

func (e ErrBookingNotFound) Error() string {
	return "booking not found: " + e.BookingID.String()
}

// Is implements the errors.Is interface for ErrBookingNotFound
func (e ErrBookingNotFound) Is(target error) bool {
	t, ok := target.(ErrBookingNotFound)
	if !ok {
		return false
	}
	if t.BookingID == uuid.Nil {
		return true
	}
	return e.BookingID == t.BookingID
}
