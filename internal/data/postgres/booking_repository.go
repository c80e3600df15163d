package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pawsitter-settlement/internal/domain/booking"
	"github.com/pawsitter-settlement/internal/platform/persistence"
)

const bookingColumns = `id, owner_id, sitter_id, status, payment_status, total_price, commission_bps, service_at,
		       sitter_earnings, platform_fee, refund_amount, deduction_amount, completed_at, cancelled_at,
		       created_at, updated_at`

// BookingRepository implements booking.Repository for PostgreSQL
type BookingRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewBookingRepository(logger *slog.Logger, db *persistence.PostgresDB) booking.Repository {
	return &BookingRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *BookingRepository) WithTx(tx pgx.Tx) booking.Repository {
	return &BookingRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	return r.get(ctx, query, id)
}

// LockForUpdate serializes concurrent completion and cancellation of the same booking
func (r *BookingRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`
	return r.get(ctx, query, id)
}

func (r *BookingRepository) get(ctx context.Context, query string, id uuid.UUID) (*booking.Booking, error) {
	var b booking.Booking
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&b.ID,
		&b.OwnerID,
		&b.SitterID,
		&b.Status,
		&b.PaymentStatus,
		&b.TotalPrice,
		&b.CommissionBps,
		&b.ServiceAt,
		&b.SitterEarnings,
		&b.PlatformFee,
		&b.RefundAmount,
		&b.DeductionAmount,
		&b.CompletedAt,
		&b.CancelledAt,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, booking.ErrBookingNotFound{BookingID: id}
		}
		r.logger.Error("Failed to get booking", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &b, nil
}

// MarkCompleted records the settlement split on the booking
func (r *BookingRepository) MarkCompleted(ctx context.Context, id uuid.UUID, sitterEarnings, platformFee int64, completedAt time.Time) error {
	query := `
		UPDATE bookings
		SET status = $1, sitter_earnings = $2, platform_fee = $3, completed_at = $4, updated_at = $4
		WHERE id = $5
	`
	return r.exec(ctx, "mark booking completed", id, query, booking.StatusCompleted, sitterEarnings, platformFee, completedAt, id)
}

// MarkCancelled records the refund outcome on the booking
func (r *BookingRepository) MarkCancelled(ctx context.Context, id uuid.UUID, refundAmount, deductionAmount int64, cancelledAt time.Time) error {
	query := `
		UPDATE bookings
		SET status = $1, refund_amount = $2, deduction_amount = $3, cancelled_at = $4, updated_at = $4
		WHERE id = $5
	`
	return r.exec(ctx, "mark booking cancelled", id, query, booking.StatusCancelled, refundAmount, deductionAmount, cancelledAt, id)
}

func (r *BookingRepository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status booking.PaymentStatus) error {
	query := `UPDATE bookings SET payment_status = $1, updated_at = NOW() WHERE id = $2`
	return r.exec(ctx, "update booking payment status", id, query, status, id)
}

func (r *BookingRepository) exec(ctx context.Context, op string, id uuid.UUID, query string, args ...interface{}) error {
	result, err := r.querier.Exec(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to "+op, "id", id.String(), "error", err)
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if result.RowsAffected() == 0 {
		return booking.ErrBookingNotFound{BookingID: id}
	}
	return nil
}
