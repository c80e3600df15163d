package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pawsitter-settlement/internal/domain/booking"
	"github.com/pawsitter-settlement/internal/domain/outbox"
	"github.com/pawsitter-settlement/internal/domain/payment"
	"github.com/pawsitter-settlement/internal/domain/policy"
	"github.com/pawsitter-settlement/internal/domain/shared"
	"github.com/pawsitter-settlement/internal/logger"
	"github.com/pawsitter-settlement/internal/platform/metrics"
	"github.com/pawsitter-settlement/internal/platform/persistence"
)

// CancellationResult is the outcome of an owner cancellation
type CancellationResult struct {
	BookingID uuid.UUID    `json:"booking_id"`
	Quote     policy.Quote `json:"quote"`
	RefundID  *uuid.UUID   `json:"refund_id,omitempty"`
}

// CancellationServiceImpl implements the CancellationService interface
type CancellationServiceImpl struct {
	txManager persistence.TxManager
	bookings  booking.Repository
	policies  policy.Repository
	payments  payment.Repository
	store     LedgerStore
	logger    *slog.Logger
}

// NewCancellationService creates a new cancellation service
func NewCancellationService(
	logger *slog.Logger,
	txManager persistence.TxManager,
	bookings booking.Repository,
	policies policy.Repository,
	payments payment.Repository,
	store LedgerStore,
) CancellationService {
	return &CancellationServiceImpl{
		txManager: txManager,
		bookings:  bookings,
		policies:  policies,
		payments:  payments,
		store:     store,
		logger:    logger,
	}
}

func (s *CancellationServiceImpl) QuoteRefund(ctx context.Context, bookingID, callerID uuid.UUID, now time.Time) (*policy.Quote, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, mapBookingError(err, bookingID)
	}
	if err := checkCancellable(b, callerID); err != nil {
		return nil, err
	}

	p, err := s.policies.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load cancellation policy: %w", err)
	}

	quote, err := policy.ComputeRefund(b.TotalPrice, b.ServiceAt, now, p, b.PaymentStatus == booking.PaymentStatusPaid)
	if err != nil {
		return nil, fmt.Errorf("failed to compute refund: %w", err)
	}
	return &quote, nil
}

// CancelBooking applies the quote computed under the booking lock. When the booking was paid and the
// policy grants money back, an initiated refund is recorded for the gateway's refund webhooks to close.
func (s *CancellationServiceImpl) CancelBooking(ctx context.Context, bookingID, callerID uuid.UUID, now time.Time) (*CancellationResult, error) {
	log := logger.FromContext(ctx, s.logger).With("booking_id", bookingID.String())

	var result *CancellationResult
	err := s.txManager.ExecuteTx(ctx, func(tx pgx.Tx) error {
		bookingsTx := s.bookings.WithTx(tx)

		b, err := bookingsTx.LockForUpdate(ctx, bookingID)
		if err != nil {
			return mapBookingError(err, bookingID)
		}
		if err := checkCancellable(b, callerID); err != nil {
			return err
		}

		p, err := s.policies.WithTx(tx).GetActive(ctx)
		if err != nil {
			return fmt.Errorf("failed to load cancellation policy: %w", err)
		}

		quote, err := policy.ComputeRefund(b.TotalPrice, b.ServiceAt, now, p, b.PaymentStatus == booking.PaymentStatusPaid)
		if err != nil {
			return fmt.Errorf("failed to compute refund: %w", err)
		}

		if err := bookingsTx.MarkCancelled(ctx, bookingID, quote.RefundAmount, quote.DeductionAmount, now.UTC()); err != nil {
			return err
		}

		result = &CancellationResult{BookingID: bookingID, Quote: quote}
		if !quote.CanRefund {
			return nil
		}

		paymentsTx := s.payments.WithTx(tx)
		captured, err := paymentsTx.GetCapturedPaymentByBookingID(ctx, bookingID)
		if err != nil {
			return fmt.Errorf("paid booking has no captured payment: %w", err)
		}

		refund := payment.NewRefund(bookingID, captured.ID, quote.RefundAmount)
		if err := paymentsTx.CreateRefund(ctx, refund); err != nil {
			return err
		}

		event := outbox.NewEvent(outbox.EventRefundRequested, quote.RefundAmount)
		event.BookingID = &bookingID
		event.RefundID = &refund.ID
		event.Attributes = map[string]interface{}{
			"gateway_payment_id": captured.GatewayPaymentID,
			"refund_percent":     quote.RefundPercent,
		}
		if err := s.store.PublishEvent(ctx, tx, event, nil); err != nil {
			return err
		}

		result.RefundID = &refund.ID
		return nil
	})
	if err != nil {
		log.Warn("Booking cancellation failed", "error", err)
		return nil, err
	}

	metrics.RecordBookingCancellation(result.RefundID != nil)
	log.Info("Booking cancelled",
		"refund_percent", result.Quote.RefundPercent,
		"refund_amount", result.Quote.RefundAmount,
		"deduction_amount", result.Quote.DeductionAmount,
	)
	return result, nil
}

func checkCancellable(b *booking.Booking, callerID uuid.UUID) error {
	if !b.IsOwnedBy(callerID) {
		return shared.ErrForbidden{Resource: "booking", ID: b.ID.String()}
	}
	switch b.Status {
	case booking.StatusCompleted:
		return shared.ErrValidation{Field: "status", Message: "a completed booking cannot be cancelled"}
	case booking.StatusCancelled:
		return shared.ErrValidation{Field: "status", Message: "booking is already cancelled"}
	}
	return nil
}

func mapBookingError(err error, bookingID uuid.UUID) error {
	if errors.Is(err, booking.ErrBookingNotFound{}) {
		return shared.ErrNotFound{Resource: "booking", ID: bookingID.String()}
	}
	return err
}
