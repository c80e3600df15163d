package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pawsitter-settlement/internal/config"
	"github.com/pawsitter-settlement/internal/domain/booking"
	"github.com/pawsitter-settlement/internal/domain/shared"
	"github.com/pawsitter-settlement/internal/domain/wallet"
	"github.com/pawsitter-settlement/internal/logger"
	"github.com/pawsitter-settlement/internal/platform/metrics"
	"github.com/pawsitter-settlement/internal/platform/persistence"
)

// SettlementResult describes the split recorded for a completed booking
type SettlementResult struct {
	BookingID      uuid.UUID `json:"booking_id"`
	SitterEarnings int64     `json:"sitter_earnings"`
	PlatformFee    int64     `json:"platform_fee"`
	AvailableAt    time.Time `json:"available_at"`
	TransactionID  uuid.UUID `json:"transaction_id"`
}

// SettlementServiceImpl implements the SettlementService interface
type SettlementServiceImpl struct {
	txManager     persistence.TxManager
	bookings      booking.Repository
	store         LedgerStore
	commissionBps int64
	holdingPeriod time.Duration
	now           func() time.Time
	logger        *slog.Logger
}

// NewSettlementService creates a new settlement service
func NewSettlementService(
	logger *slog.Logger,
	txManager persistence.TxManager,
	bookings booking.Repository,
	store LedgerStore,
	cfg config.SettlementConfig,
) SettlementService {
	return &SettlementServiceImpl{
		txManager:     txManager,
		bookings:      bookings,
		store:         store,
		commissionBps: cfg.CommissionBps(),
		holdingPeriod: cfg.HoldingPeriod,
		now:           time.Now,
		logger:        logger,
	}
}

// CompleteBooking runs the whole settlement in one unit of work, so a failure at any step
// leaves neither the booking nor the wallet changed.
func (s *SettlementServiceImpl) CompleteBooking(ctx context.Context, bookingID, callerID uuid.UUID) (*SettlementResult, error) {
	log := logger.FromContext(ctx, s.logger).With("booking_id", bookingID.String())

	var result *SettlementResult
	err := s.txManager.ExecuteTx(ctx, func(tx pgx.Tx) error {
		bookingsTx := s.bookings.WithTx(tx)

		b, err := bookingsTx.LockForUpdate(ctx, bookingID)
		if err != nil {
			if errors.Is(err, booking.ErrBookingNotFound{}) {
				return shared.ErrNotFound{Resource: "booking", ID: bookingID.String()}
			}
			return err
		}
		if !b.IsOwnedBy(callerID) {
			return shared.ErrForbidden{Resource: "booking", ID: bookingID.String()}
		}
		if !b.HasSitter() {
			return shared.ErrValidation{Field: "sitter_id", Message: "booking has no sitter assigned"}
		}
		switch b.Status {
		case booking.StatusCompleted:
			return shared.ErrAlreadyCompleted{BookingID: bookingID}
		case booking.StatusCancelled:
			return shared.ErrValidation{Field: "status", Message: "a cancelled booking cannot be completed"}
		}

		sitterEarnings, platformFee := b.Split(s.commissionBps)
		if sitterEarnings <= 0 {
			return shared.ErrValidation{Field: "total_price", Message: "booking total must yield a positive sitter earning"}
		}

		now := s.now().UTC()
		if err := bookingsTx.MarkCompleted(ctx, bookingID, sitterEarnings, platformFee, now); err != nil {
			return err
		}

		w, err := s.store.GetOrCreateWallet(ctx, tx, *b.SitterID)
		if err != nil {
			return err
		}

		availableAt := now.Add(s.holdingPeriod)
		earning, _, err := s.store.CreditPendingEarning(ctx, tx, w.ID, sitterEarnings, bookingID, availableAt, wallet.Metadata{
			"total_price":  b.TotalPrice,
			"platform_fee": platformFee,
		})
		if err != nil {
			return err
		}

		result = &SettlementResult{
			BookingID:      bookingID,
			SitterEarnings: sitterEarnings,
			PlatformFee:    platformFee,
			AvailableAt:    availableAt,
			TransactionID:  earning.ID,
		}
		return nil
	})
	if err != nil {
		log.Warn("Booking completion failed", "error", err)
		return nil, err
	}

	metrics.RecordBookingCompleted(result.SitterEarnings)
	log.Info("Booking completed",
		"sitter_earnings", result.SitterEarnings,
		"platform_fee", result.PlatformFee,
		"available_at", result.AvailableAt,
	)
	return result, nil
}
