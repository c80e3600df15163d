package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pawsitter-settlement/internal/config"
	"github.com/pawsitter-settlement/internal/domain/outbox"
	"github.com/pawsitter-settlement/internal/domain/shared"
	"github.com/pawsitter-settlement/internal/domain/wallet"
	"github.com/pawsitter-settlement/internal/domain/withdrawal"
	"github.com/pawsitter-settlement/internal/logger"
	"github.com/pawsitter-settlement/internal/platform/metrics"
	"github.com/pawsitter-settlement/internal/platform/persistence"
)

// WithdrawalServiceImpl implements the WithdrawalService interface
type WithdrawalServiceImpl struct {
	txManager   persistence.TxManager
	wallets     wallet.Repository
	withdrawals withdrawal.Repository
	store       LedgerStore
	minimum     int64
	logger      *slog.Logger
}

// NewWithdrawalService creates a new withdrawal service
func NewWithdrawalService(
	logger *slog.Logger,
	txManager persistence.TxManager,
	wallets wallet.Repository,
	withdrawals withdrawal.Repository,
	store LedgerStore,
	cfg config.SettlementConfig,
) WithdrawalService {
	return &WithdrawalServiceImpl{
		txManager:   txManager,
		wallets:     wallets,
		withdrawals: withdrawals,
		store:       store,
		minimum:     cfg.MinimumWithdrawal,
		logger:      logger,
	}
}

// RequestWithdrawal validates against the locked wallet, so the balance check and the debit
// see the same balance.
func (s *WithdrawalServiceImpl) RequestWithdrawal(
	ctx context.Context,
	sitterID uuid.UUID,
	amount int64,
	method wallet.PayoutMethod,
	details wallet.PayoutDetails,
) (*withdrawal.Request, error) {
	log := logger.FromContext(ctx, s.logger).With("sitter_id", sitterID.String())

	var result *withdrawal.Request
	err := s.txManager.ExecuteTx(ctx, func(tx pgx.Tx) error {
		walletsTx := s.wallets.WithTx(tx)

		w, err := walletsTx.LockBySitterID(ctx, sitterID)
		if err != nil {
			if errors.Is(err, wallet.ErrWalletNotFound{}) {
				return shared.ErrNotFound{Resource: "wallet", ID: sitterID.String()}
			}
			return err
		}

		if amount <= 0 {
			return shared.ErrValidation{Field: "amount", Message: "amount must be greater than 0"}
		}
		if amount < s.minimum {
			return shared.ErrValidation{Field: "amount", Message: fmt.Sprintf("minimum withdrawal amount is %d", s.minimum)}
		}
		if amount > w.Balance {
			return shared.ErrInsufficientBalance{Balance: w.Balance, Requested: amount}
		}
		if field, ok := withdrawal.ValidateDestination(method, details); !ok {
			if field == "payment_method" {
				return shared.ErrValidation{Field: field, Message: "payment method must be bank_transfer or upi"}
			}
			return shared.ErrValidation{Field: field, Message: fmt.Sprintf("%s is required for %s", field, method)}
		}

		request := withdrawal.NewRequest(w.ID, sitterID, amount, method, details)
		if err := s.withdrawals.WithTx(tx).Create(ctx, request); err != nil {
			return err
		}

		debited, err := s.store.DebitAvailable(ctx, tx, w.ID, amount)
		if err != nil {
			return err
		}

		entry, err := s.store.RecordWithdrawalTransaction(ctx, tx, w.ID, amount, request.ID)
		if err != nil {
			return err
		}

		debited.SetPayoutDestination(method, details)
		if err := walletsTx.Update(ctx, debited); err != nil {
			return err
		}

		event := outbox.NewEvent(outbox.EventWithdrawalRequested, amount)
		event.WithdrawalID = &request.ID
		event.TransactionID = &entry.ID
		event.Attributes = map[string]interface{}{"payment_method": string(method)}
		if err := s.store.PublishEvent(ctx, tx, event, debited); err != nil {
			return err
		}

		result = request
		return nil
	})
	if err != nil {
		metrics.RecordWithdrawal(string(method), "rejected")
		log.Warn("Withdrawal request failed", "amount", amount, "error", err)
		return nil, err
	}

	metrics.RecordWithdrawal(string(method), "requested")
	log.Info("Withdrawal requested", "withdrawal_id", result.ID.String(), "amount", amount, "method", string(method))
	return result, nil
}
