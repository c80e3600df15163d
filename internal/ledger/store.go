// Package ledger is the sitter wallet ledger: every balance change goes through Store, inside a
// caller-supplied transaction, together with the wallet event that describes it.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pawsitter-settlement/internal/domain/outbox"
	"github.com/pawsitter-settlement/internal/domain/shared"
	"github.com/pawsitter-settlement/internal/domain/wallet"
	"github.com/pawsitter-settlement/internal/logger"
)

// Store applies ledger mutations. Row locks are always taken earning first, wallet second.
type Store struct {
	wallets      wallet.Repository
	transactions wallet.TransactionRepository
	outbox       outbox.Repository
	currency     string
	logger       *slog.Logger
}

func NewStore(
	wallets wallet.Repository,
	transactions wallet.TransactionRepository,
	outboxRepo outbox.Repository,
	currency string,
	logger *slog.Logger,
) *Store {
	return &Store{
		wallets:      wallets,
		transactions: transactions,
		outbox:       outboxRepo,
		currency:     currency,
		logger:       logger,
	}
}

// GetOrCreateWallet returns the sitter's wallet locked for the rest of tx, creating an empty one on first use
func (s *Store) GetOrCreateWallet(ctx context.Context, tx pgx.Tx, sitterID uuid.UUID) (*wallet.Wallet, error) {
	walletsTx := s.wallets.WithTx(tx)

	if err := walletsTx.CreateIfNotExists(ctx, wallet.NewWallet(sitterID, s.currency)); err != nil {
		return nil, err
	}

	w, err := walletsTx.LockBySitterID(ctx, sitterID)
	if err != nil {
		if errors.Is(err, wallet.ErrWalletNotFound{}) {
			return nil, shared.ErrNotFound{Resource: "wallet", ID: sitterID.String()}
		}
		return nil, err
	}
	return w, nil
}

// CreditPendingEarning books a booking's earning into the pending bucket.
// A booking earns at most once: a repeated call returns the existing earning with created=false
// and leaves the wallet untouched.
func (s *Store) CreditPendingEarning(
	ctx context.Context,
	tx pgx.Tx,
	walletID uuid.UUID,
	amount int64,
	bookingID uuid.UUID,
	availableAt time.Time,
	metadata wallet.Metadata,
) (*wallet.Transaction, bool, error) {
	log := logger.FromContext(ctx, s.logger)
	transactionsTx := s.transactions.WithTx(tx)

	earning, err := wallet.NewEarning(walletID, amount, bookingID, availableAt, metadata)
	if err != nil {
		return nil, false, shared.ErrValidation{Field: "amount", Message: "earning must be greater than 0"}
	}

	created, err := transactionsTx.CreateEarning(ctx, earning)
	if err != nil {
		return nil, false, err
	}
	if !created {
		existing, err := transactionsTx.GetEarningByBookingID(ctx, bookingID)
		if err != nil {
			return nil, false, err
		}
		log.Info("Earning already credited", "booking_id", bookingID.String(), "transaction_id", existing.ID.String())
		return existing, false, nil
	}

	w, err := s.lockWallet(ctx, tx, walletID)
	if err != nil {
		return nil, false, err
	}
	if err := w.CreditPending(amount); err != nil {
		return nil, false, err
	}
	if err := s.wallets.WithTx(tx).Update(ctx, w); err != nil {
		return nil, false, err
	}

	event := outbox.NewEvent(outbox.EventEarningCredited, amount)
	event.BookingID = &bookingID
	event.TransactionID = &earning.ID
	event.Attributes = map[string]interface{}{"available_at": earning.AvailableAt}
	if err := s.publish(ctx, tx, event, w); err != nil {
		return nil, false, err
	}

	log.Info("Earning credited",
		"booking_id", bookingID.String(),
		"wallet_id", walletID.String(),
		"amount", amount,
		"pending", w.PendingAmount,
	)
	return earning, true, nil
}

// MatureTransaction moves a pending earning into the available balance.
// It reports false, without error, when the transaction is not a pending earning,
// e.g. because a concurrent sweeper got there first.
func (s *Store) MatureTransaction(ctx context.Context, tx pgx.Tx, transactionID uuid.UUID) (bool, error) {
	log := logger.FromContext(ctx, s.logger)
	transactionsTx := s.transactions.WithTx(tx)

	t, err := transactionsTx.LockForUpdate(ctx, transactionID)
	if err != nil {
		if errors.Is(err, wallet.ErrTransactionNotFound{}) {
			log.Warn("Earning to mature no longer exists", "transaction_id", transactionID.String())
			return false, nil
		}
		return false, err
	}
	if err := t.CanMature(); err != nil {
		log.Debug("Skipping maturation", "transaction_id", transactionID.String(), "reason", err.Error())
		return false, nil
	}

	w, err := s.lockWallet(ctx, tx, t.WalletID)
	if err != nil {
		return false, err
	}
	if err := w.Mature(t.Amount); err != nil {
		log.Error("Wallet pending amount does not cover earning",
			"transaction_id", t.ID.String(),
			"wallet_id", w.ID.String(),
			"pending", w.PendingAmount,
			"amount", t.Amount,
		)
		return false, fmt.Errorf("failed to mature earning %s: %w", t.ID.String(), err)
	}
	if err := s.wallets.WithTx(tx).Update(ctx, w); err != nil {
		return false, err
	}
	if err := transactionsTx.UpdateStatus(ctx, t.ID, wallet.TransactionStatusCompleted); err != nil {
		return false, err
	}

	event := outbox.NewEvent(outbox.EventEarningMatured, t.Amount)
	event.BookingID = t.BookingID
	event.TransactionID = &t.ID
	if err := s.publish(ctx, tx, event, w); err != nil {
		return false, err
	}

	return true, nil
}

// DebitAvailable removes amount from the available balance
func (s *Store) DebitAvailable(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amount int64) (*wallet.Wallet, error) {
	w, err := s.lockWallet(ctx, tx, walletID)
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, shared.ErrValidation{Field: "amount", Message: "amount must be greater than 0"}
	}
	if amount > w.Balance {
		return nil, shared.ErrInsufficientBalance{Balance: w.Balance, Requested: amount}
	}
	if err := w.Debit(amount); err != nil {
		return nil, err
	}
	if err := s.wallets.WithTx(tx).Update(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// RecordWithdrawalTransaction appends the negative ledger entry of a withdrawal
func (s *Store) RecordWithdrawalTransaction(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amount int64, withdrawalID uuid.UUID) (*wallet.Transaction, error) {
	t, err := wallet.NewWithdrawal(walletID, amount, withdrawalID)
	if err != nil {
		return nil, shared.ErrValidation{Field: "amount", Message: "amount must be greater than 0"}
	}
	if err := s.transactions.WithTx(tx).Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// ReverseEarning claws back a booking's earning after a lost dispute.
// A pending earning is released from the pending bucket. A matured one is debited from the
// balance through an adjustment, only if the balance still covers it. The earning is marked
// failed either way, so a second reversal reports false.
func (s *Store) ReverseEarning(ctx context.Context, tx pgx.Tx, bookingID uuid.UUID, reason string) (bool, error) {
	log := logger.FromContext(ctx, s.logger).With("booking_id", bookingID.String())
	transactionsTx := s.transactions.WithTx(tx)

	earning, err := transactionsTx.LockEarningByBookingID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, wallet.ErrTransactionNotFound{}) {
			log.Info("No earning to reverse")
			return false, nil
		}
		return false, err
	}
	if earning.Status == wallet.TransactionStatusFailed {
		log.Info("Earning already reversed", "transaction_id", earning.ID.String())
		return false, nil
	}

	w, err := s.lockWallet(ctx, tx, earning.WalletID)
	if err != nil {
		return false, err
	}

	from := string(earning.Status)
	switch earning.Status {
	case wallet.TransactionStatusPending:
		if err := w.ReleasePending(earning.Amount); err != nil {
			return false, fmt.Errorf("failed to release pending earning %s: %w", earning.ID.String(), err)
		}
	default:
		if w.Balance < earning.Amount {
			log.Warn("Balance does not cover earning reversal",
				"wallet_id", w.ID.String(),
				"balance", w.Balance,
				"amount", earning.Amount,
			)
			return false, nil
		}
		if err := w.Debit(earning.Amount); err != nil {
			return false, err
		}
		adjustment := wallet.NewAdjustment(w.ID, -earning.Amount, &bookingID,
			"Reversal of earning "+earning.ID.String(),
			wallet.Metadata{"earning_id": earning.ID.String(), "reason": reason},
		)
		if err := transactionsTx.Create(ctx, adjustment); err != nil {
			return false, err
		}
	}

	if err := s.wallets.WithTx(tx).Update(ctx, w); err != nil {
		return false, err
	}
	if err := transactionsTx.UpdateStatus(ctx, earning.ID, wallet.TransactionStatusFailed); err != nil {
		return false, err
	}

	event := outbox.NewEvent(outbox.EventEarningReversed, earning.Amount)
	event.BookingID = &bookingID
	event.TransactionID = &earning.ID
	event.Attributes = map[string]interface{}{"reason": reason, "reversed_from": from}
	if err := s.publish(ctx, tx, event, w); err != nil {
		return false, err
	}

	log.Info("Earning reversed", "transaction_id", earning.ID.String(), "from", from, "amount", earning.Amount)
	return true, nil
}

// PublishEvent stores event in the outbox as part of tx. When w is given the event
// carries its identity and balances after the change.
func (s *Store) PublishEvent(ctx context.Context, tx pgx.Tx, event *outbox.Event, w *wallet.Wallet) error {
	return s.publish(ctx, tx, event, w)
}

func (s *Store) publish(ctx context.Context, tx pgx.Tx, event *outbox.Event, w *wallet.Wallet) error {
	if w != nil {
		balance, pending := w.Balance, w.PendingAmount
		event.WalletID = &w.ID
		event.SitterID = &w.SitterID
		event.BalanceAfter = &balance
		event.PendingAfter = &pending
	}
	if event.CorrelationID == "" {
		event.CorrelationID = logger.CorrelationIDFromContext(ctx)
	}

	message, err := outbox.NewMessage(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.Type, err)
	}
	if err := s.outbox.WithTx(tx).Create(ctx, message); err != nil {
		return fmt.Errorf("failed to create outbox message for %s: %w", event.Type, err)
	}
	return nil
}

func (s *Store) lockWallet(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (*wallet.Wallet, error) {
	w, err := s.wallets.WithTx(tx).LockForUpdate(ctx, walletID)
	if err != nil {
		if errors.Is(err, wallet.ErrWalletNotFound{}) {
			return nil, shared.ErrNotFound{Resource: "wallet", ID: walletID.String()}
		}
		return nil, err
	}
	return w, nil
}
