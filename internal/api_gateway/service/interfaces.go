package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pawsitter-settlement/internal/domain/journal"
	"github.com/pawsitter-settlement/internal/domain/outbox"
	"github.com/pawsitter-settlement/internal/domain/policy"
	"github.com/pawsitter-settlement/internal/domain/wallet"
	"github.com/pawsitter-settlement/internal/domain/withdrawal"
	"github.com/pawsitter-settlement/internal/ledger"
)

// LedgerStore is the part of the wallet ledger the gateway services mutate
type LedgerStore interface {
	GetOrCreateWallet(ctx context.Context, tx pgx.Tx, sitterID uuid.UUID) (*wallet.Wallet, error)
	CreditPendingEarning(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amount int64, bookingID uuid.UUID, availableAt time.Time, metadata wallet.Metadata) (*wallet.Transaction, bool, error)
	DebitAvailable(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amount int64) (*wallet.Wallet, error)
	RecordWithdrawalTransaction(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amount int64, withdrawalID uuid.UUID) (*wallet.Transaction, error)
	PublishEvent(ctx context.Context, tx pgx.Tx, event *outbox.Event, w *wallet.Wallet) error
}

var _ LedgerStore = (*ledger.Store)(nil)

// SettlementService completes bookings and credits the sitter's earning
type SettlementService interface {
	// CompleteBooking marks the booking completed and credits the sitter's share as pending.
	// Returns ErrNotFound, ErrForbidden, ErrValidation or ErrAlreadyCompleted
	CompleteBooking(ctx context.Context, bookingID, callerID uuid.UUID) (*SettlementResult, error)
}

// WithdrawalService handles payout requests against the available balance
type WithdrawalService interface {
	// RequestWithdrawal debits the wallet and records a pending payout request.
	// Returns ErrNotFound, ErrValidation or ErrInsufficientBalance
	RequestWithdrawal(ctx context.Context, sitterID uuid.UUID, amount int64, method wallet.PayoutMethod, details wallet.PayoutDetails) (*withdrawal.Request, error)
}

// CancellationService prices and applies owner cancellations
type CancellationService interface {
	// QuoteRefund evaluates the active policy without changing anything
	QuoteRefund(ctx context.Context, bookingID, callerID uuid.UUID, now time.Time) (*policy.Quote, error)

	// CancelBooking cancels the booking and requests the refund the policy allows
	CancelBooking(ctx context.Context, bookingID, callerID uuid.UUID, now time.Time) (*CancellationResult, error)
}

// WalletService serves read-only wallet views
type WalletService interface {
	GetWallet(ctx context.Context, sitterID uuid.UUID) (*wallet.Wallet, error)

	// ListTransactions returns a page of ledger entries, newest first, and the total count
	ListTransactions(ctx context.Context, sitterID uuid.UUID, page, perPage int) ([]*wallet.Transaction, int64, error)

	// ListActivity returns a page of journaled wallet events, newest first, and the total count
	ListActivity(ctx context.Context, sitterID uuid.UUID, page, perPage int) ([]*journal.Entry, int64, error)
}
