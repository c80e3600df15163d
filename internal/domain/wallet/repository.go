package wallet

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines wallet persistence operations
type Repository interface {
	// CreateIfNotExists inserts the wallet unless the sitter already has one
	CreateIfNotExists(ctx context.Context, w *Wallet) error
	GetBySitterID(ctx context.Context, sitterID uuid.UUID) (*Wallet, error)

	// LockForUpdate acquires a row lock on the wallet for the rest of the transaction
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Wallet, error)
	LockBySitterID(ctx context.Context, sitterID uuid.UUID) (*Wallet, error)

	// Update persists balances with an optimistic version check
	Update(ctx context.Context, w *Wallet) error
	WithTx(tx pgx.Tx) Repository
}

// TransactionRepository defines wallet ledger entry persistence operations
type TransactionRepository interface {
	// CreateEarning inserts an earning unless one already exists for the booking.
	// It reports whether a row was inserted.
	CreateEarning(ctx context.Context, t *Transaction) (bool, error)
	Create(ctx context.Context, t *Transaction) error
	GetEarningByBookingID(ctx context.Context, bookingID uuid.UUID) (*Transaction, error)
	LockEarningByBookingID(ctx context.Context, bookingID uuid.UUID) (*Transaction, error)
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Transaction, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status TransactionStatus) error
	ListMaturedPendingIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
	ListByWalletID(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]*Transaction, error)
	CountByWalletID(ctx context.Context, walletID uuid.UUID) (int64, error)
	WithTx(tx pgx.Tx) TransactionRepository
}

// ErrConcurrentModification indicates optimistic lock failure
type ErrConcurrentModification struct {
	WalletID uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for wallet: " + e.WalletID.String()
}

// Retryable marks the error as safe to retry the whole unit of work
func (e ErrConcurrentModification) Retryable() bool {
	return true
}

// ErrWalletNotFound indicates missing wallet
type ErrWalletNotFound struct {
	WalletID uuid.UUID
	SitterID uuid.UUID
}

func (e ErrWalletNotFound) Error() string {
	if e.SitterID != uuid.Nil {
		return "wallet not found for sitter: " + e.SitterID.String()
	}
	return "wallet not found: " + e.WalletID.String()
}

// Is implements the errors.Is interface for ErrWalletNotFound
func (e ErrWalletNotFound) Is(target error) bool {
	_, ok := target.(ErrWalletNotFound)
	return ok
}

// ErrTransactionNotFound indicates missing ledger entry
type ErrTransactionNotFound struct {
	TransactionID uuid.UUID
	BookingID     uuid.UUID
}

func (e ErrTransactionNotFound) Error() string {
	if e.BookingID != uuid.Nil {
		return "no earning recorded for booking: " + e.BookingID.String()
	}
	return "wallet transaction not found: " + e.TransactionID.String()
}

func (e ErrTransactionNotFound) Is(target error) bool {
	_, ok := target.(ErrTransactionNotFound)
	return ok
}
