// Package postgres provides PostgreSQL implementations of the domain repositories.
// Every repository can be bound to a transaction with WithTx so that ledger mutations
// compose into a single unit of work.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pawsitter-settlement/internal/domain/wallet"
	"github.com/pawsitter-settlement/internal/platform/persistence"
)

const walletColumns = `id, sitter_id, balance, pending_amount, total_earnings, currency,
		       payout_method, payout_details, version, created_at, updated_at`

// WalletRepository implements the wallet.Repository interface for PostgreSQL
type WalletRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewWalletRepository creates a new PostgreSQL wallet repository
func NewWalletRepository(logger *slog.Logger, db *persistence.PostgresDB) wallet.Repository {
	return &WalletRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx
func (r *WalletRepository) WithTx(tx pgx.Tx) wallet.Repository {
	return &WalletRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// CreateIfNotExists inserts the wallet unless the sitter already has one.
// The unique sitter_id constraint makes concurrent first credits converge on one row.
func (r *WalletRepository) CreateIfNotExists(ctx context.Context, w *wallet.Wallet) error {
	query := `
		INSERT INTO wallets (id, sitter_id, balance, pending_amount, total_earnings, currency, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (sitter_id) DO NOTHING
	`

	_, err := r.querier.Exec(ctx, query,
		w.ID,
		w.SitterID,
		w.Balance,
		w.PendingAmount,
		w.TotalEarnings,
		w.Currency,
		w.Version,
		w.CreatedAt,
		w.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create wallet", "sitter_id", w.SitterID.String(), "error", err)
		return fmt.Errorf("failed to create wallet: %w", err)
	}

	return nil
}

// GetBySitterID reads the sitter's wallet without locking it
func (r *WalletRepository) GetBySitterID(ctx context.Context, sitterID uuid.UUID) (*wallet.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE sitter_id = $1`

	w, err := scanWallet(r.querier.QueryRow(ctx, query, sitterID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrWalletNotFound{SitterID: sitterID}
		}
		r.logger.Error("Failed to get wallet", "sitter_id", sitterID.String(), "error", err)
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	return w, nil
}

// LockForUpdate obtains a pessimistic lock on the wallet and returns its current state.
// This must be used within a transaction.
func (r *WalletRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*wallet.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1 FOR UPDATE`

	w, err := scanWallet(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrWalletNotFound{WalletID: id}
		}
		r.logger.Error("Failed to lock wallet for update", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock wallet for update: %w", err)
	}

	return w, nil
}

// LockBySitterID is LockForUpdate keyed by the owning sitter
func (r *WalletRepository) LockBySitterID(ctx context.Context, sitterID uuid.UUID) (*wallet.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE sitter_id = $1 FOR UPDATE`

	w, err := scanWallet(r.querier.QueryRow(ctx, query, sitterID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrWalletNotFound{SitterID: sitterID}
		}
		r.logger.Error("Failed to lock wallet for update", "sitter_id", sitterID.String(), "error", err)
		return nil, fmt.Errorf("failed to lock wallet for update: %w", err)
	}

	return w, nil
}

// Update persists balances and payout settings. The caller must have applied exactly one
// mutation since the wallet was loaded: the row is only written if it is still at Version-1.
func (r *WalletRepository) Update(ctx context.Context, w *wallet.Wallet) error {
	query := `
		UPDATE wallets
		SET balance = $1, pending_amount = $2, total_earnings = $3, payout_method = $4,
		    payout_details = $5, version = $6, updated_at = $7
		WHERE id = $8 AND version = $9
	`

	details, err := marshalNullable(w.PayoutDetails)
	if err != nil {
		return fmt.Errorf("failed to encode payout details: %w", err)
	}

	result, err := r.querier.Exec(ctx, query,
		w.Balance,
		w.PendingAmount,
		w.TotalEarnings,
		w.PayoutMethod,
		details,
		w.Version,
		w.UpdatedAt,
		w.ID,
		w.Version-1, // Check previous version for optimistic locking
	)
	if err != nil {
		r.logger.Error("Failed to update wallet", "id", w.ID.String(), "error", err)
		return fmt.Errorf("failed to update wallet: %w", err)
	}

	if result.RowsAffected() == 0 {
		return wallet.ErrConcurrentModification{WalletID: w.ID}
	}

	return nil
}

func scanWallet(row pgx.Row) (*wallet.Wallet, error) {
	var (
		w       wallet.Wallet
		details []byte
	)
	err := row.Scan(
		&w.ID,
		&w.SitterID,
		&w.Balance,
		&w.PendingAmount,
		&w.TotalEarnings,
		&w.Currency,
		&w.PayoutMethod,
		&details,
		&w.Version,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(details) > 0 {
		w.PayoutDetails = &wallet.PayoutDetails{}
		if err := json.Unmarshal(details, w.PayoutDetails); err != nil {
			return nil, fmt.Errorf("failed to decode payout details: %w", err)
		}
	}
	return &w, nil
}

// marshalNullable encodes v as JSON, or returns nil for a nil pointer so the column stays NULL
func marshalNullable[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
