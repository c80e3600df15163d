package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pawsitter-settlement/internal/domain/wallet"
	"github.com/pawsitter-settlement/internal/platform/persistence"
)

const transactionColumns = `id, wallet_id, booking_id, withdrawal_id, amount, type, status,
		       available_at, description, metadata, created_at, updated_at`

// WalletTransactionRepository implements wallet.TransactionRepository for PostgreSQL
type WalletTransactionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewWalletTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) wallet.TransactionRepository {
	return &WalletTransactionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *WalletTransactionRepository) WithTx(tx pgx.Tx) wallet.TransactionRepository {
	return &WalletTransactionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// CreateEarning inserts the earning unless the booking already has one.
// It reports whether a row was written.
func (r *WalletTransactionRepository) CreateEarning(ctx context.Context, t *wallet.Transaction) (bool, error) {
	query := `
		INSERT INTO wallet_transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (booking_id) WHERE type = 'earning' DO NOTHING
	`

	args, err := transactionArgs(t)
	if err != nil {
		return false, err
	}

	result, err := r.querier.Exec(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to create earning", "booking_id", t.BookingID, "error", err)
		return false, fmt.Errorf("failed to create earning: %w", err)
	}

	return result.RowsAffected() == 1, nil
}

// Create appends a ledger entry
func (r *WalletTransactionRepository) Create(ctx context.Context, t *wallet.Transaction) error {
	query := `
		INSERT INTO wallet_transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	args, err := transactionArgs(t)
	if err != nil {
		return err
	}

	if _, err := r.querier.Exec(ctx, query, args...); err != nil {
		r.logger.Error("Failed to create wallet transaction", "type", string(t.Type), "error", err)
		return fmt.Errorf("failed to create wallet transaction: %w", err)
	}

	return nil
}

func (r *WalletTransactionRepository) GetEarningByBookingID(ctx context.Context, bookingID uuid.UUID) (*wallet.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM wallet_transactions WHERE booking_id = $1 AND type = 'earning'`
	return r.getEarning(ctx, query, bookingID)
}

// LockEarningByBookingID locks the booking's earning row for the rest of the transaction
func (r *WalletTransactionRepository) LockEarningByBookingID(ctx context.Context, bookingID uuid.UUID) (*wallet.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM wallet_transactions WHERE booking_id = $1 AND type = 'earning' FOR UPDATE`
	return r.getEarning(ctx, query, bookingID)
}

func (r *WalletTransactionRepository) getEarning(ctx context.Context, query string, bookingID uuid.UUID) (*wallet.Transaction, error) {
	t, err := scanTransaction(r.querier.QueryRow(ctx, query, bookingID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrTransactionNotFound{BookingID: bookingID}
		}
		r.logger.Error("Failed to get earning", "booking_id", bookingID.String(), "error", err)
		return nil, fmt.Errorf("failed to get earning: %w", err)
	}
	return t, nil
}

// LockForUpdate locks one ledger entry. Concurrent sweepers serialize here.
func (r *WalletTransactionRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*wallet.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM wallet_transactions WHERE id = $1 FOR UPDATE`

	t, err := scanTransaction(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrTransactionNotFound{TransactionID: id}
		}
		r.logger.Error("Failed to lock wallet transaction", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock wallet transaction: %w", err)
	}
	return t, nil
}

func (r *WalletTransactionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status wallet.TransactionStatus) error {
	query := `UPDATE wallet_transactions SET status = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.querier.Exec(ctx, query, status, id)
	if err != nil {
		r.logger.Error("Failed to update wallet transaction status", "id", id.String(), "status", string(status), "error", err)
		return fmt.Errorf("failed to update wallet transaction status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return wallet.ErrTransactionNotFound{TransactionID: id}
	}
	return nil
}

// ListMaturedPendingIDs returns pending earnings whose holding period ended, oldest first
func (r *WalletTransactionRepository) ListMaturedPendingIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	query := `
		SELECT id FROM wallet_transactions
		WHERE type = 'earning' AND status = 'pending' AND available_at <= $1
		ORDER BY available_at ASC
		LIMIT $2
	`

	rows, err := r.querier.Query(ctx, query, now, limit)
	if err != nil {
		r.logger.Error("Failed to list matured earnings", "error", err)
		return nil, fmt.Errorf("failed to list matured earnings: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			r.logger.Error("Failed to scan matured earning id", "error", err)
			return nil, fmt.Errorf("failed to scan matured earning id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating matured earnings: %w", err)
	}

	return ids, nil
}

// ListByWalletID returns a page of ledger entries, newest first
func (r *WalletTransactionRepository) ListByWalletID(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]*wallet.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + ` FROM wallet_transactions
		WHERE wallet_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, walletID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list wallet transactions", "wallet_id", walletID.String(), "error", err)
		return nil, fmt.Errorf("failed to list wallet transactions: %w", err)
	}
	defer rows.Close()

	transactions := make([]*wallet.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			r.logger.Error("Failed to scan wallet transaction", "error", err)
			return nil, fmt.Errorf("failed to scan wallet transaction: %w", err)
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wallet transactions: %w", err)
	}

	return transactions, nil
}

func (r *WalletTransactionRepository) CountByWalletID(ctx context.Context, walletID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM wallet_transactions WHERE wallet_id = $1`

	var count int64
	if err := r.querier.QueryRow(ctx, query, walletID).Scan(&count); err != nil {
		r.logger.Error("Failed to count wallet transactions", "wallet_id", walletID.String(), "error", err)
		return 0, fmt.Errorf("failed to count wallet transactions: %w", err)
	}
	return count, nil
}

func transactionArgs(t *wallet.Transaction) ([]interface{}, error) {
	var metadata []byte
	if len(t.Metadata) > 0 {
		raw, err := json.Marshal(t.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to encode transaction metadata: %w", err)
		}
		metadata = raw
	}
	return []interface{}{
		t.ID,
		t.WalletID,
		t.BookingID,
		t.WithdrawalID,
		t.Amount,
		t.Type,
		t.Status,
		t.AvailableAt,
		t.Description,
		metadata,
		t.CreatedAt,
		t.UpdatedAt,
	}, nil
}

func scanTransaction(row pgx.Row) (*wallet.Transaction, error) {
	var (
		t        wallet.Transaction
		metadata []byte
	)
	err := row.Scan(
		&t.ID,
		&t.WalletID,
		&t.BookingID,
		&t.WithdrawalID,
		&t.Amount,
		&t.Type,
		&t.Status,
		&t.AvailableAt,
		&t.Description,
		&metadata,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &t.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode transaction metadata: %w", err)
		}
	}
	return &t, nil
}
