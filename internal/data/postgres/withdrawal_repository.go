package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pawsitter-settlement/internal/domain/withdrawal"
	"github.com/pawsitter-settlement/internal/platform/persistence"
)

// WithdrawalRepository implements withdrawal.Repository for PostgreSQL
type WithdrawalRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewWithdrawalRepository(logger *slog.Logger, db *persistence.PostgresDB) withdrawal.Repository {
	return &WithdrawalRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *WithdrawalRepository) WithTx(tx pgx.Tx) withdrawal.Repository {
	return &WithdrawalRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *WithdrawalRepository) Create(ctx context.Context, req *withdrawal.Request) error {
	query := `
		INSERT INTO withdrawal_requests (id, wallet_id, sitter_id, amount, payment_method, payment_details, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	details, err := json.Marshal(req.PaymentDetails)
	if err != nil {
		return fmt.Errorf("failed to encode payment details: %w", err)
	}

	_, err = r.querier.Exec(ctx, query,
		req.ID,
		req.WalletID,
		req.SitterID,
		req.Amount,
		req.PaymentMethod,
		details,
		req.Status,
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create withdrawal request", "sitter_id", req.SitterID.String(), "error", err)
		return fmt.Errorf("failed to create withdrawal request: %w", err)
	}

	return nil
}

func (r *WithdrawalRepository) GetByID(ctx context.Context, id uuid.UUID) (*withdrawal.Request, error) {
	query := `
		SELECT id, wallet_id, sitter_id, amount, payment_method, payment_details, status,
		       COALESCE(failure_reason, ''), created_at, updated_at
		FROM withdrawal_requests
		WHERE id = $1
	`

	var (
		req     withdrawal.Request
		details []byte
	)
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&req.ID,
		&req.WalletID,
		&req.SitterID,
		&req.Amount,
		&req.PaymentMethod,
		&details,
		&req.Status,
		&req.FailureReason,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, withdrawal.ErrRequestNotFound{ID: id}
		}
		r.logger.Error("Failed to get withdrawal request", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get withdrawal request: %w", err)
	}
	if err := json.Unmarshal(details, &req.PaymentDetails); err != nil {
		return nil, fmt.Errorf("failed to decode payment details: %w", err)
	}

	return &req, nil
}
