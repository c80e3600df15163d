package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/pawsitter-settlement/internal/domain/payment"
	"github.com/pawsitter-settlement/internal/platform/persistence"
)

// PaymentEventRepository implements payment.EventLog for PostgreSQL
type PaymentEventRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewPaymentEventRepository(logger *slog.Logger, db *persistence.PostgresDB) payment.EventLog {
	return &PaymentEventRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *PaymentEventRepository) WithTx(tx pgx.Tx) payment.EventLog {
	return &PaymentEventRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Record claims the event id. A redelivered event affects no rows and reports false.
func (r *PaymentEventRepository) Record(ctx context.Context, event *payment.ProcessedEvent) (bool, error) {
	query := `
		INSERT INTO payment_events (event_id, event_type, received_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id) DO NOTHING
	`

	result, err := r.querier.Exec(ctx, query, event.EventID, event.EventType, event.ReceivedAt)
	if err != nil {
		r.logger.Error("Failed to record payment event", "event_id", event.EventID, "error", err)
		return false, fmt.Errorf("failed to record payment event: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

func (r *PaymentEventRepository) SetOutcome(ctx context.Context, eventID string, outcome payment.EventOutcome) error {
	query := `UPDATE payment_events SET outcome = $1 WHERE event_id = $2`

	if _, err := r.querier.Exec(ctx, query, outcome, eventID); err != nil {
		r.logger.Error("Failed to set payment event outcome", "event_id", eventID, "error", err)
		return fmt.Errorf("failed to set payment event outcome: %w", err)
	}
	return nil
}
