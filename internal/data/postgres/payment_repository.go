package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pawsitter-settlement/internal/domain/payment"
	"github.com/pawsitter-settlement/internal/platform/persistence"
)

const (
	paymentColumns = `id, booking_id, gateway_payment_id, amount, currency, status, failure_reason, created_at, updated_at`
	refundColumns  = `id, booking_id, payment_id, gateway_refund_id, amount, status, failure_reason, created_at, updated_at`
	disputeColumns = `id, booking_id, payment_id, gateway_dispute_id, amount, reason, status, created_at, updated_at`
)

// PaymentRepository implements payment.Repository for PostgreSQL
type PaymentRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewPaymentRepository(logger *slog.Logger, db *persistence.PostgresDB) payment.Repository {
	return &PaymentRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *PaymentRepository) WithTx(tx pgx.Tx) payment.Repository {
	return &PaymentRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *PaymentRepository) CreatePayment(ctx context.Context, p *payment.Payment) error {
	query := `INSERT INTO payments (` + paymentColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.querier.Exec(ctx, query,
		p.ID, p.BookingID, p.GatewayPaymentID, p.Amount, p.Currency, p.Status, p.FailureReason, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to create payment", "gateway_payment_id", p.GatewayPaymentID, "error", err)
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// GetPaymentByGatewayID locks the payment the gateway refers to
func (r *PaymentRepository) GetPaymentByGatewayID(ctx context.Context, gatewayPaymentID string) (*payment.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE gateway_payment_id = $1 FOR UPDATE`

	p, err := scanPayment(r.querier.QueryRow(ctx, query, gatewayPaymentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrPaymentNotFound{Kind: "payment", GatewayID: gatewayPaymentID}
		}
		r.logger.Error("Failed to get payment", "gateway_payment_id", gatewayPaymentID, "error", err)
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}

func (r *PaymentRepository) GetPaymentByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 FOR UPDATE`

	p, err := scanPayment(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrPaymentNotFound{Kind: "payment", GatewayID: id.String()}
		}
		r.logger.Error("Failed to get payment", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}

// GetCapturedPaymentByBookingID returns the most recent captured payment for a booking
func (r *PaymentRepository) GetCapturedPaymentByBookingID(ctx context.Context, bookingID uuid.UUID) (*payment.Payment, error) {
	query := `
		SELECT ` + paymentColumns + ` FROM payments
		WHERE booking_id = $1 AND status = 'captured'
		ORDER BY created_at DESC
		LIMIT 1
	`

	p, err := scanPayment(r.querier.QueryRow(ctx, query, bookingID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrPaymentNotFound{Kind: "payment", GatewayID: "booking " + bookingID.String()}
		}
		r.logger.Error("Failed to get captured payment", "booking_id", bookingID.String(), "error", err)
		return nil, fmt.Errorf("failed to get captured payment: %w", err)
	}
	return p, nil
}

func (r *PaymentRepository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status payment.Status, failureReason string) error {
	query := `UPDATE payments SET status = $1, failure_reason = $2, updated_at = NOW() WHERE id = $3`

	if _, err := r.querier.Exec(ctx, query, status, failureReason, id); err != nil {
		r.logger.Error("Failed to update payment status", "id", id.String(), "status", string(status), "error", err)
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	return nil
}

func (r *PaymentRepository) CreateRefund(ctx context.Context, rf *payment.Refund) error {
	query := `INSERT INTO refunds (` + refundColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.querier.Exec(ctx, query,
		rf.ID, rf.BookingID, rf.PaymentID, rf.GatewayRefundID, rf.Amount, rf.Status, rf.FailureReason, rf.CreatedAt, rf.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to create refund", "booking_id", rf.BookingID.String(), "error", err)
		return fmt.Errorf("failed to create refund: %w", err)
	}
	return nil
}

func (r *PaymentRepository) GetRefundByID(ctx context.Context, id uuid.UUID) (*payment.Refund, error) {
	query := `SELECT ` + refundColumns + ` FROM refunds WHERE id = $1 FOR UPDATE`

	rf, err := scanRefund(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrPaymentNotFound{Kind: "refund", GatewayID: id.String()}
		}
		r.logger.Error("Failed to get refund", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get refund: %w", err)
	}
	return rf, nil
}

func (r *PaymentRepository) GetRefundByGatewayID(ctx context.Context, gatewayRefundID string) (*payment.Refund, error) {
	query := `SELECT ` + refundColumns + ` FROM refunds WHERE gateway_refund_id = $1 FOR UPDATE`

	rf, err := scanRefund(r.querier.QueryRow(ctx, query, gatewayRefundID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrPaymentNotFound{Kind: "refund", GatewayID: gatewayRefundID}
		}
		r.logger.Error("Failed to get refund", "gateway_refund_id", gatewayRefundID, "error", err)
		return nil, fmt.Errorf("failed to get refund: %w", err)
	}
	return rf, nil
}

func (r *PaymentRepository) AttachGatewayRefundID(ctx context.Context, id uuid.UUID, gatewayRefundID string) error {
	query := `UPDATE refunds SET gateway_refund_id = $1, updated_at = NOW() WHERE id = $2`

	if _, err := r.querier.Exec(ctx, query, gatewayRefundID, id); err != nil {
		r.logger.Error("Failed to attach gateway refund id", "id", id.String(), "error", err)
		return fmt.Errorf("failed to attach gateway refund id: %w", err)
	}
	return nil
}

func (r *PaymentRepository) UpdateRefundStatus(ctx context.Context, id uuid.UUID, status payment.RefundStatus, failureReason string) error {
	query := `UPDATE refunds SET status = $1, failure_reason = $2, updated_at = NOW() WHERE id = $3`

	if _, err := r.querier.Exec(ctx, query, status, failureReason, id); err != nil {
		r.logger.Error("Failed to update refund status", "id", id.String(), "status", string(status), "error", err)
		return fmt.Errorf("failed to update refund status: %w", err)
	}
	return nil
}

func (r *PaymentRepository) SumProcessedRefunds(ctx context.Context, paymentID uuid.UUID) (int64, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM refunds WHERE payment_id = $1 AND status = 'processed'`

	var total int64
	if err := r.querier.QueryRow(ctx, query, paymentID).Scan(&total); err != nil {
		r.logger.Error("Failed to sum processed refunds", "payment_id", paymentID.String(), "error", err)
		return 0, fmt.Errorf("failed to sum processed refunds: %w", err)
	}
	return total, nil
}

func (r *PaymentRepository) CreateDispute(ctx context.Context, d *payment.Dispute) error {
	query := `INSERT INTO disputes (` + disputeColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.querier.Exec(ctx, query,
		d.ID, d.BookingID, d.PaymentID, d.GatewayDisputeID, d.Amount, d.Reason, d.Status, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to create dispute", "gateway_dispute_id", d.GatewayDisputeID, "error", err)
		return fmt.Errorf("failed to create dispute: %w", err)
	}
	return nil
}

func (r *PaymentRepository) GetDisputeByGatewayID(ctx context.Context, gatewayDisputeID string) (*payment.Dispute, error) {
	query := `SELECT ` + disputeColumns + ` FROM disputes WHERE gateway_dispute_id = $1 FOR UPDATE`

	var d payment.Dispute
	err := r.querier.QueryRow(ctx, query, gatewayDisputeID).Scan(
		&d.ID, &d.BookingID, &d.PaymentID, &d.GatewayDisputeID, &d.Amount, &d.Reason, &d.Status, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrPaymentNotFound{Kind: "dispute", GatewayID: gatewayDisputeID}
		}
		r.logger.Error("Failed to get dispute", "gateway_dispute_id", gatewayDisputeID, "error", err)
		return nil, fmt.Errorf("failed to get dispute: %w", err)
	}
	return &d, nil
}

func (r *PaymentRepository) UpdateDisputeStatus(ctx context.Context, id uuid.UUID, status payment.DisputeStatus) error {
	query := `UPDATE disputes SET status = $1, updated_at = NOW() WHERE id = $2`

	if _, err := r.querier.Exec(ctx, query, status, id); err != nil {
		r.logger.Error("Failed to update dispute status", "id", id.String(), "status", string(status), "error", err)
		return fmt.Errorf("failed to update dispute status: %w", err)
	}
	return nil
}

func scanPayment(row pgx.Row) (*payment.Payment, error) {
	var p payment.Payment
	err := row.Scan(&p.ID, &p.BookingID, &p.GatewayPaymentID, &p.Amount, &p.Currency, &p.Status, &p.FailureReason, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanRefund(row pgx.Row) (*payment.Refund, error) {
	var rf payment.Refund
	err := row.Scan(&rf.ID, &rf.BookingID, &rf.PaymentID, &rf.GatewayRefundID, &rf.Amount, &rf.Status, &rf.FailureReason, &rf.CreatedAt, &rf.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rf, nil
}
