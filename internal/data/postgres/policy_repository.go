package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pawsitter-settlement/internal/domain/policy"
	"github.com/pawsitter-settlement/internal/platform/persistence"
)

// PolicyRepository implements policy.Repository for PostgreSQL
type PolicyRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewPolicyRepository(logger *slog.Logger, db *persistence.PostgresDB) policy.Repository {
	return &PolicyRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *PolicyRepository) WithTx(tx pgx.Tx) policy.Repository {
	return &PolicyRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// GetActive loads the active policy and its rules ordered by min_hours.
// Ordering is for readability only; rule selection is by interval containment.
func (r *PolicyRepository) GetActive(ctx context.Context) (*policy.Policy, error) {
	var p policy.Policy
	err := r.querier.QueryRow(ctx,
		`SELECT id, name, is_active FROM cancellation_policies WHERE is_active`,
	).Scan(&p.ID, &p.Name, &p.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, policy.ErrNoActivePolicy{}
		}
		r.logger.Error("Failed to get active cancellation policy", "error", err)
		return nil, fmt.Errorf("failed to get active cancellation policy: %w", err)
	}

	rows, err := r.querier.Query(ctx, `
		SELECT id, min_hours, max_hours, refund_percent
		FROM cancellation_rules
		WHERE policy_id = $1
		ORDER BY min_hours ASC
	`, p.ID)
	if err != nil {
		r.logger.Error("Failed to get cancellation rules", "policy_id", p.ID.String(), "error", err)
		return nil, fmt.Errorf("failed to get cancellation rules: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rule policy.Rule
		if err := rows.Scan(&rule.ID, &rule.MinHours, &rule.MaxHours, &rule.RefundPercent); err != nil {
			return nil, fmt.Errorf("failed to scan cancellation rule: %w", err)
		}
		p.Rules = append(p.Rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cancellation rules: %w", err)
	}

	return &p, nil
}

// CreateActive deactivates the current policy and stores p as the active one.
// Must run inside a transaction so readers never see zero or two active policies.
func (r *PolicyRepository) CreateActive(ctx context.Context, p *policy.Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	if _, err := r.querier.Exec(ctx, `UPDATE cancellation_policies SET is_active = FALSE WHERE is_active`); err != nil {
		r.logger.Error("Failed to deactivate cancellation policy", "error", err)
		return fmt.Errorf("failed to deactivate cancellation policy: %w", err)
	}

	if _, err := r.querier.Exec(ctx,
		`INSERT INTO cancellation_policies (id, name, is_active) VALUES ($1, $2, TRUE)`,
		p.ID, p.Name,
	); err != nil {
		r.logger.Error("Failed to create cancellation policy", "name", p.Name, "error", err)
		return fmt.Errorf("failed to create cancellation policy: %w", err)
	}
	p.IsActive = true

	for i := range p.Rules {
		rule := &p.Rules[i]
		if rule.ID == uuid.Nil {
			rule.ID = uuid.New()
		}
		if _, err := r.querier.Exec(ctx, `
			INSERT INTO cancellation_rules (id, policy_id, min_hours, max_hours, refund_percent)
			VALUES ($1, $2, $3, $4, $5)
		`, rule.ID, p.ID, rule.MinHours, rule.MaxHours, rule.RefundPercent); err != nil {
			r.logger.Error("Failed to create cancellation rule", "policy_id", p.ID.String(), "error", err)
			return fmt.Errorf("failed to create cancellation rule: %w", err)
		}
	}

	return nil
}
