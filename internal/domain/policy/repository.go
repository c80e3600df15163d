package policy

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Repository manages the active cancellation policy
type Repository interface {
	// GetActive returns the single active policy with its rules
	GetActive(ctx context.Context) (*Policy, error)
	// CreateActive stores the policy and makes it the active one
	CreateActive(ctx context.Context, p *Policy) error
	WithTx(tx pgx.Tx) Repository
}

// ErrNoActivePolicy indicates that no cancellation policy is active
type ErrNoActivePolicy struct{}

func (e ErrNoActivePolicy) Error() string {
	return "no active cancellation policy"
}
