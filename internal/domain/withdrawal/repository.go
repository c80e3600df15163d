package withdrawal

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines withdrawal request persistence operations
type Repository interface {
	Create(ctx context.Context, r *Request) error
	GetByID(ctx context.Context, id uuid.UUID) (*Request, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrRequestNotFound indicates missing withdrawal request
type ErrRequestNotFound struct {
	ID uuid.UUID
}

func (e ErrRequestNotFound) Error() string {
	return "withdrawal request not found: " + e.ID.String()
}

func (e ErrRequestNotFound) Is(target error) bool {
	_, ok := target.(ErrRequestNotFound)
	return ok
}
