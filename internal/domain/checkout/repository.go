package checkout

import (
	"context"

	"github.com/google/uuid"
)

// ListFilter holds the filters for listing attempts.
type ListFilter struct {
	Status    *AttemptStatus
	BrandType *int
	Limit     int
	Offset    int
}

// Repository defines the persistence interface for checkout attempts.
type Repository interface {
	Create(ctx context.Context, a *Attempt) error
	GetByID(ctx context.Context, id uuid.UUID) (*Attempt, error)
	GetByCheckoutID(ctx context.Context, checkoutID string) (*Attempt, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*Attempt, error)
	Update(ctx context.Context, a *Attempt) error
	List(ctx context.Context, filter ListFilter) ([]*Attempt, error)
}
