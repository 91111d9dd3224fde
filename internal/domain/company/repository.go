package company

import (
	"context"

	"github.com/google/uuid"
)

// Repository looks up companies within a single store. Implementations
// return shared.ErrNotFound when no row matches.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Company, error)
	// FindByEmail expects an address already passed through NormalizeEmail
	FindByEmail(ctx context.Context, email string) (*Company, error)
	Save(ctx context.Context, c *Company) error
}
