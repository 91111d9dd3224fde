package points

import (
	"context"

	"github.com/cnec/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ChargeRequestRepository persists charge requests in the central store
type ChargeRequestRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ChargeRequest, error)
	FindByCompany(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]*ChargeRequest, int64, error)
	Create(ctx context.Context, r *ChargeRequest) error
	// TransitionFromPending writes r's new terminal status only if the stored
	// row is still pending. It returns shared.ErrConflict when another
	// caller got there first and shared.ErrNotFound when the row is missing.
	TransitionFromPending(ctx context.Context, r *ChargeRequest) error
}

// TransactionRepository is the append-only ledger. It has no update or delete.
type TransactionRepository interface {
	Append(ctx context.Context, tx *Transaction) error
	FindByCompany(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]*Transaction, int64, error)
	SumByCompany(ctx context.Context, companyID uuid.UUID) (int64, error)
}

// BalanceRepository owns the cached balance column on the central company row
type BalanceRepository interface {
	Get(ctx context.Context, companyID uuid.UUID) (int64, error)
	// Apply adds delta in a single conditional update and returns the new
	// balance. It fails with shared.ErrInsufficientBalance if the result would
	// be negative and with shared.ErrNotFound if the company does not exist.
	Apply(ctx context.Context, companyID uuid.UUID, delta int64) (int64, error)
}
