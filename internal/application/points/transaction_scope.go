package points

import (
	"context"

	"github.com/cnec/backend/internal/domain/points"
	"github.com/cnec/backend/internal/domain/shared"
)

// TransactionScope provides transactional access to the ledger repositories.
// All repository operations inside Execute are committed or rolled back together.
type TransactionScope interface {
	// Execute runs fn within a database transaction on the central store.
	// If fn returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides the ledger repositories bound to one
// transaction.
//
//   - ChargeRequestRepo: charge request rows and their pending → terminal transition.
//   - TransactionRepo: append-only ledger entries.
//   - BalanceRepo: the cached balance column, changed only by conditional update.
//   - Outbox: domain events written to the outbox table of the same transaction.
type TransactionalRepositories interface {
	ChargeRequestRepo() points.ChargeRequestRepository
	TransactionRepo() points.TransactionRepository
	BalanceRepo() points.BalanceRepository
	Outbox() shared.EventPublisher
}
