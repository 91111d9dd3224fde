package persistence

import (
	"context"

	apppoints "github.com/cnec/backend/internal/application/points"
	"github.com/cnec/backend/internal/domain/points"
	"github.com/cnec/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormLedgerScope implements the points TransactionScope on the central store
type GormLedgerScope struct {
	db     *gorm.DB
	outbox shared.OutboxEventSaver
}

// NewGormLedgerScope creates a ledger transaction scope
func NewGormLedgerScope(db *gorm.DB, outbox shared.OutboxEventSaver) *GormLedgerScope {
	return &GormLedgerScope{db: db, outbox: outbox}
}

// Execute runs fn within a database transaction. If fn returns an error the
// transaction is rolled back, otherwise it is committed.
func (s *GormLedgerScope) Execute(ctx context.Context, fn func(repos apppoints.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormLedgerRepositories{tx: tx, outbox: s.outbox})
	})
}

type gormLedgerRepositories struct {
	tx     *gorm.DB
	outbox shared.OutboxEventSaver
}

func (r *gormLedgerRepositories) ChargeRequestRepo() points.ChargeRequestRepository {
	return NewGormChargeRequestRepository(r.tx)
}

func (r *gormLedgerRepositories) TransactionRepo() points.TransactionRepository {
	return NewGormPointsTransactionRepository(r.tx)
}

func (r *gormLedgerRepositories) BalanceRepo() points.BalanceRepository {
	return NewGormBalanceRepository(r.tx)
}

func (r *gormLedgerRepositories) Outbox() shared.EventPublisher {
	return &txOutbox{tx: r.tx, saver: r.outbox}
}

// txOutbox publishes events into the outbox table of one transaction
type txOutbox struct {
	tx    *gorm.DB
	saver shared.OutboxEventSaver
}

func (o *txOutbox) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if o.saver == nil || len(events) == 0 {
		return nil
	}
	return o.saver.SaveEvents(ctx, o.tx, events...)
}

var (
	_ apppoints.TransactionScope          = (*GormLedgerScope)(nil)
	_ apppoints.TransactionalRepositories = (*gormLedgerRepositories)(nil)
)
