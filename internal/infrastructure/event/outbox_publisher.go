package event

import (
	"context"
	"fmt"

	"github.com/cnec/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// OutboxPublisher writes domain events to the outbox table of the
// transaction that carries the state change
type OutboxPublisher struct {
	serializer *EventSerializer
	maxRetries int
}

// OutboxPublisherOption configures an OutboxPublisher
type OutboxPublisherOption func(*OutboxPublisher)

// WithMaxRetries sets how many failed deliveries an entry gets before it is
// dead-lettered
func WithMaxRetries(n int) OutboxPublisherOption {
	return func(p *OutboxPublisher) {
		if n > 0 {
			p.maxRetries = n
		}
	}
}

// NewOutboxPublisher creates a new outbox publisher
func NewOutboxPublisher(serializer *EventSerializer, opts ...OutboxPublisherOption) *OutboxPublisher {
	p := &OutboxPublisher{serializer: serializer, maxRetries: shared.DefaultMaxRetries}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PublishWithTx serializes events and saves them through tx
func (p *OutboxPublisher) PublishWithTx(ctx context.Context, tx *gorm.DB, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	entries := make([]*shared.OutboxEntry, 0, len(events))
	for _, event := range events {
		if !p.serializer.IsRegistered(event.EventType()) {
			return fmt.Errorf("event type %s is not registered with the serializer", event.EventType())
		}
		payload, err := p.serializer.Serialize(event)
		if err != nil {
			return fmt.Errorf("serialize %s: %w", event.EventType(), err)
		}
		entry := shared.NewOutboxEntry(event, payload)
		entry.MaxRetries = p.maxRetries
		entries = append(entries, entry)
	}

	return NewGormOutboxRepository(tx).Save(ctx, entries...)
}

// SaveEvents implements shared.OutboxEventSaver. txProvider must be the
// *gorm.DB of the open transaction.
func (p *OutboxPublisher) SaveEvents(ctx context.Context, txProvider any, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	tx, ok := txProvider.(*gorm.DB)
	if !ok {
		return fmt.Errorf("txProvider must be a *gorm.DB, got %T", txProvider)
	}
	return p.PublishWithTx(ctx, tx, events...)
}

var _ shared.OutboxEventSaver = (*OutboxPublisher)(nil)
