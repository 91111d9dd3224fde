package event

import (
	"context"
	"sync"
	"time"

	"github.com/cnec/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OutboxProcessorConfig holds configuration for the outbox processor
type OutboxProcessorConfig struct {
	BatchSize        int
	PollInterval     time.Duration
	CleanupEnabled   bool
	CleanupRetention time.Duration
	CleanupInterval  time.Duration
}

// DefaultOutboxProcessorConfig returns default configuration
func DefaultOutboxProcessorConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:        100,
		PollInterval:     5 * time.Second,
		CleanupEnabled:   true,
		CleanupRetention: 7 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}

// OutboxProcessor drains the outbox of one store onto the event bus. There
// is one processor per store.
type OutboxProcessor struct {
	store      string
	repo       shared.OutboxRepository
	publisher  shared.EventPublisher
	serializer *EventSerializer
	config     OutboxProcessorConfig
	logger     *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOutboxProcessor creates a new outbox processor for the named store
func NewOutboxProcessor(
	store string,
	repo shared.OutboxRepository,
	publisher shared.EventPublisher,
	serializer *EventSerializer,
	config OutboxProcessorConfig,
	logger *zap.Logger,
) *OutboxProcessor {
	return &OutboxProcessor{
		store:      store,
		repo:       repo,
		publisher:  publisher,
		serializer: serializer,
		config:     config,
		logger:     logger.With(zap.String("store", store)),
	}
}

// Start starts the background processing
func (p *OutboxProcessor) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.processLoop(ctx)

	if p.config.CleanupEnabled {
		p.wg.Add(1)
		go p.cleanupLoop(ctx)
	}

	p.logger.Info("outbox processor started",
		zap.Int("batch_size", p.config.BatchSize),
		zap.Duration("poll_interval", p.config.PollInterval),
	)
	return nil
}

// Stop gracefully stops the processor
func (p *OutboxProcessor) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("outbox processor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *OutboxProcessor) processLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ProcessOnce(ctx)
		}
	}
}

// ProcessOnce delivers one batch of entries due for retry, then one batch
// of pending entries. Retries go first so an aggregate's older events are
// delivered before its newer ones.
func (p *OutboxProcessor) ProcessOnce(ctx context.Context) {
	retryable, err := p.repo.FindRetryable(ctx, time.Now(), p.config.BatchSize)
	if err != nil {
		p.logger.Error("failed to find retryable entries", zap.Error(err))
		return
	}
	if len(retryable) > 0 {
		p.processEntries(ctx, retryable)
	}

	pending, err := p.repo.FindPending(ctx, p.config.BatchSize)
	if err != nil {
		p.logger.Error("failed to find pending entries", zap.Error(err))
		return
	}
	if len(pending) > 0 {
		p.processEntries(ctx, pending)
	}
}

func (p *OutboxProcessor) processEntries(ctx context.Context, entries []*shared.OutboxEntry) {
	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}

	claimed, err := p.repo.MarkProcessing(ctx, ids)
	if err != nil {
		p.logger.Error("failed to mark entries as processing", zap.Error(err))
		return
	}

	stalled := make(map[uuid.UUID]bool)
	for _, entry := range claimed {
		if stalled[entry.AggregateID] {
			p.requeue(ctx, entry)
			continue
		}
		if !p.processEntry(ctx, entry) {
			stalled[entry.AggregateID] = true
		}
	}
}

// requeue puts back an entry whose aggregate has an undelivered earlier event
func (p *OutboxProcessor) requeue(ctx context.Context, entry *shared.OutboxEntry) {
	entry.Requeue()
	if err := p.repo.Update(ctx, entry); err != nil {
		p.logger.Error("failed to requeue entry",
			zap.String("event_id", entry.EventID.String()),
			zap.Error(err),
		)
	}
}

// processEntry delivers one entry and reports whether it was published
func (p *OutboxProcessor) processEntry(ctx context.Context, entry *shared.OutboxEntry) bool {
	event, err := p.serializer.Deserialize(entry.EventType, entry.Payload)
	if err != nil {
		p.fail(ctx, entry, "failed to deserialize event", err)
		return false
	}

	if err := p.publisher.Publish(ctx, event); err != nil {
		p.fail(ctx, entry, "failed to publish event", err)
		return false
	}

	entry.MarkSent()
	if err := p.repo.Update(ctx, entry); err != nil {
		p.logger.Error("failed to mark entry as sent",
			zap.String("event_id", entry.EventID.String()),
			zap.Error(err),
		)
		return true
	}
	p.logger.Debug("event processed",
		zap.String("event_id", entry.EventID.String()),
		zap.String("event_type", entry.EventType),
		zap.String("idempotency_key", entry.IdempotencyKey()),
	)
	return true
}

func (p *OutboxProcessor) fail(ctx context.Context, entry *shared.OutboxEntry, msg string, err error) {
	p.logger.Error(msg,
		zap.String("event_id", entry.EventID.String()),
		zap.String("event_type", entry.EventType),
		zap.Error(err),
	)
	entry.MarkFailed(err.Error())
	if entry.IsDead() {
		p.logger.Warn("event moved to dead letter queue",
			zap.String("event_id", entry.EventID.String()),
			zap.String("event_type", entry.EventType),
			zap.String("aggregate_type", entry.AggregateType),
			zap.String("aggregate_id", entry.AggregateID.String()),
			zap.Int("retry_count", entry.RetryCount),
			zap.String("last_error", entry.LastError),
		)
	}
	if updateErr := p.repo.Update(ctx, entry); updateErr != nil {
		p.logger.Error("failed to update entry", zap.Error(updateErr))
	}
}

func (p *OutboxProcessor) cleanupLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.cleanup(ctx)
		}
	}
}

func (p *OutboxProcessor) cleanup(ctx context.Context) {
	cutoff := time.Now().Add(-p.config.CleanupRetention)
	deleted, err := p.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		p.logger.Error("failed to cleanup old entries", zap.Error(err))
		return
	}
	if deleted > 0 {
		p.logger.Info("cleaned up old outbox entries",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff),
		)
	}
}
