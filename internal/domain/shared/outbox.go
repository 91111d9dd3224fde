package shared

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus is the delivery state of an outbox entry
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "PENDING"
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	OutboxStatusSent       OutboxStatus = "SENT"
	OutboxStatusFailed     OutboxStatus = "FAILED"
	OutboxStatusDead       OutboxStatus = "DEAD"
)

// Retry policy for entries whose handlers fail
const (
	DefaultMaxRetries  = 5
	DefaultBaseBackoff = time.Second
	MaxBackoff         = 5 * time.Minute
)

// OutboxEntry is a domain event written to a store's outbox in the same
// transaction as the state change that raised it. Region names the store
// whose processor delivers it.
type OutboxEntry struct {
	ID               uuid.UUID
	Region           string
	EventID          uuid.UUID
	EventType        string
	AggregateID      uuid.UUID
	AggregateType    string
	AggregateVersion int
	Payload          []byte
	Status           OutboxStatus
	RetryCount       int
	MaxRetries       int
	LastError        string
	NextRetryAt      *time.Time
	ProcessedAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type versionedEvent interface {
	AggregateVersion() int
}

// NewOutboxEntry wraps a serialized event for delivery by its store
func NewOutboxEntry(event DomainEvent, payload []byte) *OutboxEntry {
	now := time.Now()
	e := &OutboxEntry{
		ID:            uuid.New(),
		Region:        event.Region(),
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		Payload:       payload,
		Status:        OutboxStatusPending,
		MaxRetries:    DefaultMaxRetries,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if v, ok := event.(versionedEvent); ok {
		e.AggregateVersion = v.AggregateVersion()
	}
	return e
}

// IdempotencyKey is entityId:eventType:version of the wrapped event
func (e *OutboxEntry) IdempotencyKey() string {
	return IdempotencyKey(e.AggregateID.String(), e.EventType, e.AggregateVersion)
}

// Claimable reports whether a processor may take the entry
func (e *OutboxEntry) Claimable() bool {
	return e.Status == OutboxStatusPending || e.Status == OutboxStatusFailed
}

// MarkSent records a successful delivery
func (e *OutboxEntry) MarkSent() {
	now := time.Now()
	e.Status = OutboxStatusSent
	e.ProcessedAt = &now
	e.UpdatedAt = now
}

// MarkFailed records a failed delivery. The entry is retried after
// RetryBackoff and goes dead once MaxRetries attempts have failed.
func (e *OutboxEntry) MarkFailed(errMsg string) {
	now := time.Now()
	e.RetryCount++
	e.LastError = errMsg
	e.UpdatedAt = now

	if e.RetryCount >= e.MaxRetries {
		e.Status = OutboxStatusDead
		e.NextRetryAt = nil
		return
	}
	e.Status = OutboxStatusFailed
	next := now.Add(RetryBackoff(e.RetryCount))
	e.NextRetryAt = &next
}

// Requeue returns a claimed entry to pending without counting an attempt.
// Used when an earlier event of the same aggregate has not been delivered.
func (e *OutboxEntry) Requeue() {
	e.Status = OutboxStatusPending
	e.UpdatedAt = time.Now()
}

// IsDead reports whether retries are exhausted
func (e *OutboxEntry) IsDead() bool {
	return e.Status == OutboxStatusDead
}

// RetryBackoff doubles from DefaultBaseBackoff per attempt, capped at MaxBackoff
func RetryBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 20 {
		return MaxBackoff
	}
	return min(DefaultBaseBackoff<<(attempt-1), MaxBackoff)
}

// SortForDelivery orders entries oldest first while keeping the entries of
// each aggregate in version order, so a campaign's submitted notice never
// goes out after its activation notice.
func SortForDelivery(entries []*OutboxEntry) {
	slices.SortStableFunc(entries, func(a, b *OutboxEntry) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	slots := make(map[uuid.UUID][]int)
	for i, e := range entries {
		slots[e.AggregateID] = append(slots[e.AggregateID], i)
	}
	for _, idx := range slots {
		if len(idx) < 2 {
			continue
		}
		group := make([]*OutboxEntry, len(idx))
		for i, pos := range idx {
			group[i] = entries[pos]
		}
		slices.SortStableFunc(group, func(a, b *OutboxEntry) int {
			return cmp.Compare(a.AggregateVersion, b.AggregateVersion)
		})
		for i, pos := range idx {
			entries[pos] = group[i]
		}
	}
}

// OutboxRepository persists the outbox of one store
type OutboxRepository interface {
	Save(ctx context.Context, entries ...*OutboxEntry) error
	// FindPending returns pending entries oldest first, skipping aggregates
	// that still have a failed entry waiting for retry
	FindPending(ctx context.Context, limit int) ([]*OutboxEntry, error)
	// FindRetryable returns failed entries due before the given time
	FindRetryable(ctx context.Context, before time.Time, limit int) ([]*OutboxEntry, error)
	FindDead(ctx context.Context, page, pageSize int) ([]*OutboxEntry, int64, error)
	// MarkProcessing claims entries and returns the ones won, in delivery order
	MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*OutboxEntry, error)
	Update(ctx context.Context, entry *OutboxEntry) error
	// DeleteOlderThan removes sent entries processed before the cutoff
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
	CountByStatus(ctx context.Context) (map[OutboxStatus]int64, error)
}
