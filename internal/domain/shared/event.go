package shared

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DomainEvent represents an event that occurred in the domain
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
	// Region is the store that owns the aggregate
	Region() string
}

// KeyedEvent is implemented by events that carry a deterministic
// idempotency key. Two events for the same aggregate, type and aggregate
// version produce the same key even if their EventIDs differ.
type KeyedEvent interface {
	DomainEvent
	IdempotencyKey() string
}

// BaseDomainEvent provides common fields for all domain events
type BaseDomainEvent struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	AggID      uuid.UUID `json:"aggregate_id"`
	AggType    string    `json:"aggregate_type"`
	AggVersion int       `json:"aggregate_version"`
	RegionKey  string    `json:"region"`
}

func (e *BaseDomainEvent) EventID() uuid.UUID {
	return e.ID
}

func (e *BaseDomainEvent) EventType() string {
	return e.Type
}

func (e *BaseDomainEvent) OccurredAt() time.Time {
	return e.Timestamp
}

func (e *BaseDomainEvent) AggregateID() uuid.UUID {
	return e.AggID
}

func (e *BaseDomainEvent) AggregateType() string {
	return e.AggType
}

func (e *BaseDomainEvent) Region() string {
	return e.RegionKey
}

// AggregateVersion is the aggregate version after the change
func (e *BaseDomainEvent) AggregateVersion() int {
	return e.AggVersion
}

// IdempotencyKey returns entityId:eventType:version
func (e *BaseDomainEvent) IdempotencyKey() string {
	return IdempotencyKey(e.AggID.String(), e.Type, e.AggVersion)
}

// IdempotencyKey builds the deduplication key used by notification
// dispatch for a logical event.
func IdempotencyKey(entityID, eventType string, version int) string {
	return fmt.Sprintf("%s:%s:%d", entityID, eventType, version)
}

// NewBaseDomainEvent creates a new base domain event. aggVersion is the
// aggregate version after the change that produced the event.
func NewBaseDomainEvent(eventType, aggType string, aggID uuid.UUID, aggVersion int, region string) BaseDomainEvent {
	return BaseDomainEvent{
		ID:         uuid.New(),
		Type:       eventType,
		Timestamp:  time.Now(),
		AggID:      aggID,
		AggType:    aggType,
		AggVersion: aggVersion,
		RegionKey:  region,
	}
}
