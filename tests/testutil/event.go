package testutil

import (
	"context"
	"sync"

	"github.com/cnec/backend/internal/domain/shared"
)

// RecordingEventHandler records every event it handles.
type RecordingEventHandler struct {
	mu         sync.Mutex
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
}

// NewRecordingEventHandler creates a handler for eventTypes, or for every
// event when none are given.
func NewRecordingEventHandler(eventTypes ...string) *RecordingEventHandler {
	return &RecordingEventHandler{eventTypes: eventTypes}
}

// EventTypes returns the event types this handler subscribes to.
func (h *RecordingEventHandler) EventTypes() []string {
	return h.eventTypes
}

// Handle records the event and returns the configured error.
func (h *RecordingEventHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	return h.err
}

// Handled returns a copy of the handled events.
func (h *RecordingEventHandler) Handled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]shared.DomainEvent, len(h.handled))
	copy(out, h.handled)
	return out
}

// HandledTypes returns the types of the handled events in order.
func (h *RecordingEventHandler) HandledTypes() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.handled))
	for i, e := range h.handled {
		out[i] = e.EventType()
	}
	return out
}

// SetError sets the error to return from Handle.
func (h *RecordingEventHandler) SetError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

var _ shared.EventHandler = (*RecordingEventHandler)(nil)
