package event

import (
	"context"
	"errors"
	"testing"

	"github.com/cnec/backend/internal/domain/campaign"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInMemoryEventBus_RoutesByType(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	activated := &recordingHandler{types: []string{campaign.EventTypeCampaignActivated}}
	cancelled := &recordingHandler{types: []string{campaign.EventTypeCampaignCancelled}}
	all := &recordingHandler{}
	bus.Subscribe(activated)
	bus.Subscribe(cancelled)
	bus.Subscribe(all)

	require.NoError(t, bus.Publish(context.Background(), newActivatedEvent(t)))

	assert.Equal(t, 1, activated.count())
	assert.Equal(t, 0, cancelled.count())
	assert.Equal(t, 1, all.count(), "a handler with no types receives everything")
}

func TestInMemoryEventBus_ExplicitTypesOverrideHandler(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	h := &recordingHandler{types: []string{campaign.EventTypeCampaignCancelled}}
	bus.Subscribe(h, campaign.EventTypeCampaignActivated)

	require.NoError(t, bus.Publish(context.Background(), newActivatedEvent(t)))
	assert.Equal(t, 1, h.count())
}

func TestInMemoryEventBus_JoinsHandlerErrors(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	failing := &recordingHandler{err: errors.New("smtp down")}
	ok := &recordingHandler{}
	bus.Subscribe(failing)
	bus.Subscribe(ok)

	err := bus.Publish(context.Background(), newActivatedEvent(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")
	assert.Equal(t, 1, ok.count(), "other handlers still run")
}

func TestInMemoryEventBus_RecoversPanics(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	bus.Subscribe(&recordingHandler{panics: true})

	err := bus.Publish(context.Background(), newActivatedEvent(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	h := &recordingHandler{types: []string{campaign.EventTypeCampaignActivated}}
	w := &recordingHandler{}
	bus.Subscribe(h)
	bus.Subscribe(w)
	bus.Unsubscribe(h)
	bus.Unsubscribe(w)

	require.NoError(t, bus.Publish(context.Background(), newActivatedEvent(t)))
	assert.Equal(t, 0, h.count())
	assert.Equal(t, 0, w.count())
}
