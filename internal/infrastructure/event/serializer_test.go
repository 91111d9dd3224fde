package event

import (
	"testing"

	"github.com/cnec/backend/internal/domain/campaign"
	"github.com/cnec/backend/internal/domain/points"
	"github.com/cnec/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventSerializer_RoundTripKeepsIdempotencyKey(t *testing.T) {
	s := NewEventSerializer()
	RegisterAllEvents(s)

	original := newActivatedEvent(t)
	data, err := s.Serialize(original)
	require.NoError(t, err)

	decoded, err := s.Deserialize(campaign.EventTypeCampaignActivated, data)
	require.NoError(t, err)

	got, ok := decoded.(*campaign.CampaignActivatedEvent)
	require.True(t, ok)
	assert.Equal(t, original.EventID(), got.EventID())
	assert.Equal(t, original.CampaignID, got.CampaignID)
	assert.Equal(t, original.TotalSlots, got.TotalSlots)
	assert.Equal(t, "korea", got.Region())

	keyed, ok := decoded.(shared.KeyedEvent)
	require.True(t, ok)
	assert.Equal(t, original.IdempotencyKey(), keyed.IdempotencyKey())
}

func TestEventSerializer_UnknownType(t *testing.T) {
	s := NewEventSerializer()
	_, err := s.Deserialize("Nope", []byte(`{}`))
	assert.Error(t, err)
	assert.False(t, s.IsRegistered("Nope"))
}

func TestRegisterAllEvents(t *testing.T) {
	s := NewEventSerializer()
	RegisterAllEvents(s)

	for _, typ := range []string{
		campaign.EventTypeCampaignSubmitted,
		campaign.EventTypeCampaignPaymentConfirmed,
		campaign.EventTypeCampaignActivated,
		campaign.EventTypeCampaignCompleted,
		campaign.EventTypeCampaignCancelled,
		campaign.EventTypeCampaignStatusOverridden,
		campaign.EventTypeCampaignTransferred,
		points.EventTypeChargeRequested,
		points.EventTypePointsCharged,
		points.EventTypePointsAdjusted,
	} {
		assert.True(t, s.IsRegistered(typ), typ)
	}
	assert.Len(t, s.RegisteredTypes(), 10)
}
