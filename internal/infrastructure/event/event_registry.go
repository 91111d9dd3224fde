package event

import (
	"github.com/cnec/backend/internal/domain/campaign"
	"github.com/cnec/backend/internal/domain/points"
)

// RegisterAllEvents registers every domain event type with the serializer.
// The outbox processors cannot deserialize unregistered types.
func RegisterAllEvents(serializer *EventSerializer) {
	serializer.Register(campaign.EventTypeCampaignSubmitted, &campaign.CampaignSubmittedEvent{})
	serializer.Register(campaign.EventTypeCampaignPaymentConfirmed, &campaign.CampaignPaymentConfirmedEvent{})
	serializer.Register(campaign.EventTypeCampaignActivated, &campaign.CampaignActivatedEvent{})
	serializer.Register(campaign.EventTypeCampaignCompleted, &campaign.CampaignCompletedEvent{})
	serializer.Register(campaign.EventTypeCampaignCancelled, &campaign.CampaignCancelledEvent{})
	serializer.Register(campaign.EventTypeCampaignStatusOverridden, &campaign.CampaignStatusOverriddenEvent{})
	serializer.Register(campaign.EventTypeCampaignTransferred, &campaign.CampaignTransferredEvent{})

	serializer.Register(points.EventTypeChargeRequested, &points.ChargeRequestedEvent{})
	serializer.Register(points.EventTypePointsCharged, &points.PointsChargedEvent{})
	serializer.Register(points.EventTypePointsAdjusted, &points.PointsAdjustedEvent{})
}
