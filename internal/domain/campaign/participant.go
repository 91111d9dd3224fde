package campaign

import (
	"github.com/cnec/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ParticipantStatus is the status of a creator's application to a campaign
type ParticipantStatus string

const (
	ParticipantApplied   ParticipantStatus = "applied"
	ParticipantSelected  ParticipantStatus = "selected"
	ParticipantFilming   ParticipantStatus = "filming"
	ParticipantSubmitted ParticipantStatus = "submitted"
	ParticipantCompleted ParticipantStatus = "completed"
	ParticipantRejected  ParticipantStatus = "rejected"
)

// CanTransitionTo checks if the participant status can move to target
func (s ParticipantStatus) CanTransitionTo(target ParticipantStatus) bool {
	if target == ParticipantRejected {
		return s != ParticipantCompleted && s != ParticipantRejected
	}
	switch s {
	case ParticipantApplied:
		return target == ParticipantSelected
	case ParticipantSelected:
		return target == ParticipantFilming
	case ParticipantFilming:
		return target == ParticipantSubmitted
	case ParticipantSubmitted:
		return target == ParticipantCompleted
	}
	return false
}

// Participant is a creator's application to a campaign. It lives in the
// campaign's region store and this service only reads it.
type Participant struct {
	shared.BaseEntity
	CampaignID     uuid.UUID
	CreatorID      uuid.UUID
	Status         ParticipantStatus
	GuideConfirmed bool
}
