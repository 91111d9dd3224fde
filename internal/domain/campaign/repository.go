package campaign

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists campaigns within one region store
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Campaign, error)
	// FindByCompanyEmail lists campaigns whose owner pointer is email. The
	// address is folded with company.FoldEmail before matching.
	FindByCompanyEmail(ctx context.Context, email string) ([]*Campaign, error)
	// FindByRecruitmentDeadline lists campaigns in one of statuses whose
	// recruitment deadline falls in [from, to)
	FindByRecruitmentDeadline(ctx context.Context, statuses []Status, from, to time.Time) ([]*Campaign, error)
	// Create inserts a new campaign and its pending events
	Create(ctx context.Context, c *Campaign) error
	// Save writes a changed campaign guarded by its previous version and
	// appends its pending events to the outbox in the same transaction.
	// A stale version yields shared.ErrConcurrencyConflict.
	Save(ctx context.Context, c *Campaign) error
}

// ParticipantRepository reads participants within one region store
type ParticipantRepository interface {
	FindByCampaign(ctx context.Context, campaignID uuid.UUID) ([]*Participant, error)
	CountByCampaign(ctx context.Context, campaignID uuid.UUID) (int64, error)
}
