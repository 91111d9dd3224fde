package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/cnec/backend/internal/domain/campaign"
	"github.com/cnec/backend/internal/domain/company"
	"github.com/cnec/backend/internal/domain/shared"
	"github.com/cnec/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCampaignRepository implements campaign.Repository for one region store
type GormCampaignRepository struct {
	db     *gorm.DB
	region string
	outbox shared.OutboxEventSaver
}

// NewGormCampaignRepository creates a campaign repository. Pending domain
// events are written through outbox in the same transaction as the row.
func NewGormCampaignRepository(db *gorm.DB, region string, outbox shared.OutboxEventSaver) *GormCampaignRepository {
	return &GormCampaignRepository{db: db, region: region, outbox: outbox}
}

// FindByID finds a campaign by its ID
func (r *GormCampaignRepository) FindByID(ctx context.Context, id uuid.UUID) (*campaign.Campaign, error) {
	var model models.CampaignModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(r.region), nil
}

// FindByCompanyEmail lists campaigns owned by email, newest first
func (r *GormCampaignRepository) FindByCompanyEmail(ctx context.Context, email string) ([]*campaign.Campaign, error) {
	var rows []models.CampaignModel
	if err := r.db.WithContext(ctx).
		Where("company_email = ?", company.FoldEmail(email)).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.toDomain(rows), nil
}

// FindByRecruitmentDeadline lists non-cancelled campaigns in statuses whose
// recruitment deadline falls in [from, to)
func (r *GormCampaignRepository) FindByRecruitmentDeadline(ctx context.Context, statuses []campaign.Status, from, to time.Time) ([]*campaign.Campaign, error) {
	var rows []models.CampaignModel
	if err := r.db.WithContext(ctx).
		Where("status IN ?", campaign.StoredValues(statuses...)).
		Where("is_cancelled = ?", false).
		Where("recruitment_deadline >= ? AND recruitment_deadline < ?", from, to).
		Order("recruitment_deadline ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.toDomain(rows), nil
}

// Create inserts a new campaign together with its pending events
func (r *GormCampaignRepository) Create(ctx context.Context, c *campaign.Campaign) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(models.CampaignModelFromDomain(c)).Error; err != nil {
			return err
		}
		return r.saveEvents(ctx, tx, c)
	})
	if err != nil {
		return err
	}
	c.ClearDomainEvents()
	return nil
}

// Save writes c only if the stored version is the one c was loaded with, and
// appends c's pending events to the outbox in the same transaction.
func (r *GormCampaignRepository) Save(ctx context.Context, c *campaign.Campaign) error {
	model := models.CampaignModelFromDomain(c)
	expected := c.Version - 1

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(model).
			Where("version = ?", expected).
			Select("*").
			Omit("id", "created_at").
			Updates(model)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.CampaignModel{}).Where("id = ?", c.ID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return shared.ErrNotFound
			}
			return shared.ErrConcurrencyConflict
		}
		return r.saveEvents(ctx, tx, c)
	})
	if err != nil {
		return err
	}
	c.ClearDomainEvents()
	return nil
}

func (r *GormCampaignRepository) saveEvents(ctx context.Context, tx *gorm.DB, c *campaign.Campaign) error {
	events := c.GetDomainEvents()
	if len(events) == 0 || r.outbox == nil {
		return nil
	}
	return r.outbox.SaveEvents(ctx, tx, events...)
}

func (r *GormCampaignRepository) toDomain(rows []models.CampaignModel) []*campaign.Campaign {
	out := make([]*campaign.Campaign, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain(r.region)
	}
	return out
}

// GormParticipantRepository implements campaign.ParticipantRepository
type GormParticipantRepository struct {
	db *gorm.DB
}

// NewGormParticipantRepository creates a participant repository
func NewGormParticipantRepository(db *gorm.DB) *GormParticipantRepository {
	return &GormParticipantRepository{db: db}
}

// FindByCampaign lists the applications to a campaign in application order
func (r *GormParticipantRepository) FindByCampaign(ctx context.Context, campaignID uuid.UUID) ([]*campaign.Participant, error) {
	var rows []models.ParticipantModel
	if err := r.db.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*campaign.Participant, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// CountByCampaign counts every application to a campaign
func (r *GormParticipantRepository) CountByCampaign(ctx context.Context, campaignID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ParticipantModel{}).
		Where("campaign_id = ?", campaignID).
		Count(&count).Error
	return count, err
}

var (
	_ campaign.Repository            = (*GormCampaignRepository)(nil)
	_ campaign.ParticipantRepository = (*GormParticipantRepository)(nil)
)
