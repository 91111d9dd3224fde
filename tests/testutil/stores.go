package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cnec/backend/internal/domain/campaign"
	"github.com/cnec/backend/internal/domain/company"
	"github.com/cnec/backend/internal/domain/region"
	"github.com/cnec/backend/internal/domain/shared"
	"github.com/cnec/backend/internal/infrastructure/config"
	"github.com/cnec/backend/internal/infrastructure/event"
	"github.com/cnec/backend/internal/infrastructure/persistence"
	"github.com/cnec/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Stores is a registry of in-memory SQLite stores
type Stores struct {
	Registry   *persistence.RegionStoreRegistry
	Serializer *event.EventSerializer
	Outbox     *event.OutboxPublisher
}

// NewSQLiteStore opens a private in-memory SQLite store with tables migrated
func NewSQLiteStore(t *testing.T, name string, tables []any) *persistence.Database {
	t.Helper()
	db, err := persistence.NewDatabase(name, &config.DatabaseConfig{
		DSN:          fmt.Sprintf("sqlite:file:%s?mode=memory&cache=shared", uuid.NewString()),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.DB.AutoMigrate(tables...))
	return db
}

// NewStores builds a registry with a central store and the given regions
func NewStores(t *testing.T, regions ...region.Key) *Stores {
	t.Helper()
	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)
	outbox := event.NewOutboxPublisher(serializer)

	central := NewSQLiteStore(t, region.Central.String(), models.CentralModels())
	regional := make(map[region.Key]*persistence.Database, len(regions))
	for _, key := range regions {
		regional[key] = NewSQLiteStore(t, key.String(), models.RegionModels())
	}
	return &Stores{
		Registry:   persistence.NewRegionStoreRegistry(central, regional, outbox),
		Serializer: serializer,
		Outbox:     outbox,
	}
}

// DB returns the GORM handle of a store
func (s *Stores) DB(t *testing.T, key region.Key) *gorm.DB {
	t.Helper()
	db, err := s.Registry.Store(key)
	require.NoError(t, err)
	return db.DB
}

// OutboxRepository returns the outbox repository of a store
func (s *Stores) OutboxRepository(t *testing.T, key region.Key) *event.GormOutboxRepository {
	t.Helper()
	return event.NewGormOutboxRepository(s.DB(t, key))
}

// OutboxEventTypes lists the event types written to a store's outbox, oldest first
func (s *Stores) OutboxEventTypes(t *testing.T, key region.Key) []string {
	t.Helper()
	var types []string
	require.NoError(t, s.DB(t, key).Model(&models.OutboxEntryModel{}).
		Order("created_at ASC, aggregate_version ASC").Pluck("event_type", &types).Error)
	return types
}

// SeedCompany stores a company in the given store
func (s *Stores) SeedCompany(t *testing.T, key region.Key, email, name, phone string) *company.Company {
	t.Helper()
	c, err := company.NewCompany(key.String(), email, name, phone)
	require.NoError(t, err)
	repo, err := s.Registry.Companies(key)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), c))
	return c
}

// SeedCompanyWithBalance stores a central company with an opening balance
func (s *Stores) SeedCompanyWithBalance(t *testing.T, email, name string, balance int64) *company.Company {
	t.Helper()
	c, err := company.NewCompany(region.Central.String(), email, name, "01000000000")
	require.NoError(t, err)
	c.PointsBalance = balance
	repo, err := s.Registry.Companies(region.Central)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), c))
	return c
}

// CampaignSeed describes a campaign to store
type CampaignSeed struct {
	Owner               *company.Company
	OwnerEmail          string
	Title               string
	Status              campaign.Status
	RecruitmentDeadline *time.Time
}

// SeedCampaign stores a campaign in a region store
func (s *Stores) SeedCampaign(t *testing.T, key region.Key, seed CampaignSeed) *campaign.Campaign {
	t.Helper()
	var companyID *uuid.UUID
	email := seed.OwnerEmail
	if seed.Owner != nil {
		id := seed.Owner.ID
		companyID = &id
		if email == "" {
			email = seed.Owner.Email
		}
	}
	title := seed.Title
	if title == "" {
		title = "Test campaign"
	}
	c, err := campaign.NewCampaign(key.String(), companyID, email, title, 10, 5000)
	require.NoError(t, err)
	if seed.Status != "" {
		c.Status = seed.Status
		c.IsCancelled = seed.Status == campaign.StatusCancelled
	}
	c.RecruitmentDeadline = seed.RecruitmentDeadline

	repo, err := s.Registry.Campaigns(key)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), c))
	return c
}

// LoadCampaign reads a campaign back from its store
func (s *Stores) LoadCampaign(t *testing.T, key region.Key, id uuid.UUID) *campaign.Campaign {
	t.Helper()
	repo, err := s.Registry.Campaigns(key)
	require.NoError(t, err)
	c, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	return c
}

// SeedParticipants stores n applications to a campaign
func (s *Stores) SeedParticipants(t *testing.T, key region.Key, campaignID uuid.UUID, n int) {
	t.Helper()
	for range n {
		p := &campaign.Participant{
			BaseEntity: shared.NewBaseEntity(),
			CampaignID: campaignID,
			CreatorID:  uuid.New(),
			Status:     campaign.ParticipantApplied,
		}
		m := &models.ParticipantModel{}
		m.FromDomain(p)
		require.NoError(t, s.DB(t, key).Create(m).Error)
	}
}
