package persistence

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cnec/backend/internal/domain/campaign"
	"github.com/cnec/backend/internal/domain/shared"
	"github.com/cnec/backend/internal/infrastructure/event"
	"github.com/cnec/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newDraft(t *testing.T, email string) *campaign.Campaign {
	t.Helper()
	companyID := uuid.New()
	c, err := campaign.NewCampaign("korea", &companyID, email, "Glow Serum Review", 20, 3000)
	require.NoError(t, err)
	return c
}

func TestCampaignRepository_SaveWritesOutboxInSameTransaction(t *testing.T) {
	store := newRegionStore(t, "korea")
	repo := NewGormCampaignRepository(store.DB, "korea", newOutbox())
	ctx := context.Background()

	c := newDraft(t, "brand@example.com")
	require.NoError(t, repo.Create(ctx, c))

	loaded, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "korea", loaded.Region)
	require.NoError(t, loaded.Submit())
	require.NoError(t, repo.Save(ctx, loaded))
	assert.Empty(t, loaded.GetDomainEvents())

	stored, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, campaign.StatusPendingPayment, stored.Status)
	assert.Equal(t, 2, stored.Version)

	pending, err := event.NewGormOutboxRepository(store.DB).FindPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, campaign.EventTypeCampaignSubmitted, pending[0].EventType)
	assert.Equal(t, c.ID, pending[0].AggregateID)
}

func TestCampaignRepository_StaleVersionConflicts(t *testing.T) {
	store := newRegionStore(t, "korea")
	repo := NewGormCampaignRepository(store.DB, "korea", newOutbox())
	ctx := context.Background()

	c := newDraft(t, "brand@example.com")
	require.NoError(t, repo.Create(ctx, c))

	first, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)

	require.NoError(t, first.Submit())
	require.NoError(t, repo.Save(ctx, first))

	require.NoError(t, second.Cancel("duplicate"))
	err = repo.Save(ctx, second)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

	pending, err := event.NewGormOutboxRepository(store.DB).FindPending(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1, "the losing write leaves no event behind")
}

func TestCampaignRepository_SaveMissingIsNotFound(t *testing.T) {
	store := newRegionStore(t, "korea")
	repo := NewGormCampaignRepository(store.DB, "korea", nil)

	c := newDraft(t, "brand@example.com")
	require.NoError(t, c.Submit())
	assert.ErrorIs(t, repo.Save(context.Background(), c), shared.ErrNotFound)

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCampaignRepository_FindByCompanyEmail(t *testing.T) {
	store := newRegionStore(t, "korea")
	repo := NewGormCampaignRepository(store.DB, "korea", nil)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newDraft(t, "a@example.com")))
	require.NoError(t, repo.Create(ctx, newDraft(t, "A@Example.com")))
	require.NoError(t, repo.Create(ctx, newDraft(t, "b@example.com")))

	found, err := repo.FindByCompanyEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Len(t, found, 2)
	for _, c := range found {
		assert.Equal(t, "a@example.com", c.CompanyEmail)
	}

	found, err = repo.FindByCompanyEmail(ctx, " A@EXAMPLE.COM")
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

func TestCampaignRepository_FindByRecruitmentDeadline(t *testing.T) {
	store := newRegionStore(t, "korea")
	repo := NewGormCampaignRepository(store.DB, "korea", nil)
	ctx := context.Background()

	from := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	inWindow := from.Add(10 * time.Hour)
	outside := to.Add(time.Hour)

	insert := func(status campaign.Status, deadline time.Time, cancelled bool) uuid.UUID {
		c := newDraft(t, "brand@example.com")
		c.Status = status
		c.IsCancelled = cancelled
		c.RecruitmentDeadline = &deadline
		require.NoError(t, repo.Create(ctx, c))
		return c.ID
	}
	active := insert(campaign.StatusActive, inWindow, false)
	legacy := insert(campaign.Status("approved"), inWindow, false)
	insert(campaign.StatusActive, outside, false)
	insert(campaign.StatusActive, inWindow, true)
	insert(campaign.StatusDraft, inWindow, false)

	found, err := repo.FindByRecruitmentDeadline(ctx, []campaign.Status{campaign.StatusActive}, from, to)
	require.NoError(t, err)

	ids := make([]uuid.UUID, len(found))
	for i, c := range found {
		ids[i] = c.ID
		assert.Equal(t, campaign.StatusActive, c.Status)
	}
	assert.ElementsMatch(t, []uuid.UUID{active, legacy}, ids)
}

func TestCampaignRepository_SaveConflict_Postgres(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{DisableAutomaticPing: true})
	require.NoError(t, err)
	repo := NewGormCampaignRepository(db, "japan", nil)

	c := newDraft(t, "brand@example.com")
	c.Version = 4

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "campaigns" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "campaigns" WHERE id = $1`)).
		WithArgs(c.ID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	err = repo.Save(context.Background(), c)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestParticipantRepository(t *testing.T) {
	store := newRegionStore(t, "korea")
	repo := NewGormParticipantRepository(store.DB)
	ctx := context.Background()
	campaignID := uuid.New()

	for i := 0; i < 3; i++ {
		p := &campaign.Participant{
			BaseEntity: shared.NewBaseEntity(),
			CampaignID: campaignID,
			CreatorID:  uuid.New(),
			Status:     campaign.ParticipantApplied,
		}
		var m models.ParticipantModel
		m.FromDomain(p)
		require.NoError(t, store.DB.Create(&m).Error)
	}

	n, err := repo.CountByCampaign(ctx, campaignID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	list, err := repo.FindByCampaign(ctx, campaignID)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	n, err = repo.CountByCampaign(ctx, uuid.New())
	require.NoError(t, err)
	assert.Zero(t, n)
}
