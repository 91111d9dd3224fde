package campaign_test

import (
	"context"
	"testing"
	"time"

	appcampaign "github.com/cnec/backend/internal/application/campaign"
	"github.com/cnec/backend/internal/domain/campaign"
	"github.com/cnec/backend/internal/domain/notification"
	"github.com/cnec/backend/internal/domain/region"
	"github.com/cnec/backend/internal/infrastructure/config"
	"github.com/cnec/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func at(day time.Time, hour int) *time.Time {
	t := day.Add(time.Duration(hour) * time.Hour)
	return &t
}

func TestDeadlineReminderJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	withPhone := f.stores.SeedCompany(t, region.Korea, "owner@brand.kr", "브랜드", "01011112222")
	noPhone := f.stores.SeedCompany(t, region.Korea, "quiet@brand.kr", "Quiet", "")
	f.stores.SeedCompanyWithBalance(t, "global@brand.com", "Global", 0)

	closing := f.stores.SeedCampaign(t, region.Korea, testutil.CampaignSeed{
		Owner: withPhone, Title: "Spring", Status: campaign.StatusActive, RecruitmentDeadline: at(day, 15),
	})
	f.stores.SeedParticipants(t, region.Korea, closing.ID, 3)
	f.stores.SeedCampaign(t, region.Korea, testutil.CampaignSeed{
		Owner: noPhone, Status: campaign.StatusActive, RecruitmentDeadline: at(day, 9),
	})
	f.stores.SeedCampaign(t, region.Korea, testutil.CampaignSeed{
		Owner: withPhone, Status: campaign.StatusActive, RecruitmentDeadline: at(day, 30),
	})
	f.stores.SeedCampaign(t, region.Korea, testutil.CampaignSeed{
		Owner: withPhone, Status: campaign.StatusCancelled, RecruitmentDeadline: at(day, 12),
	})
	f.stores.SeedCampaign(t, region.Japan, testutil.CampaignSeed{
		OwnerEmail: "global@brand.com", Title: "Tokyo", Status: campaign.StatusActive, RecruitmentDeadline: at(day, 1),
	})

	job := appcampaign.NewDeadlineReminderJob(f.stores.Registry, f.notifier,
		config.BatchConfig{Size: 1, InterBatchDelay: time.Millisecond}, time.UTC, nil, zap.NewNop())
	assert.Equal(t, appcampaign.DeadlineReminderJobName, job.Name())

	require.NoError(t, job.Run(ctx, day.Add(10*time.Hour)))

	require.Len(t, f.im.sent, 2)
	byTo := map[string]notification.IMMessage{}
	for _, m := range f.im.sent {
		assert.Equal(t, notification.TemplateRecruitmentClosed, m.TemplateCode)
		byTo[m.To] = m
	}
	assert.Equal(t, "3", byTo["01011112222"].Variables[notification.VarApplicantCount])
	assert.Equal(t, "Spring", byTo["01011112222"].Variables[notification.VarCampaignName])
	assert.Equal(t, "0", byTo["01000000000"].Variables[notification.VarApplicantCount])

	require.NoError(t, job.Run(ctx, day.Add(11*time.Hour)))
	assert.Len(t, f.im.sent, 2, "a second run on the same day sends nothing")
}

func TestDeadlineReminderJob_UsesLocalDay(t *testing.T) {
	f := newFixture(t)
	seoul := time.FixedZone("KST", 9*60*60)
	owner := f.stores.SeedCompany(t, region.Korea, "owner@brand.kr", "브랜드", "01011112222")

	// 2025-03-10 23:30 UTC is 2025-03-11 08:30 in Seoul
	deadline := time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC).In(seoul)
	f.stores.SeedCampaign(t, region.Korea, testutil.CampaignSeed{
		Owner: owner, Status: campaign.StatusActive, RecruitmentDeadline: &deadline,
	})

	job := appcampaign.NewDeadlineReminderJob(f.stores.Registry, f.notifier, config.BatchConfig{}, seoul, nil, zap.NewNop())

	require.NoError(t, job.Run(context.Background(), time.Date(2025, 3, 10, 10, 0, 0, 0, seoul)))
	assert.Empty(t, f.im.sent)

	require.NoError(t, job.Run(context.Background(), time.Date(2025, 3, 11, 10, 0, 0, 0, seoul)))
	assert.Len(t, f.im.sent, 1)
}
