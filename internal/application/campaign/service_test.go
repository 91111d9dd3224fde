package campaign_test

import (
	"context"
	"testing"

	appcampaign "github.com/cnec/backend/internal/application/campaign"
	"github.com/cnec/backend/internal/domain/campaign"
	"github.com/cnec/backend/internal/domain/notification"
	"github.com/cnec/backend/internal/domain/region"
	"github.com/cnec/backend/internal/domain/shared"
	"github.com/cnec/backend/internal/infrastructure/event"
	"github.com/cnec/backend/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// drainOutbox delivers a region's outbox to the campaign notification handler
func (f *fixture) drainOutbox(t *testing.T, key region.Key) {
	t.Helper()
	bus := event.NewInMemoryEventBus(zap.NewNop())
	bus.Subscribe(appcampaign.NewNotificationHandler(f.notifier, zap.NewNop()))
	p := event.NewOutboxProcessor(key.String(), f.stores.OutboxRepository(t, key), bus,
		f.stores.Serializer, event.DefaultOutboxProcessorConfig(), zap.NewNop())
	p.ProcessOnce(context.Background())
}

func TestApprove_ActivatesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.stores.SeedCompany(t, region.Korea, "owner@brand.kr", "브랜드", "010-1111-2222")
	c := f.stores.SeedCampaign(t, region.Korea, testutil.CampaignSeed{Owner: owner, Status: campaign.StatusPendingApproval})

	res, err := f.svc.Approve(ctx, c.ID, "kr", "looks good")
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, campaign.StatusActive, res.Campaign.Status)
	assert.Equal(t, campaign.ApprovalApproved, res.Campaign.ApprovalStatus)
	assert.Equal(t, campaign.ProgressRecruiting, res.Campaign.ProgressStatus)
	assert.NotNil(t, res.Campaign.ApprovedAt)
	assert.Equal(t, 2, res.Campaign.Version)

	again, err := f.svc.Approve(ctx, c.ID, "korea", "")
	require.NoError(t, err)
	assert.False(t, again.Changed)
	assert.Equal(t, 2, again.Campaign.Version)
	assert.Equal(t, []string{campaign.EventTypeCampaignActivated}, f.stores.OutboxEventTypes(t, region.Korea))

	f.drainOutbox(t, region.Korea)
	f.drainOutbox(t, region.Korea)
	assert.Equal(t, []string{notification.TemplateCampaignActivated}, f.im.templates())
}

func TestTransitions_Rejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	completed := f.stores.SeedCampaign(t, region.Korea, testutil.CampaignSeed{OwnerEmail: "a@b.kr", Status: campaign.StatusCompleted})
	draft := f.stores.SeedCampaign(t, region.Korea, testutil.CampaignSeed{OwnerEmail: "a@b.kr"})

	_, err := f.svc.Approve(ctx, completed.ID, "korea", "")
	assert.ErrorIs(t, err, shared.ErrConflict)

	_, err = f.svc.Approve(ctx, draft.ID, "korea", "")
	assert.ErrorIs(t, err, shared.ErrConflict)

	_, err = f.svc.Complete(ctx, draft.ID, "korea", "")
	assert.ErrorIs(t, err, shared.ErrConflict)

	_, err = f.svc.Cancel(ctx, completed.ID, "korea", "late")
	assert.ErrorIs(t, err, shared.ErrConflict)

	assert.Empty(t, f.stores.OutboxEventTypes(t, region.Korea))
}

func TestService_RegionErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Approve(ctx, uuid.New(), "mars", "")
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.svc.Approve(ctx, uuid.New(), "central", "")
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.svc.Approve(ctx, uuid.New(), "us", "")
	assert.ErrorIs(t, err, shared.ErrConfiguration)

	_, err = f.svc.Approve(ctx, uuid.New(), "japan", "")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSubmit_OwnerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.stores.SeedCompany(t, region.Japan, "owner@brand.jp", "Brand JP", "")
	c := f.stores.SeedCampaign(t, region.Japan, testutil.CampaignSeed{Owner: owner})

	_, err := f.svc.Submit(ctx, c.ID, uuid.New(), "jp")
	assert.ErrorIs(t, err, shared.ErrForbidden)

	res, err := f.svc.Submit(ctx, c.ID, owner.ID, "jp")
	require.NoError(t, err)
	assert.Equal(t, campaign.StatusPendingPayment, res.Campaign.Status)
	assert.Equal(t, campaign.PaymentPending, res.Campaign.PaymentStatus)

	res, err = f.svc.Submit(ctx, c.ID, owner.ID, "jp")
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, []string{campaign.EventTypeCampaignSubmitted}, f.stores.OutboxEventTypes(t, region.Japan))
}

func TestLifecycle_SubmitToComplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.stores.SeedCompany(t, region.Korea, "owner@brand.kr", "브랜드", "01011112222")
	c := f.stores.SeedCampaign(t, region.Korea, testutil.CampaignSeed{Owner: owner})

	_, err := f.svc.Submit(ctx, c.ID, owner.ID, "korea")
	require.NoError(t, err)
	res, err := f.svc.ConfirmPayment(ctx, c.ID, "korea", "입금 확인")
	require.NoError(t, err)
	assert.Equal(t, campaign.StatusPendingApproval, res.Campaign.Status)
	assert.Equal(t, campaign.PaymentConfirmed, res.Campaign.PaymentStatus)
	again, err := f.svc.ConfirmPayment(ctx, c.ID, "korea", "")
	require.NoError(t, err)
	assert.False(t, again.Changed)
	assert.Equal(t, 3, again.Campaign.Version)
	_, err = f.svc.Approve(ctx, c.ID, "korea", "")
	require.NoError(t, err)
	res, err = f.svc.Complete(ctx, c.ID, "korea", "final content approved")
	require.NoError(t, err)
	assert.Equal(t, campaign.StatusCompleted, res.Campaign.Status)
	assert.Equal(t, 5, res.Campaign.Version)

	assert.Equal(t, []string{
		campaign.EventTypeCampaignSubmitted,
		campaign.EventTypeCampaignPaymentConfirmed,
		campaign.EventTypeCampaignActivated,
		campaign.EventTypeCampaignCompleted,
	}, f.stores.OutboxEventTypes(t, region.Korea))

	f.drainOutbox(t, region.Korea)
	assert.Equal(t, []string{
		notification.TemplateCampaignSubmitted,
		notification.TemplateCampaignSubmitted,
		notification.TemplateCampaignActivated,
	}, f.im.templates())
}

func TestCancelAndOverride(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.stores.SeedCampaign(t, region.Korea, testutil.CampaignSeed{OwnerEmail: "a@b.kr", Status: campaign.StatusActive})

	res, err := f.svc.Cancel(ctx, c.ID, "korea", "brand withdrew")
	require.NoError(t, err)
	assert.True(t, res.Campaign.IsCancelled)

	_, err = f.svc.Approve(ctx, c.ID, "korea", "")
	assert.ErrorIs(t, err, shared.ErrConflict, "cancelled is irreversible without override")

	_, err = f.svc.Override(ctx, c.ID, "korea", "active", "")
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.svc.Override(ctx, c.ID, "korea", "paused-forever", "note")
	assert.ErrorIs(t, err, shared.ErrValidation)

	res, err = f.svc.Override(ctx, c.ID, "korea", "approved", "restored after refund dispute")
	require.NoError(t, err)
	assert.Equal(t, campaign.StatusActive, res.Campaign.Status)
	assert.False(t, res.Campaign.IsCancelled)
	assert.Equal(t, "restored after refund dispute", res.Campaign.AdminNote)
}

func TestBulkApprove_PartialFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.stores.SeedCompany(t, region.Korea, "owner@brand.kr", "브랜드", "01011112222")
	a := f.stores.SeedCampaign(t, region.Korea, testutil.CampaignSeed{Owner: owner, Title: "A", Status: campaign.StatusActive})
	b := f.stores.SeedCampaign(t, region.Korea, testutil.CampaignSeed{Owner: owner, Title: "B", Status: campaign.StatusPendingApproval})
	c := f.stores.SeedCampaign(t, region.Korea, testutil.CampaignSeed{Owner: owner, Title: "C", Status: campaign.StatusPendingApproval})
	f.failing.failSave[c.ID] = true

	res, err := f.svc.BulkApprove(ctx, "korea", []string{a.ID.String(), b.ID.String(), c.ID.String()}, "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.SuccessCount)
	assert.Equal(t, 1, res.SkipCount)
	assert.Equal(t, 1, res.FailCount)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, c.ID.String(), res.Failures[0].ID)

	require.Len(t, f.im.sent, 1)
	assert.Equal(t, notification.TemplateCampaignActivated, f.im.sent[0].TemplateCode)
	assert.Contains(t, f.im.sent[0].Content, "B 캠페인")

	assert.Equal(t, campaign.StatusActive, f.stores.LoadCampaign(t, region.Korea, b.ID).Status)
	assert.Equal(t, campaign.StatusPendingApproval, f.stores.LoadCampaign(t, region.Korea, c.ID).Status)

	f.drainOutbox(t, region.Korea)
	assert.Len(t, f.im.templates(), 1, "the outbox delivery of B's activation is a duplicate")
}

func TestBulkApprove_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.BulkApprove(ctx, "korea", nil, "")
	assert.ErrorIs(t, err, shared.ErrValidation)

	res, err := f.svc.BulkApprove(ctx, "korea", []string{"not-a-uuid"}, "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.FailCount)
}

func TestSendActivationNotification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.stores.SeedCompany(t, region.Korea, "owner@brand.kr", "브랜드", "01011112222")
	active := f.stores.SeedCampaign(t, region.Korea, testutil.CampaignSeed{Owner: owner, Status: campaign.StatusActive})
	draft := f.stores.SeedCampaign(t, region.Korea, testutil.CampaignSeed{Owner: owner})

	first, err := f.svc.SendActivationNotification(ctx, active.ID, "korea", false)
	require.NoError(t, err)
	assert.True(t, first.Result.Delivered())

	second, err := f.svc.SendActivationNotification(ctx, active.ID, "korea", false)
	require.NoError(t, err)
	assert.True(t, second.Result.Duplicate)

	forced, err := f.svc.SendActivationNotification(ctx, active.ID, "korea", true)
	require.NoError(t, err)
	assert.True(t, forced.Result.Delivered())
	assert.Len(t, f.im.templates(), 2)

	_, err = f.svc.SendActivationNotification(ctx, draft.ID, "korea", false)
	assert.ErrorIs(t, err, shared.ErrConflict)
}

func TestSendActivationNotification_FallsBackToSMS(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.stores.SeedCompany(t, region.Korea, "owner@brand.kr", "브랜드", "01099998888")
	c := f.stores.SeedCampaign(t, region.Korea, testutil.CampaignSeed{Owner: owner, Status: campaign.StatusActive})
	f.im.fail["01099998888"] = true

	res, err := f.svc.SendActivationNotification(ctx, c.ID, "korea", false)
	require.NoError(t, err)
	assert.True(t, res.Result.IM.Failed())
	assert.True(t, res.Result.SMSFallback.Success)
	assert.Equal(t, []string{"01099998888"}, f.sms.sent)
}

func TestTransfer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.stores.SeedCampaign(t, region.Korea, testutil.CampaignSeed{OwnerEmail: "old@brand.kr"})
	target := f.stores.SeedCompanyWithBalance(t, "new@brand.kr", "New Brand", 0)

	res, err := f.svc.Transfer(ctx, c.ID, "korea", "NEW@brand.kr")
	require.NoError(t, err)
	assert.True(t, res.CompanyResolved)
	assert.Equal(t, "by_email_central", res.Strategy)
	assert.Equal(t, "new@brand.kr", res.Campaign.CompanyEmail)
	require.NotNil(t, res.Campaign.CompanyID)
	assert.Equal(t, target.ID, *res.Campaign.CompanyID)

	_, err = f.svc.Transfer(ctx, c.ID, "korea", "not an email")
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestListByOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stores.SeedCampaign(t, region.Korea, testutil.CampaignSeed{OwnerEmail: "Owner@Brand.kr", Title: "Spring"})
	c := f.stores.SeedCampaign(t, region.Korea, testutil.CampaignSeed{OwnerEmail: "owner@brand.kr", Title: "Summer"})
	f.stores.SeedCampaign(t, region.Korea, testutil.CampaignSeed{OwnerEmail: "other@brand.kr"})

	got, err := f.svc.ListByOwner(ctx, "kr", "ＯＷＮＥＲ@brand.kr")
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, r := range got {
		assert.Equal(t, "owner@brand.kr", r.CompanyEmail)
	}

	// transferred campaigns move to the new owner's list
	f.stores.SeedCompanyWithBalance(t, "new@brand.kr", "New Brand", 0)
	_, err = f.svc.Transfer(ctx, c.ID, "korea", "new@brand.kr")
	require.NoError(t, err)

	got, err = f.svc.ListByOwner(ctx, "korea", "owner@brand.kr")
	require.NoError(t, err)
	assert.Len(t, got, 1)
	got, err = f.svc.ListByOwner(ctx, "korea", "new@brand.kr")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, c.ID, got[0].ID)

	_, err = f.svc.ListByOwner(ctx, "korea", "  ")
	assert.ErrorIs(t, err, shared.ErrValidation)
	_, err = f.svc.ListByOwner(ctx, "central", "owner@brand.kr")
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestNotificationHandler_UnknownOwnerIsDropped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.stores.SeedCampaign(t, region.Korea, testutil.CampaignSeed{OwnerEmail: "ghost@nowhere.kr", Status: campaign.StatusPendingApproval})

	_, err := f.svc.Approve(ctx, c.ID, "korea", "")
	require.NoError(t, err)

	f.drainOutbox(t, region.Korea)
	assert.Empty(t, f.im.templates())

	pending, err := f.stores.OutboxRepository(t, region.Korea).FindPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "the entry is settled, not retried")
}
