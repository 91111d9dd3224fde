package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cnec/backend/internal/domain/notification"
	"github.com/cnec/backend/internal/domain/shared"
	"github.com/cnec/backend/internal/infrastructure/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type mockIM struct{ mock.Mock }

func (m *mockIM) SendIM(ctx context.Context, msg notification.IMMessage) error {
	return m.Called(ctx, msg).Error(0)
}

type mockSMS struct{ mock.Mock }

func (m *mockSMS) SendSMS(ctx context.Context, to, text string) error {
	return m.Called(ctx, to, text).Error(0)
}

type mockEmail struct{ mock.Mock }

func (m *mockEmail) SendEmail(ctx context.Context, to, name, subject, html string) error {
	return m.Called(ctx, to, name, subject, html).Error(0)
}

// failingStore fails every call
type failingStore struct{}

func (failingStore) MarkProcessed(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("redis: connection refused")
}
func (failingStore) IsProcessed(context.Context, string) (bool, error) { return false, nil }
func (failingStore) Release(context.Context, string) error             { return nil }
func (failingStore) Close() error                                      { return nil }

type fixture struct {
	im    *mockIM
	sms   *mockSMS
	email *mockEmail
	store *cache.InMemoryIdempotencyStore
	d     *Dispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		im:    new(mockIM),
		sms:   new(mockSMS),
		email: new(mockEmail),
		store: cache.NewInMemoryIdempotencyStore(),
	}
	t.Cleanup(func() { _ = f.store.Close() })
	f.d = NewDispatcher(f.im, f.sms, f.email, f.store, zap.NewNop())
	return f
}

func activationEvent(key string) notification.Event {
	return notification.NewTemplateEvent(
		notification.TemplateCampaignActivated,
		"01012345678", "owner@brand.co.kr", "Brand Co",
		map[string]string{
			notification.VarCompanyName:  "Brand Co",
			notification.VarCampaignName: "Spring Launch",
			notification.VarStartDate:    "2025-03-01",
			notification.VarDeadline:     "2025-03-15",
			notification.VarSlots:        "20",
		},
		key,
	)
}

var anyCtx = mock.Anything

func TestDispatch_IMSuccessSkipsSMS(t *testing.T) {
	f := newFixture(t)
	f.im.On("SendIM", anyCtx, mock.MatchedBy(func(m notification.IMMessage) bool {
		return m.To == "01012345678" && m.TemplateCode == notification.TemplateCampaignActivated
	})).Return(nil)
	f.email.On("SendEmail", anyCtx, "owner@brand.co.kr", "Brand Co", mock.Anything, mock.Anything).Return(nil)

	res := f.d.Dispatch(context.Background(), activationEvent("c1:CampaignActivated:3"))

	assert.False(t, res.Duplicate)
	assert.True(t, res.IM.Success)
	assert.False(t, res.SMSFallback.Attempted)
	assert.True(t, res.Email.Success)
	f.sms.AssertNotCalled(t, "SendSMS", mock.Anything, mock.Anything, mock.Anything)
	f.im.AssertExpectations(t)
	f.email.AssertExpectations(t)
}

func TestDispatch_IMFailureFallsBackToSMSOnce(t *testing.T) {
	f := newFixture(t)
	e := activationEvent("c1:CampaignActivated:3")
	imErr := shared.NewExternalServiceError("im", errors.New("template not approved"))
	f.im.On("SendIM", anyCtx, mock.Anything).Return(imErr)
	f.sms.On("SendSMS", anyCtx, "01012345678", e.SMSText).Return(errors.New("sms gateway down")).Once()
	f.email.On("SendEmail", anyCtx, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	res := f.d.Dispatch(context.Background(), e)

	assert.True(t, res.IM.Failed())
	assert.Contains(t, res.IM.Reason, "template not approved")
	assert.True(t, res.SMSFallback.Failed())
	assert.Equal(t, notification.ChannelSMS, res.SMSFallback.Channel)
	assert.True(t, res.Email.Success, "email is independent of the IM path")
	f.sms.AssertNumberOfCalls(t, "SendSMS", 1)
}

func TestDispatch_EmailFailureDoesNotAffectIM(t *testing.T) {
	f := newFixture(t)
	f.im.On("SendIM", anyCtx, mock.Anything).Return(nil)
	f.email.On("SendEmail", anyCtx, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("smtp relay rejected"))

	res := f.d.Dispatch(context.Background(), activationEvent("c1:CampaignActivated:4"))

	assert.True(t, res.IM.Success)
	assert.True(t, res.Email.Failed())
	assert.True(t, res.Delivered())
}

func TestDispatch_DuplicateKeyIsSkipped(t *testing.T) {
	f := newFixture(t)
	f.im.On("SendIM", anyCtx, mock.Anything).Return(nil).Once()
	f.email.On("SendEmail", anyCtx, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	first := f.d.Dispatch(context.Background(), activationEvent("c1:CampaignActivated:3"))
	second := f.d.Dispatch(context.Background(), activationEvent("c1:CampaignActivated:3"))

	assert.True(t, first.Delivered())
	assert.True(t, second.Duplicate)
	assert.False(t, second.Attempted())
	f.im.AssertNumberOfCalls(t, "SendIM", 1)
}

func TestDispatch_ConcurrentSameKeySendsOnce(t *testing.T) {
	f := newFixture(t)
	f.im.On("SendIM", anyCtx, mock.Anything).Return(nil)
	f.email.On("SendEmail", anyCtx, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	var wg sync.WaitGroup
	results := make([]notification.Result, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = f.d.Dispatch(context.Background(), activationEvent("c2:CampaignActivated:2"))
		}()
	}
	wg.Wait()

	delivered := 0
	for _, r := range results {
		if !r.Duplicate {
			delivered++
		}
	}
	assert.Equal(t, 1, delivered)
	f.im.AssertNumberOfCalls(t, "SendIM", 1)
}

func TestDispatch_AllChannelsFailedReleasesKey(t *testing.T) {
	f := newFixture(t)
	f.im.On("SendIM", anyCtx, mock.Anything).Return(errors.New("down"))
	f.sms.On("SendSMS", anyCtx, mock.Anything, mock.Anything).Return(errors.New("down"))
	f.email.On("SendEmail", anyCtx, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("down"))

	key := "c3:CampaignActivated:2"
	res := f.d.Dispatch(context.Background(), activationEvent(key))
	assert.False(t, res.Delivered())

	processed, err := f.store.IsProcessed(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, processed, "a redelivered event must be able to retry")

	retry := f.d.Dispatch(context.Background(), activationEvent(key))
	assert.False(t, retry.Duplicate)
}

func TestDispatch_PartialSuccessKeepsKey(t *testing.T) {
	f := newFixture(t)
	f.im.On("SendIM", anyCtx, mock.Anything).Return(errors.New("down"))
	f.sms.On("SendSMS", anyCtx, mock.Anything, mock.Anything).Return(nil)
	f.email.On("SendEmail", anyCtx, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("down"))

	key := "c4:CampaignActivated:2"
	res := f.d.Dispatch(context.Background(), activationEvent(key))
	assert.True(t, res.SMSFallback.Success)

	processed, err := f.store.IsProcessed(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestDispatch_NoPhoneOnlyEmail(t *testing.T) {
	f := newFixture(t)
	f.email.On("SendEmail", anyCtx, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	e := activationEvent("")
	e.ReceiverContact = ""
	res := f.d.Dispatch(context.Background(), e)

	assert.False(t, res.IM.Attempted)
	assert.False(t, res.SMSFallback.Attempted)
	assert.True(t, res.Email.Success)
	f.im.AssertNotCalled(t, "SendIM", mock.Anything, mock.Anything)
}

func TestDispatch_NothingToSend(t *testing.T) {
	f := newFixture(t)
	res := f.d.Dispatch(context.Background(), notification.Event{IdempotencyKey: "k"})
	assert.False(t, res.Attempted())
	assert.False(t, res.Duplicate)
}

func TestDispatch_EmptyKeyIsNotDeduplicated(t *testing.T) {
	f := newFixture(t)
	f.im.On("SendIM", anyCtx, mock.Anything).Return(nil)
	f.email.On("SendEmail", anyCtx, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	f.d.Dispatch(context.Background(), activationEvent(""))
	f.d.Dispatch(context.Background(), activationEvent(""))
	f.im.AssertNumberOfCalls(t, "SendIM", 2)
	assert.Zero(t, f.store.Size())
}

func TestDispatch_StoreErrorStillSends(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	im, sms, email := new(mockIM), new(mockSMS), new(mockEmail)
	im.On("SendIM", anyCtx, mock.Anything).Return(nil)
	email.On("SendEmail", anyCtx, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	d := NewDispatcher(im, sms, email, failingStore{}, zap.New(core))
	res := d.Dispatch(context.Background(), activationEvent("c5:CampaignActivated:2"))

	assert.True(t, res.IM.Success)
	assert.Equal(t, 1, logs.FilterMessage("idempotency store unavailable, dispatching anyway").Len())
}

func TestSMSText_FallsBackToTemplate(t *testing.T) {
	e := notification.Event{
		TemplateCode: notification.TemplatePointsCharged,
		Variables:    map[string]string{notification.VarCompanyName: "Brand Co", notification.VarPoints: "50000"},
	}
	assert.Contains(t, smsText(e), "충전 포인트: 50000P")

	e.SMSText = "custom"
	assert.Equal(t, "custom", smsText(e))

	assert.Empty(t, smsText(notification.Event{TemplateCode: "unknown"}))
}
