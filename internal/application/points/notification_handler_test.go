package points_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	apppoints "github.com/cnec/backend/internal/application/points"
	"github.com/cnec/backend/internal/domain/company"
	"github.com/cnec/backend/internal/domain/notification"
	"github.com/cnec/backend/internal/domain/points"
	"github.com/cnec/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubFinder struct {
	company *company.Company
	err     error
}

func (f stubFinder) FindByID(_ context.Context, _ uuid.UUID) (*company.Company, error) {
	return f.company, f.err
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []notification.Event
}

func (d *recordingDispatcher) Dispatch(_ context.Context, e notification.Event) notification.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, e)
	return notification.Result{Key: e.IdempotencyKey, IM: notification.ChannelOutcome{Channel: notification.ChannelIM, Attempted: true, Success: true}}
}

func newChargeRequest(t *testing.T, companyID uuid.UUID) *points.ChargeRequest {
	t.Helper()
	req, err := points.NewChargeRequest(companyID, 50000, points.PaymentMethodCard, "", nil, points.DefaultMinChargeAmount)
	require.NoError(t, err)
	return req
}

func TestNotificationHandler_ChargeRequested(t *testing.T) {
	c, err := company.NewCompany("central", "owner@brand.co.kr", "브랜드", "010-1234-5678")
	require.NoError(t, err)
	d := &recordingDispatcher{}
	h := apppoints.NewNotificationHandler(stubFinder{company: c}, d, zap.NewNop())

	req := newChargeRequest(t, c.ID)
	ev := points.NewChargeRequestedEvent(req)
	require.NoError(t, h.Handle(context.Background(), ev))

	require.Len(t, d.events, 1)
	got := d.events[0]
	assert.Equal(t, notification.TemplateChargeRequested, got.TemplateCode)
	assert.Equal(t, "01012345678", got.ReceiverContact)
	assert.Equal(t, "50,000", got.Variables[notification.VarAmount])
	assert.Equal(t, "브랜드", got.Variables[notification.VarCompanyName])
	assert.Equal(t, ev.IdempotencyKey(), got.IdempotencyKey)
	assert.Contains(t, got.SMSText, "50,000원")
}

func TestNotificationHandler_PointsCharged(t *testing.T) {
	c, err := company.NewCompany("central", "owner@brand.co.kr", "브랜드", "01012345678")
	require.NoError(t, err)
	d := &recordingDispatcher{}
	h := apppoints.NewNotificationHandler(stubFinder{company: c}, d, zap.NewNop())

	req := newChargeRequest(t, c.ID)
	require.NoError(t, req.Complete(""))
	require.NoError(t, h.Handle(context.Background(), points.NewPointsChargedEvent(req)))

	require.Len(t, d.events, 1)
	assert.Equal(t, notification.TemplatePointsCharged, d.events[0].TemplateCode)
	assert.Equal(t, "50,000", d.events[0].Variables[notification.VarPoints])
	assert.Equal(t, shared.IdempotencyKey(req.ID.String(), points.EventTypePointsCharged, 2), d.events[0].IdempotencyKey)
}

func TestNotificationHandler_MissingCompanyIsDropped(t *testing.T) {
	d := &recordingDispatcher{}
	h := apppoints.NewNotificationHandler(stubFinder{err: shared.ErrNotFound}, d, zap.NewNop())

	err := h.Handle(context.Background(), points.NewChargeRequestedEvent(newChargeRequest(t, uuid.New())))
	assert.NoError(t, err)
	assert.Empty(t, d.events)
}

func TestNotificationHandler_StoreErrorIsRetried(t *testing.T) {
	d := &recordingDispatcher{}
	h := apppoints.NewNotificationHandler(stubFinder{err: errors.New("connection reset")}, d, zap.NewNop())

	err := h.Handle(context.Background(), points.NewChargeRequestedEvent(newChargeRequest(t, uuid.New())))
	assert.Error(t, err)
	assert.Empty(t, d.events)
}

func TestNotificationHandler_EventTypes(t *testing.T) {
	h := apppoints.NewNotificationHandler(stubFinder{}, &recordingDispatcher{}, zap.NewNop())
	assert.ElementsMatch(t, []string{points.EventTypeChargeRequested, points.EventTypePointsCharged}, h.EventTypes())
}
