package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/cnec/backend/internal/application/batch"
	appcampaign "github.com/cnec/backend/internal/application/campaign"
	appcompany "github.com/cnec/backend/internal/application/company"
	apppoints "github.com/cnec/backend/internal/application/points"
	"github.com/cnec/backend/internal/domain/shared"
	"github.com/cnec/backend/internal/infrastructure/auth"
	"github.com/cnec/backend/internal/infrastructure/config"
	"github.com/cnec/backend/internal/interfaces/http/handler"
	"github.com/cnec/backend/internal/interfaces/http/router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockCampaignService struct {
	mock.Mock
}

func (m *mockCampaignService) transition(args mock.Arguments) (*appcampaign.TransitionResult, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appcampaign.TransitionResult), args.Error(1)
}

func (m *mockCampaignService) Submit(ctx context.Context, campaignID, companyID uuid.UUID, regionName string) (*appcampaign.TransitionResult, error) {
	return m.transition(m.Called(ctx, campaignID, companyID, regionName))
}

func (m *mockCampaignService) ConfirmPayment(ctx context.Context, campaignID uuid.UUID, regionName, adminNote string) (*appcampaign.TransitionResult, error) {
	return m.transition(m.Called(ctx, campaignID, regionName, adminNote))
}

func (m *mockCampaignService) Approve(ctx context.Context, campaignID uuid.UUID, regionName, adminNote string) (*appcampaign.TransitionResult, error) {
	return m.transition(m.Called(ctx, campaignID, regionName, adminNote))
}

func (m *mockCampaignService) Complete(ctx context.Context, campaignID uuid.UUID, regionName, adminNote string) (*appcampaign.TransitionResult, error) {
	return m.transition(m.Called(ctx, campaignID, regionName, adminNote))
}

func (m *mockCampaignService) Cancel(ctx context.Context, campaignID uuid.UUID, regionName, reason string) (*appcampaign.TransitionResult, error) {
	return m.transition(m.Called(ctx, campaignID, regionName, reason))
}

func (m *mockCampaignService) Override(ctx context.Context, campaignID uuid.UUID, regionName, status, note string) (*appcampaign.TransitionResult, error) {
	return m.transition(m.Called(ctx, campaignID, regionName, status, note))
}

func (m *mockCampaignService) Transfer(ctx context.Context, campaignID uuid.UUID, regionName, newEmail string) (*appcampaign.TransferResult, error) {
	args := m.Called(ctx, campaignID, regionName, newEmail)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appcampaign.TransferResult), args.Error(1)
}

func (m *mockCampaignService) SendActivationNotification(ctx context.Context, campaignID uuid.UUID, regionName string, force bool) (*appcampaign.NotificationResult, error) {
	args := m.Called(ctx, campaignID, regionName, force)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appcampaign.NotificationResult), args.Error(1)
}

func (m *mockCampaignService) BulkApprove(ctx context.Context, regionName string, ids []string, adminNote string) (batch.Result, error) {
	args := m.Called(ctx, regionName, ids, adminNote)
	return args.Get(0).(batch.Result), args.Error(1)
}

func (m *mockCampaignService) ListByOwner(ctx context.Context, regionName, email string) ([]appcampaign.CampaignResponse, error) {
	args := m.Called(ctx, regionName, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]appcampaign.CampaignResponse), args.Error(1)
}

type mockApprover struct {
	mock.Mock
}

func (m *mockApprover) SetApproval(ctx context.Context, companyID uuid.UUID, approve bool) (*appcompany.ApprovalResult, error) {
	args := m.Called(ctx, companyID, approve)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appcompany.ApprovalResult), args.Error(1)
}

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) Charge(ctx context.Context, in apppoints.ChargeInput) (*apppoints.ChargeRequestResponse, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apppoints.ChargeRequestResponse), args.Error(1)
}

func (m *mockLedger) Confirm(ctx context.Context, chargeRequestID uuid.UUID, adminNote string) (*apppoints.ConfirmResult, error) {
	args := m.Called(ctx, chargeRequestID, adminNote)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apppoints.ConfirmResult), args.Error(1)
}

func (m *mockLedger) Cancel(ctx context.Context, chargeRequestID, companyID uuid.UUID) (*apppoints.ChargeRequestResponse, error) {
	args := m.Called(ctx, chargeRequestID, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apppoints.ChargeRequestResponse), args.Error(1)
}

func (m *mockLedger) AdminAdjust(ctx context.Context, companyID uuid.UUID, delta int64, reason string) (*apppoints.AdjustResult, error) {
	args := m.Called(ctx, companyID, delta, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apppoints.AdjustResult), args.Error(1)
}

func (m *mockLedger) Balance(ctx context.Context, companyID uuid.UUID, filter shared.Filter) (*apppoints.BalanceView, error) {
	args := m.Called(ctx, companyID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apppoints.BalanceView), args.Error(1)
}

func (m *mockLedger) ChargeRequests(ctx context.Context, companyID uuid.UUID, filter shared.Filter) (shared.Paginated[apppoints.ChargeRequestResponse], error) {
	args := m.Called(ctx, companyID, filter)
	return args.Get(0).(shared.Paginated[apppoints.ChargeRequestResponse]), args.Error(1)
}

type stubPinger map[string]error

func (p stubPinger) Ping(context.Context) map[string]error {
	return p
}

type apiEnv struct {
	engine    http.Handler
	campaigns *mockCampaignService
	ledger    *mockLedger
	approver  *mockApprover
	jwt       *auth.JWTService
	companyID uuid.UUID
}

func newAPI(t *testing.T) *apiEnv {
	t.Helper()
	env := &apiEnv{
		campaigns: &mockCampaignService{},
		ledger:    &mockLedger{},
		approver:  &mockApprover{},
		jwt:       auth.NewJWTService(config.JWTConfig{Secret: "handler-test", Issuer: "cnec-test", TokenTTL: time.Hour}),
		companyID: uuid.New(),
	}
	env.engine = router.NewEngine(router.Config{
		ServiceName: "cnec-test",
		Tokens:      env.jwt,
		Logger:      zap.NewNop(),
	}, router.Handlers{
		Campaign: handler.NewCampaignHandler(env.campaigns),
		Points:   handler.NewPointsHandler(env.ledger),
		Company:  handler.NewCompanyHandler(env.approver),
		Health:   handler.NewHealthHandler(stubPinger{}, "cnec-test"),
	})
	t.Cleanup(func() {
		env.campaigns.AssertExpectations(t)
		env.ledger.AssertExpectations(t)
		env.approver.AssertExpectations(t)
	})
	return env
}

func (e *apiEnv) bearer(t *testing.T, in auth.IssueInput) map[string]string {
	t.Helper()
	token, _, err := e.jwt.Issue(in)
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + token}
}

func (e *apiEnv) admin(t *testing.T) map[string]string {
	return e.bearer(t, auth.IssueInput{Subject: "admin-1", Email: "ops@cnec.co.kr", Role: auth.RoleAdmin})
}

func (e *apiEnv) company(t *testing.T) map[string]string {
	id := e.companyID
	return e.bearer(t, auth.IssueInput{Subject: "user-1", Email: "owner@brand.co.kr", Role: auth.RoleCompany, CompanyID: &id})
}
