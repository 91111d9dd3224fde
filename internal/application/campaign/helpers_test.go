package campaign_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cnec/backend/internal/application/batch"
	appcampaign "github.com/cnec/backend/internal/application/campaign"
	appcompany "github.com/cnec/backend/internal/application/company"
	appnotification "github.com/cnec/backend/internal/application/notification"
	"github.com/cnec/backend/internal/domain/campaign"
	"github.com/cnec/backend/internal/domain/notification"
	"github.com/cnec/backend/internal/domain/region"
	"github.com/cnec/backend/internal/infrastructure/cache"
	"github.com/cnec/backend/internal/infrastructure/config"
	"github.com/cnec/backend/tests/testutil"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// fakeIM records template messages and fails for numbers in fail
type fakeIM struct {
	mu   sync.Mutex
	sent []notification.IMMessage
	fail map[string]bool
}

func (f *fakeIM) SendIM(_ context.Context, msg notification.IMMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[msg.To] {
		return errors.New("im provider unavailable")
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeIM) templates() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	codes := make([]string, len(f.sent))
	for i, m := range f.sent {
		codes[i] = m.TemplateCode
	}
	return codes
}

type fakeSMS struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeSMS) SendSMS(_ context.Context, to, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, to)
	return nil
}

type fakeEmail struct{}

func (fakeEmail) SendEmail(context.Context, string, string, string, string) error { return nil }

// failingStores makes Save fail for the listed campaigns
type failingStores struct {
	*testutil.Stores
	failSave map[uuid.UUID]bool
}

func (s *failingStores) Campaigns(key region.Key) (campaign.Repository, error) {
	repo, err := s.Registry.Campaigns(key)
	if err != nil {
		return nil, err
	}
	return &failingRepo{Repository: repo, fail: s.failSave}, nil
}

func (s *failingStores) Participants(key region.Key) (campaign.ParticipantRepository, error) {
	return s.Registry.Participants(key)
}

func (s *failingStores) Regions() []region.Key {
	return s.Registry.Regions()
}

type failingRepo struct {
	campaign.Repository
	fail map[uuid.UUID]bool
}

func (r *failingRepo) Save(ctx context.Context, c *campaign.Campaign) error {
	if r.fail[c.ID] {
		return errors.New("store write failed")
	}
	return r.Repository.Save(ctx, c)
}

type fixture struct {
	stores     *testutil.Stores
	failing    *failingStores
	im         *fakeIM
	sms        *fakeSMS
	dispatcher *appnotification.Dispatcher
	resolver   *appcompany.EntityResolver
	notifier   *appcampaign.Notifier
	svc        *appcampaign.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	stores := testutil.NewStores(t, region.Korea, region.Japan)
	failing := &failingStores{Stores: stores, failSave: map[uuid.UUID]bool{}}

	im := &fakeIM{fail: map[string]bool{}}
	sms := &fakeSMS{}
	idem := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = idem.Close() })
	dispatcher := appnotification.NewDispatcher(im, sms, fakeEmail{}, idem, zap.NewNop())

	resolver := appcompany.NewEntityResolver(stores.Registry, zap.NewNop())
	notifier := appcampaign.NewNotifier(resolver, dispatcher, time.UTC, zap.NewNop())
	executor := batch.NewExecutor[*campaign.Campaign](config.BatchConfig{Size: 2, Concurrency: 2})
	svc := appcampaign.NewService(failing, resolver, notifier, executor, zap.NewNop())

	return &fixture{
		stores:     stores,
		failing:    failing,
		im:         im,
		sms:        sms,
		dispatcher: dispatcher,
		resolver:   resolver,
		notifier:   notifier,
		svc:        svc,
	}
}
