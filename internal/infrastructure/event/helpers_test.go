package event

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/cnec/backend/internal/domain/campaign"
	"github.com/cnec/backend/internal/domain/shared"
	"github.com/cnec/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.OutboxEntryModel{}))
	return db
}

func newActivatedEvent(t *testing.T) *campaign.CampaignActivatedEvent {
	t.Helper()
	companyID := uuid.New()
	c, err := campaign.NewCampaign("korea", &companyID, "brand@example.com", "Spring Glow", 10, 5000)
	require.NoError(t, err)
	c.Status = campaign.StatusPendingApproval
	require.NoError(t, c.Approve("ok"))
	return c.GetDomainEvents()[0].(*campaign.CampaignActivatedEvent)
}

type recordingHandler struct {
	mu     sync.Mutex
	types  []string
	events []shared.DomainEvent
	err    error
	panics bool
}

func (h *recordingHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if h.panics {
		panic("boom")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return h.err
}

func (h *recordingHandler) EventTypes() []string {
	return h.types
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}
