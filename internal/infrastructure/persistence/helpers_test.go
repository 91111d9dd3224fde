package persistence

import (
	"fmt"
	"testing"

	"github.com/cnec/backend/internal/infrastructure/config"
	"github.com/cnec/backend/internal/infrastructure/event"
	"github.com/cnec/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func sqliteConfig() *config.DatabaseConfig {
	return &config.DatabaseConfig{
		DSN:          fmt.Sprintf("sqlite:file:%s?mode=memory&cache=shared", uuid.NewString()),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}
}

// newStore opens an in-memory SQLite store with the given models migrated
func newStore(t *testing.T, name string, tables []any) *Database {
	t.Helper()
	db, err := NewDatabase(name, sqliteConfig(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.DB.AutoMigrate(tables...))
	return db
}

func newCentralStore(t *testing.T) *Database {
	return newStore(t, "central", models.CentralModels())
}

func newRegionStore(t *testing.T, name string) *Database {
	return newStore(t, name, models.RegionModels())
}

func newOutbox() *event.OutboxPublisher {
	s := event.NewEventSerializer()
	event.RegisterAllEvents(s)
	return event.NewOutboxPublisher(s)
}
