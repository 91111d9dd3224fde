package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/cnec/backend/internal/domain/region"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

// Schema names the migration set a store uses. The central store and the
// regional stores have different tables.
type Schema string

const (
	SchemaCentral Schema = "central"
	SchemaRegion  Schema = "region"
)

// SchemaFor returns the migration set of a store
func SchemaFor(key region.Key) Schema {
	if key.IsCentral() {
		return SchemaCentral
	}
	return SchemaRegion
}

// SourceDir returns the directory holding the migrations of a schema
func SourceDir(root string, schema Schema) string {
	return filepath.Join(root, string(schema))
}

// Migrator runs the migrations of one store using golang-migrate
type Migrator struct {
	store   region.Key
	migrate *migrate.Migrate
	logger  *zap.Logger
}

// New creates a Migrator for the store behind db. The schema's migrations are
// read from root/<schema>.
func New(db *sql.DB, store region.Key, root string, logger *zap.Logger) (*Migrator, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres driver for %s: %w", store, err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://"+SourceDir(root, SchemaFor(store)),
		"postgres",
		driver,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance for %s: %w", store, err)
	}

	return &Migrator{
		store:   store,
		migrate: m,
		logger:  logger.With(zap.String("store", store.String())),
	}, nil
}

// Up runs all pending migrations
func (m *Migrator) Up() error {
	m.logger.Info("Running migrations up")

	err := m.migrate.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		m.logger.Info("No migrations to apply")
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: migration up failed: %w", m.store, err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	m.logger.Info("Migrations completed",
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
	)
	return nil
}

// Down rolls back all migrations
func (m *Migrator) Down() error {
	m.logger.Info("Running migrations down")

	err := m.migrate.Down()
	if errors.Is(err, migrate.ErrNoChange) {
		m.logger.Info("No migrations to roll back")
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: migration down failed: %w", m.store, err)
	}

	m.logger.Info("All migrations rolled back")
	return nil
}

// Steps applies n migrations (positive = up, negative = down)
func (m *Migrator) Steps(n int) error {
	m.logger.Info("Running migration steps", zap.Int("steps", n))

	err := m.migrate.Steps(n)
	if errors.Is(err, migrate.ErrNoChange) {
		m.logger.Info("No migrations to apply")
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: migration steps failed: %w", m.store, err)
	}
	return nil
}

// Version returns the current migration version. A store without any applied
// migration reports version 0.
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%s: failed to get migration version: %w", m.store, err)
	}
	return version, dirty, nil
}

// Force sets the migration version without running migrations. It is meant
// for clearing a dirty state after a failed migration was fixed by hand.
func (m *Migrator) Force(version int) error {
	m.logger.Warn("Forcing migration version", zap.Int("version", version))

	if err := m.migrate.Force(version); err != nil {
		return fmt.Errorf("%s: failed to force version %d: %w", m.store, version, err)
	}
	return nil
}

// Close closes the migrator and releases resources
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	if sourceErr != nil {
		return fmt.Errorf("failed to close source: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("failed to close database: %w", dbErr)
	}
	return nil
}
