package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cnec/backend/internal/domain/region"
	"github.com/cnec/backend/internal/infrastructure/config"
	"github.com/cnec/backend/internal/infrastructure/logger"
	"github.com/cnec/backend/internal/infrastructure/migration"
	"github.com/cnec/backend/internal/infrastructure/persistence"
	"github.com/cnec/backend/internal/infrastructure/persistence/models"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const defaultMigrationsPath = "migrations"

func main() {
	var (
		migrationsPath string
		store          string
		action         string
		n              int
		name           string
		schema         string
		logLevel       string
	)

	flag.StringVar(&migrationsPath, "path", defaultMigrationsPath, "Root of the migrations tree (holds central/ and region/)")
	flag.StringVar(&store, "store", "all", "Store to migrate: all, central, korea, japan, us, taiwan (aliases accepted)")
	flag.StringVar(&action, "action", "up", "up, down, steps, version, force, create, list")
	flag.IntVar(&n, "n", 0, "Step count for steps, version for force")
	flag.StringVar(&name, "name", "", "Migration name for create")
	flag.StringVar(&schema, "schema", string(migration.SchemaRegion), "Schema for create and list: central or region")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	}, "cnec-migrate")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	root, err := filepath.Abs(migrationsPath)
	if err != nil {
		log.Fatal("Failed to get absolute path", zap.Error(err))
	}

	switch action {
	case "create":
		if name == "" {
			log.Fatal("Migration name required: -action create -name <name> [-schema central|region]")
		}
		mf, err := migration.CreateMigration(root, migration.Schema(schema), name, "")
		if err != nil {
			log.Fatal("Failed to create migration", zap.Error(err))
		}
		log.Info("Migration created",
			zap.String("version", mf.Version),
			zap.String("up_file", mf.UpPath),
			zap.String("down_file", mf.DownPath),
		)
		return
	case "list":
		names, err := migration.ListMigrations(migration.SourceDir(root, migration.Schema(schema)))
		if err != nil {
			log.Fatal("Failed to list migrations", zap.Error(err))
		}
		for _, m := range names {
			fmt.Println("  -", m)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	targets, err := selectStores(cfg, store)
	if err != nil {
		log.Fatal("Invalid -store", zap.Error(err))
	}

	failed := false
	for _, key := range targets {
		if err := runStore(cfg.StoreConfig(key), key, root, action, n, log); err != nil {
			log.Error("Migration failed", zap.String("store", key.String()), zap.Error(err))
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

// selectStores returns the central store followed by every configured region
// for "all", otherwise the single named store
func selectStores(cfg *config.Config, name string) ([]region.Key, error) {
	if name == "all" {
		keys := []region.Key{region.Central}
		for _, key := range region.Regional() {
			if db, ok := cfg.Regions[key]; ok && db.IsConfigured() {
				keys = append(keys, key)
			}
		}
		return keys, nil
	}
	key, err := region.Parse(name)
	if err != nil {
		return nil, err
	}
	if db := cfg.StoreConfig(key); db == nil || !db.IsConfigured() {
		return nil, fmt.Errorf("store %s is not configured", key)
	}
	return []region.Key{key}, nil
}

func runStore(dbCfg *config.DatabaseConfig, key region.Key, root, action string, n int, log *zap.Logger) error {
	if dbCfg.IsSQLite() {
		return autoMigrateSQLite(dbCfg, key, action, log)
	}

	db, err := sql.Open("postgres", dbCfg.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping %s: %w", dbCfg.Redacted(), err)
	}

	m, err := migration.New(db, key, root, log)
	if err != nil {
		return err
	}
	defer m.Close()

	switch action {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "steps":
		if n == 0 {
			return fmt.Errorf("-n must be non-zero for steps")
		}
		return m.Steps(n)
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		log.Info("Current migration version",
			zap.String("store", key.String()),
			zap.Uint("version", version),
			zap.Bool("dirty", dirty),
		)
		return nil
	case "force":
		if n <= 0 {
			return fmt.Errorf("-n must be the version to force")
		}
		return m.Force(n)
	default:
		return fmt.Errorf("unknown action %q", action)
	}
}

// autoMigrateSQLite covers local SQLite stores, which golang-migrate's
// postgres driver cannot open. Only "up" is supported there.
func autoMigrateSQLite(dbCfg *config.DatabaseConfig, key region.Key, action string, log *zap.Logger) error {
	if action != "up" {
		return fmt.Errorf("action %q is not supported for SQLite stores", action)
	}
	db, err := persistence.NewDatabase(key.String(), dbCfg, nil)
	if err != nil {
		return err
	}
	defer db.Close()

	tables := models.RegionModels()
	if key == region.Central {
		tables = models.CentralModels()
	}
	if err := db.DB.AutoMigrate(tables...); err != nil {
		return fmt.Errorf("auto-migrate %s: %w", key, err)
	}
	log.Info("SQLite store schema synchronized", zap.String("store", key.String()), zap.Int("tables", len(tables)))
	return nil
}

func printUsage() {
	fmt.Println(`CNEC Database Migration Tool

Usage:
  migrate [flags]

Actions (-action):
  up          Apply all pending migrations
  down        Roll back all migrations
  steps       Apply -n migrations (positive=up, negative=down)
  version     Show the current migration version
  force       Force the version to -n (clears a dirty state)
  create      Create a migration pair named -name in -schema
  list        List the migrations of -schema

Flags:`)
	flag.PrintDefaults()
}
