package persistence

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/cnec/backend/internal/domain/campaign"
	"github.com/cnec/backend/internal/domain/company"
	"github.com/cnec/backend/internal/domain/region"
	"github.com/cnec/backend/internal/domain/shared"
	"github.com/cnec/backend/internal/infrastructure/config"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

// RegionStoreRegistry maps region keys to store connections. It is built
// once at startup and never changes afterwards.
type RegionStoreRegistry struct {
	central *Database
	regions map[region.Key]*Database
	outbox  shared.OutboxEventSaver
}

// NewRegionStoreRegistry creates a registry over already opened stores.
// outbox receives the events of every campaign write.
func NewRegionStoreRegistry(central *Database, regions map[region.Key]*Database, outbox shared.OutboxEventSaver) *RegionStoreRegistry {
	copied := make(map[region.Key]*Database, len(regions))
	for k, db := range regions {
		copied[k] = db
	}
	return &RegionStoreRegistry{central: central, regions: copied, outbox: outbox}
}

// GormLoggerFactory builds the GORM logger for a named store
type GormLoggerFactory func(store string) logger.Interface

// OpenStores connects to the central store and every configured region.
// Regions without connection parameters are skipped and stay unresolvable.
func OpenStores(cfg *config.Config, newLogger GormLoggerFactory, log *zap.Logger) (*Database, map[region.Key]*Database, error) {
	if newLogger == nil {
		newLogger = func(string) logger.Interface { return nil }
	}
	if !cfg.Database.IsConfigured() {
		return nil, nil, shared.NewConfigurationError("central database is not configured")
	}

	central, err := NewDatabase(string(region.Central), &cfg.Database, newLogger(string(region.Central)))
	if err != nil {
		return nil, nil, err
	}

	regions := make(map[region.Key]*Database)
	for key, dbCfg := range cfg.Regions {
		if !dbCfg.IsConfigured() {
			log.Warn("region store has no connection parameters, requests for it will fail",
				zap.String("region", string(key)))
			continue
		}
		db, err := NewDatabase(string(key), &dbCfg, newLogger(string(key)))
		if err != nil {
			closeAll(central, regions)
			return nil, nil, err
		}
		regions[key] = db
		log.Info("region store connected", zap.String("region", string(key)), zap.String("dsn", dbCfg.Redacted()))
	}
	return central, regions, nil
}

func closeAll(central *Database, regions map[region.Key]*Database) {
	_ = central.Close()
	for _, db := range regions {
		_ = db.Close()
	}
}

// Central returns the central registry store
func (r *RegionStoreRegistry) Central() *Database {
	return r.central
}

// Store returns the connection for key. A region that has no configured
// store yields a CONFIGURATION_ERROR.
func (r *RegionStoreRegistry) Store(key region.Key) (*Database, error) {
	if key == region.Central {
		return r.central, nil
	}
	db, ok := r.regions[key]
	if !ok {
		return nil, shared.NewConfigurationError(fmt.Sprintf("no database configured for region %s", key))
	}
	return db, nil
}

// Resolve parses a caller-supplied region name and returns its store
func (r *RegionStoreRegistry) Resolve(name string) (region.Key, *Database, error) {
	key, err := region.Parse(name)
	if err != nil {
		return "", nil, err
	}
	db, err := r.Store(key)
	if err != nil {
		return "", nil, err
	}
	return key, db, nil
}

// Regions returns the configured region keys in a stable order
func (r *RegionStoreRegistry) Regions() []region.Key {
	keys := make([]region.Key, 0, len(r.regions))
	for k := range r.regions {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// All returns every store, the central one first
func (r *RegionStoreRegistry) All() []*Database {
	all := []*Database{r.central}
	for _, k := range r.Regions() {
		all = append(all, r.regions[k])
	}
	return all
}

// Campaigns returns the campaign repository of a region store
func (r *RegionStoreRegistry) Campaigns(key region.Key) (campaign.Repository, error) {
	db, err := r.regionStore(key)
	if err != nil {
		return nil, err
	}
	return NewGormCampaignRepository(db.DB, string(key), r.outbox), nil
}

// Participants returns the participant repository of a region store
func (r *RegionStoreRegistry) Participants(key region.Key) (campaign.ParticipantRepository, error) {
	db, err := r.regionStore(key)
	if err != nil {
		return nil, err
	}
	return NewGormParticipantRepository(db.DB), nil
}

// Companies returns the company repository of any store, central included
func (r *RegionStoreRegistry) Companies(key region.Key) (company.Repository, error) {
	db, err := r.Store(key)
	if err != nil {
		return nil, err
	}
	return NewGormCompanyRepository(db.DB, string(key)), nil
}

func (r *RegionStoreRegistry) regionStore(key region.Key) (*Database, error) {
	if key == region.Central {
		return nil, shared.NewValidationError("campaigns are not stored in the central store")
	}
	return r.Store(key)
}

// Ping checks every store and returns the failures by store name
func (r *RegionStoreRegistry) Ping(ctx context.Context) map[string]error {
	failures := make(map[string]error)
	for _, db := range r.All() {
		if err := db.Ping(ctx); err != nil {
			failures[db.Name] = err
		}
	}
	return failures
}

// Close closes every store
func (r *RegionStoreRegistry) Close() error {
	var errs []error
	for _, db := range r.All() {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s store: %w", db.Name, err))
		}
	}
	return errors.Join(errs...)
}
