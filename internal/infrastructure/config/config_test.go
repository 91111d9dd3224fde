package config

import (
	"strings"
	"testing"
	"time"

	"github.com/cnec/backend/internal/domain/region"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fromTOML(t *testing.T, doc string) (*Config, error) {
	t.Helper()
	v := viper.New()
	v.SetConfigType("toml")
	require.NoError(t, v.ReadConfig(strings.NewReader(doc)))
	return FromViper(v)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := fromTOML(t, "")
	require.NoError(t, err)

	assert.Equal(t, "cnec-backend", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "cnec", cfg.Database.DBName)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Empty(t, cfg.Regions)
	assert.Equal(t, int64(10000), cfg.Ledger.MinChargeAmount)
	assert.Equal(t, 50, cfg.Batch.Size)
	assert.Equal(t, time.Second, cfg.Batch.InterBatchDelay)
	assert.Equal(t, 30*time.Second, cfg.Notification.IM.Timeout)
	assert.Equal(t, 30*time.Second, cfg.TaxInvoice.Timeout)
	assert.Equal(t, 0.1, cfg.TaxInvoice.VATRate)
	assert.Equal(t, "Asia/Seoul", cfg.Scheduler.Timezone)
	assert.Equal(t, 10, cfg.Scheduler.DeadlineReminderHour)
	assert.Equal(t, 12*time.Hour, cfg.JWT.TokenTTL)
	assert.True(t, cfg.Event.ProcessorEnabled)
	assert.True(t, cfg.Event.CleanupEnabled)
	assert.True(t, cfg.Scheduler.Enabled)
}

func TestLoad_RegionsWithAliases(t *testing.T) {
	cfg, err := fromTOML(t, `
[regions.kr]
host = "kr-db.internal"
user = "cnec"
password = "secret"

[regions.JP]
dsn = "postgres://cnec:pw@jp-db/cnec_japan?sslmode=require"

[regions.us]
host = "us-db.internal"
`)
	require.NoError(t, err)

	require.Contains(t, cfg.Regions, region.Korea)
	require.Contains(t, cfg.Regions, region.Japan)
	require.Contains(t, cfg.Regions, region.US)

	korea := cfg.Regions[region.Korea]
	assert.True(t, korea.IsConfigured())
	assert.Equal(t, "cnec_korea", korea.DBName)
	assert.Equal(t, 25, korea.MaxOpenConns)

	japan := cfg.Regions[region.Japan]
	assert.True(t, japan.IsConfigured())

	us := cfg.Regions[region.US]
	assert.False(t, us.IsConfigured(), "a host without credentials is not a usable store")
}

func TestLoad_RegionFromEnvironment(t *testing.T) {
	t.Setenv("CNEC_REGIONS_TAIWAN_DSN", "sqlite:file:tw?mode=memory")

	cfg, err := fromTOML(t, "")
	require.NoError(t, err)

	tw, ok := cfg.Regions[region.Taiwan]
	require.True(t, ok)
	assert.True(t, tw.IsSQLite())
	assert.Equal(t, "file:tw?mode=memory", tw.ConnectionString())
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	t.Setenv("CNEC_APP_PORT", "9000")
	t.Setenv("CNEC_BATCH_SIZE", "10")

	cfg, err := fromTOML(t, `
[app]
port = "8081"
[batch]
size = 20
`)
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.App.Port)
	assert.Equal(t, 10, cfg.Batch.Size)
}

func TestLoad_RejectsInvalidRegions(t *testing.T) {
	_, err := fromTOML(t, `
[regions.germany]
dsn = "postgres://x"
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "germany")

	_, err = fromTOML(t, `
[regions.biz]
dsn = "postgres://x"
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[database]")

	_, err = fromTOML(t, `
[regions.kr]
dsn = "postgres://a"
[regions.korea]
dsn = "postgres://b"
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configured twice")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{"negative batch delay", "[batch]\ninter_batch_delay = \"-1s\"", "inter_batch_delay"},
		{"idle above open", "[database]\nmax_open_conns = 2\nmax_idle_conns = 5", "max_idle_conns"},
		{"reminder hour", "[scheduler]\ndeadline_reminder_hour = 24", "deadline_reminder_hour"},
		{"bad timezone", "[scheduler]\ntimezone = \"Mars/Olympus\"", "timezone"},
		{"sampling ratio", "[telemetry]\nsampling_ratio = 2.0", "sampling_ratio"},
		{"production secret", "[app]\nenv = \"production\"\n[database]\npassword = \"x\"", "jwt.secret"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fromTOML(t, tt.doc)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p@ss word", DBName: "cnec", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p%40ss%20word@db:5432/cnec?sslmode=disable", d.ConnectionString())
	assert.NotContains(t, d.Redacted(), "p@ss")

	withDSN := DatabaseConfig{DSN: "postgres://u:secret@db/cnec"}
	assert.Equal(t, "postgres://u:secret@db/cnec", withDSN.ConnectionString())
	assert.NotContains(t, withDSN.Redacted(), "secret")
}

func TestConfig_StoreConfig(t *testing.T) {
	cfg, err := fromTOML(t, `
[regions.japan]
dsn = "postgres://cnec:pw@jp-db/cnec_japan"
`)
	require.NoError(t, err)

	assert.Same(t, &cfg.Database, cfg.StoreConfig(region.Central))
	require.NotNil(t, cfg.StoreConfig(region.Japan))
	assert.Equal(t, "postgres://cnec:pw@jp-db/cnec_japan", cfg.StoreConfig(region.Japan).ConnectionString())
	assert.Nil(t, cfg.StoreConfig(region.Taiwan))
}
