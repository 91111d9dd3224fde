package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cnec/backend/internal/domain/region"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	Regions      map[region.Key]DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Log          LogConfig
	Event        EventConfig
	HTTP         HTTPConfig
	Notification NotificationConfig
	TaxInvoice   TaxInvoiceConfig
	Ledger       LedgerConfig
	Batch        BatchConfig
	Scheduler    SchedulerConfig
	Telemetry    TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds the connection settings of one store. Either DSN or
// Host/User/Password must be set for the store to be usable. A DSN starting
// with "sqlite:" opens an SQLite database instead of PostgreSQL.
type DatabaseConfig struct {
	DSN             string
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds settings for admin bearer tokens
type JWTConfig struct {
	Secret   string
	Issuer   string
	TokenTTL time.Duration
}

// EventConfig holds outbox processing configuration
type EventConfig struct {
	ProcessorEnabled bool
	BatchSize        int
	PollInterval     time.Duration
	MaxRetries       int
	CleanupEnabled   bool
	CleanupRetention time.Duration
	IdempotencyTTL   time.Duration
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	MaxBodySize       int64
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	CORSAllowOrigins  []string
	CORSAllowMethods  []string
	CORSAllowHeaders  []string
	TrustedProxies    []string
}

// ProviderConfig holds the settings of one outbound HTTP provider
type ProviderConfig struct {
	Enabled    bool
	BaseURL    string
	APIKey     string
	SenderID   string // IM sender profile key, SMS caller number or email from address
	SenderName string
	Timeout    time.Duration
	// RatePerSecond caps outbound requests. Zero means unlimited.
	RatePerSecond float64
}

// NotificationConfig holds the notification channel providers
type NotificationConfig struct {
	IM    ProviderConfig
	SMS   ProviderConfig
	Email ProviderConfig
}

// TaxInvoiceConfig holds the tax invoice issuing service settings
type TaxInvoiceConfig struct {
	ProviderConfig
	CorpNum string
	VATRate float64
}

// LedgerConfig holds points ledger rules
type LedgerConfig struct {
	MinChargeAmount int64
}

// BatchConfig holds the bulk send pacing
type BatchConfig struct {
	Size            int
	InterBatchDelay time.Duration
	Concurrency     int
}

// SchedulerConfig holds the periodic job settings
type SchedulerConfig struct {
	Enabled                  bool
	DeadlineReminderInterval time.Duration
	// DeadlineReminderHour is the local hour (0-23) from which the daily
	// reminder may run
	DeadlineReminderHour int
	Timezone             string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
	DBTraceEnabled    bool
	DBLogFullSQL      bool
	DBSlowQueryThresh time.Duration
	MetricsInterval   time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with CNEC_ prefix (e.g., CNEC_REGIONS_KOREA_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/cnec")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper builds the configuration from an already populated viper instance
func FromViper(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("CNEC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("scheduler.deadline_reminder_hour", 10)
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("event.processor_enabled", true)
	v.SetDefault("event.cleanup_enabled", true)

	regions, err := loadRegions(v)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: loadDatabase(v, "database"),
		Regions:  regions,
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:   v.GetString("jwt.secret"),
			Issuer:   v.GetString("jwt.issuer"),
			TokenTTL: v.GetDuration("jwt.token_ttl"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Event: EventConfig{
			ProcessorEnabled: v.GetBool("event.processor_enabled"),
			BatchSize:        v.GetInt("event.batch_size"),
			PollInterval:     v.GetDuration("event.poll_interval"),
			MaxRetries:       v.GetInt("event.max_retries"),
			CleanupEnabled:   v.GetBool("event.cleanup_enabled"),
			CleanupRetention: v.GetDuration("event.cleanup_retention"),
			IdempotencyTTL:   v.GetDuration("event.idempotency_ttl"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			RateLimitEnabled:  v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:  v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:  v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
		},
		Notification: NotificationConfig{
			IM:    loadProvider(v, "notification.im"),
			SMS:   loadProvider(v, "notification.sms"),
			Email: loadProvider(v, "notification.email"),
		},
		TaxInvoice: TaxInvoiceConfig{
			ProviderConfig: loadProvider(v, "tax_invoice"),
			CorpNum:        v.GetString("tax_invoice.corp_num"),
			VATRate:        v.GetFloat64("tax_invoice.vat_rate"),
		},
		Ledger: LedgerConfig{
			MinChargeAmount: v.GetInt64("ledger.min_charge_amount"),
		},
		Batch: BatchConfig{
			Size:            v.GetInt("batch.size"),
			InterBatchDelay: v.GetDuration("batch.inter_batch_delay"),
			Concurrency:     v.GetInt("batch.concurrency"),
		},
		Scheduler: SchedulerConfig{
			Enabled:                  v.GetBool("scheduler.enabled"),
			DeadlineReminderInterval: v.GetDuration("scheduler.deadline_reminder_interval"),
			DeadlineReminderHour:     v.GetInt("scheduler.deadline_reminder_hour"),
			Timezone:                 v.GetString("scheduler.timezone"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadDatabase(v *viper.Viper, prefix string) DatabaseConfig {
	return DatabaseConfig{
		DSN:             v.GetString(prefix + ".dsn"),
		Host:            v.GetString(prefix + ".host"),
		Port:            v.GetInt(prefix + ".port"),
		User:            v.GetString(prefix + ".user"),
		Password:        v.GetString(prefix + ".password"),
		DBName:          v.GetString(prefix + ".dbname"),
		SSLMode:         v.GetString(prefix + ".sslmode"),
		MaxOpenConns:    v.GetInt(prefix + ".max_open_conns"),
		MaxIdleConns:    v.GetInt(prefix + ".max_idle_conns"),
		ConnMaxLifetime: v.GetInt(prefix + ".conn_max_lifetime"),
		ConnMaxIdleTime: v.GetInt(prefix + ".conn_max_idle_time"),
	}
}

func loadProvider(v *viper.Viper, prefix string) ProviderConfig {
	return ProviderConfig{
		Enabled:    v.GetBool(prefix + ".enabled"),
		BaseURL:    v.GetString(prefix + ".base_url"),
		APIKey:     v.GetString(prefix + ".api_key"),
		SenderID:   v.GetString(prefix + ".sender_id"),
		SenderName: v.GetString(prefix + ".sender_name"),
		Timeout:    v.GetDuration(prefix + ".timeout"),

		RatePerSecond: v.GetFloat64(prefix + ".rate_per_second"),
	}
}

// loadRegions reads regions.<key> tables. Keys may use any alias but must
// name a regional store; the central store is configured under [database].
// Regional stores configured only through the environment are picked up too.
func loadRegions(v *viper.Viper) (map[region.Key]DatabaseConfig, error) {
	regions := make(map[region.Key]DatabaseConfig)

	for name := range v.GetStringMap("regions") {
		key, err := region.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("regions.%s: %w", name, err)
		}
		if key.IsCentral() {
			return nil, fmt.Errorf("regions.%s: the central store is configured under [database]", name)
		}
		if _, dup := regions[key]; dup {
			return nil, fmt.Errorf("regions.%s: region %s is configured twice", name, key)
		}
		regions[key] = loadDatabase(v, "regions."+name)
	}

	for _, key := range region.Regional() {
		if _, ok := regions[key]; ok {
			continue
		}
		db := loadDatabase(v, "regions."+key.String())
		if db.IsConfigured() {
			regions[key] = db
		}
	}

	return regions, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "cnec-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.DSN == "" {
		if cfg.Database.Host == "" {
			cfg.Database.Host = "localhost"
		}
		if cfg.Database.User == "" {
			cfg.Database.User = "postgres"
		}
		if cfg.Database.DBName == "" {
			cfg.Database.DBName = "cnec"
		}
	}
	applyPoolDefaults(&cfg.Database)
	for key, db := range cfg.Regions {
		if db.DSN == "" && db.DBName == "" {
			db.DBName = "cnec_" + key.String()
		}
		applyPoolDefaults(&db)
		cfg.Regions[key] = db
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "cnec-backend"
	}
	if cfg.JWT.TokenTTL <= 0 {
		cfg.JWT.TokenTTL = 12 * time.Hour
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Event.BatchSize == 0 {
		cfg.Event.BatchSize = 100
	}
	if cfg.Event.PollInterval == 0 {
		cfg.Event.PollInterval = 5 * time.Second
	}
	if cfg.Event.MaxRetries == 0 {
		cfg.Event.MaxRetries = 5
	}
	if cfg.Event.CleanupRetention == 0 {
		cfg.Event.CleanupRetention = 168 * time.Hour
	}
	if cfg.Event.IdempotencyTTL == 0 {
		cfg.Event.IdempotencyTTL = 72 * time.Hour
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 60 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 100
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	// Empty CORS origins means no cross-origin requests until configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	for _, p := range []*ProviderConfig{&cfg.Notification.IM, &cfg.Notification.SMS, &cfg.Notification.Email, &cfg.TaxInvoice.ProviderConfig} {
		if p.Timeout == 0 {
			p.Timeout = 30 * time.Second
		}
		if p.RatePerSecond < 0 {
			p.RatePerSecond = 0
		}
	}
	if cfg.TaxInvoice.VATRate == 0 {
		cfg.TaxInvoice.VATRate = 0.1
	}
	if cfg.Ledger.MinChargeAmount == 0 {
		cfg.Ledger.MinChargeAmount = 10000
	}
	if cfg.Batch.Size == 0 {
		cfg.Batch.Size = 50
	}
	if cfg.Batch.InterBatchDelay == 0 {
		cfg.Batch.InterBatchDelay = time.Second
	}
	if cfg.Batch.Concurrency == 0 {
		cfg.Batch.Concurrency = 5
	}
	if cfg.Scheduler.DeadlineReminderInterval == 0 {
		cfg.Scheduler.DeadlineReminderInterval = time.Hour
	}
	if cfg.Scheduler.Timezone == "" {
		cfg.Scheduler.Timezone = "Asia/Seoul"
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "cnec-backend"
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 15 * time.Second
	}
}

func applyPoolDefaults(d *DatabaseConfig) {
	if d.Port == 0 {
		d.Port = 5432
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
	if d.MaxOpenConns == 0 {
		d.MaxOpenConns = 25
	}
	if d.MaxIdleConns == 0 {
		d.MaxIdleConns = 5
	}
	if d.ConnMaxLifetime == 0 {
		d.ConnMaxLifetime = 60
	}
	if d.ConnMaxIdleTime == 0 {
		d.ConnMaxIdleTime = 30
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if err := c.Database.validatePool("database"); err != nil {
		return err
	}
	for key, db := range c.Regions {
		if err := db.validatePool("regions." + key.String()); err != nil {
			return err
		}
	}

	if c.Batch.Size <= 0 {
		return fmt.Errorf("batch.size must be positive")
	}
	if c.Batch.InterBatchDelay < 0 {
		return fmt.Errorf("batch.inter_batch_delay cannot be negative")
	}
	if c.Batch.Concurrency <= 0 {
		return fmt.Errorf("batch.concurrency must be positive")
	}
	if c.Ledger.MinChargeAmount < 0 {
		return fmt.Errorf("ledger.min_charge_amount cannot be negative")
	}
	if c.Scheduler.DeadlineReminderHour < 0 || c.Scheduler.DeadlineReminderHour > 23 {
		return fmt.Errorf("scheduler.deadline_reminder_hour must be between 0 and 23")
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("scheduler.timezone: %w", err)
	}

	if c.App.Env == "production" {
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.DSN == "" && c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

func (d *DatabaseConfig) validatePool(name string) error {
	if d.MaxOpenConns <= 0 {
		return fmt.Errorf("%s.max_open_conns must be positive", name)
	}
	if d.MaxIdleConns < 0 {
		return fmt.Errorf("%s.max_idle_conns cannot be negative", name)
	}
	if d.MaxIdleConns > d.MaxOpenConns {
		return fmt.Errorf("%s.max_idle_conns (%d) cannot exceed %s.max_open_conns (%d)",
			name, d.MaxIdleConns, name, d.MaxOpenConns)
	}
	return nil
}

// StoreConfig returns the connection settings of a store, or nil when the
// region has no entry
func (c *Config) StoreConfig(key region.Key) *DatabaseConfig {
	if key.IsCentral() {
		return &c.Database
	}
	db, ok := c.Regions[key]
	if !ok {
		return nil
	}
	return &db
}

// IsConfigured reports whether enough connection parameters are present to
// open the store.
func (d *DatabaseConfig) IsConfigured() bool {
	if d.DSN != "" {
		return true
	}
	return d.Host != "" && d.User != "" && d.Password != ""
}

// IsSQLite reports whether the DSN selects the SQLite driver
func (d *DatabaseConfig) IsSQLite() bool {
	return strings.HasPrefix(d.DSN, "sqlite:")
}

// ConnectionString returns the string passed to the driver. For SQLite the
// "sqlite:" prefix is stripped.
func (d *DatabaseConfig) ConnectionString() string {
	if d.IsSQLite() {
		return strings.TrimPrefix(d.DSN, "sqlite:")
	}
	if d.DSN != "" {
		return d.DSN
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Redacted returns a description of the store safe for logs
func (d *DatabaseConfig) Redacted() string {
	if d.IsSQLite() {
		return d.DSN
	}
	if d.DSN != "" {
		if u, err := url.Parse(d.DSN); err == nil {
			return u.Redacted()
		}
		return "postgres://***"
	}
	return fmt.Sprintf("postgres://%s@%s:%d/%s", d.User, d.Host, d.Port, d.DBName)
}
