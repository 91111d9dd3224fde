package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cnec/backend/internal/application/batch"
	campaignapp "github.com/cnec/backend/internal/application/campaign"
	companyapp "github.com/cnec/backend/internal/application/company"
	notificationapp "github.com/cnec/backend/internal/application/notification"
	pointsapp "github.com/cnec/backend/internal/application/points"
	"github.com/cnec/backend/internal/domain/campaign"
	"github.com/cnec/backend/internal/domain/region"
	"github.com/cnec/backend/internal/domain/shared"
	"github.com/cnec/backend/internal/infrastructure/auth"
	"github.com/cnec/backend/internal/infrastructure/cache"
	"github.com/cnec/backend/internal/infrastructure/config"
	"github.com/cnec/backend/internal/infrastructure/event"
	"github.com/cnec/backend/internal/infrastructure/logger"
	"github.com/cnec/backend/internal/infrastructure/messaging"
	"github.com/cnec/backend/internal/infrastructure/persistence"
	"github.com/cnec/backend/internal/infrastructure/scheduler"
	"github.com/cnec/backend/internal/infrastructure/taxinvoice"
	"github.com/cnec/backend/internal/infrastructure/telemetry"
	"github.com/cnec/backend/internal/interfaces/http/handler"
	"github.com/cnec/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

const (
	shutdownTimeout    = 30 * time.Second
	reminderJobTimeout = 10 * time.Minute
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}, cfg.App.Name)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting CNEC backend",
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx := context.Background()

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()
	meter := meterProvider.Meter(cfg.Telemetry.ServiceName)

	// Stores. Schema changes are applied by cmd/migrate, never here.
	gormLevel := logger.MapGormLogLevel(cfg.Log.Level)
	central, regions, err := persistence.OpenStores(cfg, func(store string) gormlogger.Interface {
		return logger.NewGormLogger(log, store, gormLevel, cfg.Telemetry.DBSlowQueryThresh)
	}, log)
	if err != nil {
		log.Fatal("Failed to open stores", zap.Error(err))
	}

	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)
	outboxPublisher := event.NewOutboxPublisher(serializer, event.WithMaxRetries(cfg.Event.MaxRetries))

	stores := persistence.NewRegionStoreRegistry(central, regions, outboxPublisher)
	defer func() {
		if err := stores.Close(); err != nil {
			log.Error("Error closing stores", zap.Error(err))
		}
	}()
	log.Info("Stores connected", zap.Stringers("regions", stores.Regions()))

	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
	}, log)
	backlog := make(event.OutboxBacklog)
	for _, db := range stores.All() {
		if err := dbTracing.Register(db.DB, db.Name); err != nil {
			log.Warn("Failed to register database tracing", zap.String("store", db.Name), zap.Error(err))
		}
		backlog[db.Name] = event.NewGormOutboxRepository(db.DB)
	}

	metrics, err := telemetry.NewDomainMetrics(meter, backlog, cfg.Telemetry.MetricsInterval, log)
	if err != nil {
		log.Fatal("Failed to initialize domain metrics", zap.Error(err))
	}
	metrics.Start(ctx)
	defer metrics.Stop()

	// Idempotency keys for notifications and event handlers
	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	).CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		if err := idempotencyStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	dispatcher := notificationapp.NewDispatcher(
		messaging.NewIMClient(cfg.Notification.IM),
		messaging.NewSMSClient(cfg.Notification.SMS),
		messaging.NewEmailClient(cfg.Notification.Email),
		idempotencyStore,
		log.Named("notification"),
		notificationapp.WithKeyTTL(cfg.Event.IdempotencyTTL),
		notificationapp.WithDispatchMetrics(metrics),
	)

	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		log.Fatal("Failed to load scheduler timezone", zap.Error(err))
	}

	// Application services
	resolver := companyapp.NewEntityResolver(stores, log.Named("company"))
	approvalService := companyapp.NewApprovalService(stores, log.Named("company"))
	notifier := campaignapp.NewNotifier(resolver, dispatcher, loc, log.Named("campaign"))
	campaignService := campaignapp.NewService(
		stores,
		resolver,
		notifier,
		batch.NewExecutor[*campaign.Campaign](cfg.Batch),
		log.Named("campaign"),
		campaignapp.WithServiceMetrics(metrics),
	)

	centralDB := stores.Central().DB
	ledgerService := pointsapp.NewLedgerService(
		persistence.NewGormLedgerScope(centralDB, outboxPublisher),
		pointsapp.Reader{
			ChargeRequests: persistence.NewGormChargeRequestRepository(centralDB),
			Transactions:   persistence.NewGormPointsTransactionRepository(centralDB),
			Balances:       persistence.NewGormBalanceRepository(centralDB),
		},
		log.Named("points"),
		pointsapp.WithTaxInvoiceIssuer(taxinvoice.NewClient(cfg.TaxInvoice)),
		pointsapp.WithLedgerMetrics(metrics),
		pointsapp.WithMinChargeAmount(cfg.Ledger.MinChargeAmount),
	)

	centralCompanies, err := stores.Companies(region.Central)
	if err != nil {
		log.Fatal("Failed to open central company repository", zap.Error(err))
	}

	// Event bus fed by the outbox processors
	eventBus := event.NewInMemoryEventBus(log.Named("event"))
	idempotency := shared.IdempotencyConfig{TTL: cfg.Event.IdempotencyTTL, Enabled: true}
	campaignNotifications := event.NewIdempotentHandler("campaign-notification",
		campaignapp.NewNotificationHandler(notifier, log.Named("campaign")),
		idempotencyStore, log, event.WithIdempotencyConfig(idempotency))
	pointsNotifications := event.NewIdempotentHandler("points-notification",
		pointsapp.NewNotificationHandler(centralCompanies, dispatcher, log.Named("points")),
		idempotencyStore, log, event.WithIdempotencyConfig(idempotency))
	eventBus.Subscribe(campaignNotifications)
	eventBus.Subscribe(pointsNotifications)
	log.Info("Event handlers registered",
		zap.Strings("campaign_notification_events", campaignNotifications.EventTypes()),
		zap.Strings("points_notification_events", pointsNotifications.EventTypes()),
	)

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// One outbox processor per store
	if cfg.Event.ProcessorEnabled {
		processors := startOutboxProcessors(ctx, stores, eventBus, serializer, cfg.Event, log)
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			for _, p := range processors {
				if err := p.Stop(stopCtx); err != nil {
					log.Error("Error stopping outbox processor", zap.Error(err))
				}
			}
		}()
	} else {
		log.Warn("Outbox processors disabled, events stay pending")
	}

	// Deadline reminders
	if cfg.Scheduler.Enabled {
		job := campaignapp.NewDeadlineReminderJob(stores, notifier, cfg.Batch, loc, metrics, log.Named("scheduler"))
		trigger, err := scheduler.NewDailyTrigger(scheduler.DailyTriggerConfig{
			Hour:          cfg.Scheduler.DeadlineReminderHour,
			CheckInterval: cfg.Scheduler.DeadlineReminderInterval,
			Location:      loc,
			JobTimeout:    reminderJobTimeout,
		}, job, log.Named("scheduler"))
		if err != nil {
			log.Fatal("Failed to create deadline reminder trigger", zap.Error(err))
		}
		if err := trigger.Start(ctx); err != nil {
			log.Fatal("Failed to start deadline reminder trigger", zap.Error(err))
		}
		defer func() {
			if err := trigger.Stop(context.Background()); err != nil {
				log.Error("Error stopping deadline reminder trigger", zap.Error(err))
			}
		}()
		log.Info("Deadline reminder scheduled",
			zap.Int("hour", cfg.Scheduler.DeadlineReminderHour),
			zap.String("timezone", loc.String()),
		)
	}

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := router.NewEngine(router.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		HTTP:           cfg.HTTP,
		TracingEnabled: tracerProvider.IsEnabled(),
		Meter:          meter,
		Tokens:         auth.NewJWTService(cfg.JWT),
		Logger:         log,
	}, router.Handlers{
		Campaign: handler.NewCampaignHandler(campaignService),
		Points:   handler.NewPointsHandler(ledgerService),
		Company:  handler.NewCompanyHandler(approvalService),
		Health:   handler.NewHealthHandler(stores, cfg.App.Name),
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("Shutting down server", zap.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("Server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// startOutboxProcessors starts one processor per store. Each drains only its
// own store's outbox.
func startOutboxProcessors(
	ctx context.Context,
	stores *persistence.RegionStoreRegistry,
	bus shared.EventPublisher,
	serializer *event.EventSerializer,
	cfg config.EventConfig,
	log *zap.Logger,
) []*event.OutboxProcessor {
	processorCfg := event.DefaultOutboxProcessorConfig()
	if cfg.BatchSize > 0 {
		processorCfg.BatchSize = cfg.BatchSize
	}
	if cfg.PollInterval > 0 {
		processorCfg.PollInterval = cfg.PollInterval
	}
	processorCfg.CleanupEnabled = cfg.CleanupEnabled
	if cfg.CleanupRetention > 0 {
		processorCfg.CleanupRetention = cfg.CleanupRetention
	}

	processors := make([]*event.OutboxProcessor, 0, len(stores.All()))
	for _, db := range stores.All() {
		p := event.NewOutboxProcessor(db.Name, event.NewGormOutboxRepository(db.DB), bus, serializer, processorCfg, log.Named("outbox"))
		if err := p.Start(ctx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.String("store", db.Name), zap.Error(err))
		}
		processors = append(processors, p)
	}
	return processors
}
