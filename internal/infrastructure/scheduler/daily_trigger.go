// Package scheduler runs the periodic jobs of the service.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrInvalidConfig is returned when configuration is invalid
var ErrInvalidConfig = errors.New("invalid scheduler configuration")

// DailyJob is work that runs once per local calendar day
type DailyJob interface {
	Name() string
	Run(ctx context.Context, day time.Time) error
}

// DailyTriggerConfig holds configuration for a daily trigger
type DailyTriggerConfig struct {
	// Hour is the local hour from which the job may run
	Hour int
	// CheckInterval is how often the trigger looks at the clock
	CheckInterval time.Duration
	Location      *time.Location
	// JobTimeout bounds one run
	JobTimeout time.Duration
}

// DailyTrigger runs a DailyJob at most once per day in Location, on the first
// check at or after Hour. A failed run is retried on the next check.
type DailyTrigger struct {
	config DailyTriggerConfig
	job    DailyJob
	logger *zap.Logger
	now    func() time.Time

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	lastRunDate string
}

// NewDailyTrigger creates a new daily trigger
func NewDailyTrigger(config DailyTriggerConfig, job DailyJob, logger *zap.Logger) (*DailyTrigger, error) {
	if config.Hour < 0 || config.Hour > 23 || config.CheckInterval <= 0 || job == nil {
		return nil, ErrInvalidConfig
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = 30 * time.Minute
	}
	return &DailyTrigger{
		config: config,
		job:    job,
		logger: logger.With(zap.String("job", job.Name())),
		now:    time.Now,
	}, nil
}

// Start starts the trigger loop
func (d *DailyTrigger) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.isRunning {
		d.mu.Unlock()
		return nil
	}
	d.isRunning = true
	d.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.wg.Add(1)
	go d.runLoop(ctx)

	d.logger.Info("Daily trigger started",
		zap.Int("hour", d.config.Hour),
		zap.String("location", d.config.Location.String()),
		zap.Duration("check_interval", d.config.CheckInterval),
	)
	return nil
}

// Stop stops the trigger and waits for a running job to return
func (d *DailyTrigger) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.isRunning {
		d.mu.Unlock()
		return nil
	}
	d.isRunning = false
	d.mu.Unlock()

	if d.cancel != nil {
		d.cancel()
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("Daily trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *DailyTrigger) runLoop(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.CheckInterval)
	defer ticker.Stop()

	d.CheckAndRun(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.CheckAndRun(ctx)
		}
	}
}

// CheckAndRun runs the job if it is due. It reports whether the job ran.
func (d *DailyTrigger) CheckAndRun(ctx context.Context) bool {
	now := d.now().In(d.config.Location)
	date := now.Format("2006-01-02")

	d.mu.Lock()
	due := d.lastRunDate != date && now.Hour() >= d.config.Hour
	d.mu.Unlock()
	if !due {
		return false
	}

	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, d.config.Location)
	runCtx, cancel := context.WithTimeout(ctx, d.config.JobTimeout)
	defer cancel()

	start := time.Now()
	if err := d.job.Run(runCtx, day); err != nil {
		d.logger.Error("Daily job failed, retrying on next check",
			zap.String("date", date),
			zap.Error(err),
		)
		return true
	}

	d.mu.Lock()
	d.lastRunDate = date
	d.mu.Unlock()

	d.logger.Info("Daily job completed",
		zap.String("date", date),
		zap.Duration("elapsed", time.Since(start)),
	)
	return true
}

// RunNow runs the job for today regardless of the hour and of earlier runs
func (d *DailyTrigger) RunNow(ctx context.Context) error {
	now := d.now().In(d.config.Location)
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, d.config.Location)
	return d.job.Run(ctx, day)
}
