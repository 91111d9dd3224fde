package campaign

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cnec/backend/internal/application/batch"
	"github.com/cnec/backend/internal/domain/campaign"
	"github.com/cnec/backend/internal/domain/region"
	"github.com/cnec/backend/internal/infrastructure/config"
	"github.com/cnec/backend/internal/infrastructure/scheduler"
	"github.com/cnec/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// DeadlineReminderJobName identifies the job in logs and metrics
const DeadlineReminderJobName = "recruitment_deadline_reminder"

// reminder is one campaign whose recruitment closes on the run day
type reminder struct {
	campaign     *campaign.Campaign
	region       region.Key
	participants campaign.ParticipantRepository
}

// DeadlineReminderJob tells companies how many creators applied to each
// active campaign whose recruitment deadline is today
type DeadlineReminderJob struct {
	stores   Stores
	notifier *Notifier
	executor *batch.Executor[reminder]
	location *time.Location
	metrics  *telemetry.DomainMetrics
	logger   *zap.Logger
}

// NewDeadlineReminderJob creates the job. Reminders are sent in chunks
// sized by cfg and days are computed in loc.
func NewDeadlineReminderJob(stores Stores, notifier *Notifier, cfg config.BatchConfig, loc *time.Location, metrics *telemetry.DomainMetrics, logger *zap.Logger) *DeadlineReminderJob {
	if loc == nil {
		loc = time.UTC
	}
	return &DeadlineReminderJob{
		stores:   stores,
		notifier: notifier,
		executor: batch.NewExecutor[reminder](cfg),
		location: loc,
		metrics:  metrics,
		logger:   logger.With(zap.String("job", DeadlineReminderJobName)),
	}
}

// Name implements scheduler.DailyJob
func (j *DeadlineReminderJob) Name() string {
	return DeadlineReminderJobName
}

// Run sends the reminders for day. Every region is scanned even if one
// fails; the errors are returned together so the trigger retries, and
// reminders already delivered are dropped by their key on the retry.
func (j *DeadlineReminderJob) Run(ctx context.Context, day time.Time) error {
	local := day.In(j.location)
	from := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, j.location)
	to := from.AddDate(0, 0, 1)
	dayKey := from.Format("2006-01-02")

	var (
		items []reminder
		errs  []error
	)
	for _, key := range j.stores.Regions() {
		found, err := j.collect(ctx, key, from, to)
		if err != nil {
			j.logger.Error("failed to list campaigns closing today", zap.String("region", key.String()), zap.Error(err))
			errs = append(errs, fmt.Errorf("region %s: %w", key, err))
			continue
		}
		items = append(items, found...)
	}

	var sent, skipped, failed atomic.Int64
	err := j.executor.Execute(ctx, items, func(ctx context.Context, r reminder) error {
		delivered, err := j.remind(ctx, r, dayKey)
		switch {
		case err != nil:
			failed.Add(1)
			return fmt.Errorf("campaign %s: %w", r.campaign.ID, err)
		case delivered:
			sent.Add(1)
		default:
			skipped.Add(1)
		}
		return nil
	})
	if err != nil {
		errs = append(errs, err)
	}

	j.metrics.RecordBatch(ctx, DeadlineReminderJobName, int(sent.Load()), int(skipped.Load()), int(failed.Load()))
	j.logger.Info("deadline reminders finished",
		zap.String("day", dayKey),
		zap.Int("campaigns", len(items)),
		zap.Int64("sent", sent.Load()),
		zap.Int64("skipped", skipped.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return errors.Join(errs...)
}

func (j *DeadlineReminderJob) collect(ctx context.Context, key region.Key, from, to time.Time) ([]reminder, error) {
	campaigns, err := j.stores.Campaigns(key)
	if err != nil {
		return nil, err
	}
	participants, err := j.stores.Participants(key)
	if err != nil {
		return nil, err
	}
	found, err := campaigns.FindByRecruitmentDeadline(ctx, []campaign.Status{campaign.StatusActive}, from, to)
	if err != nil {
		return nil, err
	}
	items := make([]reminder, len(found))
	for i, c := range found {
		items[i] = reminder{campaign: c, region: key, participants: participants}
	}
	return items, nil
}

// remind reports false without error when the reminder was skipped: the
// owner has no phone or the key was already used today
func (j *DeadlineReminderJob) remind(ctx context.Context, r reminder, dayKey string) (bool, error) {
	c := r.campaign
	owner, err := j.notifier.Owner(ctx, c.CompanyID, c.CompanyEmail, r.region)
	if err != nil {
		return false, err
	}
	if !owner.HasPhone() {
		j.logger.Info("company has no phone, reminder skipped",
			zap.String("campaign_id", c.ID.String()),
			zap.String("company_id", owner.ID.String()),
		)
		return false, nil
	}
	applicants, err := r.participants.CountByCampaign(ctx, c.ID)
	if err != nil {
		return false, err
	}
	key := fmt.Sprintf("%s:recruitment_deadline:%s", c.ID, dayKey)
	res := j.notifier.NotifyRecruitmentClosed(ctx, owner, c.Title, applicants, key)
	if res.Duplicate {
		return false, nil
	}
	if err := res.Err(); err != nil {
		return false, err
	}
	return true, nil
}

var _ scheduler.DailyJob = (*DeadlineReminderJob)(nil)
