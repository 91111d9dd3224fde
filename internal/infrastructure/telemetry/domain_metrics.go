package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/cnec/backend/internal/domain/shared"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// DomainMetrics counts what the campaign, points and notification services
// do. A nil *DomainMetrics records nothing, so services can run without it.
type DomainMetrics struct {
	logger *zap.Logger

	campaignTransitions *Counter
	notifications       *Counter
	pointsCredited      *Counter
	batchItems          *Counter
	outboxBacklog       *Gauge

	backlog  OutboxBacklogProvider
	interval time.Duration
	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup
}

// OutboxBacklogProvider reports how many outbox entries of each status a store
// holds
type OutboxBacklogProvider interface {
	Backlog(ctx context.Context) (map[string]map[shared.OutboxStatus]int64, error)
}

// NewDomainMetrics creates the metric set. backlog may be nil, in which case
// no outbox gauge is collected.
func NewDomainMetrics(meter metric.Meter, backlog OutboxBacklogProvider, interval time.Duration, logger *zap.Logger) (*DomainMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Minute
	}

	m := &DomainMetrics{
		logger:   logger,
		backlog:  backlog,
		interval: interval,
		stop:     make(chan struct{}),
	}

	var err error
	if m.campaignTransitions, err = NewCounter(meter, "cnec_campaign_transitions_total", "Campaign status transitions", "{transitions}"); err != nil {
		return nil, err
	}
	if m.notifications, err = NewCounter(meter, "cnec_notifications_total", "Notification channel attempts by outcome", "{messages}"); err != nil {
		return nil, err
	}
	if m.pointsCredited, err = NewCounter(meter, "cnec_points_credited_total", "Points added to or removed from company balances", "{points}"); err != nil {
		return nil, err
	}
	if m.batchItems, err = NewCounter(meter, "cnec_batch_items_total", "Batch job items by outcome", "{items}"); err != nil {
		return nil, err
	}
	if m.outboxBacklog, err = NewGauge(meter, "cnec_outbox_entries", "Outbox entries per store and status", "{entries}"); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordCampaignTransition counts a campaign reaching status in region
func (m *DomainMetrics) RecordCampaignTransition(ctx context.Context, region, status string) {
	if m == nil {
		return
	}
	m.campaignTransitions.Inc(ctx, AttrRegion.String(region), AttrStatus.String(status))
}

// RecordNotification counts one channel attempt. outcome is sent, failed or
// skipped.
func (m *DomainMetrics) RecordNotification(ctx context.Context, channel, outcome string) {
	if m == nil {
		return
	}
	m.notifications.Inc(ctx, AttrChannel.String(channel), AttrOutcome.String(outcome))
}

// RecordPoints counts a ledger movement of amount points
func (m *DomainMetrics) RecordPoints(ctx context.Context, txType string, amount int64) {
	if m == nil {
		return
	}
	m.pointsCredited.Add(ctx, amount, AttrTxType.String(txType))
}

// RecordBatch counts the outcome of one batch job run
func (m *DomainMetrics) RecordBatch(ctx context.Context, job string, succeeded, skipped, failed int) {
	if m == nil {
		return
	}
	m.batchItems.Add(ctx, int64(succeeded), AttrJob.String(job), AttrOutcome.String("succeeded"))
	m.batchItems.Add(ctx, int64(skipped), AttrJob.String(job), AttrOutcome.String("skipped"))
	m.batchItems.Add(ctx, int64(failed), AttrJob.String(job), AttrOutcome.String("failed"))
}

// Start begins periodic outbox backlog collection
func (m *DomainMetrics) Start(ctx context.Context) {
	if m == nil || m.backlog == nil {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		m.CollectBacklog(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stop:
				return
			case <-ticker.C:
				m.CollectBacklog(ctx)
			}
		}
	}()
}

// Stop ends backlog collection and waits for the collector to exit
func (m *DomainMetrics) Stop() {
	if m == nil {
		return
	}
	m.stopOnce.Do(func() { close(m.stop) })
	m.wg.Wait()
}

// CollectBacklog records the outbox gauge once
func (m *DomainMetrics) CollectBacklog(ctx context.Context) {
	if m == nil || m.backlog == nil {
		return
	}
	counts, err := m.backlog.Backlog(ctx)
	if err != nil {
		m.logger.Warn("failed to collect outbox backlog", zap.Error(err))
		return
	}
	for store, byStatus := range counts {
		for status, n := range byStatus {
			m.outboxBacklog.Record(ctx, n, AttrStore.String(store), AttrStatus.String(string(status)))
		}
	}
}
