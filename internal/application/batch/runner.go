package batch

import (
	"context"
	"errors"

	"github.com/cnec/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Failure identifies an item that could not be processed
type Failure struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// Result counts the outcome of a batch run
type Result struct {
	SuccessCount int       `json:"successCount"`
	SkipCount    int       `json:"skipCount"`
	FailCount    int       `json:"failCount"`
	Failures     []Failure `json:"failures,omitempty"`
}

// Total is the number of items the run looked at
func (r Result) Total() int {
	return r.SuccessCount + r.SkipCount + r.FailCount
}

// Operation applies the batch action to one item and returns what the
// notification step needs
type Operation[T any] func(ctx context.Context, id string) (T, error)

// Notify runs after the loop, once per successful item
type Notify[T any] func(ctx context.Context, item T) error

// Runner applies an operation to many items. Items are processed one after
// another; only items that actually changed are notified.
type Runner[T any] struct {
	job      string
	isSkip   func(error) bool
	executor *Executor[T]
	metrics  *telemetry.DomainMetrics
	logger   *zap.Logger
}

// RunnerOption configures a Runner
type RunnerOption[T any] func(*Runner[T])

// WithSkip sets the predicate that classifies an operation error as a skip
func WithSkip[T any](isSkip func(error) bool) RunnerOption[T] {
	return func(r *Runner[T]) {
		r.isSkip = isSkip
	}
}

// WithMetrics records run counts
func WithMetrics[T any](m *telemetry.DomainMetrics) RunnerOption[T] {
	return func(r *Runner[T]) {
		r.metrics = m
	}
}

// NewRunner creates a runner named job. Notifications go through executor.
func NewRunner[T any](job string, executor *Executor[T], logger *zap.Logger, opts ...RunnerOption[T]) *Runner[T] {
	r := &Runner[T]{
		job:      job,
		isSkip:   func(error) bool { return false },
		executor: executor,
		logger:   logger.With(zap.String("job", job)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run applies op to each id in order, then calls notify for the items op
// succeeded on. Notify failures are logged and do not change the counts.
// A nil notify skips the notification step.
func (r *Runner[T]) Run(ctx context.Context, ids []string, op Operation[T], notify Notify[T]) Result {
	var (
		res       Result
		succeeded []T
	)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			res.FailCount++
			res.Failures = append(res.Failures, Failure{ID: id, Reason: err.Error()})
			continue
		}

		item, err := op(ctx, id)
		switch {
		case err == nil:
			res.SuccessCount++
			succeeded = append(succeeded, item)
		case r.isSkip(err):
			res.SkipCount++
		default:
			res.FailCount++
			res.Failures = append(res.Failures, Failure{ID: id, Reason: err.Error()})
			r.logger.Warn("batch item failed", zap.String("id", id), zap.Error(err))
		}
	}

	if notify != nil && len(succeeded) > 0 {
		if err := r.executor.Execute(ctx, succeeded, notify); err != nil {
			r.logger.Warn("batch notifications failed",
				zap.Int("notified", len(succeeded)),
				zap.Int("errors", countJoined(err)),
				zap.Error(err),
			)
		}
	}

	r.metrics.RecordBatch(ctx, r.job, res.SuccessCount, res.SkipCount, res.FailCount)
	r.logger.Info("batch run finished",
		zap.Int("success", res.SuccessCount),
		zap.Int("skip", res.SkipCount),
		zap.Int("fail", res.FailCount),
	)
	return res
}

func countJoined(err error) int {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return len(j.Unwrap())
	}
	if err != nil {
		return 1
	}
	return 0
}

// IsSkip matches errors wrapping target as skips
func IsSkip(target error) func(error) bool {
	return func(err error) bool {
		return errors.Is(err, target)
	}
}
