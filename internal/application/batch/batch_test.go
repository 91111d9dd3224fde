package batch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cnec/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errAlready = errors.New("already in state")

func TestRunner_CountsAndNotifiesOnlySuccesses(t *testing.T) {
	runner := NewRunner("bulk-approve",
		NewExecutor[string](config.BatchConfig{Size: 10}),
		zap.NewNop(),
		WithSkip[string](IsSkip(errAlready)),
	)

	op := func(_ context.Context, id string) (string, error) {
		switch id {
		case "ok":
			return "notified-" + id, nil
		case "skip":
			return "", errAlready
		default:
			return "", errors.New("cannot move campaign from completed to active")
		}
	}

	var mu sync.Mutex
	var notified []string
	notify := func(_ context.Context, item string) error {
		mu.Lock()
		defer mu.Unlock()
		notified = append(notified, item)
		return nil
	}

	res := runner.Run(context.Background(), []string{"ok", "skip", "bad"}, op, notify)

	assert.Equal(t, 1, res.SuccessCount)
	assert.Equal(t, 1, res.SkipCount)
	assert.Equal(t, 1, res.FailCount)
	assert.Equal(t, 3, res.Total())
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "bad", res.Failures[0].ID)
	assert.Contains(t, res.Failures[0].Reason, "cannot move campaign")
	assert.Equal(t, []string{"notified-ok"}, notified)
}

func TestRunner_NotifyFailureDoesNotChangeCounts(t *testing.T) {
	runner := NewRunner("bulk-approve", NewExecutor[string](config.BatchConfig{Size: 2}), zap.NewNop())

	op := func(_ context.Context, id string) (string, error) { return id, nil }
	notify := func(context.Context, string) error { return errors.New("im down") }

	res := runner.Run(context.Background(), []string{"a", "b", "c"}, op, notify)
	assert.Equal(t, 3, res.SuccessCount)
	assert.Zero(t, res.FailCount)
	assert.Empty(t, res.Failures)
}

func TestRunner_OperationsRunInOrder(t *testing.T) {
	runner := NewRunner("ordered", NewExecutor[string](config.BatchConfig{}), zap.NewNop())

	var seen []string
	op := func(_ context.Context, id string) (string, error) {
		seen = append(seen, id)
		return id, nil
	}
	runner.Run(context.Background(), []string{"1", "2", "3", "4"}, op, nil)
	assert.Equal(t, []string{"1", "2", "3", "4"}, seen)
}

func TestRunner_CancelledContextFailsRemainingItems(t *testing.T) {
	runner := NewRunner("cancel", NewExecutor[string](config.BatchConfig{}), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	op := func(_ context.Context, id string) (string, error) {
		if id == "first" {
			cancel()
		}
		return id, nil
	}
	res := runner.Run(ctx, []string{"first", "second", "third"}, op, nil)
	assert.Equal(t, 1, res.SuccessCount)
	assert.Equal(t, 2, res.FailCount)
	assert.Equal(t, context.Canceled.Error(), res.Failures[0].Reason)
}

func TestNewExecutor_Defaults(t *testing.T) {
	e := NewExecutor[int](config.BatchConfig{Size: 0, InterBatchDelay: -time.Second})
	assert.Equal(t, DefaultBatchSize, e.BatchSize())
	assert.Zero(t, e.interBatchDelay)
	assert.Equal(t, DefaultConcurrency, e.concurrency)
}

func TestExecutor_ProcessesEveryItemAndJoinsErrors(t *testing.T) {
	e := NewExecutor[int](config.BatchConfig{Size: 3, Concurrency: 2})

	var calls atomic.Int32
	err := e.Execute(context.Background(), []int{1, 2, 3, 4, 5, 6, 7}, func(_ context.Context, n int) error {
		calls.Add(1)
		if n%3 == 0 {
			return errors.New("failed")
		}
		return nil
	})

	assert.Equal(t, int32(7), calls.Load())
	require.Error(t, err)
	assert.Equal(t, 2, countJoined(err))
}

func TestExecutor_BoundsConcurrency(t *testing.T) {
	e := NewExecutor[int](config.BatchConfig{Size: 10, Concurrency: 2})

	var running, peak atomic.Int32
	err := e.Execute(context.Background(), make([]int, 10), func(context.Context, int) error {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		return nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestExecutor_DelaysBetweenChunks(t *testing.T) {
	e := NewExecutor[int](config.BatchConfig{Size: 2, InterBatchDelay: 20 * time.Millisecond})

	start := time.Now()
	require.NoError(t, e.Execute(context.Background(), []int{1, 2, 3, 4, 5}, func(context.Context, int) error { return nil }))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond, "three chunks, two pauses")
}

func TestExecutor_StopsOnCancel(t *testing.T) {
	e := NewExecutor[int](config.BatchConfig{Size: 1, InterBatchDelay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- e.Execute(ctx, []int{1, 2, 3}, func(context.Context, int) error {
			calls.Add(1)
			return nil
		})
	}()

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("executor did not stop on cancel")
	}
	assert.Equal(t, int32(1), calls.Load())
}
