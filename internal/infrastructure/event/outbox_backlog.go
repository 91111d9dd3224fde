package event

import (
	"context"
	"errors"
	"fmt"

	"github.com/cnec/backend/internal/domain/shared"
)

// OutboxBacklog reports outbox entry counts for every store, keyed by store
// name
type OutboxBacklog map[string]shared.OutboxRepository

// Backlog counts entries by status in each store. A failing store is left
// out of the result and its error is returned alongside the others.
func (b OutboxBacklog) Backlog(ctx context.Context) (map[string]map[shared.OutboxStatus]int64, error) {
	result := make(map[string]map[shared.OutboxStatus]int64, len(b))
	var errs []error
	for store, repo := range b {
		counts, err := repo.CountByStatus(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", store, err))
			continue
		}
		result[store] = counts
	}
	return result, errors.Join(errs...)
}
