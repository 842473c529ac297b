package conflicts

import (
	"context"
	"sort"

	"github.com/Gobusters/ectologger"

	"github.com/freightly/manifest/pkg/dates"
	"github.com/freightly/manifest/pkg/models"
	"github.com/freightly/manifest/pkg/tracing"
)

// DateConflictEngine maintains the legacy date_conflict_ids signal. Unlike
// driver conflicts it spans the whole tenant regardless of driver, uses
// inclusive interval touch, and additionally pairs loads that share a pickup
// date. It feeds reporting screens and carries no boolean flag of its own.
type DateConflictEngine struct {
	store            LoadStore
	logger           ectologger.Logger
	writeConcurrency int
}

// NewDateConflictEngine creates a new date conflict engine
func NewDateConflictEngine(store LoadStore, logger ectologger.Logger, writeConcurrency int) *DateConflictEngine {
	if writeConcurrency <= 0 {
		writeConcurrency = DefaultWriteConcurrency
	}
	return &DateConflictEngine{
		store:            store,
		logger:           logger,
		writeConcurrency: writeConcurrency,
	}
}

// RecalculateForTenant rebuilds date_conflict_ids for every active load in
// the tenant.
func (e *DateConflictEngine) RecalculateForTenant(ctx context.Context, tenantID string) error {
	ctx, span := tracing.StartSpan(ctx, "conflicts.DateConflictEngine.RecalculateForTenant")
	defer span.End()

	loads, err := e.store.ListActiveWithDates(ctx, tenantID)
	if err != nil {
		return err
	}

	conflictsByLoad := computeDateConflicts(loads)

	writeAll(ctx, e.logger, e.writeConcurrency, loads, func(ctx context.Context, load models.Load) error {
		return e.store.UpdateDateConflicts(ctx, tenantID, load.ID, conflictsByLoad[load.ID])
	})

	return nil
}

// computeDateConflicts pairs loads whose closed intervals touch or whose
// pickup dates match. The relation is symmetric and excludes self pairs.
func computeDateConflicts(loads []models.Load) map[string][]string {
	result := make(map[string][]string, len(loads))
	for _, l := range loads {
		result[l.ID] = nil
	}

	for i := 0; i < len(loads); i++ {
		a := loads[i]
		if !a.HasDates() {
			continue
		}
		for j := i + 1; j < len(loads); j++ {
			b := loads[j]
			if !b.HasDates() {
				continue
			}
			touches := dates.Touches(*a.PickupDate, *a.DeliveryDate, *b.PickupDate, *b.DeliveryDate)
			samePickup := dates.DateOnly(*a.PickupDate).Equal(dates.DateOnly(*b.PickupDate))
			if touches || samePickup {
				result[a.ID] = append(result[a.ID], b.ID)
				result[b.ID] = append(result[b.ID], a.ID)
			}
		}
	}

	for id := range result {
		sort.Strings(result[id])
	}
	return result
}
