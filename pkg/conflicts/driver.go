// Package conflicts implements the scheduling and duplicate detection engines
// that keep conflict flags on loads current as assignments change.
package conflicts

import (
	"context"
	"sort"
	"sync"

	"github.com/Gobusters/ectologger"

	"github.com/freightly/manifest/pkg/dates"
	"github.com/freightly/manifest/pkg/models"
	"github.com/freightly/manifest/pkg/tracing"
)

// DefaultWriteConcurrency bounds the per-load conflict writes during a recompute
const DefaultWriteConcurrency = 8

// DriverEngine detects double-booked drivers. Two loads conflict when they
// share a driver and their date intervals overlap, pickup inclusive and
// delivery exclusive.
type DriverEngine struct {
	store            LoadStore
	logger           ectologger.Logger
	writeConcurrency int
}

// NewDriverEngine creates a new driver conflict engine
func NewDriverEngine(store LoadStore, logger ectologger.Logger, writeConcurrency int) *DriverEngine {
	if writeConcurrency <= 0 {
		writeConcurrency = DefaultWriteConcurrency
	}
	return &DriverEngine{
		store:            store,
		logger:           logger,
		writeConcurrency: writeConcurrency,
	}
}

// RecalculateForDriver rebuilds the driver conflict state of every active
// load assigned to the driver. Stored conflict lists are replaced outright,
// so flags from prior assignments never linger.
func (e *DriverEngine) RecalculateForDriver(ctx context.Context, tenantID string, driverID string) error {
	ctx, span := tracing.StartSpan(ctx, "conflicts.DriverEngine.RecalculateForDriver")
	defer span.End()

	loads, err := e.store.ListActiveByDriver(ctx, tenantID, driverID)
	if err != nil {
		return err
	}

	conflictsByLoad := computeDriverConflicts(loads)

	writeAll(ctx, e.logger, e.writeConcurrency, loads, func(ctx context.Context, load models.Load) error {
		return e.store.UpdateDriverConflicts(ctx, tenantID, load.ID, conflictsByLoad[load.ID])
	})

	return nil
}

// CheckAndUpdateForLoad recomputes driver conflicts around a single load.
// A load with no driver or missing dates cannot conflict, so its own state
// is cleared and it is dropped from the lists of its former peers.
func (e *DriverEngine) CheckAndUpdateForLoad(ctx context.Context, tenantID string, load *models.Load) error {
	ctx, span := tracing.StartSpan(ctx, "conflicts.DriverEngine.CheckAndUpdateForLoad")
	defer span.End()

	if load.DriverID == nil || !load.HasDates() || load.Cancelled {
		if err := e.store.UpdateDriverConflicts(ctx, tenantID, load.ID, nil); err != nil {
			return err
		}
		return e.store.RemoveFromConflictLists(ctx, tenantID, load.ID)
	}

	return e.RecalculateForDriver(ctx, tenantID, *load.DriverID)
}

// computeDriverConflicts returns, for each load id, the sorted ids of the
// other loads whose intervals overlap it. Loads never conflict with
// themselves.
func computeDriverConflicts(loads []models.Load) map[string][]string {
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
			if dates.Overlaps(*a.PickupDate, *a.DeliveryDate, *b.PickupDate, *b.DeliveryDate) {
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

// writeAll fans the per-load conflict writes across a bounded worker pool.
// Write failures are logged and skipped so one bad row never wedges the rest
// of the recompute.
func writeAll(ctx context.Context, logger ectologger.Logger, concurrency int, loads []models.Load, write func(context.Context, models.Load) error) {
	if len(loads) == 0 {
		return
	}
	if concurrency > len(loads) {
		concurrency = len(loads)
	}

	loadChan := make(chan models.Load, len(loads))

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for load := range loadChan {
				if err := write(ctx, load); err != nil {
					logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"load_id": load.ID}).Error("Failed to write conflict state")
				}
			}
		}()
	}

	for _, load := range loads {
		loadChan <- load
	}
	close(loadChan)
	wg.Wait()
}
