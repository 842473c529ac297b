package conflicts

import (
	"context"
	"sync"

	"github.com/Gobusters/ectologger"

	"github.com/freightly/manifest/pkg/models"
	"github.com/freightly/manifest/pkg/tracing"
)

// DefaultRefreshConcurrency bounds concurrent recomputes in a refresh batch
const DefaultRefreshConcurrency = 10

// Refresher recomputes conflict state for batches of loads, typically ahead
// of a grouped listing so the caller sees current flags. It never returns an
// error: individual recompute failures are logged and the rest of the batch
// proceeds.
type Refresher struct {
	driverEngine    *DriverEngine
	duplicateEngine *DuplicateEngine
	logger          ectologger.Logger
	concurrency     int
}

// NewRefresher creates a new conflict refresher
func NewRefresher(driverEngine *DriverEngine, duplicateEngine *DuplicateEngine, logger ectologger.Logger, concurrency int) *Refresher {
	if concurrency <= 0 {
		concurrency = DefaultRefreshConcurrency
	}
	return &Refresher{
		driverEngine:    driverEngine,
		duplicateEngine: duplicateEngine,
		logger:          logger,
		concurrency:     concurrency,
	}
}

type refreshTask struct {
	kind string
	run  func(context.Context) error
}

// RefreshBatch recomputes driver and duplicate conflicts for the given loads.
// Work is deduplicated first: one recompute per distinct driver and one per
// distinct carrier and load number pair, however many loads share them. Loads
// that can no longer conflict but still carry flags get a clear instead, so a
// dropped write during an earlier mutation cannot leave stale state behind.
func (r *Refresher) RefreshBatch(ctx context.Context, tenantID string, loads []models.Load) {
	ctx, span := tracing.StartSpan(ctx, "conflicts.Refresher.RefreshBatch")
	defer span.End()

	tasks := r.collectTasks(tenantID, loads)
	if len(tasks) == 0 {
		return
	}

	concurrency := r.concurrency
	if concurrency > len(tasks) {
		concurrency = len(tasks)
	}

	taskChan := make(chan refreshTask, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range taskChan {
				if err := task.run(ctx); err != nil {
					r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"task": task.kind}).Error("Conflict refresh task failed")
				}
			}
		}()
	}

	for _, task := range tasks {
		taskChan <- task
	}
	close(taskChan)
	wg.Wait()
}

func (r *Refresher) collectTasks(tenantID string, loads []models.Load) []refreshTask {
	var tasks []refreshTask

	seenDrivers := make(map[string]bool)
	seenLoadNumbers := make(map[string]bool)

	for i := range loads {
		load := loads[i]

		if !load.Cancelled && load.DriverID != nil && load.HasDates() {
			driverID := *load.DriverID
			if !seenDrivers[driverID] {
				seenDrivers[driverID] = true
				tasks = append(tasks, refreshTask{
					kind: "driver",
					run: func(ctx context.Context) error {
						return r.driverEngine.RecalculateForDriver(ctx, tenantID, driverID)
					},
				})
			}
		} else if load.DriverConflict || len(load.DriverConflictIDs) > 0 {
			stale := load
			tasks = append(tasks, refreshTask{
				kind: "driver_clear",
				run: func(ctx context.Context) error {
					return r.driverEngine.CheckAndUpdateForLoad(ctx, tenantID, &stale)
				},
			})
		}

		if !load.Cancelled && load.CarrierID != nil && NormalizeLoadNumber(load.LoadNumber) != "" {
			carrierID := *load.CarrierID
			loadNumber := *load.LoadNumber
			key := carrierID + "|" + NormalizeLoadNumber(load.LoadNumber)
			if !seenLoadNumbers[key] {
				seenLoadNumbers[key] = true
				tasks = append(tasks, refreshTask{
					kind: "duplicate",
					run: func(ctx context.Context) error {
						return r.duplicateEngine.RecalculateForLoadNumber(ctx, tenantID, carrierID, loadNumber)
					},
				})
			}
		} else if load.DuplicateConflict || len(load.DuplicateConflictIDs) > 0 {
			stale := load
			tasks = append(tasks, refreshTask{
				kind: "duplicate_clear",
				run: func(ctx context.Context) error {
					return r.duplicateEngine.CheckAndUpdateForLoad(ctx, tenantID, &stale)
				},
			})
		}
	}

	return tasks
}
