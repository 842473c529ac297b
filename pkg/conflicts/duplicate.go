package conflicts

import (
	"context"
	"sort"
	"strings"

	"github.com/Gobusters/ectologger"

	"github.com/freightly/manifest/pkg/models"
	"github.com/freightly/manifest/pkg/tracing"
)

// DuplicateEngine detects repeated load numbers within a carrier. Matching
// is trimmed and case-insensitive, so "A100" and " a100 " collide.
type DuplicateEngine struct {
	store            LoadStore
	logger           ectologger.Logger
	writeConcurrency int
}

// NewDuplicateEngine creates a new duplicate detection engine
func NewDuplicateEngine(store LoadStore, logger ectologger.Logger, writeConcurrency int) *DuplicateEngine {
	if writeConcurrency <= 0 {
		writeConcurrency = DefaultWriteConcurrency
	}
	return &DuplicateEngine{
		store:            store,
		logger:           logger,
		writeConcurrency: writeConcurrency,
	}
}

// NormalizeLoadNumber maps a raw load number to its comparison key. Returns
// empty for numbers that cannot be compared.
func NormalizeLoadNumber(loadNumber *string) string {
	if loadNumber == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(*loadNumber))
}

// RecalculateForLoadNumber rebuilds the duplicate state of every active load
// sharing the given carrier and normalized load number. With one survivor the
// group is no longer a duplicate and each member is cleared.
func (e *DuplicateEngine) RecalculateForLoadNumber(ctx context.Context, tenantID string, carrierID string, loadNumber string) error {
	ctx, span := tracing.StartSpan(ctx, "conflicts.DuplicateEngine.RecalculateForLoadNumber")
	defer span.End()

	if strings.TrimSpace(loadNumber) == "" {
		return nil
	}

	loads, err := e.store.ListActiveByCarrierAndLoadNumber(ctx, tenantID, carrierID, loadNumber)
	if err != nil {
		return err
	}

	conflictsByLoad := computeDuplicateConflicts(loads)

	writeAll(ctx, e.logger, e.writeConcurrency, loads, func(ctx context.Context, load models.Load) error {
		return e.store.UpdateDuplicateConflicts(ctx, tenantID, load.ID, conflictsByLoad[load.ID])
	})

	return nil
}

// CheckAndUpdateForLoad recomputes duplicate state around a single load. A
// load without a carrier or a usable load number cannot be a duplicate.
func (e *DuplicateEngine) CheckAndUpdateForLoad(ctx context.Context, tenantID string, load *models.Load) error {
	ctx, span := tracing.StartSpan(ctx, "conflicts.DuplicateEngine.CheckAndUpdateForLoad")
	defer span.End()

	if load.CarrierID == nil || NormalizeLoadNumber(load.LoadNumber) == "" || load.Cancelled {
		return e.store.UpdateDuplicateConflicts(ctx, tenantID, load.ID, nil)
	}

	return e.RecalculateForLoadNumber(ctx, tenantID, *load.CarrierID, *load.LoadNumber)
}

func computeDuplicateConflicts(loads []models.Load) map[string][]string {
	result := make(map[string][]string, len(loads))
	if len(loads) < 2 {
		for _, l := range loads {
			result[l.ID] = nil
		}
		return result
	}

	for _, l := range loads {
		others := make([]string, 0, len(loads)-1)
		for _, other := range loads {
			if other.ID != l.ID {
				others = append(others, other.ID)
			}
		}
		sort.Strings(others)
		result[l.ID] = others
	}
	return result
}
