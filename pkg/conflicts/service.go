package conflicts

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/freightly/manifest/pkg/models"
	"github.com/freightly/manifest/pkg/tracing"
)

// Service applies the conflict recompute rules for each load mutation. It is
// the single entry point the handlers and the document processor call after
// changing a load. Recompute failures are logged, never surfaced, so a flaky
// flag write cannot fail the mutation that triggered it.
type Service struct {
	driverEngine    *DriverEngine
	duplicateEngine *DuplicateEngine
	dateEngine      *DateConflictEngine
	logger          ectologger.Logger
}

// NewService creates a new conflict service
func NewService(driverEngine *DriverEngine, duplicateEngine *DuplicateEngine, dateEngine *DateConflictEngine, logger ectologger.Logger) *Service {
	return &Service{
		driverEngine:    driverEngine,
		duplicateEngine: duplicateEngine,
		dateEngine:      dateEngine,
		logger:          logger,
	}
}

// OnLoadCreated recomputes conflict state after a new load is persisted
func (s *Service) OnLoadCreated(ctx context.Context, load *models.Load) {
	ctx, span := tracing.StartSpan(ctx, "conflicts.Service.OnLoadCreated")
	defer span.End()

	s.recomputeAround(ctx, load)
	s.recomputeDates(ctx, load.TenantID)
}

// OnLoadUpdated recomputes conflict state after a load changes. The previous
// snapshot determines which old groups also need a recompute: a reassigned
// driver leaves stale flags behind on the former driver's loads, and a
// changed carrier or load number leaves stale duplicate flags on the former
// group.
func (s *Service) OnLoadUpdated(ctx context.Context, before, after *models.Load) {
	ctx, span := tracing.StartSpan(ctx, "conflicts.Service.OnLoadUpdated")
	defer span.End()

	s.recomputeAround(ctx, after)

	if before.DriverID != nil && (after.DriverID == nil || *before.DriverID != *after.DriverID) {
		if err := s.driverEngine.RecalculateForDriver(ctx, after.TenantID, *before.DriverID); err != nil {
			s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"driver_id": *before.DriverID}).Error("Failed to recompute former driver conflicts")
		}
	}

	if before.CarrierID != nil && NormalizeLoadNumber(before.LoadNumber) != "" {
		carrierChanged := after.CarrierID == nil || *before.CarrierID != *after.CarrierID
		numberChanged := NormalizeLoadNumber(before.LoadNumber) != NormalizeLoadNumber(after.LoadNumber)
		if carrierChanged || numberChanged {
			if err := s.duplicateEngine.RecalculateForLoadNumber(ctx, after.TenantID, *before.CarrierID, *before.LoadNumber); err != nil {
				s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"carrier_id": *before.CarrierID}).Error("Failed to recompute former duplicate group")
			}
		}
	}

	s.recomputeDates(ctx, after.TenantID)
}

// OnLoadCancelled clears the load's own conflicts, strips it from its peers,
// and recomputes the groups it used to belong to.
func (s *Service) OnLoadCancelled(ctx context.Context, load *models.Load) {
	ctx, span := tracing.StartSpan(ctx, "conflicts.Service.OnLoadCancelled")
	defer span.End()

	cancelled := *load
	cancelled.Cancelled = true
	s.recomputeAround(ctx, &cancelled)
	s.recomputeDates(ctx, load.TenantID)
}

// OnLoadUncancelled restores the load to conflict detection
func (s *Service) OnLoadUncancelled(ctx context.Context, load *models.Load) {
	ctx, span := tracing.StartSpan(ctx, "conflicts.Service.OnLoadUncancelled")
	defer span.End()

	restored := *load
	restored.Cancelled = false
	s.recomputeAround(ctx, &restored)
	s.recomputeDates(ctx, load.TenantID)
}

func (s *Service) recomputeAround(ctx context.Context, load *models.Load) {
	if err := s.driverEngine.CheckAndUpdateForLoad(ctx, load.TenantID, load); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"load_id": load.ID}).Error("Failed to recompute driver conflicts")
	}
	if err := s.duplicateEngine.CheckAndUpdateForLoad(ctx, load.TenantID, load); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"load_id": load.ID}).Error("Failed to recompute duplicate conflicts")
	}
}

func (s *Service) recomputeDates(ctx context.Context, tenantID string) {
	if err := s.dateEngine.RecalculateForTenant(ctx, tenantID); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to recompute date conflicts")
	}
}
