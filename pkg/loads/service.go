// Package loads is the domain service in front of load persistence. Every
// mutation funnels through here so the conflict recomputes, invoice week
// assignment, graph projection and event emission fire consistently no matter
// whether the change came from the API or the document pipeline.
package loads

import (
	"context"
	"net/http"
	"sort"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/freightly/manifest/internal/repositories/load"
	"github.com/freightly/manifest/pkg/conflicts"
	"github.com/freightly/manifest/pkg/events"
	"github.com/freightly/manifest/pkg/invoicing"
	"github.com/freightly/manifest/pkg/models"
	"github.com/freightly/manifest/pkg/tracing"
)

// GraphProjector mirrors load assignments into the dispatch network graph
type GraphProjector interface {
	UpsertLoad(ctx context.Context, load *models.Load) error
	RemoveLoad(ctx context.Context, tenantID string, loadID string) error
}

// Service coordinates load mutations and their side effects
type Service struct {
	repo      *load.Repository
	conflicts *conflicts.Service
	refresher *conflicts.Refresher
	emitter   *events.Emitter
	graph     GraphProjector
	logger    ectologger.Logger
}

// NewService creates a new load service. graph may be nil when the graph
// database is disabled.
func NewService(
	repo *load.Repository,
	conflictService *conflicts.Service,
	refresher *conflicts.Refresher,
	emitter *events.Emitter,
	graph GraphProjector,
	logger ectologger.Logger,
) *Service {
	return &Service{
		repo:      repo,
		conflicts: conflictService,
		refresher: refresher,
		emitter:   emitter,
		graph:     graph,
		logger:    logger,
	}
}

// Get retrieves a load
func (s *Service) Get(ctx context.Context, tenantID string, id string) (*models.Load, error) {
	return s.repo.Get(ctx, tenantID, id)
}

// List retrieves loads with filters. The batch's conflict flags are refreshed
// before responding; if the re-read fails the stored flags are returned as-is.
func (s *Service) List(ctx context.Context, tenantID string, filter load.ListFilter) ([]models.Load, int, error) {
	items, total, err := s.repo.List(ctx, tenantID, filter)
	if err != nil {
		return nil, 0, err
	}

	s.refresher.RefreshBatch(ctx, tenantID, items)

	refreshed, _, err := s.repo.List(ctx, tenantID, filter)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Failed to re-read loads after conflict refresh")
		return items, total, nil
	}
	return refreshed, total, nil
}

// Create persists a new load and runs the post-mutation pipeline
func (s *Service) Create(ctx context.Context, tenantID string, req models.CreateLoadRequest) (*models.Load, error) {
	ctx, span := tracing.StartSpan(ctx, "loads.Service.Create")
	defer span.End()

	l := &models.Load{
		TenantID:     tenantID,
		LoadNumber:   req.LoadNumber,
		CarrierID:    req.CarrierID,
		DriverID:     req.DriverID,
		Origin:       req.Origin,
		Destination:  req.Destination,
		Rate:         req.Rate,
		PickupDate:   req.PickupDate,
		DeliveryDate: req.DeliveryDate,
		Confirmed:    req.Confirmed,
		Source:       req.Source,
		DocumentName: req.DocumentName,
	}
	l.InvoiceMonday, l.InvoiceWeekID = invoicing.ComputeInvoiceWeek(l.PickupDate, l.DeliveryDate)

	created, err := s.repo.Create(ctx, l)
	if err != nil {
		return nil, err
	}

	s.conflicts.OnLoadCreated(ctx, created)
	s.project(ctx, created)
	s.emitter.EmitLoad(ctx, events.EventLoadCreated, created)

	return s.repo.Get(ctx, tenantID, created.ID)
}

// Update applies a partial update and runs the post-mutation pipeline
func (s *Service) Update(ctx context.Context, tenantID string, id string, req models.UpdateLoadRequest) (*models.Load, error) {
	ctx, span := tracing.StartSpan(ctx, "loads.Service.Update")
	defer span.End()

	before, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if before.Invoiced {
		return nil, httperror.NewHTTPError(http.StatusConflict, "invoiced loads cannot be modified")
	}

	after := *before
	applyPatch(&after, req)
	after.InvoiceMonday, after.InvoiceWeekID = invoicing.ComputeInvoiceWeek(after.PickupDate, after.DeliveryDate)

	if _, err := s.repo.Update(ctx, &after); err != nil {
		return nil, err
	}

	s.conflicts.OnLoadUpdated(ctx, before, &after)
	s.project(ctx, &after)
	s.emitter.EmitLoad(ctx, events.EventLoadUpdated, &after)

	return s.repo.Get(ctx, tenantID, id)
}

// ReassignDriver moves the load to another driver, or unassigns it with nil
func (s *Service) ReassignDriver(ctx context.Context, tenantID string, id string, driverID *string) (*models.Load, error) {
	ctx, span := tracing.StartSpan(ctx, "loads.Service.ReassignDriver")
	defer span.End()

	return s.Update(ctx, tenantID, id, models.UpdateLoadRequest{
		DriverID:    driverID,
		ClearDriver: driverID == nil,
	})
}

// ReassignCarrier moves the load to another carrier, or unassigns it with nil
func (s *Service) ReassignCarrier(ctx context.Context, tenantID string, id string, carrierID *string) (*models.Load, error) {
	ctx, span := tracing.StartSpan(ctx, "loads.Service.ReassignCarrier")
	defer span.End()

	return s.Update(ctx, tenantID, id, models.UpdateLoadRequest{
		CarrierID:    carrierID,
		ClearCarrier: carrierID == nil,
	})
}

// Cancel withdraws a load from scheduling and conflict detection
func (s *Service) Cancel(ctx context.Context, tenantID string, id string) (*models.Load, error) {
	ctx, span := tracing.StartSpan(ctx, "loads.Service.Cancel")
	defer span.End()

	l, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SetCancelled(ctx, tenantID, id, true); err != nil {
		return nil, err
	}
	l.Cancelled = true

	s.conflicts.OnLoadCancelled(ctx, l)
	if s.graph != nil {
		if err := s.graph.RemoveLoad(ctx, tenantID, id); err != nil {
			s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"load_id": id}).Warn("Failed to remove load from graph")
		}
	}
	s.emitter.EmitLoad(ctx, events.EventLoadCancelled, l)

	return s.repo.Get(ctx, tenantID, id)
}

// Uncancel restores a cancelled load to scheduling and conflict detection
func (s *Service) Uncancel(ctx context.Context, tenantID string, id string) (*models.Load, error) {
	ctx, span := tracing.StartSpan(ctx, "loads.Service.Uncancel")
	defer span.End()

	l, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SetCancelled(ctx, tenantID, id, false); err != nil {
		return nil, err
	}
	l.Cancelled = false

	s.conflicts.OnLoadUncancelled(ctx, l)
	s.project(ctx, l)
	s.emitter.EmitLoad(ctx, events.EventLoadUpdated, l)

	return s.repo.Get(ctx, tenantID, id)
}

// Confirm sets the confirmed flag. Confirmation does not affect conflict
// state, only invoice eligibility.
func (s *Service) Confirm(ctx context.Context, tenantID string, id string, confirmed bool) (*models.Load, error) {
	ctx, span := tracing.StartSpan(ctx, "loads.Service.Confirm")
	defer span.End()

	if err := s.repo.SetConfirmed(ctx, tenantID, id, confirmed); err != nil {
		return nil, err
	}

	l, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	s.emitter.EmitLoad(ctx, events.EventLoadUpdated, l)
	return l, nil
}

// ListGrouped returns non-cancelled loads bucketed by carrier and invoice
// week, the shape the invoice preview screen renders. Conflict state is
// refreshed first so the screen never shows stale flags.
func (s *Service) ListGrouped(ctx context.Context, tenantID string) ([]models.LoadWeekGroup, error) {
	ctx, span := tracing.StartSpan(ctx, "loads.Service.ListGrouped")
	defer span.End()

	cancelled := false
	all, _, err := s.repo.List(ctx, tenantID, load.ListFilter{Cancelled: &cancelled, PageSize: 500})
	if err != nil {
		return nil, err
	}

	s.refresher.RefreshBatch(ctx, tenantID, all)

	refreshed, _, err := s.repo.List(ctx, tenantID, load.ListFilter{Cancelled: &cancelled, PageSize: 500})
	if err != nil {
		return nil, err
	}

	return groupByCarrierAndWeek(refreshed), nil
}

func (s *Service) project(ctx context.Context, l *models.Load) {
	if s.graph == nil {
		return
	}
	if err := s.graph.UpsertLoad(ctx, l); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"load_id": l.ID}).Warn("Failed to project load to graph")
	}
}

func applyPatch(l *models.Load, req models.UpdateLoadRequest) {
	if req.LoadNumber != nil {
		l.LoadNumber = req.LoadNumber
	}
	if req.CarrierID != nil {
		l.CarrierID = req.CarrierID
	}
	if req.ClearCarrier {
		l.CarrierID = nil
	}
	if req.DriverID != nil {
		l.DriverID = req.DriverID
	}
	if req.ClearDriver {
		l.DriverID = nil
	}
	if req.Origin != nil {
		l.Origin = req.Origin
	}
	if req.Destination != nil {
		l.Destination = req.Destination
	}
	if req.Rate != nil {
		l.Rate = req.Rate
	}
	if req.PickupDate != nil {
		l.PickupDate = req.PickupDate
	}
	if req.DeliveryDate != nil {
		l.DeliveryDate = req.DeliveryDate
	}
	if req.Confirmed != nil {
		l.Confirmed = *req.Confirmed
	}
}

// groupByCarrierAndWeek buckets loads by carrier then week id. Loads without
// a carrier or week land in empty-keyed buckets, which sort first.
func groupByCarrierAndWeek(all []models.Load) []models.LoadWeekGroup {
	type key struct {
		carrierID string
		weekID    string
	}

	buckets := make(map[key][]models.Load)
	for _, l := range all {
		k := key{}
		if l.CarrierID != nil {
			k.carrierID = *l.CarrierID
		}
		if l.InvoiceWeekID != nil {
			k.weekID = *l.InvoiceWeekID
		}
		buckets[k] = append(buckets[k], l)
	}

	keys := make([]key, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].carrierID != keys[j].carrierID {
			return keys[i].carrierID < keys[j].carrierID
		}
		return keys[i].weekID < keys[j].weekID
	})

	groups := make([]models.LoadWeekGroup, 0, len(keys))
	for _, k := range keys {
		groups = append(groups, models.LoadWeekGroup{
			CarrierID:     k.carrierID,
			InvoiceWeekID: k.weekID,
			Loads:         buckets[k],
		})
	}
	return groups
}
