package invoicing

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/freightly/manifest/pkg/models"
	"github.com/freightly/manifest/pkg/tracing"
)

// DefaultDueDays is the default payment window applied to generated invoices
const DefaultDueDays = 30

// LoadStore is the slice of load persistence the generator needs
type LoadStore interface {
	GetByIDs(ctx context.Context, tenantID string, ids []string) ([]models.Load, error)
	ListUninvoicedByCarrier(ctx context.Context, tenantID string, carrierID string) ([]models.Load, error)
	SetInvoiceWeek(ctx context.Context, tenantID string, id string, invoiceMonday *time.Time, invoiceWeekID *string) error
	MarkInvoiced(ctx context.Context, tenantID string, ids []string) error
}

// InvoiceStore is the slice of invoice persistence the generator needs
type InvoiceStore interface {
	Create(ctx context.Context, invoice *models.Invoice) (*models.Invoice, error)
	NextInvoiceNumbers(ctx context.Context, tenantID string, count int) ([]int64, error)
}

// GeneratorConfig controls invoice generation behavior
type GeneratorConfig struct {
	DueDays              int
	ExcludeDateConflicts bool
}

// Generator builds weekly carrier invoices. All loads on one invoice share
// the carrier and the invoice week; invoice numbers are sequential per
// tenant.
type Generator struct {
	loads    LoadStore
	invoices InvoiceStore
	logger   ectologger.Logger
	config   GeneratorConfig
}

// NewGenerator creates a new invoice generator
func NewGenerator(loads LoadStore, invoices InvoiceStore, logger ectologger.Logger, config GeneratorConfig) *Generator {
	if config.DueDays <= 0 {
		config.DueDays = DefaultDueDays
	}
	return &Generator{
		loads:    loads,
		invoices: invoices,
		logger:   logger,
		config:   config,
	}
}

// GenerateForCarrier creates one invoice per billing week from the carrier's
// eligible loads. Any load whose invoice week cannot be computed fails the
// whole request, nothing is created and the offending ids are reported back.
// Stored weeks that disagree with the dates are silently corrected before
// grouping.
func (g *Generator) GenerateForCarrier(ctx context.Context, tenantID string, req models.GenerateInvoicesRequest) ([]models.Invoice, error) {
	ctx, span := tracing.StartSpan(ctx, "invoicing.Generator.GenerateForCarrier")
	defer span.End()

	loads, err := g.eligibleLoads(ctx, tenantID, req)
	if err != nil {
		return nil, err
	}
	if len(loads) == 0 {
		return nil, httperror.NewHTTPError(http.StatusUnprocessableEntity, "no eligible loads to invoice")
	}

	byWeek, invalid := g.groupByWeek(ctx, tenantID, loads)
	if len(invalid) > 0 {
		sort.Strings(invalid)
		return nil, httperror.NewHTTPError(http.StatusUnprocessableEntity, fmt.Sprintf("loads missing a computable invoice week: %v", invalid))
	}

	weekIDs := make([]string, 0, len(byWeek))
	for weekID := range byWeek {
		weekIDs = append(weekIDs, weekID)
	}
	sort.Strings(weekIDs)

	numbers, err := g.invoices.NextInvoiceNumbers(ctx, tenantID, len(weekIDs))
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	invoices := make([]models.Invoice, 0, len(weekIDs))

	for i, weekID := range weekIDs {
		group := byWeek[weekID]

		loadIDs := make([]string, 0, len(group))
		var total float64
		for _, l := range group {
			loadIDs = append(loadIDs, l.ID)
			if l.Rate != nil {
				total += *l.Rate
			}
		}
		sort.Strings(loadIDs)

		invoice := &models.Invoice{
			TenantID:      tenantID,
			CarrierID:     req.CarrierID,
			InvoiceNumber: fmt.Sprintf("INV-%06d", numbers[i]),
			InvoiceMonday: *group[0].InvoiceMonday,
			InvoiceWeekID: weekID,
			LoadIDs:       loadIDs,
			TotalAmount:   total,
			InvoiceDate:   now,
			DueDate:       now.AddDate(0, 0, g.config.DueDays),
			Status:        models.InvoiceStatusDraft,
		}

		created, err := g.invoices.Create(ctx, invoice)
		if err != nil {
			return nil, err
		}
		if err := g.loads.MarkInvoiced(ctx, tenantID, loadIDs); err != nil {
			return nil, err
		}

		invoices = append(invoices, *created)
	}

	g.logger.WithContext(ctx).WithFields(map[string]any{
		"carrier_id": req.CarrierID,
		"invoices":   len(invoices),
	}).Info("Generated carrier invoices")

	return invoices, nil
}

// eligibleLoads resolves the loads to invoice. With an explicit subset every
// requested load must be invoiceable and the whole request fails otherwise;
// without one, ineligible loads are simply filtered out.
func (g *Generator) eligibleLoads(ctx context.Context, tenantID string, req models.GenerateInvoicesRequest) ([]models.Load, error) {
	if len(req.LoadIDs) > 0 {
		candidates, err := g.loads.GetByIDs(ctx, tenantID, req.LoadIDs)
		if err != nil {
			return nil, err
		}
		if len(candidates) != len(req.LoadIDs) {
			return nil, httperror.NewHTTPError(http.StatusUnprocessableEntity, "one or more requested loads do not exist")
		}
		for _, l := range candidates {
			if l.CarrierID == nil || *l.CarrierID != req.CarrierID {
				return nil, httperror.NewHTTPError(http.StatusUnprocessableEntity, fmt.Sprintf("load %s does not belong to carrier %s", l.ID, req.CarrierID))
			}
			if l.Cancelled || l.Invoiced || !l.Confirmed || !l.HasDates() {
				return nil, httperror.NewHTTPError(http.StatusUnprocessableEntity, fmt.Sprintf("load %s is not invoiceable", l.ID))
			}
		}
		return candidates, nil
	}

	candidates, err := g.loads.ListUninvoicedByCarrier(ctx, tenantID, req.CarrierID)
	if err != nil {
		return nil, err
	}

	eligible := make([]models.Load, 0, len(candidates))
	for _, l := range candidates {
		if !l.Confirmed || !l.HasDates() {
			continue
		}
		if g.config.ExcludeDateConflicts && len(l.DateConflictIDs) > 0 {
			continue
		}
		eligible = append(eligible, l)
	}

	return eligible, nil
}

// groupByWeek buckets loads by their computed invoice week, correcting the
// stored assignment when it drifted from the dates. Loads whose week cannot
// be computed are returned as invalid ids.
func (g *Generator) groupByWeek(ctx context.Context, tenantID string, loads []models.Load) (map[string][]models.Load, []string) {
	byWeek := make(map[string][]models.Load)
	var invalid []string

	for _, l := range loads {
		monday, weekID := ComputeInvoiceWeek(l.PickupDate, l.DeliveryDate)
		if monday == nil || weekID == nil {
			invalid = append(invalid, l.ID)
			continue
		}

		if l.InvoiceWeekID == nil || *l.InvoiceWeekID != *weekID {
			if err := g.loads.SetInvoiceWeek(ctx, tenantID, l.ID, monday, weekID); err != nil {
				g.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"load_id": l.ID}).Error("Failed to correct stale invoice week")
			}
		}

		l.InvoiceMonday = monday
		l.InvoiceWeekID = weekID
		byWeek[*weekID] = append(byWeek[*weekID], l)
	}

	return byWeek, invalid
}
