package invoicing

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/freightly/manifest/internal/repositories/carrier"
	"github.com/freightly/manifest/internal/repositories/driver"
	"github.com/freightly/manifest/internal/repositories/load"
	"github.com/freightly/manifest/pkg/conflicts"
	"github.com/freightly/manifest/pkg/dates"
	"github.com/freightly/manifest/pkg/models"
	"github.com/freightly/manifest/pkg/tracing"
)

// Importer ingests invoices extracted from legacy paperwork. The invoice and
// its loads are created already settled: loads arrive invoiced so they never
// enter invoice generation, but they do join conflict detection because a
// double-booked week in the archive is still worth surfacing.
type Importer struct {
	loadRepo    *load.Repository
	carrierRepo *carrier.Repository
	driverRepo  *driver.Repository
	invoices    InvoiceStore
	conflicts   *conflicts.Service
	logger      ectologger.Logger
}

// NewImporter creates a new legacy invoice importer
func NewImporter(
	loadRepo *load.Repository,
	carrierRepo *carrier.Repository,
	driverRepo *driver.Repository,
	invoices InvoiceStore,
	conflictService *conflicts.Service,
	logger ectologger.Logger,
) *Importer {
	return &Importer{
		loadRepo:    loadRepo,
		carrierRepo: carrierRepo,
		driverRepo:  driverRepo,
		invoices:    invoices,
		conflicts:   conflictService,
		logger:      logger,
	}
}

// Import creates the carrier, drivers, loads and invoice described by a
// legacy invoice extraction, then recomputes conflicts around the new loads.
func (i *Importer) Import(ctx context.Context, tenantID string, req models.ImportInvoiceRequest) (*models.Invoice, error) {
	ctx, span := tracing.StartSpan(ctx, "invoicing.Importer.Import")
	defer span.End()

	if len(req.Groups) == 0 {
		return nil, httperror.NewHTTPError(http.StatusUnprocessableEntity, "invoice has no driver groups")
	}

	c, err := i.resolveCarrier(ctx, tenantID, req.CarrierName)
	if err != nil {
		return nil, err
	}

	var loadIDs []string
	var total float64
	var created []*models.Load

	for _, group := range req.Groups {
		d, err := i.resolveDriver(ctx, tenantID, group.DriverName, c.ID)
		if err != nil {
			return nil, err
		}

		for _, line := range group.Lines {
			l := &models.Load{
				TenantID:     tenantID,
				LoadNumber:   line.LoadNumber,
				CarrierID:    &c.ID,
				DriverID:     &d.ID,
				Origin:       line.Origin,
				Destination:  line.Destination,
				Rate:         line.Rate,
				PickupDate:   line.PickupDate,
				DeliveryDate: line.DeliveryDate,
				Confirmed:    true,
				Invoiced:     true,
				Source:       models.LoadSourceOldInvoiceImport,
			}
			l.InvoiceMonday, l.InvoiceWeekID = ComputeInvoiceWeek(l.PickupDate, l.DeliveryDate)

			persisted, err := i.loadRepo.Create(ctx, l)
			if err != nil {
				return nil, err
			}

			loadIDs = append(loadIDs, persisted.ID)
			if line.Rate != nil {
				total += *line.Rate
			}
			created = append(created, persisted)
		}
	}

	dueDate := req.InvoiceDate.AddDate(0, 0, DefaultDueDays)
	if req.DueDate != nil {
		dueDate = *req.DueDate
	}

	monday, weekID := invoiceWeekFromLoads(created, req.InvoiceDate)

	invoice, err := i.invoices.Create(ctx, &models.Invoice{
		TenantID:      tenantID,
		CarrierID:     c.ID,
		InvoiceNumber: req.InvoiceNumber,
		InvoiceMonday: monday,
		InvoiceWeekID: weekID,
		LoadIDs:       loadIDs,
		TotalAmount:   total,
		InvoiceDate:   req.InvoiceDate,
		DueDate:       dueDate,
		Status:        models.InvoiceStatusSent,
	})
	if err != nil {
		return nil, err
	}

	for _, l := range created {
		i.conflicts.OnLoadCreated(ctx, l)
	}

	i.logger.WithContext(ctx).WithFields(map[string]any{
		"invoice_id": invoice.ID,
		"carrier_id": c.ID,
		"loads":      len(loadIDs),
	}).Info("Imported legacy invoice")

	return invoice, nil
}

func (i *Importer) resolveCarrier(ctx context.Context, tenantID string, name string) (*models.Carrier, error) {
	existing, err := i.carrierRepo.GetByName(ctx, tenantID, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	return i.carrierRepo.Create(ctx, &models.Carrier{TenantID: tenantID, Name: name})
}

func (i *Importer) resolveDriver(ctx context.Context, tenantID string, name string, carrierID string) (*models.Driver, error) {
	existing, err := i.driverRepo.GetByName(ctx, tenantID, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	return i.driverRepo.Create(ctx, &models.Driver{TenantID: tenantID, CarrierID: &carrierID, Name: name})
}

// invoiceWeekFromLoads anchors the imported invoice to the week of its first
// dated load, falling back to the invoice date when none of the lines carry
// dates.
func invoiceWeekFromLoads(created []*models.Load, invoiceDate time.Time) (time.Time, string) {
	for _, l := range created {
		if l.InvoiceMonday != nil && l.InvoiceWeekID != nil {
			return *l.InvoiceMonday, *l.InvoiceWeekID
		}
	}

	monday := dates.MondayOf(invoiceDate)
	return monday, monday.Format(WeekIDLayout)
}
