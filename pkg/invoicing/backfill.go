package invoicing

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/freightly/manifest/pkg/models"
	"github.com/freightly/manifest/pkg/tracing"
)

// BackfillStore is the slice of load persistence the backfill needs
type BackfillStore interface {
	ListWithDates(ctx context.Context, tenantID string) ([]models.Load, error)
	SetInvoiceWeek(ctx context.Context, tenantID string, id string, invoiceMonday *time.Time, invoiceWeekID *string) error
}

// Backfiller recomputes invoice week assignments across a tenant. The pass
// is idempotent, running it twice writes nothing the second time.
type Backfiller struct {
	store  BackfillStore
	logger ectologger.Logger
}

// NewBackfiller creates a new invoice week backfiller
func NewBackfiller(store BackfillStore, logger ectologger.Logger) *Backfiller {
	return &Backfiller{
		store:  store,
		logger: logger,
	}
}

// Run recomputes the invoice week of every load with both dates. Loads whose
// stored assignment already matches are skipped. With dryRun set the counters
// report what would change without writing anything.
func (b *Backfiller) Run(ctx context.Context, tenantID string, dryRun bool) (*models.BackfillResult, error) {
	ctx, span := tracing.StartSpan(ctx, "invoicing.Backfiller.Run")
	defer span.End()

	loads, err := b.store.ListWithDates(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	result := &models.BackfillResult{DryRun: dryRun}

	for _, load := range loads {
		result.Scanned++

		monday, weekID := ComputeInvoiceWeek(load.PickupDate, load.DeliveryDate)
		if monday == nil || weekID == nil {
			result.Skipped++
			continue
		}

		if load.InvoiceWeekID != nil && *load.InvoiceWeekID == *weekID {
			result.Skipped++
			continue
		}

		if !dryRun {
			if err := b.store.SetInvoiceWeek(ctx, tenantID, load.ID, monday, weekID); err != nil {
				b.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"load_id": load.ID}).Error("Failed to backfill invoice week")
				result.Failed++
				continue
			}
		}
		result.Updated++
	}

	b.logger.WithContext(ctx).WithFields(map[string]any{
		"scanned": result.Scanned,
		"updated": result.Updated,
		"skipped": result.Skipped,
		"failed":  result.Failed,
		"dry_run": dryRun,
	}).Info("Invoice week backfill complete")

	return result, nil
}
