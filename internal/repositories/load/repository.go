package load

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"

	"github.com/freightly/manifest/pkg/database"
	"github.com/freightly/manifest/pkg/models"
	"github.com/freightly/manifest/pkg/tracing"
)

var loadColumns = []string{
	"id", "tenant_id", "load_number", "carrier_id", "driver_id", "origin", "destination",
	"rate", "pickup_date", "delivery_date", "cancelled", "confirmed", "invoiced",
	"driver_conflict", "driver_conflict_ids", "duplicate_conflict", "duplicate_conflict_ids",
	"date_conflict_ids", "invoice_monday", "invoice_week_id", "source", "document_name",
	"created_at", "updated_at",
}

// ListFilter narrows load list queries
type ListFilter struct {
	CarrierID     *string
	DriverID      *string
	Cancelled     *bool
	Invoiced      *bool
	Confirmed     *bool
	HasConflict   *bool
	InvoiceWeekID *string
	Page          int
	PageSize      int
}

// Repository handles load persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new load repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new load
func (r *Repository) Create(ctx context.Context, load *models.Load) (*models.Load, error) {
	ctx, span := tracing.StartSpan(ctx, "load.Repository.Create")
	defer span.End()

	if load.ID == "" {
		load.ID = uuid.New().String()
	}
	load.CreatedAt = time.Now().UTC()
	load.UpdatedAt = load.CreatedAt
	if load.Source == "" {
		load.Source = models.LoadSourceManual
	}
	if load.DriverConflictIDs == nil {
		load.DriverConflictIDs = pq.StringArray{}
	}
	if load.DuplicateConflictIDs == nil {
		load.DuplicateConflictIDs = pq.StringArray{}
	}
	if load.DateConflictIDs == nil {
		load.DateConflictIDs = pq.StringArray{}
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("loads")
	sb.Cols(loadColumns...)
	sb.Values(
		load.ID, load.TenantID, load.LoadNumber, load.CarrierID, load.DriverID, load.Origin, load.Destination,
		load.Rate, load.PickupDate, load.DeliveryDate, load.Cancelled, load.Confirmed, load.Invoiced,
		load.DriverConflict, load.DriverConflictIDs, load.DuplicateConflict, load.DuplicateConflictIDs,
		load.DateConflictIDs, load.InvoiceMonday, load.InvoiceWeekID, load.Source, load.DocumentName,
		load.CreatedAt, load.UpdatedAt,
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"load_id": load.ID}).Error("Failed to create load")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create load")
	}

	return load, nil
}

// Get retrieves a load by ID
func (r *Repository) Get(ctx context.Context, tenantID string, id string) (*models.Load, error) {
	ctx, span := tracing.StartSpan(ctx, "load.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(loadColumns...)
	sb.From("loads")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	var load models.Load
	if err := r.db.GetContext(ctx, &load, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("load %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get load")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get load")
	}

	return &load, nil
}

// GetByIDs retrieves multiple loads by ID
func (r *Repository) GetByIDs(ctx context.Context, tenantID string, ids []string) ([]models.Load, error) {
	ctx, span := tracing.StartSpan(ctx, "load.Repository.GetByIDs")
	defer span.End()

	if len(ids) == 0 {
		return nil, nil
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(loadColumns...)
	sb.From("loads")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.In("id", idsToAny(ids)...),
	)

	query, args := sb.Build()
	var loads []models.Load
	if err := r.db.SelectContext(ctx, &loads, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get loads by ids")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get loads")
	}

	return loads, nil
}

// List retrieves loads with optional filters and pagination
func (r *Repository) List(ctx context.Context, tenantID string, filter ListFilter) ([]models.Load, int, error) {
	ctx, span := tracing.StartSpan(ctx, "load.Repository.List")
	defer span.End()

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 500 {
		filter.PageSize = 100
	}

	where := func(sb *sqlbuilder.SelectBuilder) {
		conds := []string{sb.Equal("tenant_id", tenantID)}
		if filter.CarrierID != nil {
			conds = append(conds, sb.Equal("carrier_id", *filter.CarrierID))
		}
		if filter.DriverID != nil {
			conds = append(conds, sb.Equal("driver_id", *filter.DriverID))
		}
		if filter.Cancelled != nil {
			conds = append(conds, sb.Equal("cancelled", *filter.Cancelled))
		}
		if filter.Invoiced != nil {
			conds = append(conds, sb.Equal("invoiced", *filter.Invoiced))
		}
		if filter.Confirmed != nil {
			conds = append(conds, sb.Equal("confirmed", *filter.Confirmed))
		}
		if filter.HasConflict != nil {
			if *filter.HasConflict {
				conds = append(conds, "(driver_conflict = TRUE OR duplicate_conflict = TRUE)")
			} else {
				conds = append(conds, "driver_conflict = FALSE", "duplicate_conflict = FALSE")
			}
		}
		if filter.InvoiceWeekID != nil {
			conds = append(conds, sb.Equal("invoice_week_id", *filter.InvoiceWeekID))
		}
		sb.Where(conds...)
	}

	countSb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From("loads")
	where(countSb)

	query, args := countSb.Build()
	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count loads")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list loads")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(loadColumns...)
	sb.From("loads")
	where(sb)
	sb.OrderBy("pickup_date ASC NULLS LAST", "created_at ASC")
	sb.Limit(filter.PageSize)
	sb.Offset((filter.Page - 1) * filter.PageSize)

	query, args = sb.Build()
	var loads []models.Load
	if err := r.db.SelectContext(ctx, &loads, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list loads")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list loads")
	}

	return loads, total, nil
}

// ListActiveByDriver retrieves non-cancelled loads assigned to a driver.
// Loads missing either date are excluded since they cannot participate in
// schedule comparisons.
func (r *Repository) ListActiveByDriver(ctx context.Context, tenantID string, driverID string) ([]models.Load, error) {
	ctx, span := tracing.StartSpan(ctx, "load.Repository.ListActiveByDriver")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(loadColumns...)
	sb.From("loads")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("driver_id", driverID),
		sb.Equal("cancelled", false),
		sb.IsNotNull("pickup_date"),
		sb.IsNotNull("delivery_date"),
	)
	sb.OrderBy("pickup_date ASC")

	query, args := sb.Build()
	var loads []models.Load
	if err := r.db.SelectContext(ctx, &loads, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list active loads by driver")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list loads by driver")
	}

	return loads, nil
}

// ListActiveByCarrierAndLoadNumber retrieves non-cancelled loads for a
// carrier whose normalized load number matches. Matching is trimmed and
// case-insensitive so "A100" and " a100 " collide.
func (r *Repository) ListActiveByCarrierAndLoadNumber(ctx context.Context, tenantID string, carrierID string, loadNumber string) ([]models.Load, error) {
	ctx, span := tracing.StartSpan(ctx, "load.Repository.ListActiveByCarrierAndLoadNumber")
	defer span.End()

	normalized := strings.ToLower(strings.TrimSpace(loadNumber))
	if normalized == "" {
		return nil, nil
	}

	query := `
		SELECT ` + strings.Join(loadColumns, ", ") + `
		FROM loads
		WHERE tenant_id = $1
		AND carrier_id = $2
		AND cancelled = FALSE
		AND load_number IS NOT NULL
		AND LOWER(TRIM(load_number)) = $3
		ORDER BY created_at ASC
	`

	var loads []models.Load
	if err := r.db.SelectContext(ctx, &loads, query, tenantID, carrierID, normalized); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list loads by carrier and load number")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list loads by load number")
	}

	return loads, nil
}

// ListActiveWithDates retrieves all non-cancelled loads with both dates set,
// tenant wide. Used by the legacy date conflict pass.
func (r *Repository) ListActiveWithDates(ctx context.Context, tenantID string) ([]models.Load, error) {
	ctx, span := tracing.StartSpan(ctx, "load.Repository.ListActiveWithDates")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(loadColumns...)
	sb.From("loads")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("cancelled", false),
		sb.IsNotNull("pickup_date"),
		sb.IsNotNull("delivery_date"),
	)
	sb.OrderBy("pickup_date ASC")

	query, args := sb.Build()
	var loads []models.Load
	if err := r.db.SelectContext(ctx, &loads, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list active loads with dates")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list active loads")
	}

	return loads, nil
}

// ListWithDates retrieves every load with both dates set, cancelled or not.
// Used by the invoice week backfill.
func (r *Repository) ListWithDates(ctx context.Context, tenantID string) ([]models.Load, error) {
	ctx, span := tracing.StartSpan(ctx, "load.Repository.ListWithDates")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(loadColumns...)
	sb.From("loads")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.IsNotNull("pickup_date"),
		sb.IsNotNull("delivery_date"),
	)
	sb.OrderBy("created_at ASC")

	query, args := sb.Build()
	var loads []models.Load
	if err := r.db.SelectContext(ctx, &loads, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list loads with dates")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list loads with dates")
	}

	return loads, nil
}

// ListUninvoicedByCarrier retrieves non-cancelled, uninvoiced loads for a carrier
func (r *Repository) ListUninvoicedByCarrier(ctx context.Context, tenantID string, carrierID string) ([]models.Load, error) {
	ctx, span := tracing.StartSpan(ctx, "load.Repository.ListUninvoicedByCarrier")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(loadColumns...)
	sb.From("loads")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("carrier_id", carrierID),
		sb.Equal("cancelled", false),
		sb.Equal("invoiced", false),
	)
	sb.OrderBy("pickup_date ASC NULLS LAST", "created_at ASC")

	query, args := sb.Build()
	var loads []models.Load
	if err := r.db.SelectContext(ctx, &loads, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list uninvoiced loads by carrier")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list uninvoiced loads")
	}

	return loads, nil
}

// Update updates load fields and bumps updated_at
func (r *Repository) Update(ctx context.Context, load *models.Load) (*models.Load, error) {
	ctx, span := tracing.StartSpan(ctx, "load.Repository.Update")
	defer span.End()

	load.UpdatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("loads")
	sb.Set(
		sb.Assign("load_number", load.LoadNumber),
		sb.Assign("carrier_id", load.CarrierID),
		sb.Assign("driver_id", load.DriverID),
		sb.Assign("origin", load.Origin),
		sb.Assign("destination", load.Destination),
		sb.Assign("rate", load.Rate),
		sb.Assign("pickup_date", load.PickupDate),
		sb.Assign("delivery_date", load.DeliveryDate),
		sb.Assign("confirmed", load.Confirmed),
		sb.Assign("invoice_monday", load.InvoiceMonday),
		sb.Assign("invoice_week_id", load.InvoiceWeekID),
		sb.Assign("updated_at", load.UpdatedAt),
	)
	sb.Where(
		sb.Equal("id", load.ID),
		sb.Equal("tenant_id", load.TenantID),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"load_id": load.ID}).Error("Failed to update load")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update load")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("load %s not found", load.ID))
	}

	return load, nil
}

// SetCancelled sets the cancelled flag on a load
func (r *Repository) SetCancelled(ctx context.Context, tenantID string, id string, cancelled bool) error {
	ctx, span := tracing.StartSpan(ctx, "load.Repository.SetCancelled")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("loads")
	sb.Set(
		sb.Assign("cancelled", cancelled),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"load_id": id}).Error("Failed to set cancelled flag")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update load")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("load %s not found", id))
	}

	return nil
}

// SetConfirmed sets the confirmed flag on a load
func (r *Repository) SetConfirmed(ctx context.Context, tenantID string, id string, confirmed bool) error {
	ctx, span := tracing.StartSpan(ctx, "load.Repository.SetConfirmed")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("loads")
	sb.Set(
		sb.Assign("confirmed", confirmed),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"load_id": id}).Error("Failed to set confirmed flag")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update load")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("load %s not found", id))
	}

	return nil
}

// UpdateDriverConflicts replaces the driver conflict state of a load
func (r *Repository) UpdateDriverConflicts(ctx context.Context, tenantID string, id string, conflictIDs []string) error {
	ctx, span := tracing.StartSpan(ctx, "load.Repository.UpdateDriverConflicts")
	defer span.End()

	query := `
		UPDATE loads
		SET driver_conflict = $1, driver_conflict_ids = $2, updated_at = $3
		WHERE id = $4 AND tenant_id = $5
	`

	if _, err := r.db.ExecContext(ctx, query, len(conflictIDs) > 0, pq.StringArray(conflictIDs), time.Now().UTC(), id, tenantID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"load_id": id}).Error("Failed to update driver conflicts")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update driver conflicts")
	}

	return nil
}

// UpdateDuplicateConflicts replaces the duplicate conflict state of a load
func (r *Repository) UpdateDuplicateConflicts(ctx context.Context, tenantID string, id string, conflictIDs []string) error {
	ctx, span := tracing.StartSpan(ctx, "load.Repository.UpdateDuplicateConflicts")
	defer span.End()

	query := `
		UPDATE loads
		SET duplicate_conflict = $1, duplicate_conflict_ids = $2, updated_at = $3
		WHERE id = $4 AND tenant_id = $5
	`

	if _, err := r.db.ExecContext(ctx, query, len(conflictIDs) > 0, pq.StringArray(conflictIDs), time.Now().UTC(), id, tenantID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"load_id": id}).Error("Failed to update duplicate conflicts")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update duplicate conflicts")
	}

	return nil
}

// UpdateDateConflicts replaces the legacy date conflict ids of a load
func (r *Repository) UpdateDateConflicts(ctx context.Context, tenantID string, id string, conflictIDs []string) error {
	ctx, span := tracing.StartSpan(ctx, "load.Repository.UpdateDateConflicts")
	defer span.End()

	query := `
		UPDATE loads
		SET date_conflict_ids = $1, updated_at = $2
		WHERE id = $3 AND tenant_id = $4
	`

	if _, err := r.db.ExecContext(ctx, query, pq.StringArray(conflictIDs), time.Now().UTC(), id, tenantID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"load_id": id}).Error("Failed to update date conflicts")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update date conflicts")
	}

	return nil
}

// ClearConflicts empties every conflict signal on a load
func (r *Repository) ClearConflicts(ctx context.Context, tenantID string, id string) error {
	ctx, span := tracing.StartSpan(ctx, "load.Repository.ClearConflicts")
	defer span.End()

	query := `
		UPDATE loads
		SET driver_conflict = FALSE, driver_conflict_ids = '{}',
			duplicate_conflict = FALSE, duplicate_conflict_ids = '{}',
			date_conflict_ids = '{}', updated_at = $1
		WHERE id = $2 AND tenant_id = $3
	`

	if _, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id, tenantID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"load_id": id}).Error("Failed to clear conflicts")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to clear conflicts")
	}

	return nil
}

// RemoveFromConflictLists strips a load id out of every other load's conflict
// arrays, recomputing the boolean flags from what remains.
func (r *Repository) RemoveFromConflictLists(ctx context.Context, tenantID string, id string) error {
	ctx, span := tracing.StartSpan(ctx, "load.Repository.RemoveFromConflictLists")
	defer span.End()

	query := `
		UPDATE loads
		SET driver_conflict_ids = array_remove(driver_conflict_ids, $1),
			driver_conflict = (array_length(array_remove(driver_conflict_ids, $1), 1) IS NOT NULL),
			duplicate_conflict_ids = array_remove(duplicate_conflict_ids, $1),
			duplicate_conflict = (array_length(array_remove(duplicate_conflict_ids, $1), 1) IS NOT NULL),
			date_conflict_ids = array_remove(date_conflict_ids, $1),
			updated_at = $2
		WHERE tenant_id = $3
		AND ($1 = ANY(driver_conflict_ids) OR $1 = ANY(duplicate_conflict_ids) OR $1 = ANY(date_conflict_ids))
	`

	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC(), tenantID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"load_id": id}).Error("Failed to remove load from conflict lists")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to remove load from conflict lists")
	}

	return nil
}

// SetInvoiceWeek stores the computed invoice week assignment for a load
func (r *Repository) SetInvoiceWeek(ctx context.Context, tenantID string, id string, invoiceMonday *time.Time, invoiceWeekID *string) error {
	ctx, span := tracing.StartSpan(ctx, "load.Repository.SetInvoiceWeek")
	defer span.End()

	query := `
		UPDATE loads
		SET invoice_monday = $1, invoice_week_id = $2, updated_at = $3
		WHERE id = $4 AND tenant_id = $5
	`

	if _, err := r.db.ExecContext(ctx, query, invoiceMonday, invoiceWeekID, time.Now().UTC(), id, tenantID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"load_id": id}).Error("Failed to set invoice week")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to set invoice week")
	}

	return nil
}

// MarkInvoiced flags a set of loads as invoiced
func (r *Repository) MarkInvoiced(ctx context.Context, tenantID string, ids []string) error {
	ctx, span := tracing.StartSpan(ctx, "load.Repository.MarkInvoiced")
	defer span.End()

	if len(ids) == 0 {
		return nil
	}

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("loads")
	sb.Set(
		sb.Assign("invoiced", true),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.In("id", idsToAny(ids)...),
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to mark loads invoiced")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to mark loads invoiced")
	}

	return nil
}

// ListTenantIDs returns the distinct tenant ids present in the loads table.
// Used by maintenance passes that sweep every tenant.
func (r *Repository) ListTenantIDs(ctx context.Context) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "load.Repository.ListTenantIDs")
	defer span.End()

	var tenantIDs []string
	if err := r.db.SelectContext(ctx, &tenantIDs, "SELECT DISTINCT tenant_id FROM loads"); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list tenant ids")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list tenant ids")
	}

	return tenantIDs, nil
}

func idsToAny(ids []string) []any {
	result := make([]any, len(ids))
	for i, id := range ids {
		result[i] = id
	}
	return result
}
