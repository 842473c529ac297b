package invoice

import (
	"context"
	"fmt"
	"net/http"
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

var invoiceColumns = []string{
	"id", "tenant_id", "carrier_id", "invoice_number", "invoice_monday", "invoice_week_id",
	"load_ids", "total_amount", "invoice_date", "due_date", "status", "created_at", "updated_at",
}

// Repository handles invoice persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new invoice repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new invoice
func (r *Repository) Create(ctx context.Context, invoice *models.Invoice) (*models.Invoice, error) {
	ctx, span := tracing.StartSpan(ctx, "invoice.Repository.Create")
	defer span.End()

	if invoice.ID == "" {
		invoice.ID = uuid.New().String()
	}
	invoice.CreatedAt = time.Now().UTC()
	invoice.UpdatedAt = invoice.CreatedAt
	if invoice.Status == "" {
		invoice.Status = models.InvoiceStatusDraft
	}
	if invoice.LoadIDs == nil {
		invoice.LoadIDs = pq.StringArray{}
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("invoices")
	sb.Cols(invoiceColumns...)
	sb.Values(
		invoice.ID, invoice.TenantID, invoice.CarrierID, invoice.InvoiceNumber, invoice.InvoiceMonday, invoice.InvoiceWeekID,
		invoice.LoadIDs, invoice.TotalAmount, invoice.InvoiceDate, invoice.DueDate, invoice.Status, invoice.CreatedAt, invoice.UpdatedAt,
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"invoice_id": invoice.ID}).Error("Failed to create invoice")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create invoice")
	}

	return invoice, nil
}

// Get retrieves an invoice by ID
func (r *Repository) Get(ctx context.Context, tenantID string, id string) (*models.Invoice, error) {
	ctx, span := tracing.StartSpan(ctx, "invoice.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(invoiceColumns...)
	sb.From("invoices")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	var invoice models.Invoice
	if err := r.db.GetContext(ctx, &invoice, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("invoice %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get invoice")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get invoice")
	}

	return &invoice, nil
}

// List retrieves invoices with optional carrier filter and pagination
func (r *Repository) List(ctx context.Context, tenantID string, carrierID *string, page, pageSize int) ([]models.Invoice, int, error) {
	ctx, span := tracing.StartSpan(ctx, "invoice.Repository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 100
	}

	where := func(sb *sqlbuilder.SelectBuilder) {
		conds := []string{sb.Equal("tenant_id", tenantID)}
		if carrierID != nil {
			conds = append(conds, sb.Equal("carrier_id", *carrierID))
		}
		sb.Where(conds...)
	}

	countSb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From("invoices")
	where(countSb)

	query, args := countSb.Build()
	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count invoices")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list invoices")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(invoiceColumns...)
	sb.From("invoices")
	where(sb)
	sb.OrderBy("invoice_monday DESC", "invoice_number DESC")
	sb.Limit(pageSize)
	sb.Offset((page - 1) * pageSize)

	query, args = sb.Build()
	var invoices []models.Invoice
	if err := r.db.SelectContext(ctx, &invoices, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list invoices")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list invoices")
	}

	return invoices, total, nil
}

// UpdateStatus updates the status of an invoice
func (r *Repository) UpdateStatus(ctx context.Context, tenantID string, id string, status string) error {
	ctx, span := tracing.StartSpan(ctx, "invoice.Repository.UpdateStatus")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("invoices")
	sb.Set(
		sb.Assign("status", status),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"invoice_id": id}).Error("Failed to update invoice status")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update invoice status")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("invoice %s not found", id))
	}

	return nil
}

// NextInvoiceNumbers reserves a contiguous block of invoice numbers for a
// tenant. The upsert locks the sequence row so concurrent generations never
// hand out the same number twice.
func (r *Repository) NextInvoiceNumbers(ctx context.Context, tenantID string, count int) ([]int64, error) {
	ctx, span := tracing.StartSpan(ctx, "invoice.Repository.NextInvoiceNumbers")
	defer span.End()

	if count < 1 {
		return nil, nil
	}

	query := `
		INSERT INTO invoice_sequences (tenant_id, next_number)
		VALUES ($1, $2 + 1)
		ON CONFLICT (tenant_id)
		DO UPDATE SET next_number = invoice_sequences.next_number + $2
		RETURNING next_number
	`

	var nextNumber int64
	if err := r.db.GetContext(ctx, &nextNumber, query, tenantID, count); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to reserve invoice numbers")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to reserve invoice numbers")
	}

	numbers := make([]int64, count)
	for i := range numbers {
		numbers[i] = nextNumber - int64(count) + int64(i)
	}
	return numbers, nil
}
