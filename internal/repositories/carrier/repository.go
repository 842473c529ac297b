package carrier

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

	"github.com/freightly/manifest/pkg/database"
	"github.com/freightly/manifest/pkg/models"
	"github.com/freightly/manifest/pkg/tracing"
)

var carrierColumns = []string{"id", "tenant_id", "name", "mc_number", "address", "email", "created_at", "updated_at"}

// Repository handles carrier persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new carrier repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new carrier
func (r *Repository) Create(ctx context.Context, carrier *models.Carrier) (*models.Carrier, error) {
	ctx, span := tracing.StartSpan(ctx, "carrier.Repository.Create")
	defer span.End()

	if carrier.ID == "" {
		carrier.ID = uuid.New().String()
	}
	carrier.CreatedAt = time.Now().UTC()
	carrier.UpdatedAt = carrier.CreatedAt

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("carriers")
	sb.Cols(carrierColumns...)
	sb.Values(carrier.ID, carrier.TenantID, carrier.Name, carrier.MCNumber, carrier.Address, carrier.Email, carrier.CreatedAt, carrier.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"carrier_id": carrier.ID}).Error("Failed to create carrier")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create carrier")
	}

	return carrier, nil
}

// Get retrieves a carrier by ID
func (r *Repository) Get(ctx context.Context, tenantID string, id string) (*models.Carrier, error) {
	ctx, span := tracing.StartSpan(ctx, "carrier.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(carrierColumns...)
	sb.From("carriers")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	var carrier models.Carrier
	if err := r.db.GetContext(ctx, &carrier, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("carrier %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get carrier")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get carrier")
	}

	return &carrier, nil
}

// GetByName retrieves a carrier by normalized name. Returns nil without
// error when no carrier matches.
func (r *Repository) GetByName(ctx context.Context, tenantID string, name string) (*models.Carrier, error) {
	ctx, span := tracing.StartSpan(ctx, "carrier.Repository.GetByName")
	defer span.End()

	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return nil, nil
	}

	query := `
		SELECT ` + strings.Join(carrierColumns, ", ") + `
		FROM carriers
		WHERE tenant_id = $1 AND LOWER(TRIM(name)) = $2
		LIMIT 1
	`

	var carrier models.Carrier
	if err := r.db.GetContext(ctx, &carrier, query, tenantID, normalized); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get carrier by name")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get carrier by name")
	}

	return &carrier, nil
}

// List retrieves carriers with pagination
func (r *Repository) List(ctx context.Context, tenantID string, page, pageSize int) ([]models.Carrier, int, error) {
	ctx, span := tracing.StartSpan(ctx, "carrier.Repository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 100
	}

	countSb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From("carriers")
	countSb.Where(countSb.Equal("tenant_id", tenantID))

	query, args := countSb.Build()
	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count carriers")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list carriers")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(carrierColumns...)
	sb.From("carriers")
	sb.Where(sb.Equal("tenant_id", tenantID))
	sb.OrderBy("name ASC")
	sb.Limit(pageSize)
	sb.Offset((page - 1) * pageSize)

	query, args = sb.Build()
	var carriers []models.Carrier
	if err := r.db.SelectContext(ctx, &carriers, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list carriers")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list carriers")
	}

	return carriers, total, nil
}

// Update updates carrier fields
func (r *Repository) Update(ctx context.Context, carrier *models.Carrier) (*models.Carrier, error) {
	ctx, span := tracing.StartSpan(ctx, "carrier.Repository.Update")
	defer span.End()

	carrier.UpdatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("carriers")
	sb.Set(
		sb.Assign("name", carrier.Name),
		sb.Assign("mc_number", carrier.MCNumber),
		sb.Assign("address", carrier.Address),
		sb.Assign("email", carrier.Email),
		sb.Assign("updated_at", carrier.UpdatedAt),
	)
	sb.Where(
		sb.Equal("id", carrier.ID),
		sb.Equal("tenant_id", carrier.TenantID),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"carrier_id": carrier.ID}).Error("Failed to update carrier")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update carrier")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("carrier %s not found", carrier.ID))
	}

	return carrier, nil
}
