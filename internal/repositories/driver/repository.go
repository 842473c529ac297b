package driver

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

var driverColumns = []string{"id", "tenant_id", "carrier_id", "name", "phone", "created_at", "updated_at"}

// Repository handles driver persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new driver repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new driver
func (r *Repository) Create(ctx context.Context, driver *models.Driver) (*models.Driver, error) {
	ctx, span := tracing.StartSpan(ctx, "driver.Repository.Create")
	defer span.End()

	if driver.ID == "" {
		driver.ID = uuid.New().String()
	}
	driver.CreatedAt = time.Now().UTC()
	driver.UpdatedAt = driver.CreatedAt

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("drivers")
	sb.Cols(driverColumns...)
	sb.Values(driver.ID, driver.TenantID, driver.CarrierID, driver.Name, driver.Phone, driver.CreatedAt, driver.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"driver_id": driver.ID}).Error("Failed to create driver")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create driver")
	}

	return driver, nil
}

// Get retrieves a driver by ID
func (r *Repository) Get(ctx context.Context, tenantID string, id string) (*models.Driver, error) {
	ctx, span := tracing.StartSpan(ctx, "driver.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(driverColumns...)
	sb.From("drivers")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	var driver models.Driver
	if err := r.db.GetContext(ctx, &driver, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("driver %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get driver")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get driver")
	}

	return &driver, nil
}

// GetByName retrieves a driver by normalized name. Returns nil without
// error when no driver matches.
func (r *Repository) GetByName(ctx context.Context, tenantID string, name string) (*models.Driver, error) {
	ctx, span := tracing.StartSpan(ctx, "driver.Repository.GetByName")
	defer span.End()

	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return nil, nil
	}

	query := `
		SELECT ` + strings.Join(driverColumns, ", ") + `
		FROM drivers
		WHERE tenant_id = $1 AND LOWER(TRIM(name)) = $2
		LIMIT 1
	`

	var driver models.Driver
	if err := r.db.GetContext(ctx, &driver, query, tenantID, normalized); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get driver by name")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get driver by name")
	}

	return &driver, nil
}

// List retrieves drivers with pagination
func (r *Repository) List(ctx context.Context, tenantID string, page, pageSize int) ([]models.Driver, int, error) {
	ctx, span := tracing.StartSpan(ctx, "driver.Repository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 100
	}

	countSb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From("drivers")
	countSb.Where(countSb.Equal("tenant_id", tenantID))

	query, args := countSb.Build()
	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count drivers")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list drivers")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(driverColumns...)
	sb.From("drivers")
	sb.Where(sb.Equal("tenant_id", tenantID))
	sb.OrderBy("name ASC")
	sb.Limit(pageSize)
	sb.Offset((page - 1) * pageSize)

	query, args = sb.Build()
	var drivers []models.Driver
	if err := r.db.SelectContext(ctx, &drivers, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list drivers")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list drivers")
	}

	return drivers, total, nil
}

// Update updates driver fields
func (r *Repository) Update(ctx context.Context, driver *models.Driver) (*models.Driver, error) {
	ctx, span := tracing.StartSpan(ctx, "driver.Repository.Update")
	defer span.End()

	driver.UpdatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("drivers")
	sb.Set(
		sb.Assign("carrier_id", driver.CarrierID),
		sb.Assign("name", driver.Name),
		sb.Assign("phone", driver.Phone),
		sb.Assign("updated_at", driver.UpdatedAt),
	)
	sb.Where(
		sb.Equal("id", driver.ID),
		sb.Equal("tenant_id", driver.TenantID),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"driver_id": driver.ID}).Error("Failed to update driver")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update driver")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("driver %s not found", driver.ID))
	}

	return driver, nil
}
