package load

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	loadrepo "github.com/freightly/manifest/internal/repositories/load"
	ctxmiddleware "github.com/freightly/manifest/pkg/context"
	"github.com/freightly/manifest/pkg/invoicing"
	"github.com/freightly/manifest/pkg/loads"
	"github.com/freightly/manifest/pkg/models"
	"github.com/freightly/manifest/pkg/tracing"
)

var validate = validator.New()

// Register registers load routes
func Register(g *echo.Group) {
	g.GET("", List)
	g.GET("/grouped", ListGrouped)
	g.GET("/:id", Get)
	g.POST("", Create)
	g.PUT("/:id", Update)
	g.POST("/:id/cancel", Cancel)
	g.POST("/:id/uncancel", Uncancel)
	g.POST("/:id/confirm", Confirm)
	g.POST("/:id/unconfirm", Unconfirm)
	g.PATCH("/:id/driver", ReassignDriver)
	g.PATCH("/:id/carrier", ReassignCarrier)
	g.POST("/backfill-invoice-weeks", BackfillInvoiceWeeks)
}

// List lists loads with optional filters
func List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "load_handler.List")
	defer span.End()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	filter := loadrepo.ListFilter{
		Page:     intParam(c, "page", 1),
		PageSize: intParam(c, "page_size", 100),
	}
	if v := c.QueryParam("carrier_id"); v != "" {
		filter.CarrierID = &v
	}
	if v := c.QueryParam("driver_id"); v != "" {
		filter.DriverID = &v
	}
	if v, ok := boolParam(c, "cancelled"); ok {
		filter.Cancelled = &v
	}
	if v, ok := boolParam(c, "invoiced"); ok {
		filter.Invoiced = &v
	}
	if v, ok := boolParam(c, "confirmed"); ok {
		filter.Confirmed = &v
	}
	if v, ok := boolParam(c, "has_conflict"); ok {
		filter.HasConflict = &v
	}
	if v := c.QueryParam("invoice_week_id"); v != "" {
		filter.InvoiceWeekID = &v
	}

	ctx, service, err := ectoinject.GetContext[*loads.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	items, total, err := service.List(ctx, tenantID, filter)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.LoadListResponse{
		Items:      items,
		TotalCount: total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
	})
}

// ListGrouped returns loads grouped by carrier and invoice week
func ListGrouped(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "load_handler.ListGrouped")
	defer span.End()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	ctx, service, err := ectoinject.GetContext[*loads.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	groups, err := service.ListGrouped(ctx, tenantID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, groups)
}

// Get returns a single load
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "load_handler.Get")
	defer span.End()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	ctx, service, err := ectoinject.GetContext[*loads.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	result, err := service.Get(ctx, tenantID, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// Create creates a new load
func Create(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "load_handler.Create")
	defer span.End()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	var req models.CreateLoadRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, service, err := ectoinject.GetContext[*loads.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	result, err := service.Create(ctx, tenantID, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, result)
}

// Update applies a partial update to a load
func Update(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "load_handler.Update")
	defer span.End()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	var req models.UpdateLoadRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx, service, err := ectoinject.GetContext[*loads.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	result, err := service.Update(ctx, tenantID, c.Param("id"), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// Cancel cancels a load
func Cancel(c echo.Context) error {
	return setCancelled(c, true)
}

// Uncancel restores a cancelled load
func Uncancel(c echo.Context) error {
	return setCancelled(c, false)
}

func setCancelled(c echo.Context, cancelled bool) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "load_handler.setCancelled")
	defer span.End()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	ctx, service, err := ectoinject.GetContext[*loads.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	var result *models.Load
	if cancelled {
		result, err = service.Cancel(ctx, tenantID, c.Param("id"))
	} else {
		result, err = service.Uncancel(ctx, tenantID, c.Param("id"))
	}
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// Confirm marks a load confirmed
func Confirm(c echo.Context) error {
	return setConfirmed(c, true)
}

// Unconfirm clears the confirmed flag
func Unconfirm(c echo.Context) error {
	return setConfirmed(c, false)
}

func setConfirmed(c echo.Context, confirmed bool) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "load_handler.setConfirmed")
	defer span.End()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	ctx, service, err := ectoinject.GetContext[*loads.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	result, err := service.Confirm(ctx, tenantID, c.Param("id"), confirmed)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// ReassignDriver moves a load to another driver (or unassigns with null)
func ReassignDriver(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "load_handler.ReassignDriver")
	defer span.End()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	var req models.ReassignDriverRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx, service, err := ectoinject.GetContext[*loads.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	result, err := service.ReassignDriver(ctx, tenantID, c.Param("id"), req.DriverID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// ReassignCarrier moves a load to another carrier (or unassigns with null)
func ReassignCarrier(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "load_handler.ReassignCarrier")
	defer span.End()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	var req models.ReassignCarrierRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx, service, err := ectoinject.GetContext[*loads.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	result, err := service.ReassignCarrier(ctx, tenantID, c.Param("id"), req.CarrierID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// BackfillInvoiceWeeks recomputes invoice week assignments across the tenant
func BackfillInvoiceWeeks(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "load_handler.BackfillInvoiceWeeks")
	defer span.End()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	dryRun, _ := boolParam(c, "dry_run")

	ctx, backfiller, err := ectoinject.GetContext[*invoicing.Backfiller](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	result, err := backfiller.Run(ctx, tenantID, dryRun)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

func intParam(c echo.Context, name string, fallback int) int {
	if v := c.QueryParam(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func boolParam(c echo.Context, name string) (bool, bool) {
	if v := c.QueryParam(name); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b, true
		}
	}
	return false, false
}
