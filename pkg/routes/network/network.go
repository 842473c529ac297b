package network

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	ctxmiddleware "github.com/freightly/manifest/pkg/context"
	"github.com/freightly/manifest/pkg/graph"
	"github.com/freightly/manifest/pkg/tracing"
)

// Register registers graph network routes
func Register(g *echo.Group) {
	g.GET("/drivers/:id/loads", DriverLoads)
}

// DriverLoads returns the active loads booked against a driver from the
// graph projection.
func DriverLoads(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "network_handler.DriverLoads")
	defer span.End()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	ctx, net, err := ectoinject.GetContext[*graph.Network](ctx)
	if err != nil || net == nil {
		return httperror.NewHTTPError(http.StatusServiceUnavailable, "graph projection is not enabled")
	}

	loads, err := net.DriverLoads(ctx, tenantID, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, loads)
}
