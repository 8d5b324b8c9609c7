package federation

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/appcontext"
	"github.com/Ramsey-B/fern/pkg/federation"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Register registers federation routes
func Register(g *echo.Group) {
	g.POST("/:id/_discover", Discover)
	g.POST("/:id/_ingest/_start", StartIngest)
	g.POST("/_ingest", Ingest)
	g.DELETE("/:id/apis", DeleteIngestedApis)
	g.DELETE("/:id", DeleteIntegration)
}

func auditInfo(ctx echo.Context) (models.AuditInfo, error) {
	reqCtx := ctx.Request().Context()
	info := models.AuditInfo{
		OrganizationID: appcontext.GetOrganizationID(reqCtx),
		EnvironmentID:  appcontext.GetEnvironmentID(reqCtx),
		UserID:         appcontext.GetUserID(reqCtx),
	}
	if info.OrganizationID == "" {
		return info, httperror.NewHTTPError(http.StatusUnauthorized, "organization_id is required")
	}
	return info, nil
}

// DiscoveryResponse lists the preview rows of a discovery run
type DiscoveryResponse struct {
	Apis []models.DiscoveredApi `json:"apis"`
}

// Discover previews what ingesting the integration would do
func Discover(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "federation_handler.Discover")
	defer span.End()

	info, err := auditInfo(c)
	if err != nil {
		return err
	}

	integrationID := c.Param("id")

	ctx, svc, err := ectoinject.GetContext[*federation.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get federation service")
	}

	discovered, err := svc.Discover(ctx, integrationID, info)
	if err != nil {
		if httperror.IsHTTPError(err) {
			return err
		}
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to discover apis")
	}

	return c.JSON(http.StatusOK, DiscoveryResponse{Apis: discovered})
}

// StartIngest opens a pending ingestion job for the integration
func StartIngest(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "federation_handler.StartIngest")
	defer span.End()

	info, err := auditInfo(c)
	if err != nil {
		return err
	}

	integrationID := c.Param("id")

	ctx, svc, err := ectoinject.GetContext[*federation.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get federation service")
	}

	result, err := svc.StartIngest(ctx, integrationID, info)
	if err != nil {
		if httperror.IsHTTPError(err) {
			return err
		}
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to start ingestion")
	}

	status := http.StatusCreated
	if result.JobID == "" {
		status = http.StatusOK
	}

	return c.JSON(status, result)
}

// Ingest applies one batch of discovered apis to a pending job
func Ingest(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "federation_handler.Ingest")
	defer span.End()

	info, err := auditInfo(c)
	if err != nil {
		return err
	}

	var in federation.IngestInput
	if err := c.Bind(&in); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if in.JobID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "job_id is required")
	}

	ctx, svc, err := ectoinject.GetContext[*federation.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get federation service")
	}

	result, err := svc.Ingest(ctx, in, info)
	if err != nil {
		if httperror.IsHTTPError(err) {
			return err
		}
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to ingest batch")
	}

	return c.JSON(http.StatusOK, result)
}

// DeleteIngestedApis retracts every federated api of the integration
func DeleteIngestedApis(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "federation_handler.DeleteIngestedApis")
	defer span.End()

	info, err := auditInfo(c)
	if err != nil {
		return err
	}

	integrationID := c.Param("id")

	ctx, svc, err := ectoinject.GetContext[*federation.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get federation service")
	}

	result, err := svc.DeleteIngestedApis(ctx, integrationID, info)
	if err != nil {
		if httperror.IsHTTPError(err) {
			return err
		}
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete ingested apis")
	}

	return c.JSON(http.StatusOK, result)
}

// DeleteIntegration removes the integration once its apis are retracted
func DeleteIntegration(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "federation_handler.DeleteIntegration")
	defer span.End()

	if _, err := auditInfo(c); err != nil {
		return err
	}

	integrationID := c.Param("id")

	ctx, svc, err := ectoinject.GetContext[*federation.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get federation service")
	}

	if err := svc.DeleteIntegration(ctx, integrationID); err != nil {
		if httperror.IsHTTPError(err) {
			return err
		}
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete integration")
	}

	return c.NoContent(http.StatusNoContent)
}
