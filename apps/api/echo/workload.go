package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/classledger/backend/core"
	"github.com/classledger/backend/core/workload"
)

type workloadApi struct {
	deps ServerDeps
}

func registerWorkloadAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := workloadApi{deps: deps}

	wg := g.Group("/workload", jwt)
	wg.GET("", api.report)
	wg.GET("/all", api.allReports, adminMiddleware())
}

// Handlers

// report serves a faculty member's own workload; admins may pass any
// faculty_id.
func (api *workloadApi) report(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	facultyID := core.CleanString(ctx.QueryParam("faculty_id"))
	if facultyID == "" {
		facultyID = claims.Subject
	}
	if facultyID != claims.Subject && !claims.IsAdmin {
		return errHttpForbidden
	}

	var dr DateRange
	if err := dr.Bind(ctx); err != nil {
		return err
	}

	report, err := api.deps.WorkloadSvc.FacultyReport(ctx.Request().Context(), facultyID, dr.From, dr.To)
	if err != nil {
		return errors.Wrap(err, "building workload report")
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *workloadApi) allReports(ctx echo.Context) error {
	var dr DateRange
	if err := dr.Bind(ctx); err != nil {
		return err
	}

	reports, err := api.deps.WorkloadSvc.AllFacultyReports(ctx.Request().Context(), dr.From, dr.To)
	if err != nil {
		return errors.Wrap(err, "building workload reports")
	}
	if reports == nil {
		reports = []*workload.Report{}
	}
	return ctx.JSON(http.StatusOK, reports)
}
