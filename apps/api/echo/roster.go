package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/classledger/backend/core"
	"github.com/classledger/backend/core/roster"
)

type rosterApi struct {
	deps ServerDeps
}

func registerRosterAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := rosterApi{deps: deps}

	sg := g.Group("/sections", jwt)
	sg.GET("", api.querySections)
	sg.GET("/:id/students", api.queryStudents)
	sg.GET("/:id/subjects", api.querySubjects)
}

// Handlers

func (api *rosterApi) querySections(ctx echo.Context) error {
	sections, err := api.deps.RosterSvc.QuerySections(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying sections")
	}
	if sections == nil {
		sections = []roster.Section{}
	}
	return ctx.JSON(http.StatusOK, sections)
}

// queryStudents lists a merged section's students, the population of the
// marking form.
func (api *rosterApi) queryStudents(ctx echo.Context) error {
	section := core.CleanString(ctx.Param("id"))

	students, err := api.deps.RosterSvc.QueryStudents(ctx.Request().Context(), roster.StudentFilter{MergedSection: section})
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []roster.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *rosterApi) querySubjects(ctx echo.Context) error {
	subjects, err := api.deps.RosterSvc.SectionSubjects(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying section subjects")
	}
	if subjects == nil {
		subjects = []string{}
	}
	return ctx.JSON(http.StatusOK, subjects)
}
