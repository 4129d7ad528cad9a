package echoapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/classledger/backend/core"
	"github.com/classledger/backend/core/attendance"
)

type attendanceApi struct {
	deps ServerDeps
}

func registerAttendanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := attendanceApi{deps: deps}

	ag := g.Group("/attendance", jwt)

	ag.GET("/statistics", api.statistics)
	ag.GET("/subject-analysis", api.subjectAnalysis)
	ag.GET("/session-state", api.sessionState)
	ag.GET("/previous-pattern", api.previousPattern)
	ag.POST("", api.mark)

	// admin endpoints
	ag.GET("/overview", api.overview, adminMiddleware())
	ag.GET("/coverage", api.coverage, adminMiddleware())
	ag.POST("/coverage/notify", api.notifyCoverage, adminMiddleware())
}

// Handlers

// statistics reports per-student attendance for one or more original
// (reporting) sections, comma-separated.
func (api *attendanceApi) statistics(ctx echo.Context) error {
	sectionsParam, err := requireQueryParam(ctx, "section")
	if err != nil {
		return err
	}
	var dr DateRange
	if err := dr.Bind(ctx); err != nil {
		return err
	}

	stats := []attendance.StudentStat{}
	for _, section := range strings.Split(sectionsParam, ",") {
		if section = core.CleanString(section); section == "" {
			continue
		}
		sectionStats, err := api.deps.AttendanceSvc.StudentStatistics(ctx.Request().Context(), section, dr.From, dr.To)
		if err != nil {
			return errors.Wrap(err, "getting student statistics")
		}
		stats = append(stats, sectionStats...)
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *attendanceApi) subjectAnalysis(ctx echo.Context) error {
	section, err := requireQueryParam(ctx, "section")
	if err != nil {
		return err
	}
	subject, err := requireQueryParam(ctx, "subject")
	if err != nil {
		return err
	}
	var dr DateRange
	if err := dr.Bind(ctx); err != nil {
		return err
	}

	stats, err := api.deps.AttendanceSvc.SubjectAnalysis(ctx.Request().Context(), section, subject, dr.From, dr.To)
	if err != nil {
		return errors.Wrap(err, "getting subject analysis")
	}
	if stats == nil {
		stats = []attendance.StudentStat{}
	}
	return ctx.JSON(http.StatusOK, stats)
}

// sessionState is the marking form's pre-check; the authoritative check
// reruns inside the store when the submission lands.
func (api *attendanceApi) sessionState(ctx echo.Context) error {
	section, err := requireQueryParam(ctx, "section")
	if err != nil {
		return err
	}
	period, err := bindPeriod(ctx, "period")
	if err != nil {
		return err
	}

	state, err := api.deps.AttendanceSvc.SessionState(ctx.Request().Context(), section, period)
	if err != nil {
		return errors.Wrap(err, "getting session state")
	}
	return ctx.JSON(http.StatusOK, state)
}

func (api *attendanceApi) previousPattern(ctx echo.Context) error {
	section, err := requireQueryParam(ctx, "section")
	if err != nil {
		return err
	}
	period, err := bindPeriod(ctx, "period")
	if err != nil {
		return err
	}

	pattern, err := api.deps.AttendanceSvc.PreviousPattern(ctx.Request().Context(), section, period)
	if err != nil {
		return errors.Wrap(err, "getting previous pattern")
	}
	if pattern == nil {
		pattern = map[string]attendance.Status{}
	}
	return ctx.JSON(http.StatusOK, pattern)
}

func (api *attendanceApi) mark(ctx echo.Context) error {
	var data attendance.MarkRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	// the marking faculty comes from the token, never the body
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	data.FacultyID = claims.Subject

	res, err := api.deps.AttendanceSvc.Mark(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *attendanceApi) overview(ctx echo.Context) error {
	var dr DateRange
	if err := dr.Bind(ctx); err != nil {
		return err
	}

	report, err := api.deps.AttendanceSvc.Overview(ctx.Request().Context(), dr.From, dr.To)
	if err != nil {
		return errors.Wrap(err, "building overview")
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *attendanceApi) coverage(ctx echo.Context) error {
	date, err := api.bindCoverageDate(ctx)
	if err != nil {
		return err
	}

	gaps, err := api.deps.AttendanceSvc.MissingCoverage(ctx.Request().Context(), date)
	if err != nil {
		return errors.Wrap(err, "analyzing coverage")
	}
	if gaps == nil {
		gaps = []attendance.CoverageGap{}
	}
	return ctx.JSON(http.StatusOK, gaps)
}

func (api *attendanceApi) notifyCoverage(ctx echo.Context) error {
	date, err := api.bindCoverageDate(ctx)
	if err != nil {
		return err
	}

	if err := api.deps.AttendanceSvc.NotifyCoverageGaps(ctx.Request().Context(), date); err != nil {
		return errors.Wrap(err, "notifying coverage gaps")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"success": "Coverage report queued for delivery."})
}

// bindCoverageDate defaults to today in school time when the param is absent.
func (api *attendanceApi) bindCoverageDate(ctx echo.Context) (time.Time, error) {
	date, err := bindDate(ctx, dateParam)
	if err != nil {
		return time.Time{}, err
	}
	if date.IsZero() {
		date = time.Now().In(api.deps.Conf.Location())
	}
	return date, nil
}
