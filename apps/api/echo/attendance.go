package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/identity"
)

type attendanceApi struct {
	deps ServerDeps
}

func registerAttendanceAPI(g *echo.Group, auth echo.MiddlewareFunc, deps ServerDeps) {
	api := attendanceApi{deps: deps}
	gate := func(roles ...identity.Role) echo.MiddlewareFunc {
		return gateMiddleware(deps.IdentitySvc, roles...)
	}

	ag := g.Group("/attendance", auth)
	ag.POST("", api.mark, roleGateMiddleware(identity.RoleTeacher, identity.RoleAdmin))
	ag.GET("/students/:id", api.forStudent, gate())
	ag.GET("/students/:id/summary", api.summary, gate())
}

// Handlers

func (api *attendanceApi) mark(ctx echo.Context) error {
	var data attendance.NewRecord
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRecord")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	// the marked student must be inside the caller's scope
	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()
	if err = api.deps.IdentitySvc.Authorize(reqCtx, &caller, nil, data.StudentID); err != nil {
		return err
	}

	rec, err := api.deps.AttendanceSvc.Mark(reqCtx, data, caller.Profile.ID)
	if err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	return ctx.JSON(http.StatusCreated, rec)
}

func (api *attendanceApi) forStudent(ctx echo.Context) error {
	from, to, err := parseDateRange(ctx)
	if err != nil {
		return err
	}
	recs, err := api.deps.AttendanceSvc.ForStudent(ctx.Request().Context(), ctx.Param("id"), from, to)
	if err != nil {
		return errors.Wrap(err, "listing attendance")
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *attendanceApi) summary(ctx echo.Context) error {
	from, to, err := parseDateRange(ctx)
	if err != nil {
		return err
	}
	studentID := ctx.Param("id")
	recs, err := api.deps.AttendanceSvc.ForStudent(ctx.Request().Context(), studentID, from, to)
	if err != nil {
		return errors.Wrap(err, "listing attendance")
	}
	return ctx.JSON(http.StatusOK, attendance.Summarize(studentID, recs))
}

func parseDateRange(ctx echo.Context) (from, to time.Time, err error) {
	if raw := ctx.QueryParam("from"); raw != "" {
		if from, err = time.ParseInLocation("2006-01-02", raw, time.UTC); err != nil {
			return from, to, core.NewValidationError(err, core.FieldError{Field: "from", Error: "invalid date"})
		}
	}
	if raw := ctx.QueryParam("to"); raw != "" {
		if to, err = time.ParseInLocation("2006-01-02", raw, time.UTC); err != nil {
			return from, to, core.NewValidationError(err, core.FieldError{Field: "to", Error: "invalid date"})
		}
	}
	return from, to, nil
}
