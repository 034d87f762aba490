package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/exam"
	"github.com/trezcool/shule/core/identity"
)

type examApi struct {
	deps ServerDeps
}

func registerExamAPI(g *echo.Group, auth echo.MiddlewareFunc, deps ServerDeps) {
	api := examApi{deps: deps}
	gate := func(roles ...identity.Role) echo.MiddlewareFunc {
		return gateMiddleware(deps.IdentitySvc, roles...)
	}

	eg := g.Group("/exams", auth)
	eg.POST("", api.create, roleGateMiddleware(identity.RoleTeacher, identity.RoleAdmin))
	eg.POST("/results", api.grade, roleGateMiddleware(identity.RoleTeacher, identity.RoleAdmin))
	eg.GET("/students/:id", api.report, gate())
}

// Handlers

func (api *examApi) create(ctx echo.Context) error {
	var data exam.NewExam
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewExam")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}
	ex, err := api.deps.ExamSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating exam")
	}
	return ctx.JSON(http.StatusCreated, ex)
}

func (api *examApi) grade(ctx echo.Context) error {
	var data exam.NewResult
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewResult")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	// the graded student must be inside the caller's scope
	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()
	if err = api.deps.IdentitySvc.Authorize(reqCtx, &caller, nil, data.StudentID); err != nil {
		return err
	}

	res, err := api.deps.ExamSvc.Grade(reqCtx, data)
	if err != nil {
		return errors.Wrap(err, "grading exam")
	}
	return ctx.JSON(http.StatusCreated, res)
}

// report returns the student's results grouped by subject.
func (api *examApi) report(ctx echo.Context) error {
	report, err := api.deps.ExamSvc.ReportFor(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "building report")
	}
	return ctx.JSON(http.StatusOK, report)
}
