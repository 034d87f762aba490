package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/identity"
	"github.com/trezcool/shule/core/school"
)

type schoolApi struct {
	deps ServerDeps
}

func registerSchoolAPI(g *echo.Group, auth echo.MiddlewareFunc, deps ServerDeps) {
	api := schoolApi{deps: deps}
	gate := func(roles ...identity.Role) echo.MiddlewareFunc {
		return gateMiddleware(deps.IdentitySvc, roles...)
	}

	sg := g.Group("/students", auth)
	sg.GET("", api.queryStudents, gate(identity.RoleAdmin, identity.RoleAccountant, identity.RoleTeacher))
	sg.POST("", api.provisionStudent, roleGateMiddleware(identity.RoleAdmin))
	sg.GET("/:id", api.retrieveStudent, gate())
	sg.GET("/:id/enrollment", api.enrollments, gate())
	sg.POST("/:id/enrollment", api.enroll, gate(identity.RoleAdmin))

	pg := g.Group("/parents", auth)
	pg.GET("/me/children", api.children, gate(identity.RoleParent))

	// class ids are not student record ids; these routes scope themselves
	cg := g.Group("/classes", auth)
	cg.GET("", api.queryClasses, roleGateMiddleware(identity.RoleTeacher, identity.RoleAdmin))
	cg.GET("/:id/roster", api.roster, roleGateMiddleware(identity.RoleTeacher, identity.RoleAdmin))
}

// Handlers

// queryStudents lists the students inside the caller's computed scope.
// For teachers that is their class rosters; admins and accountants see
// everyone.
func (api *schoolApi) queryStudents(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}
	students, err := api.deps.SchoolSvc.QueryStudents(ctx.Request().Context(), caller.Scope)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *schoolApi) retrieveStudent(ctx echo.Context) error {
	std, err := api.deps.SchoolSvc.GetStudent(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == school.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding student by ID")
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *schoolApi) provisionStudent(ctx echo.Context) error {
	var data school.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}
	std, err := api.deps.SchoolSvc.ProvisionStudent(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "provisioning student")
	}
	return ctx.JSON(http.StatusCreated, std)
}

func (api *schoolApi) enrollments(ctx echo.Context) error {
	enrs, err := api.deps.SchoolSvc.Enrollments(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing enrollments")
	}
	return ctx.JSON(http.StatusOK, enrs)
}

func (api *schoolApi) enroll(ctx echo.Context) error {
	var data school.NewEnrollment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnrollment")
	}
	data.StudentID = ctx.Param("id")
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}
	enr, err := api.deps.SchoolSvc.Enroll(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

// children is a scope-aggregate route: it returns the caller's scope
// itself, materialized as student records.
func (api *schoolApi) children(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}
	children, err := api.deps.SchoolSvc.ChildrenOf(ctx.Request().Context(), caller.Profile.ID)
	if err != nil {
		return errors.Wrap(err, "listing children")
	}
	return ctx.JSON(http.StatusOK, children)
}

func (api *schoolApi) queryClasses(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	var classes []school.Class
	if caller.Is(identity.RoleTeacher) {
		classes, err = api.deps.SchoolSvc.ClassesOf(reqCtx, caller.Profile.ID)
	} else {
		classes, err = api.deps.SchoolSvc.QueryClasses(reqCtx, ctx.QueryParam("year"))
	}
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	return ctx.JSON(http.StatusOK, classes)
}

// roster lists the currently enrolled students of a class. A teacher may
// only view rosters of their own classes.
func (api *schoolApi) roster(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	classID := ctx.Param("id")
	if caller.Is(identity.RoleTeacher) {
		mine, err := api.deps.SchoolSvc.ClassesOf(reqCtx, caller.Profile.ID)
		if err != nil {
			return errors.Wrap(err, "listing teacher classes")
		}
		var owned bool
		for _, cls := range mine {
			if cls.ID == classID {
				owned = true
				break
			}
		}
		if !owned {
			return errors.Wrap(identity.ErrForbidden, "class outside caller scope")
		}
	}

	students, err := api.deps.SchoolSvc.Roster(reqCtx, classID)
	if err != nil {
		return errors.Wrap(err, "listing roster")
	}
	return ctx.JSON(http.StatusOK, students)
}
