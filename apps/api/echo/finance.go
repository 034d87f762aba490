package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/finance"
	"github.com/trezcool/shule/core/identity"
)

type financeApi struct {
	deps ServerDeps
}

func registerFinanceAPI(g *echo.Group, auth echo.MiddlewareFunc, deps ServerDeps) {
	api := financeApi{deps: deps}
	gate := func(roles ...identity.Role) echo.MiddlewareFunc {
		return gateMiddleware(deps.IdentitySvc, roles...)
	}

	fg := g.Group("/fees", auth)
	fg.POST("", api.createFee, roleGateMiddleware(identity.RoleAccountant, identity.RoleAdmin))
	fg.GET("/students/:id", api.statement,
		gate(identity.RoleStudent, identity.RoleParent, identity.RoleAdmin, identity.RoleAccountant))

	pg := g.Group("/payments", auth)
	pg.POST("", api.recordPayment, roleGateMiddleware(identity.RoleAccountant, identity.RoleAdmin))
}

// Handlers

func (api *financeApi) createFee(ctx echo.Context) error {
	var data finance.NewFee
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFee")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}
	fee, err := api.deps.FinanceSvc.CreateFee(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating fee")
	}
	return ctx.JSON(http.StatusCreated, fee)
}

// statement returns a student's fees and payments with totals.
func (api *financeApi) statement(ctx echo.Context) error {
	st, err := api.deps.FinanceSvc.StatementFor(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "building statement")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *financeApi) recordPayment(ctx echo.Context) error {
	var data finance.NewPayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPayment")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}
	pay, fee, err := api.deps.FinanceSvc.RecordPayment(ctx.Request().Context(), data, caller.Profile.ID)
	if err != nil {
		return errors.Wrap(err, "recording payment")
	}
	return ctx.JSON(http.StatusCreated, PaymentResponse{Payment: pay, Fee: fee})
}

type PaymentResponse struct {
	Payment finance.Payment `json:"payment"`
	Fee     finance.Fee     `json:"fee"`
}
