package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/identity"
)

type accountApi struct {
	deps ServerDeps
}

func registerAccountAPI(g *echo.Group, auth echo.MiddlewareFunc, deps ServerDeps) {
	api := accountApi{deps: deps}

	ag := g.Group("/account")

	// un-authed endpoints
	// TODO: rate limit `/login`
	ag.POST("/login", api.login)

	// authed endpoints
	authed := ag.Group("", auth)
	authed.POST("/token-refresh", api.refreshToken)
	authed.GET("/me", api.me)
}

// Handlers

func (api *accountApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	claims, err := authenticate(ctx, data.Email, data.Password, api.deps)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := identity.GenerateToken(api.deps.Conf, claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *accountApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.deps.Conf)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

// me returns the caller's resolved role and profile.
func (api *accountApi) me(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, MeResponse{Role: caller.Role, Profile: caller.Profile})
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	MeResponse struct {
		Role    identity.Role    `json:"role"`
		Profile identity.Profile `json:"profile"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}
