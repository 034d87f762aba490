package echoapi

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/identity"
	"github.com/trezcool/shule/core/school"
)

const (
	contextCallerKey = "caller"
	contextClaimsKey = "claims"
)

// callerMiddleware runs credential verification and profile resolution
// on every authed route and attaches the resulting identity.Caller to
// the request context. Authorization (scope + gate) is per-route.
func callerMiddleware(svc *identity.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			bearer := extractBearer(ctx.Request().Header.Get(echo.HeaderAuthorization))
			caller, err := svc.Authenticate(ctx.Request().Context(), bearer)
			if err != nil {
				return err
			}
			ctx.Set(contextCallerKey, caller)

			// keep local claims around for token refresh
			if caller.Identity.Source == identity.SourceLocal {
				if claims, cErr := svc.VerifyLocalToken(bearer); cErr == nil {
					ctx.Set(contextClaimsKey, *claims)
				}
			}
			return next(ctx)
		}
	}
}

// gateMiddleware authorizes the caller against the route's allowed roles
// and the requested record id (the :id path param when present), and
// leaves the computed scope on the caller.
func gateMiddleware(svc *identity.Service, allowedRoles ...identity.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			caller, err := getContextCaller(ctx)
			if err != nil {
				return err
			}
			if err = svc.Authorize(ctx.Request().Context(), &caller, allowedRoles, ctx.Param("id")); err != nil {
				return err
			}
			ctx.Set(contextCallerKey, caller)
			return next(ctx)
		}
	}
}

// roleGateMiddleware checks the allowed-role set only, for routes whose
// :id param is not a student record id (or whose record id arrives in
// the payload). Such routes authorize the record id themselves.
func roleGateMiddleware(allowedRoles ...identity.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			caller, err := getContextCaller(ctx)
			if err != nil {
				return err
			}
			if len(allowedRoles) > 0 && !caller.Role.In(allowedRoles) {
				return errors.Wrap(identity.ErrForbidden, "role not allowed")
			}
			return next(ctx)
		}
	}
}

func extractBearer(header string) string {
	if strings.HasPrefix(header, "Bearer ") || strings.HasPrefix(header, "bearer ") {
		return strings.TrimSpace(header[len("Bearer "):])
	}
	return ""
}

func getContextCaller(ctx echo.Context) (identity.Caller, error) {
	if caller, ok := ctx.Get(contextCallerKey).(identity.Caller); ok {
		return caller, nil
	}
	return identity.Caller{}, errors.Wrap(identity.ErrUnauthenticated, "caller not in context")
}

func authenticate(ctx echo.Context, email, pwd string, deps ServerDeps) (*identity.Claims, error) {
	profileID, err := deps.SchoolSvc.AuthenticateLocal(ctx.Request().Context(), email, pwd)
	if err != nil {
		if errors.Cause(err) == school.ErrNotFound {
			return nil, errAuthenticationFailed
		}
		return nil, errors.Wrap(err, "checking local credential")
	}

	role, profile, err := deps.IdentitySvc.Resolve(ctx.Request().Context(), profileID)
	if err != nil {
		return nil, errors.Wrap(err, "resolving profile")
	}
	return identity.NewClaims(deps.Conf, profile, role), nil
}

func refreshToken(ctx echo.Context, conf *core.Config) (string, error) {
	claims, ok := ctx.Get(contextClaimsKey).(identity.Claims)
	if !ok {
		// provider tokens are refreshed at the provider, not here
		return "", errors.Wrap(identity.ErrUnauthenticated, "no refreshable token")
	}
	caller, err := getContextCaller(ctx)
	if err != nil {
		return "", err
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(conf.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	newClaims := identity.NewClaims(conf, caller.Profile, caller.Role, claims.OrigIssuedAt)
	token, err := identity.GenerateToken(conf, newClaims)
	return token, errors.Wrap(err, "generating token")
}

