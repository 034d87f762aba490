package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/identity"
	"github.com/trezcool/shule/core/notification"
)

type notificationApi struct {
	deps ServerDeps
}

func registerNotificationAPI(g *echo.Group, auth echo.MiddlewareFunc, deps ServerDeps) {
	api := notificationApi{deps: deps}

	ng := g.Group("/notifications", auth)
	ng.GET("", api.mine)
	ng.POST("", api.create, roleGateMiddleware(identity.RoleAdmin))
	ng.POST("/broadcast", api.broadcast, roleGateMiddleware(identity.RoleAdmin))
	ng.PUT("/:id/read", api.markRead)
}

// Handlers

func (api *notificationApi) mine(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}
	unreadOnly := ctx.QueryParam("unread") == "true"
	notifs, err := api.deps.NotifSvc.ForRecipient(ctx.Request().Context(), caller.Profile.ID, unreadOnly)
	if err != nil {
		return errors.Wrap(err, "listing notifications")
	}
	return ctx.JSON(http.StatusOK, notifs)
}

func (api *notificationApi) create(ctx echo.Context) error {
	var data notification.NewNotification
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewNotification")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}
	notif, err := api.deps.NotifSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating notification")
	}
	return ctx.JSON(http.StatusCreated, notif)
}

func (api *notificationApi) broadcast(ctx echo.Context) error {
	var data notification.Broadcast
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Broadcast")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}
	notifs, err := api.deps.NotifSvc.Broadcast(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "broadcasting notification")
	}
	return ctx.JSON(http.StatusCreated, notifs)
}

// markRead acks one of the caller's own notifications.
func (api *notificationApi) markRead(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}
	err = api.deps.NotifSvc.MarkRead(ctx.Request().Context(), ctx.Param("id"), caller.Profile.ID)
	if err != nil {
		if errors.Cause(err) == notification.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "marking notification read")
	}
	return ctx.NoContent(http.StatusNoContent)
}
