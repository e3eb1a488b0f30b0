package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jbkiprop/studentos/core/messaging"
	"github.com/jbkiprop/studentos/core/notification"
	"github.com/jbkiprop/studentos/core/user"
)

type messagingApi struct {
	users  *user.Service
	svc    *messaging.Service
	notifs *notification.Service
}

func registerMessagingAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	users *user.Service,
	svc *messaging.Service,
	notifs *notification.Service,
) {
	api := messagingApi{users: users, svc: svc, notifs: notifs}

	mg := g.Group("/messages", jwt)
	mg.GET("", api.inbox)
	mg.POST("", api.send)
	mg.GET("/contacts", api.contacts)
	mg.GET("/unread-count", api.unreadCount)
	mg.GET("/:userID", api.thread)

	ng := g.Group("/notifications", jwt)
	ng.GET("", api.notifications)
	ng.POST("/read", api.markNotificationsRead)
}

func (api *messagingApi) inbox(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return err
	}
	convs, err := api.svc.Inbox(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "querying inbox")
	}
	return ctx.JSON(http.StatusOK, convs)
}

// thread returns the conversation with :userID; the broadcast channel when
// :userID is the group sentinel.
func (api *messagingApi) thread(ctx echo.Context) error {
	otherID, err := intParam(ctx, "userID")
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return err
	}
	msgs, err := api.svc.Thread(ctx.Request().Context(), usr.ID, otherID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, msgs)
}

func (api *messagingApi) send(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return err
	}
	var data messaging.NewMessage
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMessage")
	}
	msg, err := api.svc.Send(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, msg)
}

func (api *messagingApi) contacts(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return err
	}
	contacts, err := api.svc.Contacts(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "querying contacts")
	}
	return ctx.JSON(http.StatusOK, contacts)
}

func (api *messagingApi) unreadCount(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return err
	}
	count, err := api.svc.UnreadCount(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "counting unread messages")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"unread_count": count})
}

func (api *messagingApi) notifications(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return err
	}
	ns, err := api.notifs.Latest(ctx.Request().Context(), usr.ID, 0)
	if err != nil {
		return errors.Wrap(err, "querying notifications")
	}
	return ctx.JSON(http.StatusOK, ns)
}

func (api *messagingApi) markNotificationsRead(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return err
	}
	if err := api.notifs.MarkAllRead(ctx.Request().Context(), usr.ID); err != nil {
		return errors.Wrap(err, "marking notifications read")
	}
	return ctx.NoContent(http.StatusNoContent)
}
