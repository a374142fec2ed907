package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/shinyyama/support-chat/internal/dto"
	"github.com/shinyyama/support-chat/internal/middleware"
	"github.com/shinyyama/support-chat/internal/service"
)

type NotificationHandler struct {
	svc service.NotificationService
	log zerolog.Logger
}

func NewNotificationHandler(svc service.NotificationService, log zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{svc: svc, log: log}
}

func (h *NotificationHandler) List(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}
	unreadOnly := c.QueryParam("unread_only") == "true"
	limit := 20
	if lStr := c.QueryParam("limit"); lStr != "" {
		if lParsed, err := strconv.Atoi(lStr); err == nil && lParsed > 0 {
			limit = lParsed
		}
	}
	list, err := h.svc.List(c.Request().Context(), p.UserID, unreadOnly, limit)
	if err != nil {
		return writeError(c, h.log, err, "notifications")
	}
	return c.JSON(http.StatusOK, dto.NewNotifications(list))
}

func (h *NotificationHandler) UnreadCount(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}
	cnt, err := h.svc.UnreadCount(c.Request().Context(), p.UserID)
	if err != nil {
		return writeError(c, h.log, err, "notifications")
	}
	return c.JSON(http.StatusOK, dto.UnreadCount{Count: cnt})
}

func (h *NotificationHandler) MarkRead(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}
	if err := h.svc.MarkRead(c.Request().Context(), p.UserID, c.Param("id")); err != nil {
		return writeError(c, h.log, err, "notification")
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}
	n, err := h.svc.MarkAllRead(c.Request().Context(), p.UserID)
	if err != nil {
		return writeError(c, h.log, err, "notifications")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"status": "ok", "updated": n})
}

func (h *NotificationHandler) Delete(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}
	if err := h.svc.Delete(c.Request().Context(), p.UserID, c.Param("id")); err != nil {
		return writeError(c, h.log, err, "notification")
	}
	return c.NoContent(http.StatusNoContent)
}
