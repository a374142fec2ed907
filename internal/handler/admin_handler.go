package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/shinyyama/support-chat/internal/dto"
	"github.com/shinyyama/support-chat/internal/middleware"
	"github.com/shinyyama/support-chat/internal/service"
)

// AdminHandler routes are mounted behind RequireAdmin.
type AdminHandler struct {
	svc       service.ChatService
	broadcast ChatBroadcaster
	log       zerolog.Logger
}

func NewAdminHandler(svc service.ChatService, broadcast ChatBroadcaster, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, broadcast: broadcast, log: log}
}

func (h *AdminHandler) Inbox(c echo.Context) error {
	list, err := h.svc.AdminInbox(c.Request().Context())
	if err != nil {
		return writeError(c, h.log, err, "inbox")
	}
	return c.JSON(http.StatusOK, dto.NewConversationSummaries(list))
}

func (h *AdminHandler) Close(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}
	cv, err := h.svc.CloseConversation(c.Request().Context(), c.Param("id"), p.UserID)
	if err != nil {
		return writeError(c, h.log, err, "conversation")
	}
	summary := dto.NewConversationSummary(cv)
	if h.broadcast != nil {
		h.broadcast.ConversationClosed(summary)
	}
	return c.JSON(http.StatusOK, summary)
}
