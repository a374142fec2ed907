package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/shinyyama/support-chat/internal/dto"
	"github.com/shinyyama/support-chat/internal/middleware"
	"github.com/shinyyama/support-chat/internal/service"
)

type SupportHandler struct {
	svc service.ChatService
	log zerolog.Logger
}

func NewSupportHandler(svc service.ChatService, log zerolog.Logger) *SupportHandler {
	return &SupportHandler{svc: svc, log: log}
}

// Open returns the caller's open conversation, creating it on first use.
func (h *SupportHandler) Open(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}
	cv, err := h.svc.OpenConversation(c.Request().Context(), p.UserID, p.Name())
	if err != nil {
		return writeError(c, h.log, err, "conversation")
	}
	return c.JSON(http.StatusOK, dto.OpenConversationResponse{
		ConversationID: cv.ID,
		UnreadCount:    cv.UnreadForCustomer,
	})
}
