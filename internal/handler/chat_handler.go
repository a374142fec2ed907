package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/shinyyama/support-chat/internal/dto"
	"github.com/shinyyama/support-chat/internal/metrics"
	"github.com/shinyyama/support-chat/internal/middleware"
	"github.com/shinyyama/support-chat/internal/model"
	"github.com/shinyyama/support-chat/internal/service"
)

// ChatBroadcaster fans chat events out to realtime connections after they are stored.
type ChatBroadcaster interface {
	MessageCreated(msg dto.Message, summary dto.ConversationSummary)
	ConversationRead(summary dto.ConversationSummary)
	ConversationClosed(summary dto.ConversationSummary)
}

type ChatHandler struct {
	svc       service.ChatService
	broadcast ChatBroadcaster
	log       zerolog.Logger
}

func NewChatHandler(svc service.ChatService, broadcast ChatBroadcaster, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{svc: svc, broadcast: broadcast, log: log}
}

func (h *ChatHandler) GetConversation(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}
	cv, err := h.svc.GetConversation(c.Request().Context(), c.Param("id"), p.UserID, p.IsAdmin())
	if err != nil {
		return writeError(c, h.log, err, "conversation")
	}
	return c.JSON(http.StatusOK, dto.NewConversationDetail(cv))
}

func (h *ChatHandler) ListMessages(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}
	msgs, err := h.svc.ListMessages(c.Request().Context(), c.Param("id"), p.UserID, p.IsAdmin())
	if err != nil {
		return writeError(c, h.log, err, "conversation")
	}
	return c.JSON(http.StatusOK, dto.NewMessages(msgs))
}

func (h *ChatHandler) SendMessage(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}
	var req dto.SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid body"))
	}
	if strings.TrimSpace(req.Text) == "" {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "text is required"))
	}
	sender := model.SenderCustomer
	if p.IsAdmin() {
		sender = model.SenderAdmin
	}
	msg, cv, err := h.svc.SendMessage(c.Request().Context(), req.ConversationID, p.UserID, sender, req.Text)
	if err != nil {
		return writeError(c, h.log, err, "conversation")
	}
	metrics.RecordMessage(string(sender))

	out := dto.NewMessage(msg)
	if h.broadcast != nil {
		h.broadcast.MessageCreated(out, dto.NewConversationSummary(cv))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ChatHandler) MarkRead(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthorized(c)
	}
	cv, err := h.svc.MarkConversationAsRead(c.Request().Context(), c.Param("id"), p.UserID, p.IsAdmin())
	if err != nil {
		return writeError(c, h.log, err, "conversation")
	}
	if h.broadcast != nil {
		h.broadcast.ConversationRead(dto.NewConversationSummary(cv))
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
