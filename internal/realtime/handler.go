package realtime

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/shinyyama/support-chat/internal/middleware"
	"github.com/shinyyama/support-chat/internal/reqctx"
)

type Handler struct {
	hub        *Hub
	auth       ConversationAuthorizer
	upgrader   websocket.Upgrader
	sendBuffer int
}

// NewHandler serves the realtime endpoint. Browsers must come from an origin
// accepted by allowOrigin, the same policy CORS uses; requests without an
// Origin header are accepted.
func NewHandler(hub *Hub, auth ConversationAuthorizer, allowOrigin func(origin string) bool, sendBuffer int) *Handler {
	return &Handler{
		hub:        hub,
		auth:       auth,
		sendBuffer: sendBuffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowOrigin(origin)
			},
		},
	}
}

func (h *Handler) Serve(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing principal")
	}
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		return nil
	}
	client := newClient(h.hub, conn, p.UserID, p.IsAdmin(), h.sendBuffer)
	client.auth = h.auth
	client.rid = reqctx.RID(c.Request().Context())
	h.hub.Register(client)
	h.hub.log.Debug().Str("user_id", p.UserID).Bool("admin", p.IsAdmin()).Msg("realtime connected")

	go client.writePump()
	go client.readPump()
	return nil
}
