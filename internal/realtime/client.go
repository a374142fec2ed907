package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/shinyyama/support-chat/internal/model"
	"github.com/shinyyama/support-chat/internal/reqctx"
	"github.com/shinyyama/support-chat/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxFrameSize   = 8 * 1024
	joinCheckLimit = 5 * time.Second
)

const (
	opJoinConversation  = "JoinConversation"
	opLeaveConversation = "LeaveConversation"
)

// ConversationAuthorizer decides whether a user may watch a conversation.
type ConversationAuthorizer interface {
	GetConversation(ctx context.Context, id, requesterUID string, isAdmin bool) (*model.Conversation, error)
}

type inboundFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversationId"`
}

type errorData struct {
	Code           string `json:"code"`
	Message        string `json:"message"`
	ConversationID string `json:"conversationId,omitempty"`
}

// Client is one realtime connection. The hub owns its send queue.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	userID  string
	isAdmin bool
	rid     string
	auth    ConversationAuthorizer
	log     zerolog.Logger
}

func newClient(h *Hub, conn *websocket.Conn, userID string, isAdmin bool, buffer int) *Client {
	return &Client{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, buffer),
		userID:  userID,
		isAdmin: isAdmin,
		log:     h.log,
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug().Err(err).Str("user_id", c.userID).Msg("realtime read")
			}
			return
		}
		c.handle(data)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handle applies one client frame.
func (c *Client) handle(data []byte) {
	var in inboundFrame
	if err := json.Unmarshal(data, &in); err != nil {
		c.fail("bad_request", "malformed frame", "")
		return
	}
	switch in.Type {
	case opJoinConversation:
		c.join(in.ConversationID)
	case opLeaveConversation:
		if in.ConversationID != "" {
			c.hub.Leave(ConversationGroup(in.ConversationID), c)
		}
	default:
		c.fail("bad_request", "unknown frame type", in.ConversationID)
	}
}

func (c *Client) join(convID string) {
	if convID == "" {
		c.fail("bad_request", "conversationId is required", "")
		return
	}
	ctx, cancel := context.WithTimeout(c.context(), joinCheckLimit)
	defer cancel()
	_, err := c.auth.GetConversation(ctx, convID, c.userID, c.isAdmin)
	switch service.OutcomeOf(err) {
	case service.OutcomeOK:
		c.hub.Join(ConversationGroup(convID), c)
	case service.OutcomeNotFound:
		c.fail("not_found", "conversation not found", convID)
	case service.OutcomeForbidden:
		c.fail("forbidden", "no access to conversation", convID)
	default:
		c.log.Error().Err(err).Str("conversation_id", convID).Str("user_id", c.userID).Msg("join conversation")
		c.fail("internal_error", "could not join conversation", convID)
	}
}

func (c *Client) context() context.Context {
	ctx := reqctx.WithUserID(context.Background(), c.userID)
	if c.rid != "" {
		ctx = reqctx.WithRID(ctx, c.rid)
	}
	return ctx
}

func (c *Client) fail(code, message, convID string) {
	c.hub.sendTo(c, EventError, errorData{Code: code, Message: message, ConversationID: convID})
}
