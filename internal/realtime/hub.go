package realtime

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shinyyama/support-chat/internal/dto"
	"github.com/shinyyama/support-chat/internal/metrics"
)

const (
	EventMessageCreated       = "MessageCreated"
	EventConversationUpserted = "ConversationUpserted"
	EventNotificationCreated  = "NotificationCreated"
	EventError                = "Error"

	AdminsGroup = "admins"
)

func UserGroup(userID string) string { return "user:" + userID }

func ConversationGroup(convID string) string { return "conv:" + convID }

// Frame is the envelope of every server push.
type Frame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub tracks which connections belong to which groups and fans events out to them.
type Hub struct {
	mu      sync.RWMutex
	groups  map[string]map[*Client]struct{}
	members map[*Client]map[string]struct{}
	log     zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		groups:  make(map[string]map[*Client]struct{}),
		members: make(map[*Client]map[string]struct{}),
		log:     log.With().Str("component", "realtime").Logger(),
	}
}

// Register adds c to its own user group and, for admins, to the admins group.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.members[c]; ok {
		return
	}
	h.members[c] = make(map[string]struct{})
	h.joinLocked(UserGroup(c.userID), c)
	if c.isAdmin {
		h.joinLocked(AdminsGroup, c)
	}
	metrics.ActiveConnections.Inc()
}

// Unregister removes c from every group and closes its send queue. Safe to call twice.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	groups, ok := h.members[c]
	if !ok {
		return
	}
	for g := range groups {
		h.leaveLocked(g, c)
	}
	delete(h.members, c)
	close(c.send)
	metrics.ActiveConnections.Dec()
}

func (h *Hub) Join(group string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.members[c]; !ok {
		return
	}
	h.joinLocked(group, c)
}

func (h *Hub) Leave(group string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(group, c)
}

func (h *Hub) joinLocked(group string, c *Client) {
	if h.groups[group] == nil {
		h.groups[group] = make(map[*Client]struct{})
	}
	h.groups[group][c] = struct{}{}
	h.members[c][group] = struct{}{}
}

func (h *Hub) leaveLocked(group string, c *Client) {
	if m := h.groups[group]; m != nil {
		delete(m, c)
		if len(m) == 0 {
			delete(h.groups, group)
		}
	}
	if g := h.members[c]; g != nil {
		delete(g, group)
	}
}

// GroupSize reports how many connections are in group.
func (h *Hub) GroupSize(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}

// Publish sends one event to the union of groups; a connection in several of
// them gets it once. Connections whose queue is full are dropped.
func (h *Hub) Publish(event string, data interface{}, groups ...string) {
	b, err := json.Marshal(Frame{Type: event, Data: data})
	if err != nil {
		metrics.RecordDropped(event, "encode")
		h.log.Error().Err(err).Str("event", event).Msg("encode event")
		return
	}

	var slow []*Client
	h.mu.RLock()
	seen := make(map[*Client]struct{})
	for _, g := range groups {
		for c := range h.groups[g] {
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			select {
			case c.send <- b:
				metrics.RecordDelivered(event)
			default:
				metrics.RecordDropped(event, "buffer_full")
				slow = append(slow, c)
			}
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn().Str("user_id", c.userID).Str("event", event).Msg("send buffer full, dropping connection")
		h.Unregister(c)
	}
}

// sendTo queues a frame for a single connection if it is still registered.
func (h *Hub) sendTo(c *Client, event string, data interface{}) {
	b, err := json.Marshal(Frame{Type: event, Data: data})
	if err != nil {
		return
	}
	h.mu.RLock()
	_, ok := h.members[c]
	full := false
	if ok {
		select {
		case c.send <- b:
		default:
			full = true
		}
	}
	h.mu.RUnlock()
	if full {
		h.Unregister(c)
	}
}

// MessageCreated announces a new message and the refreshed summary to the
// conversation viewers, all admins and the owning customer.
func (h *Hub) MessageCreated(msg dto.Message, summary dto.ConversationSummary) {
	groups := []string{ConversationGroup(summary.ID), AdminsGroup, UserGroup(summary.CustomerUserID)}
	h.Publish(EventMessageCreated, msg, groups...)
	h.Publish(EventConversationUpserted, summary, groups...)
}

// ConversationRead re-sends the summary after counters changed; message content did not.
func (h *Hub) ConversationRead(summary dto.ConversationSummary) {
	h.Publish(EventConversationUpserted, summary, AdminsGroup, UserGroup(summary.CustomerUserID))
}

func (h *Hub) ConversationClosed(summary dto.ConversationSummary) {
	h.Publish(EventConversationUpserted, summary,
		ConversationGroup(summary.ID), AdminsGroup, UserGroup(summary.CustomerUserID))
}

func (h *Hub) NotificationCreated(userID string, n dto.Notification) {
	h.Publish(EventNotificationCreated, n, UserGroup(userID))
}
