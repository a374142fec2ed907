// Package dto holds the JSON shapes shared by the HTTP API and realtime events.
package dto

import (
	"time"

	"github.com/shinyyama/support-chat/internal/model"
)

type ConversationSummary struct {
	ID                     string           `json:"id"`
	CustomerUserID         string           `json:"customerUserId"`
	CustomerDisplayName    string           `json:"customerDisplayName"`
	CreatedAt              time.Time        `json:"createdAt"`
	LastMessageAt          time.Time        `json:"lastMessageAt"`
	LastMessagePreview     string           `json:"lastMessagePreview"`
	LastMessageSender      model.SenderType `json:"lastMessageSender"`
	UnreadForAdminCount    int              `json:"unreadForAdminCount"`
	UnreadForCustomerCount int              `json:"unreadForCustomerCount"`
	IsOpen                 bool             `json:"isOpen"`
}

type ConversationDetail struct {
	ID                     string     `json:"id"`
	CustomerUserID         string     `json:"customerUserId"`
	CustomerDisplayName    string     `json:"customerDisplayName"`
	CreatedAt              time.Time  `json:"createdAt"`
	LastMessageAt          time.Time  `json:"lastMessageAt"`
	UnreadForAdminCount    int        `json:"unreadForAdminCount"`
	UnreadForCustomerCount int        `json:"unreadForCustomerCount"`
	IsOpen                 bool       `json:"isOpen"`
	ClosedAt               *time.Time `json:"closedAt,omitempty"`
}

type Message struct {
	ID             string           `json:"id"`
	ConversationID string           `json:"conversationId"`
	Seq            uint64           `json:"seq"`
	SenderType     model.SenderType `json:"senderType"`
	SenderUserID   string           `json:"senderUserId"`
	Text           string           `json:"text"`
	CreatedAt      time.Time        `json:"createdAt"`
}

type OpenConversationResponse struct {
	ConversationID string `json:"conversationId"`
	UnreadCount    int    `json:"unreadCount"`
}

type SendMessageRequest struct {
	ConversationID string `json:"conversationId"`
	Text           string `json:"text"`
}

type Notification struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Subtitle       string    `json:"subtitle"`
	Message        string    `json:"message,omitempty"`
	ConversationID *string   `json:"conversationId,omitempty"`
	CreatedAt      time.Time `json:"createdAtUtc"`
	IsRead         bool      `json:"isRead"`
}

type UnreadCount struct {
	Count int64 `json:"count"`
}

func NewConversationSummary(c *model.Conversation) ConversationSummary {
	return ConversationSummary{
		ID:                     c.ID,
		CustomerUserID:         c.CustomerUserID,
		CustomerDisplayName:    c.CustomerDisplayName,
		CreatedAt:              c.CreatedAt,
		LastMessageAt:          c.LastMessageAt,
		LastMessagePreview:     c.LastMessagePreview,
		LastMessageSender:      c.LastMessageSender,
		UnreadForAdminCount:    c.UnreadForAdmin,
		UnreadForCustomerCount: c.UnreadForCustomer,
		IsOpen:                 c.IsOpen,
	}
}

func NewConversationSummaries(list []model.Conversation) []ConversationSummary {
	out := make([]ConversationSummary, 0, len(list))
	for i := range list {
		out = append(out, NewConversationSummary(&list[i]))
	}
	return out
}

func NewConversationDetail(c *model.Conversation) ConversationDetail {
	return ConversationDetail{
		ID:                     c.ID,
		CustomerUserID:         c.CustomerUserID,
		CustomerDisplayName:    c.CustomerDisplayName,
		CreatedAt:              c.CreatedAt,
		LastMessageAt:          c.LastMessageAt,
		UnreadForAdminCount:    c.UnreadForAdmin,
		UnreadForCustomerCount: c.UnreadForCustomer,
		IsOpen:                 c.IsOpen,
		ClosedAt:               c.ClosedAt,
	}
}

func NewMessage(m *model.Message) Message {
	return Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Seq:            m.Seq,
		SenderType:     m.SenderType,
		SenderUserID:   m.SenderUserID,
		Text:           m.Text,
		CreatedAt:      m.CreatedAt,
	}
}

func NewMessages(list []model.Message) []Message {
	out := make([]Message, 0, len(list))
	for i := range list {
		out = append(out, NewMessage(&list[i]))
	}
	return out
}

func NewNotification(n *model.Notification) Notification {
	return Notification{
		ID:             n.ID,
		Title:          n.Title,
		Subtitle:       n.Subtitle,
		Message:        n.Message,
		ConversationID: n.ConversationID,
		CreatedAt:      n.CreatedAt,
		IsRead:         n.ReadAt != nil,
	}
}

func NewNotifications(list []model.Notification) []Notification {
	out := make([]Notification, 0, len(list))
	for i := range list {
		out = append(out, NewNotification(&list[i]))
	}
	return out
}
