package model

import (
	"time"
	"unicode/utf8"

	"gorm.io/gorm"
)

const (
	PreviewMaxLength     = 200
	DisplayNameMaxLength = 200
	StartedPreview       = "Conversation started"
)

type Conversation struct {
	ID                  string     `gorm:"primaryKey;size:36"`
	CustomerUserID      string     `gorm:"column:customer_user_id;size:128;index;not null"`
	CustomerDisplayName string     `gorm:"column:customer_display_name;size:200;not null"`
	OpenCustomerUserID  *string    `gorm:"column:open_customer_user_id;size:128;uniqueIndex:uniq_open_customer"`
	CreatedAt           time.Time  `gorm:"column:created_at;not null"`
	LastMessageAt       time.Time  `gorm:"column:last_message_at;index;not null"`
	LastMessagePreview  string     `gorm:"column:last_message_preview;size:800;not null"`
	LastMessageSender   SenderType `gorm:"column:last_message_sender;size:16;not null"`
	UnreadForAdmin      int        `gorm:"column:unread_for_admin_count;not null"`
	UnreadForCustomer   int        `gorm:"column:unread_for_customer_count;not null"`
	LastCustomerReadAt  *time.Time `gorm:"column:last_customer_read_at"`
	MessageSeq          uint64     `gorm:"column:message_seq;not null"`
	IsOpen              bool       `gorm:"column:is_open;index;not null"`
	ClosedAt            *time.Time `gorm:"column:closed_at"`

	Messages []Message `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// NewConversation returns an open conversation with no messages, read as of now.
func NewConversation(id, customerUserID, displayName string, now time.Time) *Conversation {
	owner := customerUserID
	readAt := now
	return &Conversation{
		ID:                  id,
		CustomerUserID:      customerUserID,
		CustomerDisplayName: Truncate(displayName, DisplayNameMaxLength),
		OpenCustomerUserID:  &owner,
		CreatedAt:           now,
		LastMessageAt:       now,
		LastMessagePreview:  StartedPreview,
		LastMessageSender:   SenderCustomer,
		LastCustomerReadAt:  &readAt,
		IsOpen:              true,
	}
}

// OwnedBy reports whether uid is the customer of the conversation.
func (c *Conversation) OwnedBy(uid string) bool {
	return uid != "" && c.CustomerUserID == uid
}

// Accessible reports whether the requester may read or act on the conversation.
func (c *Conversation) Accessible(uid string, isAdmin bool) bool {
	return isAdmin || c.OwnedBy(uid)
}

// MessageEffect is what appending one message does to its conversation.
type MessageEffect struct {
	At                     time.Time
	Preview                string
	Sender                 SenderType
	UnreadForAdminDelta    int
	UnreadForCustomerDelta int
}

func NewMessageEffect(m *Message) MessageEffect {
	e := MessageEffect{
		At:      m.CreatedAt,
		Preview: Truncate(m.Text, PreviewMaxLength),
		Sender:  m.SenderType,
	}
	if m.SenderType == SenderCustomer {
		e.UnreadForAdminDelta = 1
	} else {
		e.UnreadForCustomerDelta = 1
	}
	return e
}

// Apply mutates the in-memory conversation; Columns is the storage counterpart.
func (e MessageEffect) Apply(c *Conversation) {
	c.LastMessageAt = e.At
	c.LastMessagePreview = e.Preview
	c.LastMessageSender = e.Sender
	c.UnreadForAdmin += e.UnreadForAdminDelta
	c.UnreadForCustomer += e.UnreadForCustomerDelta
	c.MessageSeq++
}

// Columns expresses the effect as column updates; counters use in-place increments.
func (e MessageEffect) Columns() map[string]interface{} {
	return map[string]interface{}{
		"last_message_at":           e.At,
		"last_message_preview":      e.Preview,
		"last_message_sender":       e.Sender,
		"unread_for_admin_count":    gorm.Expr("unread_for_admin_count + ?", e.UnreadForAdminDelta),
		"unread_for_customer_count": gorm.Expr("unread_for_customer_count + ?", e.UnreadForCustomerDelta),
		"message_seq":               gorm.Expr("message_seq + 1"),
	}
}

// ReadReceipt marks one side of the conversation as read.
type ReadReceipt struct {
	Reader SenderType
	At     time.Time
}

func (r ReadReceipt) Apply(c *Conversation) {
	if r.Reader == SenderAdmin {
		c.UnreadForAdmin = 0
		return
	}
	at := r.At
	c.LastCustomerReadAt = &at
	c.UnreadForCustomer = 0
}

func (r ReadReceipt) Columns() map[string]interface{} {
	if r.Reader == SenderAdmin {
		return map[string]interface{}{"unread_for_admin_count": 0}
	}
	return map[string]interface{}{
		"last_customer_read_at":     r.At,
		"unread_for_customer_count": 0,
	}
}

// Closure closes a conversation and releases the customer's open slot.
type Closure struct {
	At time.Time
}

func (cl Closure) Apply(c *Conversation) {
	at := cl.At
	c.IsOpen = false
	c.OpenCustomerUserID = nil
	c.ClosedAt = &at
}

func (cl Closure) Columns() map[string]interface{} {
	return map[string]interface{}{
		"is_open":               false,
		"open_customer_user_id": nil,
		"closed_at":             cl.At,
	}
}

// Truncate cuts s to at most n characters.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
