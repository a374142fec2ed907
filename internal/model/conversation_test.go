package model

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConversation(t *testing.T) {
	now := time.Date(2026, 1, 7, 10, 0, 0, 0, time.UTC)
	c := NewConversation("c1", "cust-1", "Alice", now)

	assert.True(t, c.IsOpen)
	require.NotNil(t, c.OpenCustomerUserID)
	assert.Equal(t, "cust-1", *c.OpenCustomerUserID)
	require.NotNil(t, c.LastCustomerReadAt)
	assert.Equal(t, now, *c.LastCustomerReadAt)
	assert.Equal(t, now, c.LastMessageAt)
	assert.Equal(t, StartedPreview, c.LastMessagePreview)
	assert.Zero(t, c.UnreadForAdmin)
	assert.Zero(t, c.UnreadForCustomer)
}

func TestMessageEffect_Apply(t *testing.T) {
	now := time.Date(2026, 1, 7, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name             string
		sender           SenderType
		text             string
		wantAdmin        int
		wantCustomer     int
		wantPreviewRunes int
	}{
		{"customer message bumps admin counter", SenderCustomer, "hi", 1, 0, 2},
		{"admin message bumps customer counter", SenderAdmin, "reply", 0, 1, 5},
		{"long text is previewed at 200 characters", SenderAdmin, strings.Repeat("x", 250), 0, 1, 200},
		{"multibyte text is cut on characters", SenderCustomer, strings.Repeat("é", 201), 1, 0, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConversation("c1", "cust-1", "Alice", now)
			at := now.Add(time.Minute)
			m := &Message{SenderType: tt.sender, Text: tt.text, CreatedAt: at}

			NewMessageEffect(m).Apply(c)

			assert.Equal(t, tt.wantAdmin, c.UnreadForAdmin)
			assert.Equal(t, tt.wantCustomer, c.UnreadForCustomer)
			assert.Equal(t, tt.wantPreviewRunes, len([]rune(c.LastMessagePreview)))
			assert.Equal(t, tt.sender, c.LastMessageSender)
			assert.Equal(t, at, c.LastMessageAt)
			assert.Equal(t, uint64(1), c.MessageSeq)
			assert.Len(t, m.Text, len(tt.text))
		})
	}
}

func TestReadReceipt_Apply(t *testing.T) {
	now := time.Date(2026, 1, 7, 10, 0, 0, 0, time.UTC)
	c := NewConversation("c1", "cust-1", "Alice", now)
	c.UnreadForAdmin = 3
	c.UnreadForCustomer = 2

	ReadReceipt{Reader: SenderAdmin, At: now.Add(time.Hour)}.Apply(c)
	assert.Zero(t, c.UnreadForAdmin)
	assert.Equal(t, 2, c.UnreadForCustomer)
	assert.Equal(t, now, *c.LastCustomerReadAt)

	readAt := now.Add(2 * time.Hour)
	ReadReceipt{Reader: SenderCustomer, At: readAt}.Apply(c)
	assert.Zero(t, c.UnreadForCustomer)
	assert.Equal(t, readAt, *c.LastCustomerReadAt)
}

func TestReadReceipt_Columns(t *testing.T) {
	admin := ReadReceipt{Reader: SenderAdmin}.Columns()
	assert.Equal(t, map[string]interface{}{"unread_for_admin_count": 0}, admin)

	at := time.Date(2026, 1, 7, 10, 0, 0, 0, time.UTC)
	customer := ReadReceipt{Reader: SenderCustomer, At: at}.Columns()
	assert.Equal(t, 0, customer["unread_for_customer_count"])
	assert.Equal(t, at, customer["last_customer_read_at"])
}

func TestClosure_Apply(t *testing.T) {
	now := time.Date(2026, 1, 7, 10, 0, 0, 0, time.UTC)
	c := NewConversation("c1", "cust-1", "Alice", now)

	Closure{At: now}.Apply(c)

	assert.False(t, c.IsOpen)
	assert.Nil(t, c.OpenCustomerUserID)
	require.NotNil(t, c.ClosedAt)
}

func TestConversation_Accessible(t *testing.T) {
	c := &Conversation{CustomerUserID: "cust-1"}
	assert.True(t, c.Accessible("cust-1", false))
	assert.True(t, c.Accessible("admin-9", true))
	assert.False(t, c.Accessible("cust-2", false))
	assert.False(t, c.Accessible("", false))
}

func TestSenderType(t *testing.T) {
	var s SenderType
	require.NoError(t, s.UnmarshalJSON([]byte(`"Admin"`)))
	assert.Equal(t, SenderAdmin, s)
	assert.Equal(t, SenderCustomer, s.Opposite())
	assert.Error(t, s.UnmarshalJSON([]byte(`"Robot"`)))
}
