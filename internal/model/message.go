package model

import "time"

const MessageMaxLength = 2000

type Message struct {
	ID             string     `gorm:"primaryKey;size:36"`
	ConversationID string     `gorm:"column:conversation_id;size:36;not null;index:idx_conv_created,priority:1"`
	Seq            uint64     `gorm:"column:seq;not null"`
	SenderType     SenderType `gorm:"column:sender_type;size:16;not null"`
	SenderUserID   string     `gorm:"column:sender_user_id;size:128;index;not null"`
	Text           string     `gorm:"column:text;type:text;not null"`
	CreatedAt      time.Time  `gorm:"column:created_at;not null;index:idx_conv_created,priority:2"`
}

func (Message) TableName() string {
	return "messages"
}
