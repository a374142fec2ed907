package model

import "time"

type Notification struct {
	ID             string     `gorm:"primaryKey;size:36"`
	UserID         string     `gorm:"column:user_id;size:128;index:idx_user_created,priority:1;not null"`
	Title          string     `gorm:"column:title;size:200;not null"`
	Subtitle       string     `gorm:"column:subtitle;size:200"`
	Message        string     `gorm:"column:message;size:2000"`
	ConversationID *string    `gorm:"column:conversation_id;size:36;index"`
	ReadAt         *time.Time `gorm:"column:read_at"`
	CreatedAt      time.Time  `gorm:"column:created_at;not null;index:idx_user_created,priority:2"`
}

func (Notification) TableName() string {
	return "notifications"
}
