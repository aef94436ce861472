package model

import "time"

// DefaultConversationTitle 是新建会话的默认标题。
// 首条消息发送时若标题仍为该值，会触发一次自动改名。
const DefaultConversationTitle = "New Conversation"

// Conversation 对应于数据库中的 'conversations' 表。
// 会话只对其所有者可见、可修改。
type Conversation struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string    `gorm:"type:uuid;index;not null" json:"user_id"`
	Title     string    `gorm:"type:varchar(255);not null" json:"title"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Conversation) TableName() string {
	return "conversations"
}
