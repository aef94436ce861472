package model

import "time"

// 消息角色取值。
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message 对应于数据库中的 'messages' 表。
// 消息一经创建不可修改，在会话内按 created_at 严格有序；
// 只会随所属会话的删除而级联删除。
type Message struct {
	ID             string    `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID string    `gorm:"type:uuid;index;not null" json:"conversation_id"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	Role           string    `gorm:"type:varchar(16);not null" json:"role"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Message) TableName() string {
	return "messages"
}

// ChatMessage 是不落库的对话消息，用于向补全服务传递历史。
type ChatMessage struct {
	Role    string `json:"role"` // "user"、"assistant" 或 "system"
	Content string `json:"content"`
}
