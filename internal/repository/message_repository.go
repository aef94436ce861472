package repository

import (
	"context"

	"gorm.io/gorm"

	"neomate-go/internal/model"
)

// MessageRepository 定义了消息数据的持久化操作。
// 消息只有创建和按会话读取两种操作，从不更新。
type MessageRepository interface {
	// ListByConversation 返回会话内的全部消息，按 created_at 正序。
	ListByConversation(ctx context.Context, conversationID string) ([]model.Message, error)
	Create(ctx context.Context, msg *model.Message) error
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建一个新的 MessageRepository 实例。
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// ListByConversation 按创建时间正序返回消息。空列表是合法结果。
func (r *messageRepository) ListByConversation(ctx context.Context, conversationID string) ([]model.Message, error) {
	var messages []model.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&messages).Error
	return messages, err
}

// Create 在数据库中创建一条新的消息记录。
func (r *messageRepository) Create(ctx context.Context, msg *model.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}
