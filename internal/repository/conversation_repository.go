package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"neomate-go/internal/model"
)

// ConversationRepository 定义了会话数据的持久化操作。
type ConversationRepository interface {
	// ListByUser 返回指定用户的全部会话，按 updated_at 倒序。
	ListByUser(ctx context.Context, userID string) ([]model.Conversation, error)
	Create(ctx context.Context, conv *model.Conversation) error
	FindByID(ctx context.Context, id string) (*model.Conversation, error)
	UpdateTitle(ctx context.Context, id, title string) error
	// Touch 刷新会话的 updated_at，使列表排序反映最近活动。
	Touch(ctx context.Context, id string) error
	// Delete 在同一事务中删除会话及其全部消息。
	Delete(ctx context.Context, id string) error
}

// conversationRepository 是 ConversationRepository 接口的 GORM 实现。
type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository 创建一个新的 ConversationRepository 实例。
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

// ListByUser 按最近更新时间倒序返回用户的会话列表。空列表是合法结果。
func (r *conversationRepository) ListByUser(ctx context.Context, userID string) ([]model.Conversation, error) {
	var conversations []model.Conversation
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&conversations).Error
	return conversations, err
}

// Create 在数据库中创建一条新的会话记录。
func (r *conversationRepository) Create(ctx context.Context, conv *model.Conversation) error {
	return r.db.WithContext(ctx).Create(conv).Error
}

// FindByID 根据 ID 查找会话。
func (r *conversationRepository) FindByID(ctx context.Context, id string) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// UpdateTitle 更新会话标题，updated_at 随之刷新。
func (r *conversationRepository) UpdateTitle(ctx context.Context, id, title string) error {
	return r.db.WithContext(ctx).
		Model(&model.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"title":      title,
			"updated_at": time.Now(),
		}).Error
}

// Touch 只刷新 updated_at。
func (r *conversationRepository) Touch(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&model.Conversation{}).
		Where("id = ?", id).
		Update("updated_at", time.Now()).Error
}

// Delete 删除会话。消息的级联删除在这里显式完成，
// 不依赖数据库层的外键配置。
func (r *conversationRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", id).Delete(&model.Message{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.Conversation{}).Error
	})
}
