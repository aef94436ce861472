package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"neomate-go/internal/model"
	"neomate-go/internal/repository"
)

// ErrConversationNotFound 表示会话不存在或不属于当前用户。
// 归属校验失败与记录不存在对外不做区分。
var ErrConversationNotFound = errors.New("conversation not found")

// ConversationService 定义了会话管理的业务接口。
type ConversationService interface {
	// List 返回用户的全部会话，按最近更新倒序。
	List(ctx context.Context, userID string) ([]model.Conversation, error)
	// Create 新建一个默认标题的空会话。
	Create(ctx context.Context, userID string) (*model.Conversation, error)
	// Rename 修改会话标题。新旧标题相同时直接返回，不产生写操作。
	Rename(ctx context.Context, userID, conversationID, title string) (*model.Conversation, error)
	// Delete 删除会话及其全部消息，并返回删除后应选中的会话 ID。
	// 没有剩余会话时返回空字符串。
	Delete(ctx context.Context, userID, conversationID string) (nextActiveID string, err error)
	// Messages 返回会话内的全部消息，按创建时间正序。
	Messages(ctx context.Context, userID, conversationID string) ([]model.Message, error)
}

type conversationService struct {
	convRepo repository.ConversationRepository
	msgRepo  repository.MessageRepository
}

// NewConversationService 创建一个新的 ConversationService 实例。
func NewConversationService(convRepo repository.ConversationRepository, msgRepo repository.MessageRepository) ConversationService {
	return &conversationService{
		convRepo: convRepo,
		msgRepo:  msgRepo,
	}
}

// List 返回用户的会话列表。
func (s *conversationService) List(ctx context.Context, userID string) ([]model.Conversation, error) {
	return s.convRepo.ListByUser(ctx, userID)
}

// Create 新建一个空会话，标题为默认值，等待首条消息触发自动改名。
func (s *conversationService) Create(ctx context.Context, userID string) (*model.Conversation, error) {
	conv := &model.Conversation{
		ID:     uuid.NewString(),
		UserID: userID,
		Title:  model.DefaultConversationTitle,
	}
	if err := s.convRepo.Create(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// Rename 修改会话标题。
func (s *conversationService) Rename(ctx context.Context, userID, conversationID, title string) (*model.Conversation, error) {
	conv, err := s.ownedConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	if conv.Title == title {
		return conv, nil
	}

	if err := s.convRepo.UpdateTitle(ctx, conversationID, title); err != nil {
		return nil, err
	}
	return s.convRepo.FindByID(ctx, conversationID)
}

// Delete 删除会话，并按"剩余会话中最近更新的一条"规则计算下一个选中项。
func (s *conversationService) Delete(ctx context.Context, userID, conversationID string) (string, error) {
	if _, err := s.ownedConversation(ctx, userID, conversationID); err != nil {
		return "", err
	}

	if err := s.convRepo.Delete(ctx, conversationID); err != nil {
		return "", err
	}

	remaining, err := s.convRepo.ListByUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(remaining) == 0 {
		return "", nil
	}
	// 列表已按 updated_at 倒序排列
	return remaining[0].ID, nil
}

// Messages 返回会话内的消息历史。
func (s *conversationService) Messages(ctx context.Context, userID, conversationID string) ([]model.Message, error) {
	if _, err := s.ownedConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	return s.msgRepo.ListByConversation(ctx, conversationID)
}

// ownedConversation 查找会话并校验归属。
func (s *conversationService) ownedConversation(ctx context.Context, userID, conversationID string) (*model.Conversation, error) {
	conv, err := s.convRepo.FindByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	if conv.UserID != userID {
		return nil, ErrConversationNotFound
	}
	return conv, nil
}
