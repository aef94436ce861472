package service

import (
	"context"

	"github.com/google/uuid"

	"neomate-go/internal/model"
	"neomate-go/internal/repository"
	"neomate-go/pkg/llm"
	"neomate-go/pkg/log"
)

// SendResult 是一次消息发送的完整结果。
type SendResult struct {
	UserMessage      *model.Message `json:"user_message"`
	AssistantMessage *model.Message `json:"assistant_message"`
	// Title 是处理后的会话标题，TitleChanged 表示本次是否触发了自动改名。
	Title        string `json:"title"`
	TitleChanged bool   `json:"title_changed"`
}

// ChatService 定义了对话消息流转的业务接口。
type ChatService interface {
	// SendMessage 处理一条用户消息：落库、维护会话标题、生成并落库助手回复。
	SendMessage(ctx context.Context, userID, conversationID, content string) (*SendResult, error)
}

type chatService struct {
	convRepo  repository.ConversationRepository
	msgRepo   repository.MessageRepository
	llmClient llm.Client
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(convRepo repository.ConversationRepository, msgRepo repository.MessageRepository, llmClient llm.Client) ChatService {
	return &chatService{
		convRepo:  convRepo,
		msgRepo:   msgRepo,
		llmClient: llmClient,
	}
}

// SendMessage 按固定顺序处理一条用户消息：
//
//  1. 校验会话归属；
//  2. 先把用户消息落库——用户输入必须在任何生成动作之前持久化；
//  3. 刷新会话活跃时间；
//  4. 标题仍为默认值时触发一次自动改名，之后不再自动改；
//  5. 生成助手回复并落库。生成永远返回文本（远程失败时为本地回复），
//     所以从这里开始不会再因生成问题失败。
func (s *chatService) SendMessage(ctx context.Context, userID, conversationID, content string) (*SendResult, error) {
	conv, err := s.ownedConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	userMsg := &model.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Content:        content,
		Role:           model.RoleUser,
	}
	if err := s.msgRepo.Create(ctx, userMsg); err != nil {
		return nil, err
	}

	if err := s.convRepo.Touch(ctx, conversationID); err != nil {
		log.Warnf("[ChatService] 刷新会话活跃时间失败, conversationID: %s, error: %v", conversationID, err)
	}

	title := conv.Title
	titleChanged := false
	if conv.Title == model.DefaultConversationTitle {
		newTitle := s.llmClient.GenerateTitle(ctx, content)
		if err := s.convRepo.UpdateTitle(ctx, conversationID, newTitle); err != nil {
			// 改名失败不阻断消息流程，标题保持默认值，下一条消息会再次尝试
			log.Warnf("[ChatService] 更新会话标题失败, conversationID: %s, error: %v", conversationID, err)
		} else {
			title = newTitle
			titleChanged = true
		}
	}

	history, err := s.msgRepo.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	reply := s.llmClient.GenerateReply(ctx, toLLMMessages(history))

	assistantMsg := &model.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Content:        reply,
		Role:           model.RoleAssistant,
	}
	if err := s.msgRepo.Create(ctx, assistantMsg); err != nil {
		return nil, err
	}

	return &SendResult{
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
		Title:            title,
		TitleChanged:     titleChanged,
	}, nil
}

// ownedConversation 查找会话并校验归属。
func (s *chatService) ownedConversation(ctx context.Context, userID, conversationID string) (*model.Conversation, error) {
	conv, err := s.convRepo.FindByID(ctx, conversationID)
	if err != nil {
		return nil, ErrConversationNotFound
	}
	if conv.UserID != userID {
		return nil, ErrConversationNotFound
	}
	return conv, nil
}

// toLLMMessages 将落库的消息转换为补全服务的消息格式。
func toLLMMessages(messages []model.Message) []llm.Message {
	out := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, llm.Message{Role: m.Role, Content: m.Content})
	}
	return out
}
