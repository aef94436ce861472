package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neomate-go/internal/config"
	"neomate-go/internal/model"
	"neomate-go/pkg/llm"
)

func newChatFixture(t *testing.T, llmClient llm.Client) (ChatService, *fakeConvRepo, *fakeMsgRepo, *model.Conversation) {
	t.Helper()
	convRepo := newFakeConvRepo()
	msgRepo := newFakeMsgRepo()

	conv := &model.Conversation{ID: "conv-1", UserID: "user-1", Title: model.DefaultConversationTitle}
	require.NoError(t, convRepo.Create(context.Background(), conv))

	return NewChatService(convRepo, msgRepo, llmClient), convRepo, msgRepo, conv
}

func TestSendMessagePersistsBothMessages(t *testing.T) {
	svc, _, msgRepo, conv := newChatFixture(t, &fakeLLM{reply: "assistant reply", title: "Some Title"})

	result, err := svc.SendMessage(context.Background(), "user-1", conv.ID, "hello")
	require.NoError(t, err)

	assert.Equal(t, "hello", result.UserMessage.Content)
	assert.Equal(t, model.RoleUser, result.UserMessage.Role)
	assert.Equal(t, "assistant reply", result.AssistantMessage.Content)
	assert.Equal(t, model.RoleAssistant, result.AssistantMessage.Role)

	messages, err := msgRepo.ListByConversation(context.Background(), conv.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	// 用户消息先于助手消息持久化
	assert.Equal(t, model.RoleUser, messages[0].Role)
	assert.Equal(t, model.RoleAssistant, messages[1].Role)
	assert.False(t, messages[1].CreatedAt.Before(messages[0].CreatedAt))
}

// 标题只在仍为默认值时自动改一次，之后不再自动改。
func TestSendMessageRenamesTitleOnce(t *testing.T) {
	lc := &fakeLLM{reply: "reply", title: "Breathing Concerns"}
	svc, convRepo, _, conv := newChatFixture(t, lc)

	result, err := svc.SendMessage(context.Background(), "user-1", conv.ID, "worried about breathing")
	require.NoError(t, err)
	assert.True(t, result.TitleChanged)
	assert.Equal(t, "Breathing Concerns", result.Title)

	result, err = svc.SendMessage(context.Background(), "user-1", conv.ID, "another message")
	require.NoError(t, err)
	assert.False(t, result.TitleChanged)
	assert.Equal(t, 1, lc.titleCalls)

	got, err := convRepo.FindByID(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Breathing Concerns", got.Title)
}

// 用户手动改过名的会话不会被自动改名，即使还没有任何消息。
func TestSendMessageSkipsRenameForCustomTitle(t *testing.T) {
	lc := &fakeLLM{reply: "reply", title: "Should Not Appear"}
	svc, convRepo, _, conv := newChatFixture(t, lc)
	require.NoError(t, convRepo.UpdateTitle(context.Background(), conv.ID, "My Custom Title"))

	result, err := svc.SendMessage(context.Background(), "user-1", conv.ID, "first message")
	require.NoError(t, err)
	assert.False(t, result.TitleChanged)
	assert.Equal(t, 0, lc.titleCalls)

	got, err := convRepo.FindByID(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "My Custom Title", got.Title)
}

func TestSendMessageTouchesConversation(t *testing.T) {
	svc, convRepo, _, conv := newChatFixture(t, &fakeLLM{reply: "reply", title: "t"})
	createdAt := conv.CreatedAt

	time.Sleep(5 * time.Millisecond)
	_, err := svc.SendMessage(context.Background(), "user-1", conv.ID, "hello")
	require.NoError(t, err)

	got, err := convRepo.FindByID(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.After(createdAt))
}

func TestSendMessageRejectsForeignConversation(t *testing.T) {
	svc, _, msgRepo, conv := newChatFixture(t, &fakeLLM{reply: "reply", title: "t"})

	_, err := svc.SendMessage(context.Background(), "someone-else", conv.ID, "hello")
	assert.ErrorIs(t, err, ErrConversationNotFound)

	messages, _ := msgRepo.ListByConversation(context.Background(), conv.ID)
	assert.Empty(t, messages)
}

func TestSendMessageUnknownConversation(t *testing.T) {
	svc, _, _, _ := newChatFixture(t, &fakeLLM{reply: "reply", title: "t"})
	_, err := svc.SendMessage(context.Background(), "user-1", "missing", "hello")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

// AI 未配置时走本地回复表：发送含 "breathing" 的消息总是得到
// 呼吸支持分档的回复，且会话标题被改为 "Breathing Concerns"。
func TestSendMessageWithLocalReplies(t *testing.T) {
	localClient := llm.NewClient(config.LLMConfig{HistoryWindow: 6}, false)
	svc, convRepo, _, conv := newChatFixture(t, localClient)

	result, err := svc.SendMessage(context.Background(), "user-1", conv.ID, "I'm worried about my baby's breathing")
	require.NoError(t, err)

	assert.Contains(t, result.AssistantMessage.Content, "breathing support is very common in the NICU")
	assert.True(t, result.TitleChanged)
	assert.Equal(t, "Breathing Concerns", result.Title)

	got, err := convRepo.FindByID(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Breathing Concerns", got.Title)
}
