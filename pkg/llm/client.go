// Package llm 提供与大语言模型补全服务交互的客户端。
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"neomate-go/internal/config"
	"neomate-go/pkg/log"
)

// Message 表示一条角色消息。
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client 定义了补全客户端的接口。
//
// 两个方法都保证返回非空文本：远程调用只尝试一次，任何失败
// （网络错误、非 200 状态、限流、空响应体）都会退回到本地的
// 确定性回复表。生成失败从不作为错误暴露给调用方。
type Client interface {
	// GenerateReply 根据完整的历史消息（含刚追加的用户消息）生成一条助手回复。
	GenerateReply(ctx context.Context, history []Message) string
	// GenerateTitle 根据会话的首条消息生成一个 3-6 词的简短标题。
	GenerateTitle(ctx context.Context, firstMessage string) string
}

// titlePrompt 是远程标题生成使用的 system 提示。
const titlePrompt = `Generate a short, empathetic title (3-6 words) for a NICU support conversation based on the user message. Focus on the main topic or concern. Examples: "Breathing Concerns", "First NICU Day", "Feeding Questions", "Going Home Soon"`

type openaiClient struct {
	cfg     config.LLMConfig
	enabled bool
	client  *http.Client
}

// NewClient 创建一个 OpenAI 兼容的补全客户端。
// enabled 为 false（API key 缺失或为占位符）时直接走本地回复表。
func NewClient(cfg config.LLMConfig, enabled bool) Client {
	return &openaiClient{
		cfg:     cfg,
		enabled: enabled,
		client:  &http.Client{},
	}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	TopP        *float64  `json:"top_p,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// GenerateReply 先尝试远程补全，失败时退回到关键词匹配的本地回复。
// 同一条用户消息总是命中同一个回复分档。
func (c *openaiClient) GenerateReply(ctx context.Context, history []Message) string {
	userMessage := lastUserMessage(history)

	if !c.enabled {
		return FallbackReply(userMessage)
	}

	reply, err := c.complete(ctx, c.composeMessages(history))
	if err != nil {
		log.Warnf("[LLMClient] 远程补全失败，使用本地回复: %v", err)
		return FallbackReply(userMessage)
	}
	return reply
}

// GenerateTitle 先尝试远程生成标题，失败时退回到关键词匹配的本地标题。
func (c *openaiClient) GenerateTitle(ctx context.Context, firstMessage string) string {
	if !c.enabled {
		return FallbackTitle(firstMessage)
	}

	messages := []Message{
		{Role: "system", Content: titlePrompt},
		{Role: "user", Content: firstMessage},
	}
	title, err := c.complete(ctx, messages)
	if err != nil {
		log.Warnf("[LLMClient] 远程标题生成失败，使用本地标题: %v", err)
		return FallbackTitle(firstMessage)
	}
	return strings.Trim(title, `"`)
}

// composeMessages 构建远程请求的消息序列：system 提示 + 最近的历史窗口。
func (c *openaiClient) composeMessages(history []Message) []Message {
	window := c.cfg.HistoryWindow
	if window <= 0 {
		window = 6
	}
	if len(history) > window {
		history = history[len(history)-window:]
	}

	messages := make([]Message, 0, len(history)+1)
	if c.cfg.SystemPrompt != "" {
		messages = append(messages, Message{Role: "system", Content: c.cfg.SystemPrompt})
	}
	messages = append(messages, history...)
	return messages
}

// complete 调用一次 chat/completions 接口。不做重试：宁可快速退回
// 本地回复，也不让用户等待多次远程尝试。
func (c *openaiClient) complete(ctx context.Context, messages []Message) (string, error) {
	reqBody := chatRequest{
		Model:    c.cfg.Model,
		Messages: messages,
	}
	if c.cfg.Generation.Temperature != 0 {
		t := c.cfg.Generation.Temperature
		reqBody.Temperature = &t
	}
	if c.cfg.Generation.TopP != 0 {
		p := c.cfg.Generation.TopP
		reqBody.TopP = &p
	}
	if c.cfg.Generation.MaxTokens != 0 {
		m := c.cfg.Generation.MaxTokens
		reqBody.MaxTokens = &m
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.BaseURL+"/chat/completions", bytes.NewReader(reqBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create chat request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call chat api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("chat api returned non-200 status: %s, body: %s", resp.Status, string(bodyBytes))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", errors.New("chat api returned no choices")
	}
	content := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("chat api returned empty content")
	}
	return content, nil
}

// lastUserMessage 返回历史中最后一条 user 消息的内容。
func lastUserMessage(history []Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == "user" {
			return history[i].Content
		}
	}
	return ""
}
