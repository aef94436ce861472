package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"neomate-go/internal/middleware"
	"neomate-go/internal/service"
	"neomate-go/pkg/log"
)

// ChatHandler 负责处理消息发送相关的 API 请求。
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler 创建一个新的 ChatHandler 实例。
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// SendMessageRequest 定义了发送消息 API 的请求体结构。
type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// SendMessage 处理一条用户消息并返回助手回复。
// 响应中总是包含一条助手消息：生成失败时由本地回复兜底。
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		respondError(c, http.StatusBadRequest, "Message content cannot be empty.")
		return
	}

	result, err := h.chatService.SendMessage(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"), req.Content)
	if err != nil {
		if errors.Is(err, service.ErrConversationNotFound) {
			respondError(c, http.StatusNotFound, "Conversation not found.")
			return
		}
		log.Errorf("SendMessage: failed, conversationID: %s, error: %v", c.Param("id"), err)
		respondError(c, http.StatusInternalServerError, "Could not send your message. Please try again.")
		return
	}

	respondOK(c, result)
}
