package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"neomate-go/internal/middleware"
	"neomate-go/internal/service"
	"neomate-go/pkg/log"
)

// ConversationHandler 负责处理会话管理相关的 API 请求。
type ConversationHandler struct {
	convService service.ConversationService
}

// NewConversationHandler 创建一个新的 ConversationHandler 实例。
func NewConversationHandler(convService service.ConversationService) *ConversationHandler {
	return &ConversationHandler{convService: convService}
}

// List 返回当前用户的会话列表，按最近更新倒序。
func (h *ConversationHandler) List(c *gin.Context) {
	conversations, err := h.convService.List(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		log.Errorf("ListConversations: failed, error: %v", err)
		respondError(c, http.StatusInternalServerError, "Could not load your conversations.")
		return
	}
	respondOK(c, conversations)
}

// Create 新建一个空会话。
func (h *ConversationHandler) Create(c *gin.Context) {
	conv, err := h.convService.Create(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		log.Errorf("CreateConversation: failed, error: %v", err)
		respondError(c, http.StatusInternalServerError, "Could not start a new conversation.")
		return
	}
	respondOK(c, conv)
}

// RenameRequest 定义了重命名 API 的请求体结构。
type RenameRequest struct {
	Title string `json:"title" binding:"required"`
}

// Rename 修改会话标题。
func (h *ConversationHandler) Rename(c *gin.Context) {
	var req RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "A title is required.")
		return
	}

	conv, err := h.convService.Rename(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"), req.Title)
	if err != nil {
		if errors.Is(err, service.ErrConversationNotFound) {
			respondError(c, http.StatusNotFound, "Conversation not found.")
			return
		}
		log.Errorf("RenameConversation: failed, error: %v", err)
		respondError(c, http.StatusInternalServerError, "Could not rename the conversation.")
		return
	}
	respondOK(c, conv)
}

// Delete 删除会话及其消息，返回删除后应选中的会话 ID。
func (h *ConversationHandler) Delete(c *gin.Context) {
	nextActiveID, err := h.convService.Delete(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrConversationNotFound) {
			respondError(c, http.StatusNotFound, "Conversation not found.")
			return
		}
		log.Errorf("DeleteConversation: failed, error: %v", err)
		respondError(c, http.StatusInternalServerError, "Could not delete the conversation.")
		return
	}
	respondOK(c, gin.H{"next_active_id": nextActiveID})
}

// Messages 返回会话内的消息历史，按创建时间正序。
func (h *ConversationHandler) Messages(c *gin.Context) {
	messages, err := h.convService.Messages(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrConversationNotFound) {
			respondError(c, http.StatusNotFound, "Conversation not found.")
			return
		}
		log.Errorf("ListMessages: failed, error: %v", err)
		respondError(c, http.StatusInternalServerError, "Could not load messages.")
		return
	}
	respondOK(c, messages)
}
