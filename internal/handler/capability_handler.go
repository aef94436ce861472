package handler

import (
	"github.com/gin-gonic/gin"

	"neomate-go/internal/config"
)

// CapabilityHandler 暴露服务端在启动时解析出的能力开关，
// 前端据此决定隐藏语音入口或提示 AI 不可用。
type CapabilityHandler struct {
	caps config.Capabilities
}

// NewCapabilityHandler 创建一个新的 CapabilityHandler 实例。
func NewCapabilityHandler(caps config.Capabilities) *CapabilityHandler {
	return &CapabilityHandler{caps: caps}
}

// Get 返回能力开关。
func (h *CapabilityHandler) Get(c *gin.Context) {
	respondOK(c, h.caps)
}
