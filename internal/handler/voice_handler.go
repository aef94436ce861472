package handler

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"neomate-go/internal/config"
	internalvoice "neomate-go/internal/voice"
	"neomate-go/pkg/log"
	"neomate-go/pkg/voice"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 来源校验交给部署层
	},
}

// VoiceHandler 负责语音会话相关的 API：签名地址下发与浏览器端的实时桥接。
// 服务商的 API key 永远留在服务端，浏览器只拿到限时的签名地址或桥接连接。
type VoiceHandler struct {
	voiceClient *voice.Client
	caps        config.Capabilities
	agentID     string
	connectTO   time.Duration
}

// NewVoiceHandler 创建一个新的 VoiceHandler 实例。
func NewVoiceHandler(voiceClient *voice.Client, cfg config.VoiceConfig, caps config.Capabilities) *VoiceHandler {
	return &VoiceHandler{
		voiceClient: voiceClient,
		caps:        caps,
		agentID:     cfg.AgentID,
		connectTO:   time.Duration(cfg.ConnectTimeoutSeconds) * time.Second,
	}
}

// SignedURL 为当前用户换取一个签名连接地址。
// 语音能力未配置时返回 503，前端应事先通过能力接口隐藏语音入口。
func (h *VoiceHandler) SignedURL(c *gin.Context) {
	if !h.caps.VoiceEnabled {
		respondError(c, http.StatusServiceUnavailable, "Voice conversations are not available right now.")
		return
	}

	signedURL, err := h.voiceClient.SignedURL(c.Request.Context(), h.agentID)
	if err != nil {
		log.Errorf("SignedURL: failed, error: %v", err)
		respondError(c, http.StatusBadGateway, "Could not start a voice conversation. Please try again.")
		return
	}

	respondOK(c, gin.H{
		"signed_url": signedURL,
		"agent_id":   h.agentID,
	})
}

// controlFrame 是浏览器上行的文本控制帧。
type controlFrame struct {
	Type string `json:"type"` // "mute"、"unmute"、"end" 或 "retry"
}

// browserConn 包装浏览器侧连接。下行写入来自多个协程（会话回调与桥接循环），
// 用互斥锁串行化。
type browserConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (b *browserConn) writeJSON(v interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn.WriteJSON(v)
}

func (b *browserConn) writeBinary(data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn.WriteMessage(websocket.BinaryMessage, data)
}

// Bridge 处理浏览器端的语音桥接 WebSocket。
//
// 上行：二进制帧是 float32 小端麦克风采样，文本帧是控制指令。
// 下行：二进制帧是服务商音频，文本帧是状态事件与状态机迁移通知。
func (h *VoiceHandler) Bridge(c *gin.Context) {
	if !h.caps.VoiceEnabled {
		respondError(c, http.StatusServiceUnavailable, "Voice conversations are not available right now.")
		return
	}

	signedURL, err := h.voiceClient.SignedURL(c.Request.Context(), h.agentID)
	if err != nil {
		log.Errorf("VoiceBridge: signed url failed, error: %v", err)
		respondError(c, http.StatusBadGateway, "Could not start a voice conversation. Please try again.")
		return
	}

	rawConn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("VoiceBridge: WebSocket 升级失败", err)
		return
	}
	defer rawConn.Close()

	browser := &browserConn{conn: rawConn}

	session := internalvoice.NewSession(internalvoice.NewWebSocketTransport, internalvoice.Handlers{
		OnAudio: func(data []byte) {
			_ = browser.writeBinary(data)
		},
		OnStatus: func(ev *internalvoice.StatusEvent) {
			_ = browser.writeJSON(json.RawMessage(ev.Raw))
		},
		OnStateChange: func(from, to internalvoice.State) {
			_ = browser.writeJSON(gin.H{"type": "state", "state": to.String()})
		},
		OnError: func(err error) {
			_ = browser.writeJSON(gin.H{"type": "error", "message": "Voice connection lost."})
		},
	}, h.connectTO)
	defer session.Close()

	if err := session.Start(c.Request.Context(), signedURL); err != nil {
		log.Warnf("VoiceBridge: connect failed, error: %v", err)
		return
	}

	for {
		messageType, data, err := rawConn.ReadMessage()
		if err != nil {
			// 浏览器断开，桥接随之结束
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			if err := session.SendAudio(internalvoice.DecodeFloat32(data)); err != nil {
				log.Warnf("VoiceBridge: send audio failed: %v", err)
			}
		case websocket.TextMessage:
			var ctrl controlFrame
			if err := json.Unmarshal(data, &ctrl); err != nil {
				continue
			}
			switch ctrl.Type {
			case "mute":
				session.SetMuted(true)
			case "unmute":
				session.SetMuted(false)
			case "end":
				session.Close()
				return
			case "retry":
				// 重试前换取新的签名地址：旧地址是一次性的
				freshURL, err := h.voiceClient.SignedURL(c.Request.Context(), h.agentID)
				if err != nil {
					_ = browser.writeJSON(gin.H{"type": "error", "message": "Could not reconnect. Please try again."})
					continue
				}
				if err := session.Retry(c.Request.Context(), freshURL); err != nil {
					log.Warnf("VoiceBridge: retry failed: %v", err)
				}
			}
		}
	}
}
