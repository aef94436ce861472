package voice

import (
	"context"

	"github.com/gorilla/websocket"
)

// Transport 抽象了到语音服务商的底层连接，便于在测试中替换。
type Transport interface {
	Connect(ctx context.Context, url string) error
	// Send 发送一帧。messageType 取 websocket.TextMessage 或 websocket.BinaryMessage。
	Send(messageType int, data []byte) error
	// ReadFrame 阻塞读取下一帧。连接关闭时返回错误。
	ReadFrame() (messageType int, data []byte, err error)
	Close(code int, reason string) error
}

// wsTransport 是基于 gorilla/websocket 的 Transport 实现。
type wsTransport struct {
	conn *websocket.Conn
}

// NewWebSocketTransport 创建一个 WebSocket Transport。
func NewWebSocketTransport() Transport {
	return &wsTransport{}
}

func (t *wsTransport) Connect(ctx context.Context, url string) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	t.conn = conn
	return nil
}

func (t *wsTransport) Send(messageType int, data []byte) error {
	return t.conn.WriteMessage(messageType, data)
}

func (t *wsTransport) ReadFrame() (int, []byte, error) {
	return t.conn.ReadMessage()
}

func (t *wsTransport) Close(code int, reason string) error {
	if t.conn == nil {
		return nil
	}
	// 尽力通知对端后关闭底层连接
	_ = t.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
	return t.conn.Close()
}
