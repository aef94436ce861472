// Package voice 实现了与会话式语音服务商之间的实时会话状态机。
package voice

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"neomate-go/pkg/log"
)

// State 是语音会话的生命周期状态。
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateEnded
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateEnded:
		return "ended"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// ErrNotConnected 表示会话当前不处于可发送状态。
var ErrNotConnected = errors.New("voice session not connected")

// defaultConnectTimeout 是建立连接的默认上限。
const defaultConnectTimeout = 30 * time.Second

// Handlers 是会话向上层回调的事件集合。所有回调都在会话的读协程中
// 串行触发，回调实现不应阻塞。
type Handlers struct {
	// OnAudio 收到一帧下行音频（服务商原始格式）。
	OnAudio func(data []byte)
	// OnStatus 收到一条状态事件（转写、回复文本等）。
	OnStatus func(ev *StatusEvent)
	// OnStateChange 状态机发生迁移。
	OnStateChange func(from, to State)
	// OnError 会话进入 Error 态时携带原因。
	OnError func(err error)
}

// Session 是一次语音会话。
//
// 状态机：Idle → Connecting → Connected → Ended/Error。
// Connected 态下静音开关只影响上行音频，不影响连接本身。
// Close 和 Retry 都会完整释放当前连接；任何时刻最多只有一条活动连接。
type Session struct {
	mu        sync.Mutex
	state     State
	muted     bool
	transport Transport
	// newTransport 在 Retry 时创建全新连接，旧连接绝不复用
	newTransport   func() Transport
	handlers       Handlers
	connectTimeout time.Duration
	cancelRead     context.CancelFunc
}

// NewSession 创建一个处于 Idle 态的会话。
// connectTimeout 为零时使用默认值。
func NewSession(newTransport func() Transport, handlers Handlers, connectTimeout time.Duration) *Session {
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}
	return &Session{
		state:          StateIdle,
		newTransport:   newTransport,
		handlers:       handlers,
		connectTimeout: connectTimeout,
	}
}

// State 返回当前状态。
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Muted 返回当前静音状态。
func (s *Session) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

// Start 使用签名地址建立连接。只能从 Idle 态调用；
// 连接超时或失败会进入 Error 态。
func (s *Session) Start(ctx context.Context, signedURL string) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return errors.New("voice session already started")
	}
	notify := s.setStateLocked(StateConnecting)
	transport := s.newTransport()
	s.transport = transport
	s.mu.Unlock()
	notify()

	dialCtx, cancel := context.WithTimeout(ctx, s.connectTimeout)
	defer cancel()

	if err := transport.Connect(dialCtx, signedURL); err != nil {
		s.fail(err)
		return err
	}

	s.mu.Lock()
	// Close 可能在拨号期间到来，此时连接已被释放
	if s.state != StateConnecting {
		s.mu.Unlock()
		_ = transport.Close(websocket.CloseNormalClosure, "session closed")
		return errors.New("voice session closed during connect")
	}
	notify = s.setStateLocked(StateConnected)
	readCtx, cancelRead := context.WithCancel(context.Background())
	s.cancelRead = cancelRead
	s.mu.Unlock()
	notify()

	go s.readLoop(readCtx, transport)
	return nil
}

// readLoop 消费下行帧直到连接关闭。
// 正常关闭进入 Ended 态，异常关闭进入 Error 态。
func (s *Session) readLoop(ctx context.Context, transport Transport) {
	for {
		messageType, data, err := transport.ReadFrame()
		if err != nil {
			if ctx.Err() != nil {
				// 本端主动关闭，状态已由 Close/Retry 设置
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				s.end()
			} else {
				s.fail(err)
			}
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			if s.handlers.OnAudio != nil {
				s.handlers.OnAudio(data)
			}
		case websocket.TextMessage:
			ev, err := ParseStatusEvent(data)
			if err != nil {
				log.Warnf("[VoiceSession] 无法解析状态事件: %v", err)
				continue
			}
			if s.handlers.OnStatus != nil {
				s.handlers.OnStatus(ev)
			}
		}
	}
}

// SendAudio 上行一帧麦克风采样。静音时静默丢弃，不报错。
// 采样在发送前转换为 16 位小端 PCM。
func (s *Session) SendAudio(samples []float32) error {
	s.mu.Lock()
	if s.state != StateConnected {
		s.mu.Unlock()
		return ErrNotConnected
	}
	if s.muted {
		s.mu.Unlock()
		return nil
	}
	transport := s.transport
	s.mu.Unlock()

	return transport.Send(websocket.BinaryMessage, EncodePCM16(samples))
}

// SetMuted 切换静音。只在 Connected 态有意义，其他状态下是空操作。
func (s *Session) SetMuted(muted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnected {
		return
	}
	s.muted = muted
}

// Close 结束会话并释放连接。可以从任何状态调用，重复调用是空操作。
func (s *Session) Close() {
	s.mu.Lock()
	if s.state == StateEnded || s.state == StateError {
		s.mu.Unlock()
		return
	}
	transport := s.transport
	s.transport = nil
	if s.cancelRead != nil {
		s.cancelRead()
		s.cancelRead = nil
	}
	notify := s.setStateLocked(StateEnded)
	s.mu.Unlock()

	if transport != nil {
		_ = transport.Close(websocket.CloseNormalClosure, "session closed")
	}
	notify()
}

// Retry 在 Ended 或 Error 态重新建立会话。旧连接已在进入终态时释放，
// 这里先把状态机拨回 Idle 再走一遍完整的 Start 流程。
func (s *Session) Retry(ctx context.Context, signedURL string) error {
	s.mu.Lock()
	if s.state == StateConnecting || s.state == StateConnected {
		s.mu.Unlock()
		return errors.New("voice session still active")
	}
	// 防御性释放：终态下不应再持有连接
	if s.transport != nil {
		_ = s.transport.Close(websocket.CloseNormalClosure, "session retry")
		s.transport = nil
	}
	s.muted = false
	notify := s.setStateLocked(StateIdle)
	s.mu.Unlock()
	notify()

	return s.Start(ctx, signedURL)
}

// fail 将会话迁移到 Error 态并释放连接。
func (s *Session) fail(err error) {
	s.mu.Lock()
	if s.state == StateEnded || s.state == StateError {
		s.mu.Unlock()
		return
	}
	transport := s.transport
	s.transport = nil
	if s.cancelRead != nil {
		s.cancelRead()
		s.cancelRead = nil
	}
	notify := s.setStateLocked(StateError)
	s.mu.Unlock()

	if transport != nil {
		_ = transport.Close(websocket.CloseInternalServerErr, "session error")
	}
	notify()
	if s.handlers.OnError != nil {
		s.handlers.OnError(err)
	}
}

// end 将会话迁移到 Ended 态（对端正常关闭）。
func (s *Session) end() {
	s.mu.Lock()
	if s.state == StateEnded || s.state == StateError {
		s.mu.Unlock()
		return
	}
	transport := s.transport
	s.transport = nil
	if s.cancelRead != nil {
		s.cancelRead()
		s.cancelRead = nil
	}
	notify := s.setStateLocked(StateEnded)
	s.mu.Unlock()

	if transport != nil {
		_ = transport.Close(websocket.CloseNormalClosure, "remote closed")
	}
	notify()
}

// setStateLocked 修改状态并返回待触发的回调。调用方必须持有 s.mu，
// 并在释放锁之后执行返回的函数，保证回调内可以安全地再调会话方法。
func (s *Session) setStateLocked(to State) func() {
	from := s.state
	if from == to || s.handlers.OnStateChange == nil {
		s.state = to
		return func() {}
	}
	s.state = to
	return func() { s.handlers.OnStateChange(from, to) }
}
