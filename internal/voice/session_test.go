package voice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type readResult struct {
	messageType int
	data        []byte
	err         error
}

// fakeTransport 是测试用的内存 Transport。
type fakeTransport struct {
	mu          sync.Mutex
	connectErr  error
	connectHang bool
	reads       chan readResult
	sent        [][]byte
	closeCount  int
	closeCode   int
	done        chan struct{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		reads: make(chan readResult, 16),
		done:  make(chan struct{}),
	}
}

func (f *fakeTransport) Connect(ctx context.Context, url string) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	if f.connectHang {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (f *fakeTransport) Send(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, data)
	return nil
}

func (f *fakeTransport) ReadFrame() (int, []byte, error) {
	select {
	case r := <-f.reads:
		return r.messageType, r.data, r.err
	case <-f.done:
		return 0, nil, errors.New("transport closed")
	}
}

func (f *fakeTransport) Close(code int, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCount++
	f.closeCode = code
	select {
	case <-f.done:
	default:
		close(f.done)
	}
	return nil
}

func (f *fakeTransport) sentFrames() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeTransport) closes() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCount, f.closeCode
}

func waitForState(t *testing.T, s *Session, want State) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if s.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %s, current state %s", want, s.State())
}

func TestSessionStartTransitions(t *testing.T) {
	ft := newFakeTransport()
	var mu sync.Mutex
	var transitions []State
	s := NewSession(func() Transport { return ft }, Handlers{
		OnStateChange: func(from, to State) {
			mu.Lock()
			transitions = append(transitions, to)
			mu.Unlock()
		},
	}, 0)

	require.NoError(t, s.Start(context.Background(), "wss://example"))
	assert.Equal(t, StateConnected, s.State())

	mu.Lock()
	assert.Equal(t, []State{StateConnecting, StateConnected}, transitions)
	mu.Unlock()
}

func TestSessionStartTwiceFails(t *testing.T) {
	ft := newFakeTransport()
	s := NewSession(func() Transport { return ft }, Handlers{}, 0)

	require.NoError(t, s.Start(context.Background(), "wss://example"))
	assert.Error(t, s.Start(context.Background(), "wss://example"))
}

func TestSessionConnectFailure(t *testing.T) {
	ft := newFakeTransport()
	ft.connectErr = errors.New("dial refused")

	var gotErr error
	s := NewSession(func() Transport { return ft }, Handlers{
		OnError: func(err error) { gotErr = err },
	}, 0)

	assert.Error(t, s.Start(context.Background(), "wss://example"))
	assert.Equal(t, StateError, s.State())
	assert.Error(t, gotErr)
}

func TestSessionConnectTimeout(t *testing.T) {
	ft := newFakeTransport()
	ft.connectHang = true
	s := NewSession(func() Transport { return ft }, Handlers{}, 50*time.Millisecond)

	err := s.Start(context.Background(), "wss://example")
	assert.Error(t, err)
	assert.Equal(t, StateError, s.State())
}

func TestSendAudioBeforeStart(t *testing.T) {
	s := NewSession(func() Transport { return newFakeTransport() }, Handlers{}, 0)
	assert.ErrorIs(t, s.SendAudio([]float32{0.5}), ErrNotConnected)
}

func TestSendAudioEncodesPCM(t *testing.T) {
	ft := newFakeTransport()
	s := NewSession(func() Transport { return ft }, Handlers{}, 0)
	require.NoError(t, s.Start(context.Background(), "wss://example"))

	samples := []float32{0.5, -0.5}
	require.NoError(t, s.SendAudio(samples))

	frames := ft.sentFrames()
	require.Len(t, frames, 1)
	assert.Equal(t, EncodePCM16(samples), frames[0])
}

// 静音期间上行音频被静默丢弃；取消静音后恢复发送。
func TestMuteSuppressesUpstreamAudio(t *testing.T) {
	ft := newFakeTransport()
	s := NewSession(func() Transport { return ft }, Handlers{}, 0)
	require.NoError(t, s.Start(context.Background(), "wss://example"))

	s.SetMuted(true)
	require.NoError(t, s.SendAudio([]float32{0.5}))
	assert.Empty(t, ft.sentFrames())

	s.SetMuted(false)
	require.NoError(t, s.SendAudio([]float32{0.5}))
	assert.Len(t, ft.sentFrames(), 1)
}

func TestDownstreamFramesDispatch(t *testing.T) {
	ft := newFakeTransport()

	audioCh := make(chan []byte, 1)
	statusCh := make(chan *StatusEvent, 1)
	s := NewSession(func() Transport { return ft }, Handlers{
		OnAudio:  func(data []byte) { audioCh <- data },
		OnStatus: func(ev *StatusEvent) { statusCh <- ev },
	}, 0)
	require.NoError(t, s.Start(context.Background(), "wss://example"))

	ft.reads <- readResult{messageType: websocket.BinaryMessage, data: []byte{1, 2, 3}}
	ft.reads <- readResult{messageType: websocket.TextMessage, data: []byte(`{"type":"agent_response","text":"hi"}`)}

	select {
	case data := <-audioCh:
		assert.Equal(t, []byte{1, 2, 3}, data)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for audio frame")
	}
	select {
	case ev := <-statusCh:
		assert.Equal(t, EventAgentResponse, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for status event")
	}
}

func TestRemoteNormalClosureEndsSession(t *testing.T) {
	ft := newFakeTransport()
	s := NewSession(func() Transport { return ft }, Handlers{}, 0)
	require.NoError(t, s.Start(context.Background(), "wss://example"))

	ft.reads <- readResult{err: &websocket.CloseError{Code: websocket.CloseNormalClosure}}
	waitForState(t, s, StateEnded)
}

func TestRemoteAbnormalClosureFailsSession(t *testing.T) {
	ft := newFakeTransport()
	errCh := make(chan error, 1)
	s := NewSession(func() Transport { return ft }, Handlers{
		OnError: func(err error) { errCh <- err },
	}, 0)
	require.NoError(t, s.Start(context.Background(), "wss://example"))

	ft.reads <- readResult{err: &websocket.CloseError{Code: websocket.CloseAbnormalClosure}}
	waitForState(t, s, StateError)

	select {
	case err := <-errCh:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for error callback")
	}
}

// Close 可以重复调用，底层连接只释放一次。
func TestCloseIsIdempotent(t *testing.T) {
	ft := newFakeTransport()
	s := NewSession(func() Transport { return ft }, Handlers{}, 0)
	require.NoError(t, s.Start(context.Background(), "wss://example"))

	s.Close()
	s.Close()
	s.Close()

	assert.Equal(t, StateEnded, s.State())
	count, code := ft.closes()
	assert.Equal(t, 1, count)
	assert.Equal(t, websocket.CloseNormalClosure, code)
}

func TestCloseFromIdleIsSafe(t *testing.T) {
	s := NewSession(func() Transport { return newFakeTransport() }, Handlers{}, 0)
	s.Close()
	assert.Equal(t, StateEnded, s.State())
}

// Retry 总是新建连接，绝不复用已进入终态的旧连接。
func TestRetryCreatesFreshTransport(t *testing.T) {
	transports := []*fakeTransport{newFakeTransport(), newFakeTransport()}
	var created int
	var mu sync.Mutex
	factory := func() Transport {
		mu.Lock()
		defer mu.Unlock()
		t := transports[created]
		created++
		return t
	}

	s := NewSession(factory, Handlers{}, 0)
	require.NoError(t, s.Start(context.Background(), "wss://example"))

	s.Close()
	require.NoError(t, s.Retry(context.Background(), "wss://example-fresh"))

	assert.Equal(t, StateConnected, s.State())
	mu.Lock()
	assert.Equal(t, 2, created)
	mu.Unlock()

	// 旧连接恰好关闭一次，新连接未被关闭
	oldCount, _ := transports[0].closes()
	newCount, _ := transports[1].closes()
	assert.Equal(t, 1, oldCount)
	assert.Equal(t, 0, newCount)
}

func TestRetryWhileActiveFails(t *testing.T) {
	ft := newFakeTransport()
	s := NewSession(func() Transport { return ft }, Handlers{}, 0)
	require.NoError(t, s.Start(context.Background(), "wss://example"))

	assert.Error(t, s.Retry(context.Background(), "wss://example"))
	assert.Equal(t, StateConnected, s.State())
}

// Retry 重置静音状态：新会话从未静音开始。
func TestRetryResetsMute(t *testing.T) {
	transports := []*fakeTransport{newFakeTransport(), newFakeTransport()}
	var created int
	factory := func() Transport {
		t := transports[created]
		created++
		return t
	}

	s := NewSession(factory, Handlers{}, 0)
	require.NoError(t, s.Start(context.Background(), "wss://example"))
	s.SetMuted(true)
	s.Close()

	require.NoError(t, s.Retry(context.Background(), "wss://example"))
	assert.False(t, s.Muted())
}
