package router

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-weave/internal/core/endpoint"
	"github.com/dep2p/go-weave/internal/core/metrics"
	"github.com/dep2p/go-weave/pkg/interfaces"
	"github.com/dep2p/go-weave/pkg/types"
)

// ============================================================================
// 测试替身
// ============================================================================

// stubEndpoint 由测试喂入连接的端点替身
type stubEndpoint struct {
	conns  chan interfaces.Connection
	done   chan struct{}
	closed atomic.Bool
}

func newStubEndpoint() *stubEndpoint {
	return &stubEndpoint{
		conns: make(chan interfaces.Connection, 8),
		done:  make(chan struct{}),
	}
}

func (s *stubEndpoint) ID() types.NodeID        { return types.NodeID{} }
func (s *stubEndpoint) Addrs() []string         { return nil }
func (s *stubEndpoint) NodeAddr() types.NodeAddr { return types.NodeAddr{} }

func (s *stubEndpoint) Online() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (s *stubEndpoint) Dial(_ context.Context, _ types.NodeAddr, _ string) (interfaces.Connection, error) {
	return nil, errors.New("stub endpoint cannot dial")
}

func (s *stubEndpoint) Accept(ctx context.Context) (interfaces.Connection, error) {
	select {
	case c := <-s.conns:
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, endpoint.ErrEndpointClosed
	}
}

func (s *stubEndpoint) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	close(s.done)
	return nil
}

// stubConn 带指定 ALPN 标签的连接替身
type stubConn struct {
	alpn   string
	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool
}

func newStubConn(alpn string) *stubConn {
	ctx, cancel := context.WithCancel(context.Background())
	return &stubConn{alpn: alpn, ctx: ctx, cancel: cancel}
}

func (c *stubConn) RemoteID() types.NodeID { return types.NodeID{} }
func (c *stubConn) ALPN() string           { return c.alpn }

func (c *stubConn) RemoteAddr() net.Addr {
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 4242}
}

func (c *stubConn) OpenStream(_ context.Context) (interfaces.Stream, error) {
	return nil, errors.New("stub connection has no streams")
}

func (c *stubConn) AcceptStream(_ context.Context) (interfaces.Stream, error) {
	return nil, errors.New("stub connection has no streams")
}

func (c *stubConn) Context() context.Context { return c.ctx }

func (c *stubConn) Close() error {
	c.closed.Store(true)
	c.cancel()
	return nil
}

// stubHandler 记录收到连接的处理器替身
type stubHandler struct {
	mu        sync.Mutex
	accepted  int
	acceptErr error
	panicMsg  string
	block     chan struct{}

	shutdowns   atomic.Int32
	shutdownErr error
}

func (h *stubHandler) Accept(_ context.Context, conn interfaces.Connection) error {
	if h.panicMsg != "" {
		panic(h.panicMsg)
	}
	h.mu.Lock()
	h.accepted++
	h.mu.Unlock()
	if h.block != nil {
		<-h.block
	}
	return h.acceptErr
}

func (h *stubHandler) Shutdown(_ context.Context) error {
	h.shutdowns.Add(1)
	return h.shutdownErr
}

func (h *stubHandler) acceptedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.accepted
}

// newTestRouter 构造已启动的路由器
func newTestRouter(t *testing.T, regs []Registration) (*Router, *stubEndpoint) {
	t.Helper()

	ep := newStubEndpoint()
	r, err := New(ep, regs, metrics.New())
	require.NoError(t, err)
	require.NoError(t, r.Start())
	t.Cleanup(func() { _ = r.Shutdown(context.Background()) })
	return r, ep
}

// ============================================================================
// 构造测试
// ============================================================================

// TestNew_Validation 测试注册表校验
func TestNew_Validation(t *testing.T) {
	m := metrics.New()
	h := &stubHandler{}

	_, err := New(newStubEndpoint(), nil, m)
	assert.ErrorIs(t, err, ErrNoProtocols)

	_, err = New(newStubEndpoint(), []Registration{{Tag: "", Handler: h}}, m)
	assert.ErrorIs(t, err, ErrEmptyTag)

	_, err = New(newStubEndpoint(), []Registration{{Tag: "weave/a/0", Handler: nil}}, m)
	assert.ErrorIs(t, err, ErrNilHandler)

	_, err = New(newStubEndpoint(), []Registration{
		{Tag: "weave/a/0", Handler: h},
		{Tag: "weave/a/0", Handler: h},
	}, m)
	assert.ErrorIs(t, err, ErrDuplicateTag)

	t.Log("✅ 注册表校验测试通过")
}

// TestRouter_Tags 测试标签按注册顺序返回
func TestRouter_Tags(t *testing.T) {
	r, err := New(newStubEndpoint(), []Registration{
		{Tag: "weave/gossip/0", Handler: &stubHandler{}},
		{Tag: "weave/blobs/0", Handler: &stubHandler{}},
		{Tag: "weave/ping/0", Handler: &stubHandler{}},
	}, metrics.New())
	require.NoError(t, err)

	assert.Equal(t, []string{"weave/gossip/0", "weave/blobs/0", "weave/ping/0"}, r.Tags())
}

// ============================================================================
// 分发测试
// ============================================================================

// TestRouter_DispatchByALPN 测试连接按 ALPN 标签分发给对应处理器
func TestRouter_DispatchByALPN(t *testing.T) {
	gossipH := &stubHandler{}
	blobsH := &stubHandler{}
	_, ep := newTestRouter(t, []Registration{
		{Tag: "weave/gossip/0", Handler: gossipH},
		{Tag: "weave/blobs/0", Handler: blobsH},
	})

	ep.conns <- newStubConn("weave/gossip/0")
	ep.conns <- newStubConn("weave/blobs/0")
	ep.conns <- newStubConn("weave/gossip/0")

	require.Eventually(t, func() bool {
		return gossipH.acceptedCount() == 2 && blobsH.acceptedCount() == 1
	}, time.Second, 10*time.Millisecond)

	t.Log("✅ ALPN 分发测试通过")
}

// TestRouter_HandlerErrorClosesConn 测试处理器出错只关闭当前连接
func TestRouter_HandlerErrorClosesConn(t *testing.T) {
	badH := &stubHandler{acceptErr: errors.New("handshake rejected")}
	goodH := &stubHandler{}
	_, ep := newTestRouter(t, []Registration{
		{Tag: "weave/bad/0", Handler: badH},
		{Tag: "weave/good/0", Handler: goodH},
	})

	badConn := newStubConn("weave/bad/0")
	ep.conns <- badConn
	ep.conns <- newStubConn("weave/good/0")

	require.Eventually(t, func() bool {
		return badConn.closed.Load() && goodH.acceptedCount() == 1
	}, time.Second, 10*time.Millisecond)

	t.Log("✅ 处理器错误隔离测试通过")
}

// TestRouter_HandlerPanicIsolated 测试处理器 panic 不影响其他连接
func TestRouter_HandlerPanicIsolated(t *testing.T) {
	panicH := &stubHandler{panicMsg: "boom"}
	goodH := &stubHandler{}
	_, ep := newTestRouter(t, []Registration{
		{Tag: "weave/panic/0", Handler: panicH},
		{Tag: "weave/good/0", Handler: goodH},
	})

	panicConn := newStubConn("weave/panic/0")
	ep.conns <- panicConn
	ep.conns <- newStubConn("weave/good/0")

	require.Eventually(t, func() bool {
		return panicConn.closed.Load() && goodH.acceptedCount() == 1
	}, time.Second, 10*time.Millisecond)

	t.Log("✅ 处理器崩溃隔离测试通过")
}

// ============================================================================
// 关闭测试
// ============================================================================

// TestRouter_ShutdownIdempotent 测试重复关闭
func TestRouter_ShutdownIdempotent(t *testing.T) {
	h := &stubHandler{}
	ep := newStubEndpoint()
	r, err := New(ep, []Registration{{Tag: "weave/a/0", Handler: h}}, metrics.New())
	require.NoError(t, err)
	require.NoError(t, r.Start())

	require.NoError(t, r.Shutdown(context.Background()))
	assert.Equal(t, int32(1), h.shutdowns.Load())
	assert.True(t, ep.closed.Load())

	// 再次关闭立即返回 nil，处理器不会被再次关闭
	require.NoError(t, r.Shutdown(context.Background()))
	assert.Equal(t, int32(1), h.shutdowns.Load())

	t.Log("✅ 幂等关闭测试通过")
}

// TestRouter_ShutdownStopsAccept 测试关闭后不再分发连接
func TestRouter_ShutdownStopsAccept(t *testing.T) {
	h := &stubHandler{}
	ep := newStubEndpoint()
	r, err := New(ep, []Registration{{Tag: "weave/a/0", Handler: h}}, metrics.New())
	require.NoError(t, err)
	require.NoError(t, r.Start())
	require.NoError(t, r.Shutdown(context.Background()))

	ep.conns <- newStubConn("weave/a/0")
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, h.acceptedCount())

	assert.ErrorIs(t, r.Start(), ErrRouterStopped)
}

// TestRouter_ShutdownCollectsHandlerErrors 测试处理器关闭错误被聚合
func TestRouter_ShutdownCollectsHandlerErrors(t *testing.T) {
	h1 := &stubHandler{shutdownErr: errors.New("flush failed")}
	h2 := &stubHandler{}
	ep := newStubEndpoint()
	r, err := New(ep, []Registration{
		{Tag: "weave/a/0", Handler: h1},
		{Tag: "weave/b/0", Handler: h2},
	}, metrics.New())
	require.NoError(t, err)
	require.NoError(t, r.Start())

	err = r.Shutdown(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flush failed")
	assert.Equal(t, int32(1), h2.shutdowns.Load())
}

// TestRouter_ShutdownBoundedWait 测试在途连接等待受调用方截止时间约束
func TestRouter_ShutdownBoundedWait(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	h := &stubHandler{block: block}
	r, ep := newTestRouter(t, []Registration{{Tag: "weave/a/0", Handler: h}})

	ep.conns <- newStubConn("weave/a/0")
	require.Eventually(t, func() bool {
		return h.acceptedCount() == 1
	}, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	// 处理器一直占着连接，关闭在截止时间到达后放弃等待
	start := time.Now()
	err := r.Shutdown(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wait for connections")
	assert.Less(t, time.Since(start), time.Second)

	t.Log("✅ 有界等待测试通过")
}
