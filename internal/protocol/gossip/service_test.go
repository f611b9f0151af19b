package gossip

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-weave/config"
	"github.com/dep2p/go-weave/internal/core/addressbook"
	"github.com/dep2p/go-weave/internal/core/endpoint"
	"github.com/dep2p/go-weave/internal/core/identity"
	"github.com/dep2p/go-weave/internal/core/metrics"
	"github.com/dep2p/go-weave/pkg/lib/crypto"
	"github.com/dep2p/go-weave/pkg/types"
)

// testNode 一个带接受循环的完整测试节点
type testNode struct {
	ep   *endpoint.Endpoint
	book *addressbook.Book
	svc  *Service
}

// newTestNode 创建只听环回地址的测试节点
func newTestNode(t *testing.T) *testNode {
	t.Helper()

	cfg := config.NewConfig()
	cfg.Network.IPv4Addr = "127.0.0.1:0"
	cfg.Network.IPv6Addr = ""

	secret, err := crypto.GenerateSecretKey()
	require.NoError(t, err)

	book := addressbook.New()
	ep, err := endpoint.New(cfg, identity.New(secret), book, []string{ALPN})
	require.NoError(t, err)
	require.NoError(t, ep.Start(context.Background()))

	svc, err := NewService(ep, book, cfg, metrics.New())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for {
			conn, err := ep.Accept(ctx)
			if err != nil {
				return
			}
			go func() { _ = svc.Accept(ctx, conn) }()
		}
	}()

	t.Cleanup(func() {
		cancel()
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		_ = svc.Shutdown(shutdownCtx)
		_ = ep.Close()
	})

	return &testNode{ep: ep, book: book, svc: svc}
}

// know 把对方的地址登记进本节点的地址簿
func (tn *testNode) know(other *testNode) {
	_ = tn.book.Add(other.ep.NodeAddr())
}

// waitEvent 等待指定类型的事件，顺带出现的其他事件被忽略
func waitEvent(t *testing.T, ch <-chan types.GossipEvent, want types.GossipEventType) types.GossipEvent {
	t.Helper()

	deadline := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			require.True(t, ok, "事件通道提前关闭")
			if ev.Type == want {
				return ev
			}
		case <-deadline:
			t.Fatalf("等待 %v 事件超时", want)
		}
	}
}

// TestService_TwoNodeExchange 测试双节点建邻与双向广播
func TestService_TwoNodeExchange(t *testing.T) {
	a := newTestNode(t)
	b := newTestNode(t)
	b.know(a)

	topic := types.TopicFromString("weave/test/exchange")
	ctx := context.Background()

	ta, err := a.svc.Subscribe(ctx, topic, nil)
	require.NoError(t, err)
	tb, err := b.svc.Subscribe(ctx, topic, []types.NodeID{a.ep.ID()})
	require.NoError(t, err)

	up := waitEvent(t, ta.Events(), types.GossipNeighborUp)
	assert.True(t, up.Peer.Equal(b.ep.ID()))
	up = waitEvent(t, tb.Events(), types.GossipNeighborUp)
	assert.True(t, up.Peer.Equal(a.ep.ID()))

	require.NoError(t, ta.Broadcast(ctx, []byte("hello")))
	got := waitEvent(t, tb.Events(), types.GossipReceived)
	assert.Equal(t, []byte("hello"), got.Data)
	assert.True(t, got.From.Equal(a.ep.ID()))

	require.NoError(t, tb.Broadcast(ctx, []byte("world")))
	got = waitEvent(t, ta.Events(), types.GossipReceived)
	assert.Equal(t, []byte("world"), got.Data)
	assert.True(t, got.From.Equal(b.ep.ID()))
}

// TestService_FloodRelay 测试链式拓扑下的多跳洪泛
func TestService_FloodRelay(t *testing.T) {
	a := newTestNode(t)
	b := newTestNode(t)
	c := newTestNode(t)
	b.know(a)
	c.know(b)

	topic := types.TopicFromString("weave/test/flood")
	ctx := context.Background()

	ta, err := a.svc.Subscribe(ctx, topic, nil)
	require.NoError(t, err)
	tb, err := b.svc.Subscribe(ctx, topic, []types.NodeID{a.ep.ID()})
	require.NoError(t, err)
	waitEvent(t, ta.Events(), types.GossipNeighborUp)
	waitEvent(t, tb.Events(), types.GossipNeighborUp)

	tc, err := c.svc.Subscribe(ctx, topic, []types.NodeID{b.ep.ID()})
	require.NoError(t, err)
	waitEvent(t, tc.Events(), types.GossipNeighborUp)
	up := waitEvent(t, tb.Events(), types.GossipNeighborUp)
	assert.True(t, up.Peer.Equal(c.ep.ID()))

	// a 与 c 没有直连，消息必须经 b 转发
	require.NoError(t, ta.Broadcast(ctx, []byte("multi-hop")))
	got := waitEvent(t, tc.Events(), types.GossipReceived)
	assert.Equal(t, []byte("multi-hop"), got.Data)
	assert.True(t, got.From.Equal(b.ep.ID()), "投递者应是转发的邻居")
}

// TestService_BroadcastNeighbors 测试仅邻居广播不被转发
func TestService_BroadcastNeighbors(t *testing.T) {
	a := newTestNode(t)
	b := newTestNode(t)
	c := newTestNode(t)
	b.know(a)
	c.know(b)

	topic := types.TopicFromString("weave/test/neighbors-only")
	ctx := context.Background()

	ta, err := a.svc.Subscribe(ctx, topic, nil)
	require.NoError(t, err)
	tb, err := b.svc.Subscribe(ctx, topic, []types.NodeID{a.ep.ID()})
	require.NoError(t, err)
	waitEvent(t, ta.Events(), types.GossipNeighborUp)
	waitEvent(t, tb.Events(), types.GossipNeighborUp)
	tc, err := c.svc.Subscribe(ctx, topic, []types.NodeID{b.ep.ID()})
	require.NoError(t, err)
	waitEvent(t, tc.Events(), types.GossipNeighborUp)

	require.NoError(t, ta.BroadcastNeighbors(ctx, []byte("direct-only")))

	// b 作为直连邻居收到
	got := waitEvent(t, tb.Events(), types.GossipReceived)
	assert.Equal(t, []byte("direct-only"), got.Data)

	// c 隔了一跳，不应收到
	deadline := time.After(700 * time.Millisecond)
	for {
		select {
		case ev := <-tc.Events():
			require.NotEqual(t, types.GossipReceived, ev.Type, "仅邻居广播不应到达两跳外")
		case <-deadline:
			return
		}
	}
}

// TestService_LeaveNotifiesNeighbors 测试退订触发对端 NeighborDown
func TestService_LeaveNotifiesNeighbors(t *testing.T) {
	a := newTestNode(t)
	b := newTestNode(t)
	b.know(a)

	topic := types.TopicFromString("weave/test/leave")
	ctx := context.Background()

	ta, err := a.svc.Subscribe(ctx, topic, nil)
	require.NoError(t, err)
	tb, err := b.svc.Subscribe(ctx, topic, []types.NodeID{a.ep.ID()})
	require.NoError(t, err)
	waitEvent(t, ta.Events(), types.GossipNeighborUp)
	waitEvent(t, tb.Events(), types.GossipNeighborUp)

	require.NoError(t, tb.Close())

	down := waitEvent(t, ta.Events(), types.GossipNeighborDown)
	assert.True(t, down.Peer.Equal(b.ep.ID()))
}

// TestService_MultipleHandles 测试同一主题的多个订阅各自收到事件
func TestService_MultipleHandles(t *testing.T) {
	a := newTestNode(t)
	b := newTestNode(t)
	b.know(a)

	topic := types.TopicFromString("weave/test/multi-handle")
	ctx := context.Background()

	ta1, err := a.svc.Subscribe(ctx, topic, nil)
	require.NoError(t, err)
	ta2, err := a.svc.Subscribe(ctx, topic, nil)
	require.NoError(t, err)

	tb, err := b.svc.Subscribe(ctx, topic, []types.NodeID{a.ep.ID()})
	require.NoError(t, err)
	waitEvent(t, tb.Events(), types.GossipNeighborUp)

	require.NoError(t, tb.Broadcast(ctx, []byte("fan-out")))

	got1 := waitEvent(t, ta1.Events(), types.GossipReceived)
	got2 := waitEvent(t, ta2.Events(), types.GossipReceived)
	assert.Equal(t, []byte("fan-out"), got1.Data)
	assert.Equal(t, []byte("fan-out"), got2.Data)
}

// TestService_LaggedCoalesce 测试慢消费者的事件丢弃与 Lagged 合并
func TestService_LaggedCoalesce(t *testing.T) {
	n := newTestNode(t)
	topic := types.TopicFromString("weave/test/lagged")

	h := newHandle(n.svc, topic, 1)

	recv := func(want types.GossipEventType) types.GossipEvent {
		select {
		case ev := <-h.events:
			require.Equal(t, want, ev.Type)
			return ev
		default:
			t.Fatalf("期望 %v 事件，但通道为空", want)
			return types.GossipEvent{}
		}
	}

	// 容量 1：第一条入队，随后两条被丢弃
	h.push(types.GossipEvent{Type: types.GossipReceived, Data: []byte("a")})
	h.push(types.GossipEvent{Type: types.GossipReceived, Data: []byte("b")})
	h.push(types.GossipEvent{Type: types.GossipReceived, Data: []byte("c")})

	got := recv(types.GossipReceived)
	assert.Equal(t, []byte("a"), got.Data)

	// 腾出空位后，多次丢弃只合并补发一条 Lagged
	h.push(types.GossipEvent{Type: types.GossipReceived, Data: []byte("d")})
	recv(types.GossipLagged)

	require.NoError(t, h.Close())
}

// TestService_ShutdownFailsOpenHandles 测试关停时在播订阅收到终止性 Error
func TestService_ShutdownFailsOpenHandles(t *testing.T) {
	n := newTestNode(t)
	topic := types.TopicFromString("weave/test/shutdown")

	h, err := n.svc.Subscribe(context.Background(), topic, nil)
	require.NoError(t, err)

	require.NoError(t, n.svc.Shutdown(context.Background()))

	ev, ok := <-h.Events()
	require.True(t, ok)
	require.Equal(t, types.GossipError, ev.Type)
	assert.NotEmpty(t, ev.Reason)

	_, ok = <-h.Events()
	assert.False(t, ok, "Error 之后通道应关闭")

	// 关停后的操作直接失败
	_, err = n.svc.Subscribe(context.Background(), topic, nil)
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, h.Broadcast(context.Background(), []byte("x")), ErrHandleClosed)

	// 再次关停幂等
	require.NoError(t, n.svc.Shutdown(context.Background()))
}

// TestService_CloseIdempotent 测试句柄重复关闭
func TestService_CloseIdempotent(t *testing.T) {
	n := newTestNode(t)
	topic := types.TopicFromString("weave/test/close-twice")

	h, err := n.svc.Subscribe(context.Background(), topic, nil)
	require.NoError(t, err)

	require.NoError(t, h.Close())
	require.NoError(t, h.Close())

	_, ok := <-h.Events()
	assert.False(t, ok)
}
