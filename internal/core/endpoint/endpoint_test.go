package endpoint

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-weave/config"
	"github.com/dep2p/go-weave/internal/core/addressbook"
	"github.com/dep2p/go-weave/internal/core/identity"
	"github.com/dep2p/go-weave/pkg/interfaces"
	"github.com/dep2p/go-weave/pkg/lib/crypto"
	"github.com/dep2p/go-weave/pkg/types"
)

const testALPN = "weave/test/0"

// newTestEndpoint 创建只听环回地址的测试端点
func newTestEndpoint(t *testing.T, alpns ...string) *Endpoint {
	t.Helper()

	if len(alpns) == 0 {
		alpns = []string{testALPN}
	}

	cfg := config.NewConfig()
	cfg.Network.IPv4Addr = "127.0.0.1:0"
	cfg.Network.IPv6Addr = ""

	secret, err := crypto.GenerateSecretKey()
	require.NoError(t, err)

	ep, err := New(cfg, identity.New(secret), addressbook.New(), alpns)
	require.NoError(t, err)

	require.NoError(t, ep.Start(context.Background()))
	t.Cleanup(func() { _ = ep.Close() })
	return ep
}

// TestEndpoint_StartOnline 测试启动后上线信号与地址
func TestEndpoint_StartOnline(t *testing.T) {
	ep := newTestEndpoint(t)

	select {
	case <-ep.Online():
	default:
		t.Fatal("启动后 Online 应已关闭")
	}

	addrs := ep.Addrs()
	require.NotEmpty(t, addrs)
	assert.Contains(t, addrs[0], "127.0.0.1:")

	na := ep.NodeAddr()
	assert.Equal(t, ep.ID(), na.ID)
	assert.Equal(t, addrs, na.Addrs)
}

// TestEndpoint_DialAccept 测试拨号与接受
func TestEndpoint_DialAccept(t *testing.T) {
	server := newTestEndpoint(t)
	client := newTestEndpoint(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	connCh := make(chan interfaces.Connection, 1)
	errCh := make(chan error, 1)

	go func() {
		conn, err := client.Dial(ctx, server.NodeAddr(), testALPN)
		if err != nil {
			errCh <- err
			return
		}
		connCh <- conn
	}()

	accepted, err := server.Accept(ctx)
	require.NoError(t, err)
	defer accepted.Close()

	// 接入侧身份与协议标签已验证
	assert.Equal(t, client.ID(), accepted.RemoteID())
	assert.Equal(t, testALPN, accepted.ALPN())

	select {
	case dialed := <-connCh:
		defer dialed.Close()
		assert.Equal(t, server.ID(), dialed.RemoteID())
		assert.Equal(t, testALPN, dialed.ALPN())
		t.Log("✅ QUIC 连接建立成功")
	case err := <-errCh:
		t.Fatalf("拨号失败: %v", err)
	case <-ctx.Done():
		t.Fatal("拨号超时")
	}
}

// TestEndpoint_StreamRoundTrip 测试流数据往返
func TestEndpoint_StreamRoundTrip(t *testing.T) {
	server := newTestEndpoint(t)
	client := newTestEndpoint(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		conn, err := client.Dial(ctx, server.NodeAddr(), testALPN)
		if err != nil {
			errCh <- err
			return
		}
		defer conn.Close()

		stream, err := conn.OpenStream(ctx)
		if err != nil {
			errCh <- err
			return
		}
		if _, err := stream.Write([]byte("hello weave")); err != nil {
			errCh <- err
			return
		}
		errCh <- stream.Close()
	}()

	accepted, err := server.Accept(ctx)
	require.NoError(t, err)
	defer accepted.Close()

	stream, err := accepted.AcceptStream(ctx)
	require.NoError(t, err)

	data, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello weave"), data)

	require.NoError(t, <-errCh)
}

// TestEndpoint_UnknownALPN 测试未注册协议标签被握手拒绝
func TestEndpoint_UnknownALPN(t *testing.T) {
	server := newTestEndpoint(t) // 只注册 testALPN
	client := newTestEndpoint(t, testALPN, "weave/other/0")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.Dial(ctx, server.NodeAddr(), "weave/other/0")
	require.Error(t, err, "未注册的协议标签应在握手阶段被拒绝")
}

// TestEndpoint_WrongNodeID 测试对端身份不符时拨号失败
func TestEndpoint_WrongNodeID(t *testing.T) {
	server := newTestEndpoint(t)
	client := newTestEndpoint(t)

	// 用第三方身份冒充 server 的地址
	other, err := crypto.GenerateSecretKey()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fake := types.NodeAddr{ID: other.NodeID(), Addrs: server.Addrs()}
	_, err = client.Dial(ctx, fake, testALPN)
	require.Error(t, err, "对端身份与期望不符应拨号失败")
}

// TestEndpoint_DialNoAddresses 测试无地址可用时立即失败
func TestEndpoint_DialNoAddresses(t *testing.T) {
	client := newTestEndpoint(t)

	other, err := crypto.GenerateSecretKey()
	require.NoError(t, err)

	_, err = client.Dial(context.Background(), types.NodeAddr{ID: other.NodeID()}, testALPN)
	assert.True(t, errors.Is(err, types.ErrNoAddresses), "err = %v", err)
}

// TestEndpoint_DialInvalid 测试非法拨号参数
func TestEndpoint_DialInvalid(t *testing.T) {
	ep := newTestEndpoint(t)

	_, err := ep.Dial(context.Background(), ep.NodeAddr(), "")
	assert.ErrorIs(t, err, ErrNoALPN)

	_, err = ep.Dial(context.Background(), types.NodeAddr{}, testALPN)
	assert.ErrorIs(t, err, types.ErrInvalidNodeID)

	// 不允许拨自己
	_, err = ep.Dial(context.Background(), ep.NodeAddr(), testALPN)
	require.Error(t, err)
}

// TestEndpoint_Close 测试关闭语义
func TestEndpoint_Close(t *testing.T) {
	ep := newTestEndpoint(t)

	require.NoError(t, ep.Close())
	// 幂等
	require.NoError(t, ep.Close())

	_, err := ep.Accept(context.Background())
	assert.ErrorIs(t, err, ErrEndpointClosed)

	_, err = ep.Dial(context.Background(), types.NodeAddr{}, testALPN)
	assert.ErrorIs(t, err, ErrEndpointClosed)
}

// TestEndpoint_AddressBookLookup 测试拨号时地址簿补全
func TestEndpoint_AddressBookLookup(t *testing.T) {
	server := newTestEndpoint(t)

	cfg := config.NewConfig()
	cfg.Network.IPv4Addr = "127.0.0.1:0"
	cfg.Network.IPv6Addr = ""

	secret, err := crypto.GenerateSecretKey()
	require.NoError(t, err)

	book := addressbook.New()
	require.NoError(t, book.Add(server.NodeAddr()))

	client, err := New(cfg, identity.New(secret), book, []string{testALPN})
	require.NoError(t, err)
	require.NoError(t, client.Start(context.Background()))
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	go func() {
		conn, _ := server.Accept(ctx)
		if conn != nil {
			defer conn.Close()
		}
	}()

	// 只给 NodeID，地址从地址簿来
	conn, err := client.Dial(ctx, types.NodeAddr{ID: server.ID()}, testALPN)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, server.ID(), conn.RemoteID())
}
