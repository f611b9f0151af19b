// Package testutil 提供测试辅助工具
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-weave"
)

// TestNodeBuilder 测试节点构建器
//
// 使用 Builder 模式简化测试节点的创建和配置。
//
// 示例:
//
//	node := testutil.NewTestNode(t).
//		WithDocs().
//		Start()
type TestNodeBuilder struct {
	t        *testing.T
	ipv4Addr string
	ipv6Addr string
	dataDir  string
	persist  bool
	docs     bool
	opts     []weave.Option
}

// NewTestNode 创建测试节点构建器
//
// 默认配置:
//   - 监听 127.0.0.1 随机端口，IPv6 关闭
//   - 纯内存存储
//   - docs 引擎关闭
func NewTestNode(t *testing.T) *TestNodeBuilder {
	t.Helper()
	return &TestNodeBuilder{
		t:        t,
		ipv4Addr: "127.0.0.1:0",
	}
}

// WithIPv4Addr 设置 IPv4 监听地址
func (b *TestNodeBuilder) WithIPv4Addr(addr string) *TestNodeBuilder {
	b.t.Helper()
	b.ipv4Addr = addr
	return b
}

// WithIPv6Addr 设置 IPv6 监听地址
//
// 默认关闭；传入 "[::1]:0" 可在本机启用 IPv6 监听。
func (b *TestNodeBuilder) WithIPv6Addr(addr string) *TestNodeBuilder {
	b.t.Helper()
	b.ipv6Addr = addr
	return b
}

// WithDataDir 设置数据目录并切换到持久存储
func (b *TestNodeBuilder) WithDataDir(dir string) *TestNodeBuilder {
	b.t.Helper()
	b.dataDir = dir
	b.persist = true
	return b
}

// WithTempDir 使用 t.TempDir() 作为数据目录
//
// 测试结束后目录自动清理。
func (b *TestNodeBuilder) WithTempDir() *TestNodeBuilder {
	b.t.Helper()
	return b.WithDataDir(b.t.TempDir())
}

// WithDocs 启用文档同步引擎
func (b *TestNodeBuilder) WithDocs() *TestNodeBuilder {
	b.t.Helper()
	b.docs = true
	return b
}

// WithOptions 追加任意节点选项
func (b *TestNodeBuilder) WithOptions(opts ...weave.Option) *TestNodeBuilder {
	b.t.Helper()
	b.opts = append(b.opts, opts...)
	return b
}

// Start 启动节点并注册清理函数
//
// 节点等到监听地址就绪才返回，并在测试结束时自动关闭。
func (b *TestNodeBuilder) Start() *weave.Node {
	b.t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	opts := []weave.Option{
		weave.WithIPv4Addr(b.ipv4Addr),
		weave.WithIPv6Addr(b.ipv6Addr),
	}
	if b.docs {
		opts = append(opts, weave.WithDocs())
	}
	opts = append(opts, b.opts...)

	var (
		node *weave.Node
		err  error
	)
	if b.persist {
		node, err = weave.PersistentWithOptions(ctx, b.dataDir, opts...)
	} else {
		node, err = weave.MemoryWithOptions(ctx, opts...)
	}
	require.NoError(b.t, err, "启动测试节点失败")
	require.NotNil(b.t, node, "节点不应为 nil")

	require.NoError(b.t, node.Net().Online(ctx), "等待节点在线失败")

	b.t.Cleanup(func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := node.Shutdown(shutdownCtx); err != nil {
			b.t.Logf("关闭节点失败: %v", err)
		}
	})

	return node
}

// NodeRecord 获取节点的地址记录
func NodeRecord(t *testing.T, node *weave.Node) *weave.NodeAddr {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	addr, err := node.Net().NodeAddr(ctx)
	require.NoError(t, err, "获取节点地址失败")
	require.NotEmpty(t, addr.Addrs, "节点应有监听地址")
	return addr
}

// ConnectNodes 让两个节点互相知晓对方地址
//
// 双向写入地址簿，之后任一方向都可凭 NodeID 拨号。
func ConnectNodes(t *testing.T, a, b *weave.Node) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	addrA := NodeRecord(t, a)
	addrB := NodeRecord(t, b)

	require.NoError(t, a.Net().AddNodeAddr(ctx, addrB), "写入地址簿失败")
	require.NoError(t, b.Net().AddNodeAddr(ctx, addrA), "写入地址簿失败")
}
