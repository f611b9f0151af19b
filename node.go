package weave

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-weave/internal/bridge"
	"github.com/dep2p/go-weave/internal/core/metrics"
	"github.com/dep2p/go-weave/pkg/interfaces"
	"github.com/dep2p/go-weave/pkg/lib/cancel"
	"github.com/dep2p/go-weave/pkg/lib/log"
	"github.com/dep2p/go-weave/pkg/types"
)

var logger = log.Logger("weave")

// blobEventBuffer 提供侧事件通道缓冲
//
// 数据面非阻塞写入该通道，写不进即丢弃；缓冲吸收回调的瞬时抖动。
const blobEventBuffer = 128

// ════════════════════════════════════════════════════════════════════════════
//                              Node - 数据节点
// ════════════════════════════════════════════════════════════════════════════

// Node 一个运行中的 weave 节点
//
// Node 是全部功能的入口：一个 QUIC 端点承载 gossip、blobs、docs
// 与扩展协议的流量，各子系统通过门面方法访问。
//
// 构造即启动：四个构造函数返回的节点已在监听。构造是原子的，
// 失败时不会留下绑定的 socket 或后台 goroutine。
//
// 使用示例：
//
//	// 内存节点：随进程消失（测试、一次性场景）
//	node, err := weave.Memory(ctx)
//
//	// 持久化节点：密钥与数据存于指定目录
//	node, err := weave.Persistent(ctx, "/var/lib/weave")
//
//	// 带选项
//	node, err := weave.MemoryWithOptions(ctx,
//	    weave.WithDocs(),
//	    weave.WithIPv4Addr("127.0.0.1:7746"),
//	)
//
//	defer node.Shutdown(ctx)
type Node struct {
	mu     sync.Mutex
	closed bool

	app *fx.App

	// rootCtx 传给回调的上下文，节点关闭时取消
	rootCtx    context.Context
	rootCancel context.CancelFunc

	// fx 注入的服务句柄
	ep      interfaces.Endpoint
	book    interfaces.AddressBook
	gossip  interfaces.Gossip
	blobs   interfaces.Blobs
	docs    interfaces.Docs // docs 关闭时为 nil
	pinger  interfaces.Pinger
	metrics *metrics.Metrics

	// 提供侧 blob 事件桥的取消令牌（未注册回调时为 nil）
	blobEventsTok *cancel.Token
}

// ════════════════════════════════════════════════════════════════════════════
//                              构造函数
// ════════════════════════════════════════════════════════════════════════════

// Memory 创建并启动内存节点
//
// 身份随机生成，数据存在内存引擎里，关闭即消失。
func Memory(ctx context.Context) (*Node, error) {
	return MemoryWithOptions(ctx)
}

// MemoryWithOptions 创建并启动带选项的内存节点
func MemoryWithOptions(ctx context.Context, opts ...Option) (*Node, error) {
	return newNode(ctx, "", opts)
}

// Persistent 创建并启动持久化节点
//
// root 是数据目录：节点密钥、作者密钥与 BadgerDB 数据库都放在
// 该目录下，重启后身份与内容不变。目录不存在时自动创建。
func Persistent(ctx context.Context, root string) (*Node, error) {
	return PersistentWithOptions(ctx, root)
}

// PersistentWithOptions 创建并启动带选项的持久化节点
func PersistentWithOptions(ctx context.Context, root string, opts ...Option) (*Node, error) {
	if root == "" {
		return nil, fmt.Errorf("weave: empty data dir")
	}
	return newNode(ctx, root, opts)
}

// newNode 公共构造路径
//
// 选项 → 配置 → fx 应用 → Start。任何一步失败都返回错误，
// 不会留下部分启动的节点。
func newNode(ctx context.Context, dataDir string, opts []Option) (*Node, error) {
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}

	cfg, err := buildConfig(o, dataDir)
	if err != nil {
		return nil, err
	}

	n := &Node{}
	n.rootCtx, n.rootCancel = context.WithCancel(context.Background())

	var blobEvents chan types.BlobProvideEvent
	if o.blobEvents != nil {
		blobEvents = make(chan types.BlobProvideEvent, blobEventBuffer)
	}

	app, err := buildApp(cfg, o, n, blobEvents)
	if err != nil {
		n.rootCancel()
		return nil, err
	}
	n.app = app

	if err := app.Start(ctx); err != nil {
		n.rootCancel()
		return nil, fmt.Errorf("start node: %w", err)
	}

	if blobEvents != nil {
		n.spawnBlobEventBridge(blobEvents, o.blobEvents)
	}

	logger.Info("节点已启动",
		"node", n.ep.ID().ShortString(),
		"addrs", n.ep.Addrs(),
		"docs", n.docs != nil)
	return n, nil
}

// spawnBlobEventBridge 起提供侧事件桥
func (n *Node) spawnBlobEventBridge(events <-chan types.BlobProvideEvent, cb BlobEventCallback) {
	n.blobEventsTok = cancel.NewToken()
	bridge.Spawn("blobs/provide", n.blobEventsTok, events, func(ev types.BlobProvideEvent) error {
		n.metrics.EventsDelivered.Inc()
		if err := cb.OnBlobEvent(n.rootCtx, &ev); err != nil {
			n.metrics.CallbackErrors.Inc()
			return err
		}
		return nil
	})
}

// ════════════════════════════════════════════════════════════════════════════
//                              子系统门面
// ════════════════════════════════════════════════════════════════════════════

// Gossip 返回主题订阅入口
func (n *Node) Gossip() *Gossip {
	return &Gossip{n: n}
}

// Blobs 返回内容存储门面
func (n *Node) Blobs() *Blobs {
	return &Blobs{n: n}
}

// Tags 返回标签门面
func (n *Node) Tags() *Tags {
	return &Tags{n: n}
}

// Net 返回网络信息门面
func (n *Node) Net() *Net {
	return &Net{n: n}
}

// Docs 返回文档门面
//
// 文档子系统未启用（WithDocs）时返回 ErrDocsDisabled。
func (n *Node) Docs() (*Docs, error) {
	if n.docs == nil {
		return nil, ErrDocsDisabled
	}
	return &Docs{n: n}, nil
}

// Authors 返回作者管理门面
//
// 作者隶属文档子系统，未启用时返回 ErrDocsDisabled。
func (n *Node) Authors() (*Authors, error) {
	if n.docs == nil {
		return nil, ErrDocsDisabled
	}
	return &Authors{n: n}, nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              节点信息
// ════════════════════════════════════════════════════════════════════════════

// NodeID 返回本节点标识（Base58）
func (n *Node) NodeID() string {
	return n.ep.ID().String()
}

// Metrics 返回节点指标注册表
//
// 每个节点一个私有 Registry；如何导出（promhttp、推送）由
// 嵌入方决定。
func (n *Node) Metrics() *prometheus.Registry {
	return n.metrics.Registry
}

// ════════════════════════════════════════════════════════════════════════════
//                              生命周期
// ════════════════════════════════════════════════════════════════════════════

// Shutdown 关闭节点
//
// 唯一的退出入口：停止路由器（关闭全部协议处理器）、关闭端点、
// 关闭存储引擎，按启动的逆序进行。幂等：第二次及之后的调用
// 直接返回 nil。关闭后其余操作返回 ErrNodeClosed。
func (n *Node) Shutdown(ctx context.Context) error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	n.mu.Unlock()

	logger.Info("正在关闭节点", "node", n.ep.ID().ShortString())

	err := n.app.Stop(ctx)

	// 数据面已停，再停提供侧事件桥并取消回调上下文
	if n.blobEventsTok != nil {
		n.blobEventsTok.Cancel()
	}
	n.rootCancel()

	if err != nil {
		return fmt.Errorf("stop node: %w", err)
	}
	logger.Info("节点已关闭")
	return nil
}

// isClosed 查询节点是否已关闭
func (n *Node) isClosed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.closed
}
