package weave

import (
	"context"

	"github.com/dep2p/go-weave/internal/bridge"
	"github.com/dep2p/go-weave/pkg/interfaces"
	"github.com/dep2p/go-weave/pkg/lib/cancel"
	"github.com/dep2p/go-weave/pkg/types"
)

// ════════════════════════════════════════════════════════════════════════════
//                              用户 API: Docs
// ════════════════════════════════════════════════════════════════════════════

// Docs 文档服务门面
//
// 文档是多作者的键值空间：条目按 (author, key) 定位，值存放在
// blob 存储中。文档参与者之间通过专属 gossip 主题实时广播新条目，
// 也可以与指定节点做一轮全量同步。
//
// 文档子系统默认关闭，用 WithDocs() 启用。
//
// 使用示例：
//
//	docs, _ := node.Docs()
//	doc, _ := docs.Create(ctx)
//
//	author, _ := node.Authors()
//	me, _ := author.Default(ctx)
//	doc.SetBytes(ctx, me, []byte("greeting"), []byte("hello"))
//
//	// 分享给别的节点
//	ticket, _ := doc.Share(ctx)
//	// 对方: docs.Join(ctx, parsed)
type Docs struct {
	n *Node
}

// Create 新建文档
func (d *Docs) Create(ctx context.Context) (*Doc, error) {
	if d.n.isClosed() {
		return nil, ErrNodeClosed
	}
	doc, err := d.n.docs.Create(ctx)
	if err != nil {
		return nil, err
	}
	return &Doc{n: d.n, doc: doc}, nil
}

// Open 打开本地已有文档
//
// 文档不存在时返回 ErrDocNotFound。
func (d *Docs) Open(ctx context.Context, id NamespaceID) (*Doc, error) {
	if d.n.isClosed() {
		return nil, ErrNodeClosed
	}
	doc, err := d.n.docs.Open(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Doc{n: d.n, doc: doc}, nil
}

// Join 凭票据加入远端文档
//
// 登记命名空间、连入其 gossip 覆盖网，并与票据里的节点
// 各做一轮初始同步。
func (d *Docs) Join(ctx context.Context, ticket *DocTicket) (*Doc, error) {
	if d.n.isClosed() {
		return nil, ErrNodeClosed
	}
	if ticket == nil || ticket.Namespace.IsEmpty() {
		return nil, ErrInvalidTicket
	}
	doc, err := d.n.docs.Join(ctx, ticket.Namespace, ticket.Nodes)
	if err != nil {
		return nil, err
	}
	return &Doc{n: d.n, doc: doc}, nil
}

// List 列出本地全部文档
func (d *Docs) List(ctx context.Context) ([]NamespaceID, error) {
	if d.n.isClosed() {
		return nil, ErrNodeClosed
	}
	return d.n.docs.List(ctx)
}

// Drop 删除本地文档及其全部条目
//
// 打开中的句柄全部失效；条目的值（blob）不动，由标签管理。
func (d *Docs) Drop(ctx context.Context, id NamespaceID) error {
	if d.n.isClosed() {
		return ErrNodeClosed
	}
	return d.n.docs.Drop(ctx, id)
}

// ════════════════════════════════════════════════════════════════════════════
//                              用户 API: Doc
// ════════════════════════════════════════════════════════════════════════════

// Doc 一个打开的文档
//
// 同一命名空间的所有句柄共享底层状态：任何一个句柄 Leave
// 之后，其余句柄的操作同样失败。
type Doc struct {
	n   *Node
	doc interfaces.Doc
}

// ID 返回文档标识
func (d *Doc) ID() NamespaceID {
	return d.doc.ID()
}

// SetBytes 写入条目，返回值的内容地址
//
// 值先进 blob 存储，条目再记录并广播给文档覆盖网。
func (d *Doc) SetBytes(ctx context.Context, author AuthorID, key, value []byte) (Hash, error) {
	if d.n.isClosed() {
		return Hash{}, ErrNodeClosed
	}
	return d.doc.SetBytes(ctx, author, key, value)
}

// GetExact 精确查找 (author, key) 条目
//
// includeEmpty 为 false 时跳过删除标记（空值条目）。
// 不存在时返回 (nil, nil)。
func (d *Doc) GetExact(ctx context.Context, author AuthorID, key []byte, includeEmpty bool) (*Entry, error) {
	if d.n.isClosed() {
		return nil, ErrNodeClosed
	}
	return d.doc.GetExact(ctx, author, key, includeEmpty)
}

// Entries 返回全部条目（按 key、author 排序）
func (d *Doc) Entries(ctx context.Context) ([]*Entry, error) {
	if d.n.isClosed() {
		return nil, ErrNodeClosed
	}
	return d.doc.Entries(ctx)
}

// Delete 写入删除标记，覆盖 author 名下指定前缀的条目
//
// 返回被覆盖的条目数。
func (d *Doc) Delete(ctx context.Context, author AuthorID, prefix []byte) (int, error) {
	if d.n.isClosed() {
		return 0, ErrNodeClosed
	}
	return d.doc.Delete(ctx, author, prefix)
}

// Share 生成文档分享票据
//
// 票据携带命名空间与本节点的地址记录，对方凭它 Join。
func (d *Doc) Share(_ context.Context) (*DocTicket, error) {
	if d.n.isClosed() {
		return nil, ErrNodeClosed
	}
	return &DocTicket{
		Namespace: d.doc.ID(),
		Nodes:     []NodeAddr{d.n.ep.NodeAddr()},
	}, nil
}

// Subscribe 订阅文档实时事件，推入回调
//
// 返回的 stop 取消订阅，幂等。事件按发生顺序逐条进入 cb：
// 本地写入（InsertLocal）、远端条目（InsertRemote）、内容就绪
// （ContentReady/PendingContentReady）、邻居变化与同步结束。
func (d *Doc) Subscribe(ctx context.Context, cb DocCallback) (func(), error) {
	if d.n.isClosed() {
		return nil, ErrNodeClosed
	}
	if cb == nil {
		return nil, errNilCallback
	}

	ch, stop, err := d.doc.Subscribe(ctx)
	if err != nil {
		return nil, err
	}

	tok := cancel.NewToken()
	n := d.n
	bridge.Spawn("docs/"+d.doc.ID().ShortString(), tok, ch, func(ev types.DocEvent) error {
		n.metrics.EventsDelivered.Inc()
		if err := cb.OnDocEvent(n.rootCtx, &ev); err != nil {
			n.metrics.CallbackErrors.Inc()
			return err
		}
		return nil
	})

	return func() {
		tok.Cancel()
		stop()
	}, nil
}

// StartSync 与指定节点各做一轮全量同步
//
// 逐个拨号交换条目清单，对方缺的条目推过去，本地缺的拉回来。
// 部分节点失败不影响其余节点，错误聚合后返回。
func (d *Doc) StartSync(ctx context.Context, peers []NodeAddr) error {
	if d.n.isClosed() {
		return ErrNodeClosed
	}
	return d.doc.StartSync(ctx, peers)
}

// Leave 离开文档覆盖网
//
// 停止接收与广播条目，关闭全部订阅通道。已写入的条目保留，
// Open 可重新加入。
func (d *Doc) Leave(ctx context.Context) error {
	if d.n.isClosed() {
		return ErrNodeClosed
	}
	return d.doc.Leave(ctx)
}

// Close 关闭文档句柄
//
// 句柄与覆盖网成员身份同体，关闭即离开（等价 Leave）。
func (d *Doc) Close(ctx context.Context) error {
	return d.Leave(ctx)
}
