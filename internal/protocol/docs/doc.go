package docs

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-weave/internal/wire"
	"github.com/dep2p/go-weave/pkg/interfaces"
	"github.com/dep2p/go-weave/pkg/types"
)

// subscriberBuffer 单个文档订阅通道的容量
const subscriberBuffer = 128

// syncConcurrency StartSync 并发同步的节点数上限
const syncConcurrency = 4

// ============================================================================
//                              文档状态
// ============================================================================

// docState 一个打开文档的共享状态
//
// 同一命名空间只有一个 docState，多次 Open 返回的句柄共享它。
// 状态持有文档专属的 gossip 订阅，goroutine drainLoop 把主题
// 事件翻译成文档事件。
type docState struct {
	ns    types.NamespaceID
	svc   *Service
	topic interfaces.TopicHandle

	mu      sync.Mutex
	subs    map[chan types.DocEvent]struct{}
	pending map[types.Hash]struct{}
	closed  bool
}

func newDocState(ns types.NamespaceID, svc *Service, topic interfaces.TopicHandle) *docState {
	return &docState{
		ns:      ns,
		svc:     svc,
		topic:   topic,
		subs:    make(map[chan types.DocEvent]struct{}),
		pending: make(map[types.Hash]struct{}),
	}
}

// emit 向全部订阅者投递事件
//
// 投递非阻塞，订阅者跟不上时丢弃。
func (d *docState) emit(ev types.DocEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	for ch := range d.subs {
		select {
		case ch <- ev:
		default:
			d.svc.metrics.EventsDropped.Inc()
		}
	}
}

// subscribe 注册一个订阅通道
func (d *docState) subscribe() (chan types.DocEvent, func(), error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, nil, ErrDocClosed
	}

	ch := make(chan types.DocEvent, subscriberBuffer)
	d.subs[ch] = struct{}{}

	var once sync.Once
	stop := func() {
		once.Do(func() {
			d.mu.Lock()
			if _, ok := d.subs[ch]; ok {
				delete(d.subs, ch)
				close(ch)
			}
			d.mu.Unlock()
		})
	}
	return ch, stop, nil
}

// markPending 登记一个待取回的内容
func (d *docState) markPending(hash types.Hash) {
	d.mu.Lock()
	d.pending[hash] = struct{}{}
	d.mu.Unlock()
}

// resolvePending 移除已取回的内容，返回是否清空了待取列表
func (d *docState) resolvePending(hash types.Hash) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.pending, hash)
	return len(d.pending) == 0
}

// drainLoop 消费文档主题的 gossip 事件
//
// 主题通道关闭（服务关停）后文档状态随之关闭。
func (d *docState) drainLoop() {
	for ev := range d.topic.Events() {
		switch ev.Type {
		case types.GossipNeighborUp:
			d.emit(types.DocEvent{Type: types.DocNeighborUp, Peer: ev.Peer})
		case types.GossipNeighborDown:
			d.emit(types.DocEvent{Type: types.DocNeighborDown, Peer: ev.Peer})
		case types.GossipReceived:
			var ann announce
			if err := wire.Unmarshal(ev.Data, &ann); err != nil {
				logger.Warn("忽略无法解析的条目广播",
					"doc", d.ns.ShortString(),
					"error", err)
				continue
			}
			d.svc.applyRemote(d, &ann.Entry, ev.From)
		case types.GossipLagged:
			logger.Warn("文档主题事件有丢失", "doc", d.ns.ShortString())
		case types.GossipError:
			logger.Warn("文档主题订阅终止",
				"doc", d.ns.ShortString(),
				"reason", ev.Reason)
		}
	}
	d.close()
}

// broadcast 向文档覆盖网广播一条记录
func (d *docState) broadcast(ctx context.Context, rec *entryRecord) error {
	data, err := wire.Marshal(&announce{Entry: *rec})
	if err != nil {
		return err
	}
	return d.topic.Broadcast(ctx, data)
}

// close 关闭文档状态。幂等。
func (d *docState) close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for ch := range d.subs {
		close(ch)
	}
	d.subs = make(map[chan types.DocEvent]struct{})
	d.mu.Unlock()

	_ = d.topic.Close()
	d.svc.forgetDoc(d)
}

func (d *docState) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// ============================================================================
//                              文档句柄
// ============================================================================

// docHandle 暴露给调用方的文档视图
type docHandle struct {
	state *docState
}

var _ interfaces.Doc = (*docHandle)(nil)

// ID 返回文档标识
func (h *docHandle) ID() types.NamespaceID {
	return h.state.ns
}

// SetBytes 写入条目，返回值的内容地址
//
// 值先入 blob 存储，条目经作者密钥签名后本地合并并广播。
func (h *docHandle) SetBytes(ctx context.Context, author types.AuthorID, key, value []byte) (types.Hash, error) {
	d := h.state
	if d.isClosed() {
		return types.EmptyHash, ErrDocClosed
	}
	if len(key) == 0 {
		return types.EmptyHash, ErrEmptyKey
	}

	secret, err := d.svc.authors.secretFor(author)
	if err != nil {
		return types.EmptyHash, err
	}

	hash, err := d.svc.blobs.AddBytes(ctx, value)
	if err != nil {
		return types.EmptyHash, err
	}

	// 时间戳保证对同一 (author, key) 单调递增
	ts := uint64(time.Now().UnixMicro())
	if existing, err := d.svc.store.GetRecord(d.ns, author.Bytes(), key); err == nil && existing != nil && ts <= existing.Timestamp {
		ts = existing.Timestamp + 1
	}

	rec := &entryRecord{
		Author:    author.Bytes(),
		Key:       append([]byte{}, key...),
		Hash:      hash.Bytes(),
		Len:       uint64(len(value)),
		Timestamp: ts,
		Sig:       secret.Sign(signedBytes(d.ns, author.Bytes(), key, hash.Bytes(), uint64(len(value)), ts)),
	}

	if _, err := d.svc.store.ApplyRecord(d.ns, rec); err != nil {
		return types.EmptyHash, err
	}

	entry, err := recordToEntry(d.ns, rec)
	if err != nil {
		return types.EmptyHash, err
	}
	d.emit(types.DocEvent{Type: types.DocInsertLocal, Entry: entry})

	if err := d.broadcast(ctx, rec); err != nil && !errors.Is(err, context.Canceled) {
		logger.Debug("条目广播失败",
			"doc", d.ns.ShortString(),
			"error", err)
	}

	return hash, nil
}

// GetExact 精确查找 (author, key) 条目
func (h *docHandle) GetExact(_ context.Context, author types.AuthorID, key []byte, includeEmpty bool) (*types.Entry, error) {
	d := h.state
	if d.isClosed() {
		return nil, ErrDocClosed
	}

	rec, err := d.svc.store.GetRecord(d.ns, author.Bytes(), key)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	entry, err := recordToEntry(d.ns, rec)
	if err != nil {
		return nil, err
	}
	if entry.IsEmptyValue() && !includeEmpty {
		return nil, nil
	}
	return entry, nil
}

// Entries 返回全部条目（按 key、author 排序）
func (h *docHandle) Entries(_ context.Context) ([]*types.Entry, error) {
	d := h.state
	if d.isClosed() {
		return nil, ErrDocClosed
	}

	recs, err := d.svc.store.ListRecords(d.ns)
	if err != nil {
		return nil, err
	}
	out := make([]*types.Entry, 0, len(recs))
	for _, rec := range recs {
		entry, err := recordToEntry(d.ns, rec)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

// Delete 写入删除标记，覆盖 author 名下指定前缀的条目
func (h *docHandle) Delete(ctx context.Context, author types.AuthorID, prefix []byte) (int, error) {
	d := h.state
	if d.isClosed() {
		return 0, ErrDocClosed
	}

	recs, err := d.svc.store.ListRecords(d.ns)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, rec := range recs {
		if !bytes.Equal(rec.Author, author.Bytes()) || !bytes.HasPrefix(rec.Key, prefix) {
			continue
		}
		if rec.Len == 0 {
			// 已是删除标记
			continue
		}
		if _, err := h.SetBytes(ctx, author, rec.Key, nil); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// Subscribe 订阅实时事件
func (h *docHandle) Subscribe(_ context.Context) (<-chan types.DocEvent, func(), error) {
	ch, stop, err := h.state.subscribe()
	if err != nil {
		return nil, nil, err
	}
	return ch, stop, nil
}

// StartSync 与指定节点各做一轮全量同步
//
// 节点间并发同步（上限 syncConcurrency），单个节点失败不影响
// 其余节点：失败以 SyncFinished 事件报告并合并进返回错误。
func (h *docHandle) StartSync(ctx context.Context, peers []types.NodeAddr) error {
	d := h.state
	if d.isClosed() {
		return ErrDocClosed
	}

	var (
		mu   sync.Mutex
		errs error
	)
	var g errgroup.Group
	g.SetLimit(syncConcurrency)
	for _, peer := range peers {
		g.Go(func() error {
			if err := d.svc.syncWith(ctx, d, peer); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()
	return errs
}

// Leave 离开文档覆盖网
func (h *docHandle) Leave(_ context.Context) error {
	h.state.close()
	return nil
}
