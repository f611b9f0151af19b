package docs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dep2p/go-weave/config"
	"github.com/dep2p/go-weave/internal/core/metrics"
	"github.com/dep2p/go-weave/internal/wire"
	"github.com/dep2p/go-weave/pkg/interfaces"
	"github.com/dep2p/go-weave/pkg/lib/crypto"
	"github.com/dep2p/go-weave/pkg/lib/log"
	"github.com/dep2p/go-weave/pkg/types"
)

var logger = log.Logger("protocol/docs")

// syncTimeout 单轮同步（含拨号）的超时
const syncTimeout = 30 * time.Second

// ============================================================================
//                              服务定义
// ============================================================================

// Service 复制文档服务
//
// 作为 Docs 管理本地文档与作者，作为 ProtocolHandler 应答远端
// 的同步请求。每个打开的文档持有一个专属 gossip 主题订阅，用
// 于实时广播新条目；全量收敛依赖显式的同步轮次。
type Service struct {
	ep      interfaces.Endpoint
	book    interfaces.AddressBook
	store   *Store
	blobs   interfaces.Blobs
	gossip  interfaces.Gossip
	authors *authorManager
	cfg     config.DocsConfig
	metrics *metrics.Metrics

	rootCtx    context.Context
	rootCancel context.CancelFunc
	wg         sync.WaitGroup

	mu     sync.Mutex
	open   map[types.NamespaceID]*docState
	closed bool
}

var (
	_ interfaces.Docs            = (*Service)(nil)
	_ interfaces.ProtocolHandler = (*Service)(nil)
)

// NewService 创建文档服务
func NewService(ep interfaces.Endpoint, book interfaces.AddressBook, store *Store, blobs interfaces.Blobs, gossip interfaces.Gossip, ks crypto.Keystore, cfg *config.Config, m *metrics.Metrics) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		ep:         ep,
		book:       book,
		store:      store,
		blobs:      blobs,
		gossip:     gossip,
		cfg:        cfg.Docs,
		metrics:    m,
		rootCtx:    ctx,
		rootCancel: cancel,
		open:       make(map[types.NamespaceID]*docState),
	}
	s.authors = newAuthorManager(ks, cfg.Docs.DefaultAuthorKey, s)
	return s
}

// ============================================================================
//                              文档管理
// ============================================================================

// Create 新建文档
func (s *Service) Create(ctx context.Context) (interfaces.Doc, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}

	ns := types.NewNamespaceID()
	if err := s.store.CreateNamespace(ns); err != nil {
		return nil, fmt.Errorf("create namespace: %w", err)
	}

	logger.Info("新建文档", "doc", ns.ShortString())
	return s.openDoc(ctx, ns, nil)
}

// Open 打开本地已有文档
func (s *Service) Open(ctx context.Context, id types.NamespaceID) (interfaces.Doc, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}

	ok, err := s.store.HasNamespace(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDocNotFound, id.ShortString())
	}
	return s.openDoc(ctx, id, nil)
}

// Join 加入远端文档
//
// 登记命名空间、连入覆盖网，并与每个 bootstrap 节点各发起一轮
// 后台同步。同步失败只记录日志并以 SyncFinished 事件报告。
func (s *Service) Join(ctx context.Context, id types.NamespaceID, bootstrap []types.NodeAddr) (interfaces.Doc, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}

	if err := s.store.CreateNamespace(id); err != nil {
		return nil, fmt.Errorf("create namespace: %w", err)
	}

	handle, err := s.openDoc(ctx, id, bootstrap)
	if err != nil {
		return nil, err
	}
	state := handle.state

	self := s.ep.ID()
	for _, peer := range bootstrap {
		if peer.ID.IsEmpty() || peer.ID == self {
			continue
		}
		peer := peer
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			ctx, cancel := context.WithTimeout(s.rootCtx, syncTimeout)
			defer cancel()
			if err := s.syncWith(ctx, state, peer); err != nil {
				logger.Debug("初始同步失败",
					"doc", id.ShortString(),
					"peer", peer.ID.ShortString(),
					"error", err)
			}
		}()
	}

	logger.Info("加入文档", "doc", id.ShortString(), "bootstrap", len(bootstrap))
	return handle, nil
}

// List 列出本地全部文档
func (s *Service) List(_ context.Context) ([]types.NamespaceID, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	return s.store.ListNamespaces()
}

// Drop 删除本地文档及其全部条目
//
// 文档处于打开状态时先将其关闭。
func (s *Service) Drop(_ context.Context, id types.NamespaceID) error {
	if s.isClosed() {
		return ErrClosed
	}

	ok, err := s.store.HasNamespace(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrDocNotFound, id.ShortString())
	}

	s.mu.Lock()
	state := s.open[id]
	s.mu.Unlock()
	if state != nil {
		state.close()
	}

	if err := s.store.DropNamespace(id); err != nil {
		return err
	}
	logger.Info("删除文档", "doc", id.ShortString())
	return nil
}

// Authors 返回作者管理
func (s *Service) Authors() interfaces.Authors {
	return s.authors
}

// openDoc 打开（或复用）命名空间的文档状态
//
// 同一命名空间共享一个 docState；bootstrap 节点登记进地址簿
// 并作为覆盖网的初始邻居。
func (s *Service) openDoc(ctx context.Context, ns types.NamespaceID, bootstrap []types.NodeAddr) (*docHandle, error) {
	var ids []types.NodeID
	for _, peer := range bootstrap {
		if peer.ID.IsEmpty() || peer.ID == s.ep.ID() {
			continue
		}
		if len(peer.Addrs) > 0 {
			_ = s.book.Add(peer)
		}
		ids = append(ids, peer.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if st, ok := s.open[ns]; ok && !st.isClosed() {
		return &docHandle{state: st}, nil
	}

	topic, err := s.gossip.Subscribe(ctx, docTopic(ns), ids)
	if err != nil {
		return nil, fmt.Errorf("join doc topic: %w", err)
	}

	state := newDocState(ns, s, topic)
	s.open[ns] = state
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		state.drainLoop()
	}()
	return &docHandle{state: state}, nil
}

// forgetDoc 从打开列表中移除文档状态
func (s *Service) forgetDoc(d *docState) {
	s.mu.Lock()
	if s.open[d.ns] == d {
		delete(s.open, d.ns)
	}
	s.mu.Unlock()
}

// ============================================================================
//                              条目合并
// ============================================================================

// verifyRecord 校验条目的字段与签名
func (s *Service) verifyRecord(ns types.NamespaceID, rec *entryRecord) error {
	if len(rec.Key) == 0 {
		return fmt.Errorf("%w: empty key", ErrInvalidEntry)
	}
	if _, err := types.HashFromBytes(rec.Hash); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	pub, err := crypto.PublicKeyFromBytes(rec.Author)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	if !pub.Verify(signedBytes(ns, rec.Author, rec.Key, rec.Hash, rec.Len, rec.Timestamp), rec.Sig) {
		return fmt.Errorf("%w: bad signature", ErrInvalidEntry)
	}
	return nil
}

// applyIncoming 校验并合并一条远端记录
//
// 记录生效且文档打开时发出 InsertRemote 事件；值不在本地的
// 条目登记为待取内容并触发后台取回。
func (s *Service) applyIncoming(ns types.NamespaceID, d *docState, rec *entryRecord, from types.NodeID) (bool, error) {
	if err := s.verifyRecord(ns, rec); err != nil {
		return false, err
	}

	applied, err := s.store.ApplyRecord(ns, rec)
	if err != nil {
		return false, err
	}
	if !applied {
		return false, nil
	}
	s.metrics.DocEntriesApplied.Inc()

	if d == nil {
		return true, nil
	}
	entry, err := recordToEntry(ns, rec)
	if err != nil {
		return true, err
	}

	status := types.ContentComplete
	if !entry.IsEmptyValue() {
		ok, err := s.blobs.Has(s.rootCtx, entry.Hash)
		if err != nil || !ok {
			status = types.ContentMissing
		}
	}
	d.emit(types.DocEvent{
		Type:    types.DocInsertRemote,
		Entry:   entry,
		From:    from,
		Content: status,
	})

	if status == types.ContentMissing {
		d.markPending(entry.Hash)
		hash := entry.Hash
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.fetchContent(d, hash, from)
		}()
	}
	return true, nil
}

// applyRemote 合并主题上广播来的条目
func (s *Service) applyRemote(d *docState, rec *entryRecord, from types.NodeID) {
	if _, err := s.applyIncoming(d.ns, d, rec, from); err != nil {
		logger.Warn("丢弃无效条目",
			"doc", d.ns.ShortString(),
			"from", from.ShortString(),
			"error", err)
	}
}

// fetchContent 从条目来源取回缺失的值
func (s *Service) fetchContent(d *docState, hash types.Hash, from types.NodeID) {
	ctx, cancel := context.WithTimeout(s.rootCtx, syncTimeout)
	defer cancel()

	if err := s.blobs.Download(ctx, hash, types.NodeAddr{ID: from}, nil); err != nil {
		logger.Debug("取回条目内容失败",
			"doc", d.ns.ShortString(),
			"hash", hash.ShortString(),
			"peer", from.ShortString(),
			"error", err)
		d.resolvePending(hash)
		return
	}

	d.emit(types.DocEvent{Type: types.DocContentReady, Hash: hash})
	if d.resolvePending(hash) {
		d.emit(types.DocEvent{Type: types.DocPendingContentReady})
	}
}

// ============================================================================
//                              同步
// ============================================================================

// syncWith 作为发起方与一个节点做一轮 push-pull 同步
//
// 发起方送出全量清单，应答方合并后回送自己的全量清单，
// 发起方再合并。两轮之后双方条目集一致（值可能仍在取回中）。
func (s *Service) syncWith(ctx context.Context, d *docState, peer types.NodeAddr) error {
	err := s.runSync(ctx, d, peer)

	ev := types.DocEvent{Type: types.DocSyncFinished, From: peer.ID}
	if err != nil {
		ev.Err = err.Error()
	}
	d.emit(ev)
	s.metrics.DocSyncs.WithLabelValues("initiator").Inc()

	if err != nil {
		return fmt.Errorf("sync with %s: %w", peer.ID.ShortString(), err)
	}
	return nil
}

func (s *Service) runSync(ctx context.Context, d *docState, peer types.NodeAddr) error {
	if len(peer.Addrs) > 0 {
		_ = s.book.Add(peer)
	}

	recs, err := s.store.ListRecords(d.ns)
	if err != nil {
		return err
	}
	req := &syncRequest{Namespace: d.ns.Bytes(), Entries: make([]entryRecord, 0, len(recs))}
	for _, rec := range recs {
		req.Entries = append(req.Entries, *rec)
	}

	conn, err := s.ep.Dial(ctx, peer, ALPN)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	stream, err := conn.OpenStream(ctx)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	if err := wire.WriteFrame(stream, req); err != nil {
		return fmt.Errorf("send listing: %w", err)
	}
	if err := stream.Close(); err != nil {
		return fmt.Errorf("finish send: %w", err)
	}

	var resp syncResponse
	if err := wire.ReadFrame(stream, &resp, maxSyncFrame); err != nil {
		return fmt.Errorf("read listing: %w", err)
	}
	if !resp.OK {
		return ErrRemoteMissingDoc
	}

	for i := range resp.Entries {
		if _, err := s.applyIncoming(d.ns, d, &resp.Entries[i], peer.ID); err != nil {
			logger.Warn("丢弃无效条目",
				"doc", d.ns.ShortString(),
				"from", peer.ID.ShortString(),
				"error", err)
		}
	}

	logger.Debug("同步完成",
		"doc", d.ns.ShortString(),
		"peer", peer.ID.ShortString(),
		"received", len(resp.Entries))
	return nil
}

// ============================================================================
//                              协议处理
// ============================================================================

// Accept 应答一条同步连接
//
// 每条流承载一轮同步：读发起方清单、合并、回送本地清单。
// 对端地址写入地址簿，后续内容取回可以反向拨号。
func (s *Service) Accept(ctx context.Context, conn interfaces.Connection) error {
	if s.isClosed() {
		return ErrClosed
	}

	remote := conn.RemoteID()
	if addr := conn.RemoteAddr(); addr != nil {
		_ = s.book.Add(types.NodeAddr{ID: remote, Addrs: []string{addr.String()}})
	}

	for {
		stream, err := conn.AcceptStream(ctx)
		if err != nil {
			return nil
		}
		if err := s.handleSync(stream, remote); err != nil {
			logger.Debug("同步应答失败",
				"peer", remote.ShortString(),
				"error", err)
			return nil
		}
	}
}

// handleSync 应答一轮同步
func (s *Service) handleSync(stream interfaces.Stream, remote types.NodeID) error {
	var req syncRequest
	if err := wire.ReadFrame(stream, &req, maxSyncFrame); err != nil {
		return fmt.Errorf("read listing: %w", err)
	}

	ns, err := types.NamespaceIDFromBytes(req.Namespace)
	if err != nil {
		return fmt.Errorf("bad namespace: %w", err)
	}

	ok, err := s.store.HasNamespace(ns)
	if err != nil {
		return err
	}
	if !ok {
		if err := wire.WriteFrame(stream, &syncResponse{OK: false}); err != nil {
			return fmt.Errorf("send refusal: %w", err)
		}
		return stream.Close()
	}

	s.mu.Lock()
	state := s.open[ns]
	s.mu.Unlock()

	for i := range req.Entries {
		if _, err := s.applyIncoming(ns, state, &req.Entries[i], remote); err != nil {
			logger.Warn("丢弃无效条目",
				"doc", ns.ShortString(),
				"from", remote.ShortString(),
				"error", err)
		}
	}

	recs, err := s.store.ListRecords(ns)
	if err != nil {
		return err
	}
	resp := &syncResponse{OK: true, Entries: make([]entryRecord, 0, len(recs))}
	for _, rec := range recs {
		resp.Entries = append(resp.Entries, *rec)
	}
	if err := wire.WriteFrame(stream, resp); err != nil {
		return fmt.Errorf("send listing: %w", err)
	}
	if err := stream.Close(); err != nil {
		return err
	}

	if state != nil {
		state.emit(types.DocEvent{Type: types.DocSyncFinished, From: remote})
	}
	s.metrics.DocSyncs.WithLabelValues("responder").Inc()

	logger.Debug("应答同步",
		"doc", ns.ShortString(),
		"peer", remote.ShortString(),
		"received", len(req.Entries),
		"sent", len(resp.Entries))
	return nil
}

// Shutdown 停止文档服务
//
// 关闭全部打开的文档并等待后台同步与取回退出。
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	states := make([]*docState, 0, len(s.open))
	for _, st := range s.open {
		states = append(states, st)
	}
	s.open = make(map[types.NamespaceID]*docState)
	s.mu.Unlock()

	s.rootCancel()
	for _, st := range states {
		st.close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	logger.Info("文档服务已停止")
	return nil
}

func (s *Service) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
