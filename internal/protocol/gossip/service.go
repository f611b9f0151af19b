package gossip

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dep2p/go-weave/config"
	"github.com/dep2p/go-weave/internal/core/metrics"
	"github.com/dep2p/go-weave/internal/wire"
	"github.com/dep2p/go-weave/pkg/interfaces"
	"github.com/dep2p/go-weave/pkg/lib/log"
	"github.com/dep2p/go-weave/pkg/types"
)

var logger = log.Logger("protocol/gossip")

// ============================================================================
//                              服务定义
// ============================================================================

// Service 主题覆盖网服务
//
// 每个对端至多维持一条 gossip 连接，连接上的双向流承载全部
// 主题的帧。消息按 ID 在 seen 缓存中去重，带 forward 标记的
// 消息继续向其余邻居洪泛。
type Service struct {
	ep      interfaces.Endpoint
	book    interfaces.AddressBook
	cfg     config.GossipConfig
	metrics *metrics.Metrics

	mu        sync.RWMutex
	topics    map[types.TopicID]*topicState
	neighbors map[types.NodeID]*neighbor
	closed    bool

	seen *lru.Cache[string, struct{}]
	seq  atomic.Uint64

	rootCtx    context.Context
	rootCancel context.CancelFunc
	wg         sync.WaitGroup
}

var (
	_ interfaces.Gossip          = (*Service)(nil)
	_ interfaces.ProtocolHandler = (*Service)(nil)
)

// NewService 创建主题覆盖网服务
func NewService(ep interfaces.Endpoint, book interfaces.AddressBook, cfg *config.Config, m *metrics.Metrics) (*Service, error) {
	seen, err := lru.New[string, struct{}](cfg.Gossip.SeenCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create seen cache: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		ep:         ep,
		book:       book,
		cfg:        cfg.Gossip,
		metrics:    m,
		topics:     make(map[types.TopicID]*topicState),
		neighbors:  make(map[types.NodeID]*neighbor),
		seen:       seen,
		rootCtx:    ctx,
		rootCancel: cancel,
	}, nil
}

// ============================================================================
//                              订阅
// ============================================================================

// Subscribe 订阅主题
//
// bootstrap 中的节点在后台逐个建立邻居连接，拨号失败记录
// 日志后跳过。主题内已有的邻居立即以 NeighborUp 事件补发给
// 新句柄。
func (s *Service) Subscribe(_ context.Context, topic types.TopicID, bootstrap []types.NodeID) (interfaces.TopicHandle, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}

	ts, ok := s.topics[topic]
	isNew := !ok
	if isNew {
		ts = newTopicState(topic)
		s.topics[topic] = ts
	}
	h := newHandle(s, topic, s.cfg.SubscriberBuffer)
	ts.handles[h] = struct{}{}

	existing := make([]*neighbor, 0, len(s.neighbors))
	for _, n := range s.neighbors {
		existing = append(existing, n)
	}
	s.mu.Unlock()

	// 对端先订阅的情况下不会再有 join 帧过来，补发当前成员
	for _, n := range existing {
		if n.hasTopic(topic) {
			h.push(types.GossipEvent{Type: types.GossipNeighborUp, Peer: n.id})
		}
	}

	if isNew {
		join := &frame{Type: frameJoin, Topics: [][]byte{topic.Bytes()}}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.announce(join, existing)
		}()
	}

	self := s.ep.ID()
	for _, id := range bootstrap {
		if id.Equal(self) || id.IsEmpty() {
			continue
		}
		s.wg.Add(1)
		go func(id types.NodeID) {
			defer s.wg.Done()
			if _, err := s.ensureNeighbor(id); err != nil {
				logger.Warn("连接引导节点失败",
					"node", id.ShortString(),
					"topic", topic.ShortString(),
					"error", err)
			}
		}(id)
	}

	logger.Debug("订阅主题",
		"topic", topic.ShortString(),
		"bootstrap", len(bootstrap))
	return h, nil
}

// dropHandle 注销一个订阅句柄
//
// 主题的最后一个句柄关闭时退订：向全部邻居宣告 leave。
func (s *Service) dropHandle(h *handle) {
	s.mu.Lock()
	ts, ok := s.topics[h.topic]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(ts.handles, h)
	last := len(ts.handles) == 0
	if last {
		delete(s.topics, h.topic)
	}
	targets := make([]*neighbor, 0, len(s.neighbors))
	for _, n := range s.neighbors {
		targets = append(targets, n)
	}
	s.mu.Unlock()

	if last {
		leave := &frame{Type: frameLeave, Topics: [][]byte{h.topic.Bytes()}}
		s.announce(leave, targets)
		logger.Debug("退订主题", "topic", h.topic.ShortString())
	}
}

// ============================================================================
//                              广播
// ============================================================================

// broadcast 向主题内的邻居发出一条消息
//
// forward 为真时消息带洪泛标记，经多跳扩散；为假时只达直连
// 邻居。消息不投递给本地订阅者，自己广播的内容自己不收。
func (s *Service) broadcast(ctx context.Context, topic types.TopicID, data []byte, forward bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrClosed
	}
	if _, ok := s.topics[topic]; !ok {
		s.mu.RUnlock()
		return ErrNotSubscribed
	}
	targets := make([]*neighbor, 0, len(s.neighbors))
	for _, n := range s.neighbors {
		targets = append(targets, n)
	}
	s.mu.RUnlock()

	self := s.ep.ID()
	id := messageID(self, s.seq.Add(1), topic)
	s.seen.Add(string(id), struct{}{})

	f := &frame{
		Type:    frameMessage,
		Topic:   topic.Bytes(),
		ID:      id,
		Origin:  self.Bytes(),
		Data:    data,
		Forward: forward,
	}

	sent := 0
	for _, n := range targets {
		if !n.hasTopic(topic) {
			continue
		}
		if err := n.send(f); err != nil {
			logger.Warn("广播写入失败",
				"node", n.id.ShortString(),
				"error", err)
			s.dropNeighbor(n)
			continue
		}
		sent++
	}

	scope := "flood"
	if !forward {
		scope = "neighbors"
	}
	s.metrics.GossipPublished.WithLabelValues(scope).Inc()

	logger.Debug("广播消息",
		"topic", topic.ShortString(),
		"bytes", len(data),
		"neighbors", sent,
		"forward", forward)
	return nil
}

// ============================================================================
//                              邻居管理
// ============================================================================

// ensureNeighbor 确保与指定节点存在 gossip 连接
func (s *Service) ensureNeighbor(id types.NodeID) (*neighbor, error) {
	s.mu.RLock()
	if n, ok := s.neighbors[id]; ok {
		s.mu.RUnlock()
		return n, nil
	}
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}

	ctx, cancel := context.WithTimeout(s.rootCtx, dialTimeout)
	defer cancel()

	conn, err := s.ep.Dial(ctx, types.NodeAddr{ID: id}, ALPN)
	if err != nil {
		return nil, fmt.Errorf("dial neighbor: %w", err)
	}
	stream, err := conn.OpenStream(ctx)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open gossip stream: %w", err)
	}

	n := newNeighbor(id, conn, stream, true)
	winner, fresh := s.register(n)
	if !fresh {
		_ = conn.Close()
		if winner == nil {
			return nil, ErrClosed
		}
		return winner, nil
	}

	if err := s.sendLocalJoin(n); err != nil {
		s.dropNeighbor(n)
		return nil, fmt.Errorf("announce topics: %w", err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.readLoop(n)
	}()
	return n, nil
}

// register 登记邻居连接
//
// 与同一对端最多保留一条连接。双方同时互拨会在两侧各产生两条
// 连接，按确定性规则收敛：保留由较小 NodeID 一方发起的那条，
// 两侧独立判断得到同一结果。返回最终生效的邻居以及传入连接
// 是否被采纳。
func (s *Service) register(n *neighbor) (*neighbor, bool) {
	self := s.ep.ID()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, false
	}
	old, ok := s.neighbors[n.id]
	if !ok {
		s.neighbors[n.id] = n
		s.mu.Unlock()
		s.metrics.GossipNeighbors.Inc()
		return n, true
	}

	newDialer := n.dialer(self)
	oldDialer := old.dialer(self)
	if bytes.Compare(newDialer.Bytes(), oldDialer.Bytes()) >= 0 {
		s.mu.Unlock()
		return old, false
	}
	s.neighbors[n.id] = n
	s.mu.Unlock()

	s.retireNeighbor(old)
	return n, true
}

// sendLocalJoin 把本地全部已订阅主题宣告给对端
func (s *Service) sendLocalJoin(n *neighbor) error {
	s.mu.RLock()
	topics := make([][]byte, 0, len(s.topics))
	for t := range s.topics {
		topics = append(topics, t.Bytes())
	}
	s.mu.RUnlock()

	if len(topics) == 0 {
		return nil
	}
	return n.send(&frame{Type: frameJoin, Topics: topics})
}

// announce 向一组邻居发送同一帧
func (s *Service) announce(f *frame, targets []*neighbor) {
	for _, n := range targets {
		if err := n.send(f); err != nil {
			logger.Debug("宣告写入失败",
				"node", n.id.ShortString(),
				"error", err)
			s.dropNeighbor(n)
		}
	}
}

// dropNeighbor 移除邻居并发出 NeighborDown 事件
//
// 只处理仍在名册上的连接；已被 register 替换的旧连接在
// retireNeighbor 中收尾。幂等。
func (s *Service) dropNeighbor(n *neighbor) {
	s.mu.Lock()
	cur, ok := s.neighbors[n.id]
	if !ok || cur != n {
		s.mu.Unlock()
		n.close()
		return
	}
	delete(s.neighbors, n.id)
	s.mu.Unlock()

	s.metrics.GossipNeighbors.Dec()
	s.retireNeighbor(n)
}

// retireNeighbor 关闭连接并向本地订阅补发 NeighborDown
func (s *Service) retireNeighbor(n *neighbor) {
	n.close()
	for _, t := range n.topicList() {
		s.pushToTopic(t, types.GossipEvent{Type: types.GossipNeighborDown, Peer: n.id})
	}
	logger.Debug("邻居断开", "node", n.id.ShortString())
}

// pushToTopic 向主题的全部本地句柄投递事件
func (s *Service) pushToTopic(topic types.TopicID, ev types.GossipEvent) {
	s.mu.RLock()
	ts, ok := s.topics[topic]
	if !ok {
		s.mu.RUnlock()
		return
	}
	handles := make([]*handle, 0, len(ts.handles))
	for h := range ts.handles {
		handles = append(handles, h)
	}
	s.mu.RUnlock()

	for _, h := range handles {
		h.push(ev)
	}
}

// ============================================================================
//                              连接处理
// ============================================================================

// Accept 处理一条接入的 gossip 连接
//
// 发起方负责打开双向流；接受方登记邻居、宣告本地主题，然后
// 在本协程上持续读帧直到连接结束。
func (s *Service) Accept(ctx context.Context, conn interfaces.Connection) error {
	if s.isClosed() {
		return ErrClosed
	}

	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		return fmt.Errorf("accept gossip stream: %w", err)
	}

	remote := conn.RemoteID()
	if addr := conn.RemoteAddr(); addr != nil {
		// 共享 socket 下对端源端口即其监听端口，回写供反向拨号
		_ = s.book.Add(types.NodeAddr{ID: remote, Addrs: []string{addr.String()}})
	}

	n := newNeighbor(remote, conn, stream, false)
	winner, fresh := s.register(n)
	if !fresh {
		_ = conn.Close()
		if winner == nil {
			return ErrClosed
		}
		return nil
	}

	if err := s.sendLocalJoin(n); err != nil {
		s.dropNeighbor(n)
		return fmt.Errorf("announce topics: %w", err)
	}

	s.readLoop(n)
	return nil
}

// readLoop 持续读取并处理一个邻居的帧
func (s *Service) readLoop(n *neighbor) {
	defer s.dropNeighbor(n)

	for {
		var f frame
		if err := wire.ReadFrame(n.stream, &f, uint64(s.cfg.MaxFrameSize)); err != nil {
			logger.Debug("邻居流结束",
				"node", n.id.ShortString(),
				"error", err)
			return
		}

		switch f.Type {
		case frameJoin:
			s.handleJoin(n, f.Topics)
		case frameLeave:
			s.handleLeave(n, f.Topics)
		case frameMessage:
			s.handleMessage(n, &f)
		default:
			logger.Warn("未知帧类型",
				"node", n.id.ShortString(),
				"type", f.Type)
		}
	}
}

// handleJoin 处理对端的主题加入宣告
func (s *Service) handleJoin(n *neighbor, raw [][]byte) {
	for _, b := range raw {
		topic, err := types.TopicFromBytes(b)
		if err != nil {
			logger.Warn("忽略无效主题", "node", n.id.ShortString(), "error", err)
			continue
		}
		if n.addTopic(topic) {
			s.pushToTopic(topic, types.GossipEvent{Type: types.GossipNeighborUp, Peer: n.id})
		}
	}
}

// handleLeave 处理对端的主题离开宣告
func (s *Service) handleLeave(n *neighbor, raw [][]byte) {
	for _, b := range raw {
		topic, err := types.TopicFromBytes(b)
		if err != nil {
			continue
		}
		if n.removeTopic(topic) {
			s.pushToTopic(topic, types.GossipEvent{Type: types.GossipNeighborDown, Peer: n.id})
		}
	}
}

// handleMessage 处理一条主题消息
//
// 去重后投递给本地订阅者；带 forward 标记且本地在播的主题
// 继续向其余邻居转发。
func (s *Service) handleMessage(n *neighbor, f *frame) {
	topic, err := types.TopicFromBytes(f.Topic)
	if err != nil || len(f.ID) == 0 {
		logger.Warn("忽略畸形消息", "node", n.id.ShortString())
		return
	}

	if dup, _ := s.seen.ContainsOrAdd(string(f.ID), struct{}{}); dup {
		return
	}
	s.metrics.GossipReceived.Inc()

	s.mu.RLock()
	_, subscribed := s.topics[topic]
	var targets []*neighbor
	if f.Forward && subscribed {
		targets = make([]*neighbor, 0, len(s.neighbors))
		for _, nb := range s.neighbors {
			targets = append(targets, nb)
		}
	}
	s.mu.RUnlock()

	if !subscribed {
		return
	}

	s.pushToTopic(topic, types.GossipEvent{
		Type: types.GossipReceived,
		Data: f.Data,
		From: n.id,
	})

	for _, nb := range targets {
		if nb == n || !nb.hasTopic(topic) {
			continue
		}
		if err := nb.send(f); err != nil {
			logger.Debug("转发写入失败",
				"node", nb.id.ShortString(),
				"error", err)
			s.dropNeighbor(nb)
		}
	}
}

// ============================================================================
//                              关闭
// ============================================================================

// Shutdown 关闭服务
//
// 仍然打开的订阅句柄先收到终止性 Error 事件再关闭通道，
// 全部邻居连接断开。幂等。
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true

	var handles []*handle
	for _, ts := range s.topics {
		for h := range ts.handles {
			handles = append(handles, h)
		}
	}
	neighbors := make([]*neighbor, 0, len(s.neighbors))
	for _, n := range s.neighbors {
		neighbors = append(neighbors, n)
	}
	s.topics = make(map[types.TopicID]*topicState)
	s.neighbors = make(map[types.NodeID]*neighbor)
	s.mu.Unlock()

	s.rootCancel()

	for _, h := range handles {
		h.fail("gossip service closed")
	}
	for _, n := range neighbors {
		n.close()
	}
	s.metrics.GossipNeighbors.Sub(float64(len(neighbors)))

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

	logger.Info("gossip 服务已关闭",
		"neighbors", len(neighbors),
		"subscriptions", len(handles))
	return nil
}

func (s *Service) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}
