package gossip

import (
	"sync"

	"github.com/dep2p/go-weave/internal/wire"
	"github.com/dep2p/go-weave/pkg/interfaces"
	"github.com/dep2p/go-weave/pkg/types"
)

// neighbor 一个已建立 gossip 连接的对端
//
// 连接上只有一条双向长流，写入经 wmu 串行化。topics 记录
// 对端通过 join/leave 宣告的订阅集合。
type neighbor struct {
	id       types.NodeID
	conn     interfaces.Connection
	stream   interfaces.Stream
	outbound bool

	wmu sync.Mutex

	tmu    sync.RWMutex
	topics map[types.TopicID]struct{}
}

func newNeighbor(id types.NodeID, conn interfaces.Connection, stream interfaces.Stream, outbound bool) *neighbor {
	return &neighbor{
		id:       id,
		conn:     conn,
		stream:   stream,
		outbound: outbound,
		topics:   make(map[types.TopicID]struct{}),
	}
}

// dialer 返回发起此连接的节点
func (n *neighbor) dialer(self types.NodeID) types.NodeID {
	if n.outbound {
		return self
	}
	return n.id
}

// send 向对端写出一帧
func (n *neighbor) send(f *frame) error {
	n.wmu.Lock()
	defer n.wmu.Unlock()
	return wire.WriteFrame(n.stream, f)
}

// addTopic 登记对端加入的主题，返回是否为新增
func (n *neighbor) addTopic(topic types.TopicID) bool {
	n.tmu.Lock()
	defer n.tmu.Unlock()
	if _, ok := n.topics[topic]; ok {
		return false
	}
	n.topics[topic] = struct{}{}
	return true
}

// removeTopic 移除对端离开的主题，返回是否确实存在
func (n *neighbor) removeTopic(topic types.TopicID) bool {
	n.tmu.Lock()
	defer n.tmu.Unlock()
	if _, ok := n.topics[topic]; !ok {
		return false
	}
	delete(n.topics, topic)
	return true
}

// hasTopic 判断对端是否订阅了主题
func (n *neighbor) hasTopic(topic types.TopicID) bool {
	n.tmu.RLock()
	defer n.tmu.RUnlock()
	_, ok := n.topics[topic]
	return ok
}

// topicList 返回对端当前宣告的主题快照
func (n *neighbor) topicList() []types.TopicID {
	n.tmu.RLock()
	defer n.tmu.RUnlock()
	out := make([]types.TopicID, 0, len(n.topics))
	for t := range n.topics {
		out = append(out, t)
	}
	return out
}

// close 关闭底层连接
func (n *neighbor) close() {
	_ = n.conn.Close()
}
