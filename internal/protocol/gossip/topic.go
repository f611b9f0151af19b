package gossip

import (
	"context"
	"sync"

	"github.com/dep2p/go-weave/pkg/interfaces"
	"github.com/dep2p/go-weave/pkg/types"
)

// ============================================================================
//                              主题状态
// ============================================================================

// topicState 一个本地已订阅的主题
//
// 同一主题允许多个订阅句柄共存，事件向每个句柄各投递一份；
// 最后一个句柄关闭时主题退订。
type topicState struct {
	id      types.TopicID
	handles map[*handle]struct{}
}

func newTopicState(id types.TopicID) *topicState {
	return &topicState{
		id:      id,
		handles: make(map[*handle]struct{}),
	}
}

// ============================================================================
//                              订阅句柄
// ============================================================================

// handle 主题订阅句柄
//
// 事件通道带有限缓冲；push 永不阻塞，通道满时丢弃事件并
// 合并为一条 Lagged。通道只由服务侧关闭。
type handle struct {
	svc   *Service
	topic types.TopicID

	mu     sync.Mutex
	events chan types.GossipEvent
	lagged bool
	closed bool
}

var _ interfaces.TopicHandle = (*handle)(nil)

func newHandle(svc *Service, topic types.TopicID, buffer int) *handle {
	return &handle{
		svc:    svc,
		topic:  topic,
		events: make(chan types.GossipEvent, buffer),
	}
}

// Topic 返回主题标识
func (h *handle) Topic() types.TopicID {
	return h.topic
}

// Events 返回事件通道
func (h *handle) Events() <-chan types.GossipEvent {
	return h.events
}

// Broadcast 向主题广播消息（多跳洪泛扩散）
func (h *handle) Broadcast(ctx context.Context, data []byte) error {
	if h.isClosed() {
		return ErrHandleClosed
	}
	return h.svc.broadcast(ctx, h.topic, data, true)
}

// BroadcastNeighbors 只发给当前直连邻居，不再扩散
func (h *handle) BroadcastNeighbors(ctx context.Context, data []byte) error {
	if h.isClosed() {
		return ErrHandleClosed
	}
	return h.svc.broadcast(ctx, h.topic, data, false)
}

// Close 取消订阅并关闭事件通道。幂等。
func (h *handle) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	close(h.events)
	h.mu.Unlock()

	h.svc.dropHandle(h)
	return nil
}

func (h *handle) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// push 非阻塞投递一个事件
//
// 通道满时事件被丢弃并置 Lagged 标记；标记在下一次有空位时
// 补发一条 Lagged 事件，多次丢弃只合并为一条。
func (h *handle) push(ev types.GossipEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}

	if h.lagged {
		select {
		case h.events <- types.GossipEvent{Type: types.GossipLagged}:
			h.lagged = false
		default:
			// 通道仍满，本事件随之丢弃
			return
		}
	}

	select {
	case h.events <- ev:
	default:
		h.lagged = true
		h.svc.metrics.EventsDropped.Inc()
	}
}

// fail 投递终止性 Error 事件并关闭通道
//
// 用于服务侧异常收尾；订阅者自己 Close 的正常路径不经过这里。
func (h *handle) fail(reason string) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true

	ev := types.GossipEvent{Type: types.GossipError, Reason: reason}
	select {
	case h.events <- ev:
	default:
		// 满了也要保证 Error 可见：丢弃最旧的一个事件腾位
		select {
		case <-h.events:
		default:
		}
		select {
		case h.events <- ev:
		default:
		}
	}
	close(h.events)
	h.mu.Unlock()
}
