package weave

import (
	"context"
	"fmt"

	"github.com/dep2p/go-weave/internal/bridge"
	"github.com/dep2p/go-weave/pkg/lib/cancel"
	"github.com/dep2p/go-weave/pkg/types"
)

// ════════════════════════════════════════════════════════════════════════════
//                              用户 API: Gossip
// ════════════════════════════════════════════════════════════════════════════

// Gossip 主题订阅入口
//
// 每个主题是一张独立的覆盖网。订阅把事件（邻居变化、收到的消息）
// 推入调用方提供的回调；广播通过返回的 Sender 进行。
//
// 使用示例：
//
//	topic := weave.TopicFromString("room/general")
//	sender, err := node.Gossip().Subscribe(ctx, topic.Bytes(),
//	    []string{bootstrapID},
//	    weave.MessageCallbackFunc(func(ctx context.Context, ev *weave.Event) error {
//	        if ev.Type() == weave.EventReceived {
//	            fmt.Printf("%s\n", ev.AsReceived().Content)
//	        }
//	        return nil
//	    }))
//	if err != nil {
//	    return err
//	}
//	defer sender.Cancel()
//
//	sender.Broadcast(ctx, []byte("hello"))
type Gossip struct {
	n *Node
}

// Subscribe 订阅主题，事件推入回调
//
// topic 必须恰好 32 字节（ErrInvalidTopic），校验在分配任何订阅
// 资源之前完成。bootstrap 是 Base58 NodeID 列表，解析失败立即
// 返回错误；解析成功的节点被逐个拨号加入覆盖网，拨不通的记日志
// 跳过。
//
// 返回的 Sender 用于广播与取消。事件按到达顺序逐条进入 cb，
// 上一条回调返回前不投递下一条；回调返回错误不终止订阅。
func (g *Gossip) Subscribe(ctx context.Context, topic []byte, bootstrap []string, cb MessageCallback) (*Sender, error) {
	if g.n.isClosed() {
		return nil, ErrNodeClosed
	}
	if cb == nil {
		return nil, errNilCallback
	}

	t, err := types.TopicFromBytes(topic)
	if err != nil {
		return nil, err
	}

	peers := make([]types.NodeID, 0, len(bootstrap))
	for _, s := range bootstrap {
		id, err := types.ParseNodeID(s)
		if err != nil {
			return nil, fmt.Errorf("bootstrap %q: %w", s, err)
		}
		peers = append(peers, id)
	}

	handle, err := g.n.gossip.Subscribe(ctx, t, peers)
	if err != nil {
		return nil, err
	}

	tok := cancel.NewToken()
	sender := &Sender{handle: handle, tok: tok}

	n := g.n
	bridge.Spawn("gossip/"+t.ShortString(), tok, handle.Events(), func(ev types.GossipEvent) error {
		n.metrics.EventsDelivered.Inc()
		if err := cb.OnMessage(n.rootCtx, convertGossipEvent(ev)); err != nil {
			n.metrics.CallbackErrors.Inc()
			return err
		}
		return nil
	})

	return sender, nil
}
