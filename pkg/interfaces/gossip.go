// Package interfaces - Gossip 主题服务接口
package interfaces

import (
	"context"

	"github.com/dep2p/go-weave/pkg/types"
)

// Gossip gossip 主题服务
//
// 每个主题是一张独立的覆盖网：订阅即加入，
// bootstrap 列表提供最初的邻居。
type Gossip interface {
	// Subscribe 订阅主题
	//
	// bootstrap 中的节点会被逐个拨号并发送 join；
	// 拨不通的节点记录日志后跳过，不阻塞订阅本身。
	// 同一主题可以多次订阅，各订阅独立收取事件。
	Subscribe(ctx context.Context, topic types.TopicID, bootstrap []types.NodeID) (TopicHandle, error)
}

// TopicHandle 主题订阅句柄
//
// Events 通道由服务关闭：订阅取消、服务关停或底层出错
// （先投递一条 Error 事件）之后通道关闭，消费方以通道关闭
// 作为流结束信号。
type TopicHandle interface {
	// Topic 返回主题标识
	Topic() types.TopicID

	// Events 返回事件通道
	//
	// 通道带有限缓冲；消费过慢时事件被丢弃并合并为一条
	// Lagged 事件。
	Events() <-chan types.GossipEvent

	// Broadcast 向主题广播消息（多跳洪泛扩散）
	Broadcast(ctx context.Context, data []byte) error

	// BroadcastNeighbors 只发给当前直连邻居，不再扩散
	BroadcastNeighbors(ctx context.Context, data []byte) error

	// Close 取消订阅并关闭事件通道。幂等。
	Close() error
}
