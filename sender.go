package weave

import (
	"context"
	"sync"

	"github.com/dep2p/go-weave/pkg/interfaces"
	"github.com/dep2p/go-weave/pkg/lib/cancel"
)

// ════════════════════════════════════════════════════════════════════════════
//                              Sender - 广播句柄
// ════════════════════════════════════════════════════════════════════════════

// Sender 一次订阅的广播句柄
//
// Subscribe 返回 Sender，生命周期与订阅绑定：Cancel 取消订阅
// （停止事件桥、关闭底层主题句柄），之后任何广播都失败。
//
// 所有方法并发安全。
type Sender struct {
	mu     sync.Mutex
	handle interfaces.TopicHandle
	tok    *cancel.Token
}

// Broadcast 向主题广播消息（多跳洪泛扩散）
//
// 订阅已取消时返回 ErrSenderCancelled。
func (s *Sender) Broadcast(ctx context.Context, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tok.IsCancelled() {
		return ErrSenderCancelled
	}
	return s.handle.Broadcast(ctx, payload)
}

// BroadcastNeighbors 只发给当前直连邻居，不再扩散
//
// 订阅已取消时返回 ErrSenderCancelled。
func (s *Sender) BroadcastNeighbors(ctx context.Context, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tok.IsCancelled() {
		return ErrSenderCancelled
	}
	return s.handle.BroadcastNeighbors(ctx, payload)
}

// Cancel 取消订阅
//
// 触发取消令牌（事件桥停止投递）并关闭主题句柄。
// 第二次调用返回 ErrAlreadyCancelled。
func (s *Sender) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.tok.Cancel() {
		return ErrAlreadyCancelled
	}
	return s.handle.Close()
}
