// Package cancel 提供一次性取消令牌
//
// Token 是跨 goroutine 的协作取消信号：一方触发，多方观察。
// 与 context.Context 不同，Token 不携带截止时间与值，
// 只表达"这项工作已被取消"这一个事实，且可查询是否由本次调用触发。
package cancel

import (
	"sync"
)

// Token 一次性取消令牌
//
// 触发后不可复位。所有方法都可以在任意 goroutine 上并发调用。
// 零值不可用，必须通过 NewToken 创建。
type Token struct {
	mu        sync.Mutex
	done      chan struct{}
	cancelled bool
}

// NewToken 创建未触发的取消令牌
func NewToken() *Token {
	return &Token{
		done: make(chan struct{}),
	}
}

// Cancel 触发取消
//
// 返回 true 表示令牌由本次调用触发；令牌已处于取消态时返回 false。
// 首次触发会关闭 Done 通道，唤醒所有等待者，不存在丢失唤醒：
// 之后才开始等待的观察者会立即看到已关闭的通道。
func (t *Token) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancelled {
		return false
	}
	t.cancelled = true
	close(t.done)
	return true
}

// IsCancelled 查询令牌是否已触发
func (t *Token) IsCancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// Done 返回取消信号通道
//
// 令牌触发时通道关闭。用于 select 等待，无需轮询。
func (t *Token) Done() <-chan struct{} {
	return t.done
}
