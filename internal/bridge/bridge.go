// Package bridge 实现事件桥：把原生事件通道泵入外部回调
//
// 订阅类 API 在内部用通道传递事件，对外却以回调交付
// （嵌入方的绑定层只认回调）。事件桥是两者之间唯一的衔接点：
// 一个 goroutine 一条通道一个回调，严格一进一出，不加缓冲，
// 背压直接传导给生产者。
//
// 取消语义是有偏的：取消令牌与事件同时就绪时取消胜出，
// 已就绪的事件被丢弃而不是补投。
package bridge

import (
	"github.com/dep2p/go-weave/pkg/lib/cancel"
	"github.com/dep2p/go-weave/pkg/lib/log"
)

var logger = log.Logger("bridge")

// Run 运行事件桥，直到令牌取消或事件通道关闭
//
// 每轮迭代：
//  1. 先查令牌：已取消就不再碰通道
//  2. 阻塞等待 select { 令牌 | 事件 }
//  3. 取到事件后再查一次令牌：select 双就绪时随机择路，
//     这次补查保证取消赢过同时就绪的事件（事件被丢弃）
//  4. 投递恰好这一个事件
//  5. 回调错误记日志后继续，不终止泵
//  6. 通道关闭即终止
//
// deliver 的错误处理由调用方包装（计数、转换），Run 只保证
// 不让错误打断循环。
func Run[E any](name string, tok *cancel.Token, events <-chan E, deliver func(E) error) {
	logger.Debug("事件桥启动", "bridge", name)
	defer logger.Debug("事件桥退出", "bridge", name)

	for {
		if tok.IsCancelled() {
			return
		}

		select {
		case <-tok.Done():
			return

		case ev, ok := <-events:
			if !ok {
				return
			}
			if tok.IsCancelled() {
				return
			}
			if err := deliver(ev); err != nil {
				logger.Warn("回调返回错误", "bridge", name, "error", err)
			}
		}
	}
}

// Spawn 在新 goroutine 中运行事件桥
func Spawn[E any](name string, tok *cancel.Token, events <-chan E, deliver func(E) error) {
	go Run(name, tok, events, deliver)
}
