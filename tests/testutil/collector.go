package testutil

import (
	"sync"
	"testing"
	"time"
)

// EventCollector 线程安全的事件收集器
//
// 回调风格的订阅接口把事件推给用户代码，测试里用收集器
// 记录事件流，再断言数量与内容。
//
// 示例:
//
//	collector := testutil.NewEventCollector[*weave.Event]()
//	sender, _ := node.Gossip().Subscribe(ctx, topic, nil,
//	    weave.MessageCallbackFunc(func(_ context.Context, ev *weave.Event) error {
//	        collector.Add(ev)
//	        return nil
//	    }))
//	events := collector.WaitLen(t, 1, 10*time.Second)
type EventCollector[E any] struct {
	mu     sync.Mutex
	events []E
}

// NewEventCollector 创建事件收集器
func NewEventCollector[E any]() *EventCollector[E] {
	return &EventCollector[E]{}
}

// Add 记录一条事件
func (c *EventCollector[E]) Add(ev E) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

// Len 返回已记录的事件数
func (c *EventCollector[E]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

// Events 返回已记录事件的副本
func (c *EventCollector[E]) Events() []E {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]E, len(c.events))
	copy(out, c.events)
	return out
}

// WaitLen 等待事件数达到 n 后返回全部事件，超时则 fail 测试
func (c *EventCollector[E]) WaitLen(t *testing.T, n int, timeout time.Duration) []E {
	t.Helper()

	Eventually(t, timeout, func() bool {
		return c.Len() >= n
	}, "等待事件数达到预期")
	return c.Events()
}
