package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dep2p/go-weave"
)

// WaitForCondition 等待条件满足或超时
//
// 参数：
//   - t: 测试对象
//   - timeout: 超时时间
//   - interval: 检查间隔
//   - condition: 条件函数，返回 true 表示条件满足
//
// 返回：条件是否满足（超时返回 false）
func WaitForCondition(t *testing.T, timeout time.Duration, interval time.Duration, condition func() bool) bool {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// 立即检查一次
	if condition() {
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if condition() {
				return true
			}
		}
	}
}

// WaitForConditionOrFail 等待条件满足，超时则 fail 测试
func WaitForConditionOrFail(t *testing.T, timeout time.Duration, interval time.Duration, condition func() bool, msg string) {
	t.Helper()

	if !WaitForCondition(t, timeout, interval, condition) {
		t.Fatalf("等待超时: %s", msg)
	}
}

// Eventually 在指定时间内重试条件检查
//
// 使用默认间隔 100ms。
//
// 示例:
//
//	testutil.Eventually(t, 10*time.Second, func() bool {
//	    return collector.Len() >= 1
//	}, "应该收到事件")
func Eventually(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	t.Helper()
	WaitForConditionOrFail(t, timeout, 100*time.Millisecond, condition, msg)
}

// WaitForBlob 等待指定内容在节点本地落库
//
// 用于等待下载或同步取回完成。
//
// 示例:
//
//	testutil.WaitForBlob(t, node, hash, 10*time.Second)
func WaitForBlob(t *testing.T, node *weave.Node, hash weave.Hash, timeout time.Duration) {
	t.Helper()

	Eventually(t, timeout, func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		ok, err := node.Blobs().Has(ctx, hash)
		return err == nil && ok
	}, "等待内容落库")
}

// Sleep 等待指定时间（用于测试中的简单延迟）
func Sleep(d time.Duration) {
	time.Sleep(d)
}
