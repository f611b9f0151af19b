package cancel

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestTokenFireOnce(t *testing.T) {
	tok := NewToken()

	if tok.IsCancelled() {
		t.Fatal("新令牌不应处于取消态")
	}
	if !tok.Cancel() {
		t.Fatal("首次 Cancel() 应返回 true")
	}
	if !tok.IsCancelled() {
		t.Fatal("Cancel() 后 IsCancelled() 应为 true")
	}
	if tok.Cancel() {
		t.Fatal("重复 Cancel() 应返回 false")
	}
}

func TestTokenDone(t *testing.T) {
	t.Run("BlocksUntilCancel", func(t *testing.T) {
		tok := NewToken()
		select {
		case <-tok.Done():
			t.Fatal("未触发的令牌 Done 通道不应就绪")
		default:
		}

		tok.Cancel()

		select {
		case <-tok.Done():
		case <-time.After(time.Second):
			t.Fatal("触发后 Done 通道应立即就绪")
		}
	})

	t.Run("LateObserver", func(t *testing.T) {
		// 先取消再等待：不存在丢失唤醒
		tok := NewToken()
		tok.Cancel()
		select {
		case <-tok.Done():
		case <-time.After(time.Second):
			t.Fatal("后到的观察者也应立即被唤醒")
		}
	})
}

func TestTokenConcurrentCancel(t *testing.T) {
	tok := NewToken()

	var fired atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tok.Cancel() {
				fired.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := fired.Load(); got != 1 {
		t.Errorf("并发 Cancel 触发次数 = %d, want 1", got)
	}
	select {
	case <-tok.Done():
	default:
		t.Error("并发触发后 Done 通道未关闭")
	}
}
