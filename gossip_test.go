package weave

import (
	"context"
	"errors"
	"testing"
	"time"
)

func discardMessages(context.Context, *Event) error { return nil }

// TestSubscribeValidation 测试订阅参数校验在分配资源之前完成
func TestSubscribeValidation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	node := startMemoryNode(t)

	// 主题长度不是 32 字节
	for _, n := range []int{0, 16, 31, 33} {
		_, err := node.Gossip().Subscribe(ctx, make([]byte, n), nil, MessageCallbackFunc(discardMessages))
		if !errors.Is(err, ErrInvalidTopic) {
			t.Errorf("topic length %d: error = %v, want ErrInvalidTopic", n, err)
		}
	}

	// nil 回调
	topic := TopicFromString("validation")
	if _, err := node.Gossip().Subscribe(ctx, topic.Bytes(), nil, nil); err == nil {
		t.Error("nil callback should fail")
	}

	// bootstrap 不是合法 NodeID
	_, err := node.Gossip().Subscribe(ctx, topic.Bytes(), []string{"definitely-not-base58!"}, MessageCallbackFunc(discardMessages))
	if !errors.Is(err, ErrInvalidNodeID) {
		t.Errorf("bad bootstrap: error = %v, want ErrInvalidNodeID", err)
	}
}

// TestSenderLifecycle 测试广播句柄的取消语义
func TestSenderLifecycle(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	node := startMemoryNode(t)
	topic := TopicFromString("sender-lifecycle")

	sender, err := node.Gossip().Subscribe(ctx, topic.Bytes(), nil, MessageCallbackFunc(discardMessages))
	if err != nil {
		t.Fatalf("Subscribe() error: %v", err)
	}

	// 取消前广播成功（本地无邻居也是成功）
	if err := sender.Broadcast(ctx, []byte("before cancel")); err != nil {
		t.Fatalf("Broadcast() error: %v", err)
	}
	if err := sender.BroadcastNeighbors(ctx, []byte("neighbors only")); err != nil {
		t.Fatalf("BroadcastNeighbors() error: %v", err)
	}

	// 首次取消成功
	if err := sender.Cancel(); err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}

	// 取消后广播被拒绝
	if err := sender.Broadcast(ctx, []byte("after cancel")); !errors.Is(err, ErrSenderCancelled) {
		t.Errorf("Broadcast after cancel: %v, want ErrSenderCancelled", err)
	}
	if err := sender.BroadcastNeighbors(ctx, []byte("after cancel")); !errors.Is(err, ErrSenderCancelled) {
		t.Errorf("BroadcastNeighbors after cancel: %v, want ErrSenderCancelled", err)
	}

	// 重复取消
	if err := sender.Cancel(); !errors.Is(err, ErrAlreadyCancelled) {
		t.Errorf("second Cancel: %v, want ErrAlreadyCancelled", err)
	}
}

// TestSubscribeSameTopicTwice 测试同一主题的多个订阅互相独立
func TestSubscribeSameTopicTwice(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	node := startMemoryNode(t)
	topic := TopicFromString("double-subscribe")

	s1, err := node.Gossip().Subscribe(ctx, topic.Bytes(), nil, MessageCallbackFunc(discardMessages))
	if err != nil {
		t.Fatal(err)
	}
	s2, err := node.Gossip().Subscribe(ctx, topic.Bytes(), nil, MessageCallbackFunc(discardMessages))
	if err != nil {
		t.Fatal(err)
	}

	// 取消一个不影响另一个
	if err := s1.Cancel(); err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}
	if err := s2.Broadcast(ctx, []byte("still alive")); err != nil {
		t.Errorf("surviving sender Broadcast() error: %v", err)
	}
	if err := s2.Cancel(); err != nil {
		t.Fatalf("second handle Cancel() error: %v", err)
	}
}
