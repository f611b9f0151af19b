package gossip

import "errors"

// 定义错误
var (
	// ErrClosed 服务已关闭
	ErrClosed = errors.New("gossip service closed")

	// ErrHandleClosed 订阅句柄已关闭
	ErrHandleClosed = errors.New("topic handle closed")

	// ErrNotSubscribed 本地未订阅该主题
	ErrNotSubscribed = errors.New("not subscribed to topic")
)
