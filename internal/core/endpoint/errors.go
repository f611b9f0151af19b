package endpoint

import "errors"

// 错误定义
var (
	// ErrEndpointClosed 端点已关闭
	ErrEndpointClosed = errors.New("endpoint closed")

	// ErrNotStarted 端点尚未启动
	ErrNotStarted = errors.New("endpoint not started")

	// ErrNoALPN 拨号未指定协议标签
	ErrNoALPN = errors.New("alpn required")
)
