package ping

import "errors"

// 定义错误
var (
	// ErrClosed 服务已关闭
	ErrClosed = errors.New("ping service closed")

	// ErrInvalidMessage 响应无法解析或 ID 不匹配
	ErrInvalidMessage = errors.New("invalid ping message")
)
