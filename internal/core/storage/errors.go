package storage

import "errors"

// 存储引擎错误定义
var (
	// ErrClosed 引擎已关闭
	ErrClosed = errors.New("storage: engine closed")

	// ErrEmptyKey 键为空
	ErrEmptyKey = errors.New("storage: empty key")
)
