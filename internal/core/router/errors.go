package router

import "errors"

// ============================================================================
// 错误定义
// ============================================================================

var (
	// ErrEmptyTag 注册项缺少 ALPN 标签
	ErrEmptyTag = errors.New("router: empty protocol tag")

	// ErrNilHandler 注册项缺少处理器
	ErrNilHandler = errors.New("router: nil protocol handler")

	// ErrDuplicateTag 同一 ALPN 标签被注册了两次
	ErrDuplicateTag = errors.New("router: duplicate protocol tag")

	// ErrNoProtocols 路由器至少需要一个协议
	ErrNoProtocols = errors.New("router: no protocols registered")

	// ErrRouterStopped 路由器已关闭
	ErrRouterStopped = errors.New("router: stopped")
)
