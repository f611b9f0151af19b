// Package interfaces - 协议处理器接口
//
// 内建协议（gossip/blobs/docs/ping）与调用方注册的扩展协议
// 实现同一个接口，由协议路由器统一分发。
package interfaces

import (
	"context"
)

// ProtocolHandler 协议处理器
//
// 每个注册的 ALPN 标签对应一个处理器实例。
type ProtocolHandler interface {
	// Accept 处理一条接入连接
	//
	// 路由器为每条连接单独起 goroutine 调用本方法，
	// 方法返回即视为该连接处理结束（路由器随后关闭连接）。
	// 返回错误只影响本连接，不影响处理器与其他连接。
	Accept(ctx context.Context, conn Connection) error

	// Shutdown 停止处理器
	//
	// 尽力而为地释放资源；ctx 截止后应尽快返回。
	// 由路由器在关停时调用一次。
	Shutdown(ctx context.Context) error
}

// ProtocolCreator 扩展协议工厂
//
// 节点构造期间调用：端点已可用、路由器尚未启动。
// 返回的处理器随节点生命周期注册到对应标签上。
type ProtocolCreator func(ep Endpoint) (ProtocolHandler, error)
