// Package interfaces - Endpoint 网络端点接口
//
// 端点是节点全部网络流量的唯一出入口：一个（每地址族一个）UDP
// socket 上的 QUIC 传输，监听与拨号共用。协议选择通过 TLS ALPN
// 在握手期完成，接入的连接天然带有协商好的协议标签。
package interfaces

import (
	"context"
	"io"
	"net"

	"github.com/dep2p/go-weave/pkg/types"
)

// Endpoint 网络端点
//
// 线程安全：所有方法可并发调用。
type Endpoint interface {
	// ID 返回本节点标识
	ID() types.NodeID

	// Addrs 返回已绑定的监听地址（"host:port"）
	Addrs() []string

	// NodeAddr 返回本节点的地址记录（ID + 监听地址）
	NodeAddr() types.NodeAddr

	// Online 返回在线信号通道，监听 socket 绑定完成后关闭
	Online() <-chan struct{}

	// Dial 按协议标签拨号到指定节点
	//
	// addr.Addrs 为空时通过地址簿补全；逐个地址尝试直连。
	// 握手会验证对端身份与 addr.ID 一致，不一致即失败。
	// 对端未注册该 ALPN 时握手被拒绝。
	Dial(ctx context.Context, addr types.NodeAddr, alpn string) (Connection, error)

	// Accept 等待下一个接入连接
	//
	// 返回的连接已完成身份验证与 ALPN 协商。
	// 端点关闭后返回错误。
	Accept(ctx context.Context) (Connection, error)

	// Close 关闭端点，中断全部连接。幂等。
	Close() error
}

// Connection 一条已认证的 QUIC 连接
type Connection interface {
	// RemoteID 对端节点标识（由 TLS 证书验证）
	RemoteID() types.NodeID

	// ALPN 本连接协商出的协议标签
	ALPN() string

	// RemoteAddr 对端网络地址
	RemoteAddr() net.Addr

	// OpenStream 打开双向流
	OpenStream(ctx context.Context) (Stream, error)

	// AcceptStream 接受对端打开的双向流
	AcceptStream(ctx context.Context) (Stream, error)

	// Context 连接生命周期 context，连接关闭时取消
	Context() context.Context

	// Close 关闭连接。幂等。
	Close() error
}

// Stream 一条双向字节流
//
// Close 结束发送方向（对端 Read 收到 io.EOF），接收方向
// 随连接关闭而终止。
type Stream interface {
	io.Reader
	io.Writer
	io.Closer
}
