package endpoint

import (
	"context"
	"net"

	"github.com/quic-go/quic-go"

	"github.com/dep2p/go-weave/pkg/interfaces"
	"github.com/dep2p/go-weave/pkg/types"
)

// Connection 已认证的 QUIC 连接封装
//
// remoteID 与 alpn 在构造前已由 TLS 握手验证，封装层只负责转发。
type Connection struct {
	quicConn *quic.Conn
	remoteID types.NodeID
	alpn     string
}

// 确保实现接口
var _ interfaces.Connection = (*Connection)(nil)

func newConnection(qc *quic.Conn, remoteID types.NodeID, alpn string) *Connection {
	return &Connection{
		quicConn: qc,
		remoteID: remoteID,
		alpn:     alpn,
	}
}

// RemoteID 返回对端节点标识
func (c *Connection) RemoteID() types.NodeID {
	return c.remoteID
}

// ALPN 返回协商出的协议标签
func (c *Connection) ALPN() string {
	return c.alpn
}

// RemoteAddr 返回对端网络地址
func (c *Connection) RemoteAddr() net.Addr {
	return c.quicConn.RemoteAddr()
}

// OpenStream 打开双向流
func (c *Connection) OpenStream(ctx context.Context) (interfaces.Stream, error) {
	qs, err := c.quicConn.OpenStreamSync(ctx)
	if err != nil {
		return nil, err
	}
	return newStream(qs), nil
}

// AcceptStream 接受对端打开的双向流
func (c *Connection) AcceptStream(ctx context.Context) (interfaces.Stream, error) {
	qs, err := c.quicConn.AcceptStream(ctx)
	if err != nil {
		return nil, err
	}
	return newStream(qs), nil
}

// Context 返回连接生命周期 context
func (c *Connection) Context() context.Context {
	return c.quicConn.Context()
}

// Close 关闭连接。幂等。
func (c *Connection) Close() error {
	return c.quicConn.CloseWithError(0, "connection closed")
}
