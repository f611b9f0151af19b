package weave

import (
	"context"
	"fmt"
	"time"

	"github.com/dep2p/go-weave/pkg/types"
)

// ════════════════════════════════════════════════════════════════════════════
//                              用户 API: Net
// ════════════════════════════════════════════════════════════════════════════

// Net 网络信息与延迟探测门面
//
// 使用示例：
//
//	net := node.Net()
//	net.Online(ctx)                      // 等监听地址就绪
//	addr, _ := net.NodeAddr(ctx)         // 本节点可分享的地址记录
//	rtt, _ := net.Latency(ctx, peerID)   // 往返时延
type Net struct {
	n *Node
}

// NodeID 返回本节点标识（Base58）
func (nt *Net) NodeID() string {
	return nt.n.ep.ID().String()
}

// NodeAddr 返回本节点的地址记录
//
// 等待端点在线（监听地址绑定完成）后返回 ID + 监听地址，
// ctx 先到期则返回其错误。
func (nt *Net) NodeAddr(ctx context.Context) (*NodeAddr, error) {
	if nt.n.isClosed() {
		return nil, ErrNodeClosed
	}
	if err := nt.Online(ctx); err != nil {
		return nil, err
	}
	addr := nt.n.ep.NodeAddr()
	return &addr, nil
}

// Online 等待端点在线
//
// 监听 socket 绑定完成后立即返回；ctx 先到期返回其错误。
func (nt *Net) Online(ctx context.Context) error {
	if nt.n.isClosed() {
		return ErrNodeClosed
	}
	select {
	case <-nt.n.ep.Online():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Latency 测量到指定节点的往返时延
//
// 节点地址通过地址簿解析；不可达时返回错误。
func (nt *Net) Latency(ctx context.Context, nodeID string) (time.Duration, error) {
	if nt.n.isClosed() {
		return 0, ErrNodeClosed
	}
	id, err := types.ParseNodeID(nodeID)
	if err != nil {
		return 0, err
	}
	return nt.n.pinger.Ping(ctx, id)
}

// AddNodeAddr 把节点地址加入地址簿
//
// 之后凭 NodeID 即可拨号该节点（Download、StartSync、bootstrap）。
// 拒绝本节点自身与空地址列表。
func (nt *Net) AddNodeAddr(_ context.Context, addr *NodeAddr) error {
	if nt.n.isClosed() {
		return ErrNodeClosed
	}
	if addr == nil {
		return fmt.Errorf("weave: nil node addr")
	}
	if err := addr.Validate(); err != nil {
		return err
	}
	if addr.ID == nt.n.ep.ID() {
		return fmt.Errorf("weave: cannot add own address")
	}
	if !addr.HasAddrs() {
		return ErrNoAddresses
	}
	return nt.n.book.Add(*addr)
}
