// Package interfaces - Ping 延迟探测接口
package interfaces

import (
	"context"
	"time"

	"github.com/dep2p/go-weave/pkg/types"
)

// Pinger 延迟探测服务
type Pinger interface {
	// Ping 向指定节点发送一次探测，返回往返时延
	//
	// 节点地址通过地址簿解析；不可达时返回错误。
	Ping(ctx context.Context, node types.NodeID) (time.Duration, error)
}
