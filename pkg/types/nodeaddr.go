package types

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// ============================================================================
//                              NodeAddr - 节点地址
// ============================================================================

// ErrNoAddresses 地址列表为空错误
var ErrNoAddresses = errors.New("node addr: no direct addresses")

// NodeAddr 节点标识加直连地址
//
// Addrs 为 UDP "host:port" 形式的直连地址（QUIC 监听地址）。
// weave 不使用中继，拨号时逐个尝试直连地址。
type NodeAddr struct {
	// ID 节点ID
	ID NodeID

	// Addrs 直连地址列表
	Addrs []string
}

// NewNodeAddr 创建 NodeAddr
func NewNodeAddr(id NodeID, addrs ...string) NodeAddr {
	return NodeAddr{ID: id, Addrs: addrs}
}

// HasAddrs 检查是否有直连地址
func (na NodeAddr) HasAddrs() bool {
	return len(na.Addrs) > 0
}

// Validate 校验地址记录
//
// 要求 NodeID 非空，且每个地址都是合法的 "host:port"。
// 允许地址列表为空（由地址簿补全）。
func (na NodeAddr) Validate() error {
	if na.ID.IsEmpty() {
		return ErrInvalidNodeID
	}
	for _, a := range na.Addrs {
		if _, _, err := net.SplitHostPort(a); err != nil {
			return fmt.Errorf("node addr: bad address %q: %w", a, err)
		}
	}
	return nil
}

// Equal 比较两个 NodeAddr 是否相等（ID 与地址列表逐项相等）
func (na NodeAddr) Equal(other NodeAddr) bool {
	if na.ID != other.ID || len(na.Addrs) != len(other.Addrs) {
		return false
	}
	for i, a := range na.Addrs {
		if other.Addrs[i] != a {
			return false
		}
	}
	return true
}

// String 返回可读表示，如 "5Q2STWvB@[1.2.3.4:7746 [::1]:7746]"
func (na NodeAddr) String() string {
	return na.ID.ShortString() + "@[" + strings.Join(na.Addrs, " ") + "]"
}
