// Package interfaces - 静态地址簿接口
package interfaces

import (
	"github.com/dep2p/go-weave/pkg/types"
)

// AddressBook 静态地址簿
//
// weave 不做网络发现：可拨号的地址全部来自显式登记
// （bootstrap 列表、ticket、Net.AddNodeAddr）。
//
// 线程安全：所有方法可并发调用。
type AddressBook interface {
	// Add 登记节点地址，同一节点多次登记做地址并集
	Add(addr types.NodeAddr) error

	// Lookup 查询节点的已知地址
	Lookup(id types.NodeID) (types.NodeAddr, bool)

	// Remove 移除节点的全部地址
	Remove(id types.NodeID)

	// List 列出全部已知节点
	List() []types.NodeAddr
}
