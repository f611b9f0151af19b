// Package addressbook 实现静态地址簿
//
// weave 不做网络发现：可拨号的地址全部来自显式登记
// （bootstrap 列表、ticket、Net.AddNodeAddr）。
// 地址簿只在内存中维护，节点重启后由上层重新登记。
package addressbook

import (
	"sync"

	"github.com/dep2p/go-weave/pkg/interfaces"
	"github.com/dep2p/go-weave/pkg/lib/log"
	"github.com/dep2p/go-weave/pkg/types"
)

var logger = log.Logger("core/addressbook")

// Book 静态地址簿实现
type Book struct {
	mu      sync.RWMutex
	entries map[types.NodeID][]string
}

// 确保实现接口
var _ interfaces.AddressBook = (*Book)(nil)

// New 创建空地址簿
func New() *Book {
	return &Book{
		entries: make(map[types.NodeID][]string),
	}
}

// Add 登记节点地址
//
// 同一节点多次登记做地址并集，保持先到先序。
// 没有地址的 NodeAddr 也会登记节点本身，便于后续补充地址。
func (b *Book) Add(addr types.NodeAddr) error {
	if addr.ID.IsEmpty() {
		return types.ErrInvalidNodeID
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	known := b.entries[addr.ID]
	for _, a := range addr.Addrs {
		if a == "" {
			continue
		}
		exists := false
		for _, k := range known {
			if k == a {
				exists = true
				break
			}
		}
		if !exists {
			known = append(known, a)
		}
	}
	b.entries[addr.ID] = known

	logger.Debug("登记节点地址",
		"node", addr.ID.ShortString(),
		"addrs", len(known))
	return nil
}

// Lookup 查询节点的已知地址
func (b *Book) Lookup(id types.NodeID) (types.NodeAddr, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	addrs, ok := b.entries[id]
	if !ok {
		return types.NodeAddr{}, false
	}

	cp := make([]string, len(addrs))
	copy(cp, addrs)
	return types.NodeAddr{ID: id, Addrs: cp}, true
}

// Remove 移除节点的全部地址
func (b *Book) Remove(id types.NodeID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.entries, id)
}

// List 列出全部已知节点
func (b *Book) List() []types.NodeAddr {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]types.NodeAddr, 0, len(b.entries))
	for id, addrs := range b.entries {
		cp := make([]string, len(addrs))
		copy(cp, addrs)
		out = append(out, types.NodeAddr{ID: id, Addrs: cp})
	}
	return out
}
