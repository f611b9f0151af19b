package addressbook

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-weave/config"
	"github.com/dep2p/go-weave/pkg/interfaces"
	"github.com/dep2p/go-weave/pkg/types"
)

// nopBook 关闭发现时的空实现
//
// 什么都不记：拨号方必须自带完整地址。
type nopBook struct{}

var _ interfaces.AddressBook = nopBook{}

func (nopBook) Add(addr types.NodeAddr) error {
	if addr.ID.IsEmpty() {
		return types.ErrInvalidNodeID
	}
	return nil
}

func (nopBook) Lookup(types.NodeID) (types.NodeAddr, bool) { return types.NodeAddr{}, false }
func (nopBook) Remove(types.NodeID)                        {}
func (nopBook) List() []types.NodeAddr                     { return nil }

// ============================================================================
//                              服务提供
// ============================================================================

// ProvideBook 按发现模式提供地址簿
func ProvideBook(cfg *config.Config) interfaces.AddressBook {
	if cfg.Discovery.Mode == config.DiscoveryNone {
		logger.Debug("地址发现已关闭")
		return nopBook{}
	}
	return New()
}

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("addressbook",
		fx.Provide(ProvideBook),
	)
}
