package weave

import (
	"fmt"

	"github.com/dep2p/go-weave/config"
	"github.com/dep2p/go-weave/internal/protocol/blobs"
	"github.com/dep2p/go-weave/internal/protocol/docs"
	"github.com/dep2p/go-weave/internal/protocol/gossip"
	"github.com/dep2p/go-weave/internal/protocol/ping"
)

// ════════════════════════════════════════════════════════════════════════════
//                              选项到配置的映射
// ════════════════════════════════════════════════════════════════════════════

// buildConfig 把选项落成节点配置
//
// dataDir 为空构造内存节点（内存引擎），非空构造持久化节点
// （BadgerDB + 文件密钥库）。选项只覆盖显式设置的字段，
// 其余保持 DefaultConfig 的值。
func buildConfig(o *options, dataDir string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Storage.DataDir = dataDir

	if o.gcInterval != nil {
		cfg.Storage.GCInterval = config.Duration(*o.gcInterval)
	}
	if o.ipv4Addr != nil {
		cfg.Network.IPv4Addr = *o.ipv4Addr
	}
	if o.ipv6Addr != nil {
		cfg.Network.IPv6Addr = *o.ipv6Addr
	}
	if o.docsEnabled {
		cfg.Docs.Enabled = true
	}
	if o.discovery != nil {
		switch *o.discovery {
		case DiscoveryNone:
			cfg.Discovery.Mode = config.DiscoveryNone
		case DiscoveryStatic:
			cfg.Discovery.Mode = config.DiscoveryStatic
		}
	}
	if o.secretKey != nil {
		cfg.Identity.SecretSeed = o.secretKey
	}

	if err := validateProtocols(o, cfg.Docs.Enabled); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validateProtocols 检查扩展协议标签与内建协议不冲突
//
// 扩展之间的重复在 WithProtocol 里已拒绝，这里只剩内建标签。
func validateProtocols(o *options, docsEnabled bool) error {
	builtin := map[string]struct{}{
		gossip.ALPN: {},
		blobs.ALPN:  {},
		ping.ALPN:   {},
	}
	if docsEnabled {
		builtin[docs.ALPN] = struct{}{}
	}

	for _, reg := range o.protocols {
		if _, ok := builtin[reg.tag]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateProtocol, reg.tag)
		}
	}
	return nil
}
