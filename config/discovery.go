package config

import "fmt"

// DiscoveryMode 地址发现模式
type DiscoveryMode string

const (
	// DiscoveryNone 不做任何地址发现
	// 拨号方必须提供带完整地址的 NodeAddr
	DiscoveryNone DiscoveryMode = "none"

	// DiscoveryStatic 静态地址簿
	// 由引导列表、票据和手工加入的地址喂给地址簿，拨号时查询
	DiscoveryStatic DiscoveryMode = "static"
)

// DiscoveryConfig 地址发现配置
type DiscoveryConfig struct {
	// Mode 发现模式
	Mode DiscoveryMode `json:"mode,omitempty"`
}

// DefaultDiscoveryConfig 返回默认发现配置
func DefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{
		Mode: DiscoveryStatic,
	}
}

// Validate 验证发现配置
func (c DiscoveryConfig) Validate() error {
	switch c.Mode {
	case DiscoveryNone, DiscoveryStatic:
		return nil
	default:
		return fmt.Errorf("unknown discovery mode %q", c.Mode)
	}
}
