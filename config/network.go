package config

import (
	"fmt"
	"net"
	"time"
)

// NetworkConfig 网络配置
//
// 节点在 IPv4 和 IPv6 上各绑定一个 UDP 套接字，两个地址族共享同一个
// QUIC 传输。端口为 0 时由操作系统分配。
type NetworkConfig struct {
	// IPv4Addr IPv4 监听地址（host:port）
	// 为空表示不监听 IPv4
	IPv4Addr string `json:"ipv4_addr,omitempty"`

	// IPv6Addr IPv6 监听地址（[host]:port）
	// 为空表示不监听 IPv6
	IPv6Addr string `json:"ipv6_addr,omitempty"`

	// MaxIdleTimeout 连接空闲超时
	// 超过该时长无数据往来的连接被关闭
	MaxIdleTimeout Duration `json:"max_idle_timeout,omitempty"`

	// KeepAlivePeriod 保活探测间隔
	// 应小于 MaxIdleTimeout 的一半
	KeepAlivePeriod Duration `json:"keep_alive_period,omitempty"`
}

// DefaultNetworkConfig 返回默认网络配置
func DefaultNetworkConfig() NetworkConfig {
	return NetworkConfig{
		IPv4Addr:        "0.0.0.0:0",
		IPv6Addr:        "[::]:0",
		MaxIdleTimeout:  Duration(6 * time.Second),
		KeepAlivePeriod: Duration(3 * time.Second),
	}
}

// Validate 验证网络配置
func (c NetworkConfig) Validate() error {
	if c.IPv4Addr == "" && c.IPv6Addr == "" {
		return fmt.Errorf("at least one listen address required")
	}
	for _, addr := range []string{c.IPv4Addr, c.IPv6Addr} {
		if addr == "" {
			continue
		}
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return fmt.Errorf("invalid listen address %q: %w", addr, err)
		}
	}
	if c.MaxIdleTimeout <= 0 {
		return fmt.Errorf("max idle timeout must be positive")
	}
	if c.KeepAlivePeriod <= 0 {
		return fmt.Errorf("keep alive period must be positive")
	}
	return nil
}
