// Package config 提供统一的配置管理
//
// 本包采用分文件配置模式：
//   - 主 Config 结构体嵌入所有子配置
//   - 每个子配置在独立文件中定义，带默认值和校验
//   - 支持从 JSON 加载和保存配置
//
// 使用示例：
//
//	// 创建默认配置
//	cfg := config.NewConfig()
//	cfg.Docs.Enabled = true
//
//	// 从 JSON 加载
//	cfg, err := config.FromJSON(data)
package config

import (
	"encoding/json"
	"fmt"
)

// Config 是 Weave 节点的完整配置结构
//
// 该结构体嵌入了所有组件的子配置，提供统一的配置接口。
// 配置按照功能模块组织：
//   - Identity: 身份和密钥管理
//   - Network: QUIC 端点监听地址与超时
//   - Storage: 存储引擎（内存 / BadgerDB）
//   - Gossip: 主题订阅与消息洪泛
//   - Blobs: 内容寻址存储与传输
//   - Docs: 多作者文档同步
//   - Discovery: 地址发现模式
type Config struct {
	// Identity 身份配置
	Identity IdentityConfig `json:"identity"`

	// Network 网络配置
	Network NetworkConfig `json:"network"`

	// Storage 存储配置
	Storage StorageConfig `json:"storage"`

	// Gossip 消息广播配置
	Gossip GossipConfig `json:"gossip"`

	// Blobs 内容存储配置
	Blobs BlobsConfig `json:"blobs"`

	// Docs 文档同步配置
	Docs DocsConfig `json:"docs"`

	// Discovery 地址发现配置
	Discovery DiscoveryConfig `json:"discovery"`
}

// NewConfig 创建默认配置
//
// 默认配置适用于内存节点：不持久化，随机端口，文档子系统关闭。
func NewConfig() *Config {
	return &Config{
		Identity:  DefaultIdentityConfig(),
		Network:   DefaultNetworkConfig(),
		Storage:   DefaultStorageConfig(),
		Gossip:    DefaultGossipConfig(),
		Blobs:     DefaultBlobsConfig(),
		Docs:      DefaultDocsConfig(),
		Discovery: DefaultDiscoveryConfig(),
	}
}

// Validate 递归验证所有子配置
func (c *Config) Validate() error {
	if err := c.Identity.Validate(); err != nil {
		return fmt.Errorf("identity: %w", err)
	}
	if err := c.Network.Validate(); err != nil {
		return fmt.Errorf("network: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Gossip.Validate(); err != nil {
		return fmt.Errorf("gossip: %w", err)
	}
	if err := c.Blobs.Validate(); err != nil {
		return fmt.Errorf("blobs: %w", err)
	}
	if err := c.Discovery.Validate(); err != nil {
		return fmt.Errorf("discovery: %w", err)
	}
	return nil
}

// FromJSON 从 JSON 数据解析配置
//
// 未出现的字段保留默认值。
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ToJSON 序列化配置为缩进 JSON
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}
