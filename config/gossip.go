package config

import "fmt"

// GossipConfig 消息广播配置
type GossipConfig struct {
	// SubscriberBuffer 每个订阅者事件通道的容量
	// 通道满时新事件被丢弃并合并为一个 Lagged 事件
	SubscriberBuffer int `json:"subscriber_buffer,omitempty"`

	// SeenCacheSize 消息去重缓存的条目数
	// 按消息 ID 去重，防止洪泛转发形成回路
	SeenCacheSize int `json:"seen_cache_size,omitempty"`

	// MaxFrameSize 单条协议帧的最大字节数
	MaxFrameSize int `json:"max_frame_size,omitempty"`
}

// DefaultGossipConfig 返回默认广播配置
func DefaultGossipConfig() GossipConfig {
	return GossipConfig{
		SubscriberBuffer: 128,
		SeenCacheSize:    2048,
		MaxFrameSize:     1 << 20,
	}
}

// Validate 验证广播配置
func (c GossipConfig) Validate() error {
	if c.SubscriberBuffer <= 0 {
		return fmt.Errorf("subscriber buffer must be positive")
	}
	if c.SeenCacheSize <= 0 {
		return fmt.Errorf("seen cache size must be positive")
	}
	if c.MaxFrameSize <= 0 {
		return fmt.Errorf("max frame size must be positive")
	}
	return nil
}
