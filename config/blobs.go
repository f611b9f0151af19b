package config

import "fmt"

// BlobsConfig 内容存储配置
type BlobsConfig struct {
	// ChunkSize 传输时单个数据块的字节数
	// 提供方按该粒度压缩并发送内容，下载方按块产生进度事件
	ChunkSize int `json:"chunk_size,omitempty"`

	// MaxFrameSize 控制帧（请求 / 应答）的最大字节数
	MaxFrameSize int `json:"max_frame_size,omitempty"`
}

// DefaultBlobsConfig 返回默认内容存储配置
func DefaultBlobsConfig() BlobsConfig {
	return BlobsConfig{
		ChunkSize:    64 << 10,
		MaxFrameSize: 4 << 10,
	}
}

// Validate 验证内容存储配置
func (c BlobsConfig) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive")
	}
	if c.MaxFrameSize <= 0 {
		return fmt.Errorf("max frame size must be positive")
	}
	return nil
}
