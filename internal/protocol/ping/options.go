package ping

import "time"

// Config 服务配置
type Config struct {
	// Timeout 单次探测的总超时
	Timeout time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}

// Option 配置选项
type Option func(*Config)

// WithTimeout 设置探测超时
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}
