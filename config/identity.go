package config

import (
	"fmt"

	"github.com/dep2p/go-weave/pkg/lib/crypto"
)

// IdentityConfig 身份配置
//
// 节点身份是一把 ed25519 密钥，NodeID 即其原始公钥。
// 持久化节点把密钥存入数据目录下的密钥库；内存节点每次启动生成新密钥。
type IdentityConfig struct {
	// SecretSeed 直接注入的 32 字节 ed25519 种子
	//
	// 非空时优先于密钥库。长度必须恰好为 crypto.SeedSize。
	// 该字段不参与 JSON 序列化，避免私钥落入配置文件。
	SecretSeed []byte `json:"-"`

	// KeyName 密钥库中节点密钥的名称
	KeyName string `json:"key_name,omitempty"`
}

// DefaultIdentityConfig 返回默认身份配置
func DefaultIdentityConfig() IdentityConfig {
	return IdentityConfig{
		KeyName: "node",
	}
}

// Validate 验证身份配置
func (c IdentityConfig) Validate() error {
	if c.SecretSeed != nil && len(c.SecretSeed) != crypto.SeedSize {
		return fmt.Errorf("secret seed must be %d bytes, got %d", crypto.SeedSize, len(c.SecretSeed))
	}
	if c.KeyName == "" {
		return fmt.Errorf("key name cannot be empty")
	}
	return nil
}
