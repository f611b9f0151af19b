// Package identity 提供节点身份的加载与管理
//
// 身份模块负责：
//   - ed25519 节点密钥的生成、注入和持久化
//   - NodeID 的派生（原始公钥）
//   - 为文档作者等组件提供密钥库
package identity

import (
	"fmt"

	"github.com/dep2p/go-weave/config"
	"github.com/dep2p/go-weave/pkg/lib/crypto"
	"github.com/dep2p/go-weave/pkg/lib/log"
	"github.com/dep2p/go-weave/pkg/types"
)

var logger = log.Logger("core/identity")

// ============================================================================
//                              Identity 实现
// ============================================================================

// Identity 节点身份
//
// 绑定一把 ed25519 密钥，NodeID 即其原始公钥。
type Identity struct {
	secret *crypto.SecretKey
	nodeID types.NodeID
}

// New 从密钥创建身份
func New(secret *crypto.SecretKey) *Identity {
	return &Identity{
		secret: secret,
		nodeID: secret.NodeID(),
	}
}

// NodeID 返回节点 ID
func (i *Identity) NodeID() types.NodeID {
	return i.nodeID
}

// SecretKey 返回节点密钥
func (i *Identity) SecretKey() *crypto.SecretKey {
	return i.secret
}

// Sign 用节点密钥签名数据
func (i *Identity) Sign(data []byte) []byte {
	return i.secret.Sign(data)
}

// ============================================================================
//                              加载逻辑
// ============================================================================

// Load 根据配置解析节点身份
//
// 优先级：注入的种子 > 密钥库中已有的密钥 > 新生成。
// 新生成的密钥写回密钥库，持久化节点重启后身份保持不变。
func Load(cfg *config.Config, ks crypto.Keystore) (*Identity, error) {
	if cfg.Identity.SecretSeed != nil {
		secret, err := crypto.SecretKeyFromSeed(cfg.Identity.SecretSeed)
		if err != nil {
			return nil, fmt.Errorf("injected secret key: %w", err)
		}
		logger.Debug("使用注入的节点密钥", "node_id", secret.NodeID().ShortString())
		return New(secret), nil
	}

	name := cfg.Identity.KeyName
	has, err := ks.Has(name)
	if err != nil {
		return nil, fmt.Errorf("probe keystore: %w", err)
	}
	if has {
		secret, err := ks.Get(name)
		if err != nil {
			return nil, fmt.Errorf("load node key: %w", err)
		}
		logger.Debug("从密钥库加载节点密钥", "node_id", secret.NodeID().ShortString())
		return New(secret), nil
	}

	secret, err := crypto.GenerateSecretKey()
	if err != nil {
		return nil, fmt.Errorf("generate node key: %w", err)
	}
	if err := ks.Put(name, secret); err != nil {
		return nil, fmt.Errorf("store node key: %w", err)
	}
	logger.Info("生成新的节点密钥", "node_id", secret.NodeID().ShortString())
	return New(secret), nil
}

// OpenKeystore 按存储配置打开密钥库
//
// 内存节点使用进程内密钥库，持久化节点使用数据目录下的文件密钥库。
func OpenKeystore(cfg *config.Config) (crypto.Keystore, error) {
	if cfg.Storage.InMemory() {
		return crypto.NewMemKeystore(), nil
	}
	return crypto.NewFSKeystore(cfg.Storage.KeysPath(), nil)
}
