// Package crypto 提供 weave 的密钥原语
//
// weave 只使用一种密钥类型：ed25519。节点身份、文档作者都是
// ed25519 密钥对，NodeID / AuthorID 即公钥原始字节。
// 本包同时提供加密的文件密钥存储（argon2id + AES-GCM）。
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/subtle"
	"fmt"

	"github.com/dep2p/go-weave/pkg/types"
)

// 密钥大小常量
const (
	// SeedSize 私钥种子大小（32 字节）
	SeedSize = ed25519.SeedSize
	// PublicKeySize 公钥大小（32 字节）
	PublicKeySize = ed25519.PublicKeySize
	// SignatureSize 签名大小（64 字节）
	SignatureSize = ed25519.SignatureSize
)

// ============================================================================
//                              SecretKey
// ============================================================================

// SecretKey ed25519 私钥
//
// 外部表示统一使用 32 字节种子（Seed），完整的 64 字节私钥
// 只存在于内存中。
type SecretKey struct {
	k ed25519.PrivateKey
}

// GenerateSecretKey 生成新的随机私钥
func GenerateSecretKey() (*SecretKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &SecretKey{k: priv}, nil
}

// SecretKeyFromSeed 从 32 字节种子恢复私钥
//
// 种子长度不是 32 字节时返回 ErrInvalidKeySize。
func SecretKeyFromSeed(seed []byte) (*SecretKey, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKeySize, SeedSize, len(seed))
	}
	return &SecretKey{k: ed25519.NewKeyFromSeed(seed)}, nil
}

// Seed 返回 32 字节私钥种子
func (k *SecretKey) Seed() []byte {
	return k.k.Seed()
}

// Public 返回对应的公钥
func (k *SecretKey) Public() PublicKey {
	pub := k.k.Public().(ed25519.PublicKey) //nolint:errcheck // ed25519 断言安全
	return PublicKey{k: pub}
}

// NodeID 返回公钥对应的节点标识
func (k *SecretKey) NodeID() types.NodeID {
	id, _ := types.NodeIDFromBytes(k.Public().Raw())
	return id
}

// Sign 使用此私钥签名数据
func (k *SecretKey) Sign(data []byte) []byte {
	return ed25519.Sign(k.k, data)
}

// Equals 比较两个私钥是否相等（常量时间）
func (k *SecretKey) Equals(other *SecretKey) bool {
	if other == nil {
		return false
	}
	return subtle.ConstantTimeCompare(k.k, other.k) == 1
}

// Ed25519 返回底层 ed25519 私钥（用于 TLS 证书签发）
func (k *SecretKey) Ed25519() ed25519.PrivateKey {
	return k.k
}

// ============================================================================
//                              PublicKey
// ============================================================================

// PublicKey ed25519 公钥
type PublicKey struct {
	k ed25519.PublicKey
}

// PublicKeyFromBytes 从 32 字节原始数据恢复公钥
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	if len(b) != PublicKeySize {
		return PublicKey{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKeySize, PublicKeySize, len(b))
	}
	k := make([]byte, PublicKeySize)
	copy(k, b)
	return PublicKey{k: k}, nil
}

// Raw 返回原始公钥字节
func (p PublicKey) Raw() []byte {
	buf := make([]byte, len(p.k))
	copy(buf, p.k)
	return buf
}

// NodeID 返回公钥对应的节点标识
func (p PublicKey) NodeID() types.NodeID {
	id, _ := types.NodeIDFromBytes(p.k)
	return id
}

// Verify 验证签名
func (p PublicKey) Verify(data, sig []byte) bool {
	if len(sig) != SignatureSize {
		return false
	}
	return ed25519.Verify(p.k, data, sig)
}

// Equals 比较两个公钥是否相等（常量时间）
func (p PublicKey) Equals(other PublicKey) bool {
	return subtle.ConstantTimeCompare(p.k, other.k) == 1
}

// Ed25519 返回底层 ed25519 公钥
func (p PublicKey) Ed25519() ed25519.PublicKey {
	return p.k
}
