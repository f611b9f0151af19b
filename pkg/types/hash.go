package types

import (
	"errors"

	"github.com/mr-tron/base58"
	"lukechampine.com/blake3"
)

// ============================================================================
//                              Hash - 内容地址
// ============================================================================

// Hash 内容地址，即内容的 32 字节 BLAKE3 摘要
//
// blob 存储以 Hash 为键：相同内容必然得到相同 Hash，
// 下载完成后重新计算摘要即可验证内容完整性。
type Hash [32]byte

// EmptyHash 空哈希
var EmptyHash Hash

// ErrInvalidHash 无效的内容哈希错误
var ErrInvalidHash = errors.New("invalid hash: must be 32 bytes base58")

// HashBytes 计算数据的内容地址
func HashBytes(data []byte) Hash {
	return Hash(blake3.Sum256(data))
}

// HashFromBytes 从字节切片创建 Hash
func HashFromBytes(b []byte) (Hash, error) {
	if len(b) != 32 {
		return EmptyHash, ErrInvalidHash
	}
	var h Hash
	copy(h[:], b)
	return h, nil
}

// ParseHash 从 Base58 字符串解析 Hash
func ParseHash(s string) (Hash, error) {
	if s == "" {
		return EmptyHash, ErrInvalidHash
	}
	b, err := base58.Decode(s)
	if err != nil {
		return EmptyHash, ErrInvalidHash
	}
	if len(b) != 32 {
		return EmptyHash, ErrInvalidHash
	}
	var h Hash
	copy(h[:], b)
	return h, nil
}

// String 返回 Hash 的 Base58 字符串表示
func (h Hash) String() string {
	if h.IsEmpty() {
		return ""
	}
	return base58.Encode(h[:])
}

// ShortString 返回 Hash 的短字符串表示（日志用）
func (h Hash) ShortString() string {
	s := h.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

// Bytes 返回 Hash 的字节切片
func (h Hash) Bytes() []byte {
	return h[:]
}

// Equal 比较两个 Hash 是否相等
func (h Hash) Equal(other Hash) bool {
	return h == other
}

// IsEmpty 检查 Hash 是否为空
func (h Hash) IsEmpty() bool {
	return h == EmptyHash
}
