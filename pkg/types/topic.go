package types

import (
	"errors"

	"github.com/mr-tron/base58"
	"lukechampine.com/blake3"
)

// ============================================================================
//                              TopicID - 主题标识
// ============================================================================

// TopicID gossip 主题标识符，固定 32 字节
//
// 主题没有中心注册表：任意 32 字节即是一个合法主题，
// 知道主题字节的节点即可加入对应的 gossip 覆盖网。
type TopicID [32]byte

// EmptyTopicID 空主题ID
var EmptyTopicID TopicID

// ErrInvalidTopic 无效的主题错误（长度不为 32 字节）
var ErrInvalidTopic = errors.New("invalid topic: must be exactly 32 bytes")

// TopicFromBytes 从字节切片创建 TopicID
//
// 长度必须恰好为 32 字节，否则立即返回 ErrInvalidTopic。
// 调用方应在分配任何订阅资源之前完成此校验。
func TopicFromBytes(b []byte) (TopicID, error) {
	if len(b) != 32 {
		return EmptyTopicID, ErrInvalidTopic
	}
	var t TopicID
	copy(t[:], b)
	return t, nil
}

// TopicFromString 从任意字符串派生 TopicID
//
// 公式: TopicID = BLAKE3(name)。
// 便于人类可读的主题名（如聊天房间名）映射到固定长度主题。
func TopicFromString(name string) TopicID {
	return TopicID(blake3.Sum256([]byte(name)))
}

// String 返回 TopicID 的 Base58 字符串表示
func (t TopicID) String() string {
	return base58.Encode(t[:])
}

// ShortString 返回 TopicID 的短字符串表示（日志用）
func (t TopicID) ShortString() string {
	s := t.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

// Bytes 返回 TopicID 的字节切片
func (t TopicID) Bytes() []byte {
	return t[:]
}

// Equal 比较两个 TopicID 是否相等
func (t TopicID) Equal(other TopicID) bool {
	return t == other
}

// IsEmpty 检查 TopicID 是否为空
func (t TopicID) IsEmpty() bool {
	return t == EmptyTopicID
}
