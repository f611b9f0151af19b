package weave

import (
	"log/slog"

	"github.com/dep2p/go-weave/pkg/lib/log"
	"github.com/dep2p/go-weave/pkg/types"
)

// ════════════════════════════════════════════════════════════════════════════
//                              版本信息
// ════════════════════════════════════════════════════════════════════════════

// Version 当前版本
const Version = "v0.1.0"

// ════════════════════════════════════════════════════════════════════════════
//                              公共类型别名
// ════════════════════════════════════════════════════════════════════════════

// 标识与地址类型在 pkg/types 中定义，这里按原名导出，
// 调用方通常只需要导入根包。

// NodeID 节点标识（32 字节 ed25519 公钥）
type NodeID = types.NodeID

// NodeAddr 节点标识加直连地址
type NodeAddr = types.NodeAddr

// TopicID gossip 主题标识（32 字节）
type TopicID = types.TopicID

// Hash 内容地址（32 字节 BLAKE3 摘要）
type Hash = types.Hash

// NamespaceID 文档命名空间标识
type NamespaceID = types.NamespaceID

// AuthorID 文档作者标识
type AuthorID = types.AuthorID

// Entry 一条文档条目
type Entry = types.Entry

// BlobInfo 一条本地内容记录
type BlobInfo = types.BlobInfo

// TagInfo 一条标签记录
type TagInfo = types.TagInfo

// ════════════════════════════════════════════════════════════════════════════
//                              公共构造函数
// ════════════════════════════════════════════════════════════════════════════

// TopicFromString 从任意字符串派生主题（BLAKE3 哈希）
func TopicFromString(name string) TopicID {
	return types.TopicFromString(name)
}

// ParseNodeID 从 Base58 字符串解析节点标识
func ParseNodeID(s string) (NodeID, error) {
	return types.ParseNodeID(s)
}

// ParseHash 从 Base58 字符串解析内容地址
func ParseHash(s string) (Hash, error) {
	return types.ParseHash(s)
}

// HashBytes 计算一段内容的地址
func HashBytes(data []byte) Hash {
	return types.HashBytes(data)
}

// ════════════════════════════════════════════════════════════════════════════
//                              日志控制
// ════════════════════════════════════════════════════════════════════════════

// SetLogLevel 设置整个库的日志级别
//
// 影响全部组件日志器。测试与嵌入场景常用 log.LevelOff 静音。
func SetLogLevel(level slog.Level) {
	log.SetLevel(level)
}
