// Package docs 实现多作者复制文档
//
// 文档是一个命名空间下的键值集合：条目以 (author, key) 定位，
// 值存放在 blob 存储中，条目只携带内容地址。新条目经文档专属
// 的 gossip 主题实时广播，全量同步通过一次 push-pull 交换完成，
// 两侧都以 last-writer-wins 合并。条目由作者密钥签名，签名
// 不过关的条目直接丢弃。
package docs

import (
	"encoding/binary"

	"lukechampine.com/blake3"

	"github.com/dep2p/go-weave/pkg/types"
)

const (
	// ALPN 协议标签
	ALPN = "weave/docs/0"

	// maxSyncFrame 同步清单帧的大小上限
	maxSyncFrame = 4 << 20

	// topicLabel 文档主题的派生标签
	topicLabel = "weave/docs/v0"
)

// docTopic 返回命名空间对应的 gossip 主题
func docTopic(ns types.NamespaceID) types.TopicID {
	buf := make([]byte, 0, len(topicLabel)+32)
	buf = append(buf, topicLabel...)
	buf = append(buf, ns.Bytes()...)
	return types.TopicID(blake3.Sum256(buf))
}

// ============================================================================
//                              帧定义
// ============================================================================

// entryRecord 条目的存储与传输形式
type entryRecord struct {
	// Author 作者公钥
	Author []byte `cbor:"1,keyasint"`

	// Key 条目键
	Key []byte `cbor:"2,keyasint"`

	// Hash 值的内容地址
	Hash []byte `cbor:"3,keyasint"`

	// Len 值的大小
	Len uint64 `cbor:"4,keyasint"`

	// Timestamp 写入时间戳（Unix 微秒）
	Timestamp uint64 `cbor:"5,keyasint"`

	// Sig 作者对条目的签名
	Sig []byte `cbor:"6,keyasint"`
}

// syncRequest 同步发起方的全量清单
type syncRequest struct {
	// Namespace 目标文档
	Namespace []byte `cbor:"1,keyasint"`

	// Entries 发起方的全部条目
	Entries []entryRecord `cbor:"2,keyasint,omitempty"`
}

// syncResponse 同步应答方的全量清单
type syncResponse struct {
	// OK 应答方是否持有该文档
	OK bool `cbor:"1,keyasint"`

	// Entries 应答方合并后的全部条目
	Entries []entryRecord `cbor:"2,keyasint,omitempty"`
}

// announce 主题上广播的新条目
type announce struct {
	Entry entryRecord `cbor:"1,keyasint"`
}

// ============================================================================
//                              签名
// ============================================================================

// signedBytes 返回条目的签名输入
//
// 覆盖命名空间与条目的全部字段，字段间以定长编码拼接。
func signedBytes(ns types.NamespaceID, author, key, hash []byte, length, ts uint64) []byte {
	buf := make([]byte, 0, 32+len(author)+len(key)+len(hash)+16)
	buf = append(buf, ns.Bytes()...)
	buf = append(buf, author...)
	buf = append(buf, key...)
	buf = append(buf, hash...)
	buf = binary.BigEndian.AppendUint64(buf, length)
	buf = binary.BigEndian.AppendUint64(buf, ts)
	return buf
}
