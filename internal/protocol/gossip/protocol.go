// Package gossip 实现主题覆盖网与消息洪泛扩散
//
// 每条 gossip 连接上只有一条长期双向流，双方在流上交换帧：
// join/leave 宣告自己订阅的主题，message 承载主题消息。
// 消息按 ID 去重后向其余邻居转发，forward 标记控制是否
// 继续扩散。
package gossip

import (
	"encoding/binary"
	"time"

	"lukechampine.com/blake3"

	"github.com/dep2p/go-weave/pkg/types"
)

const (
	// ALPN 协议标签
	ALPN = "weave/gossip/0"

	// dialTimeout 建立单个邻居连接的超时
	dialTimeout = 15 * time.Second
)

// ============================================================================
//                              帧定义
// ============================================================================

// frameType 协议帧类型
type frameType uint8

const (
	// frameJoin 宣告加入主题
	frameJoin frameType = iota + 1
	// frameLeave 宣告离开主题
	frameLeave
	// frameMessage 主题消息
	frameMessage
)

// frame 协议帧
//
// Type 决定有效字段：Join/Leave 只带 Topics，
// Message 带 Topic/ID/Origin/Data/Forward。
type frame struct {
	// Type 帧类型
	Type frameType `cbor:"1,keyasint"`

	// Topics 加入或离开的主题（Join/Leave）
	Topics [][]byte `cbor:"2,keyasint,omitempty"`

	// Topic 消息所属主题（Message）
	Topic []byte `cbor:"3,keyasint,omitempty"`

	// ID 消息去重标识（Message）
	ID []byte `cbor:"4,keyasint,omitempty"`

	// Origin 消息的源节点（Message）
	Origin []byte `cbor:"5,keyasint,omitempty"`

	// Data 消息内容（Message）
	Data []byte `cbor:"6,keyasint,omitempty"`

	// Forward 是否继续洪泛转发（Message）
	Forward bool `cbor:"7,keyasint,omitempty"`
}

// messageID 计算消息去重标识
//
// 由源节点、源端序号和主题共同决定，同一消息经不同路径
// 到达时得到相同 ID。
func messageID(origin types.NodeID, seq uint64, topic types.TopicID) []byte {
	var buf [32 + 8 + 32]byte
	copy(buf[:32], origin[:])
	binary.BigEndian.PutUint64(buf[32:40], seq)
	copy(buf[40:], topic[:])
	id := blake3.Sum256(buf[:])
	return id[:]
}
