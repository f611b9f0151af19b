// Package types 定义 weave 的基础类型
//
// 这是整个系统的最底层包，不依赖任何其他 weave 内部包。
// 所有类型都是纯值类型，用于在各模块间传递数据：
//
//   - NodeID：节点标识（32 字节 ed25519 公钥）
//   - TopicID：gossip 主题标识（32 字节）
//   - Hash：内容地址（32 字节 BLAKE3 摘要）
//   - NodeAddr：节点标识 + 直连地址
package types
