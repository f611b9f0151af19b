// Package interfaces 定义 weave 的公共接口
//
// 采用扁平命名结构，一个文件一个关注点：
//
//   - endpoint.go    - 网络端点（QUIC 连接、流、ALPN）
//   - protocol.go    - 协议处理器（内建协议与扩展协议共用）
//   - gossip.go      - gossip 主题服务
//   - blobs.go       - 内容寻址存储与传输
//   - docs.go        - 复制文档服务
//   - ping.go        - 延迟探测
//   - addressbook.go - 静态地址簿
//   - storage.go     - 存储引擎
//
// # 设计原则
//
// 本包仅包含纯接口定义，数据结构定义在 pkg/types 包中。
// 依赖方向：根门面 → interfaces ← internal 实现，禁止反向依赖。
package interfaces
