// Package endpoint 实现 QUIC 网络端点
//
// 端点是节点全部网络流量的唯一出入口：
//   - 每个地址族一个共享 UDP socket，监听与拨号复用同一端口
//   - TLS 1.3 双向认证，证书由节点密钥自签名，NodeID 从证书公钥派生
//   - 协议选择通过 ALPN 在握手期完成，未注册的协议标签在握手阶段被拒绝
//
// 连接建立后，RemoteID 和 ALPN 已经过验证，上层（协议路由器）
// 按 ALPN 分发即可，不需要再做身份或协议检查。
package endpoint

import "github.com/dep2p/go-weave/pkg/lib/log"

var logger = log.Logger("core/endpoint")
