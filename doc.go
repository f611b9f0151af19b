// Package weave 提供基于 QUIC 的 gossip / blob / docs 数据节点
//
// weave 是一个嵌入式 P2P 数据节点库：一个 QUIC 端点承载全部协议流量，
// TLS ALPN 在握手期完成协议选择。节点内建三个数据协议，外加调用方
// 注册的扩展协议：
//
//   - Gossip: 主题广播，邻居洪泛扩散，事件推入回调
//   - Blobs:  内容寻址存储与点对点传输（BLAKE3 寻址）
//   - Docs:   多作者键值文档，gossip 广播新条目 + 按需全量同步
//
// 对外 API 是句柄/回调形态：订阅主题、下载内容、观察文档得到的事件
// 由库推入调用方提供的回调对象，而不是让调用方从通道里拉取。
// 通道到回调之间由事件桥衔接：一个 goroutine 一条通道一个回调，
// 严格一进一出，取消优先于已就绪的事件。
//
// # 快速开始
//
//	import "github.com/dep2p/go-weave"
//
//	// 1. 创建内存节点（测试、短生命周期场景）
//	node, err := weave.Memory(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer node.Shutdown(ctx)
//
//	// 2. 订阅 gossip 主题，事件进回调
//	topic := weave.TopicFromString("room/general")
//	sender, err := node.Gossip().Subscribe(ctx, topic.Bytes(), nil,
//	    weave.MessageCallbackFunc(func(ctx context.Context, ev *weave.Event) error {
//	        if ev.Type() == weave.EventReceived {
//	            msg := ev.AsReceived()
//	            fmt.Printf("%s: %s\n", msg.DeliveredFrom, msg.Content)
//	        }
//	        return nil
//	    }))
//
//	// 3. 广播消息，用完取消订阅
//	sender.Broadcast(ctx, []byte("hello"))
//	sender.Cancel()
//
// 持久化节点把密钥与数据放进指定目录，重启后身份与内容不变：
//
//	node, err := weave.Persistent(ctx, "/var/lib/weave")
//
// # 文件组织
//
//	weave/
//	├── weave.go              # 版本信息、公共类型别名
//	│
//	# ════════════════════════════════════════════════════════════════
//	#                          入口层（Node）
//	# ════════════════════════════════════════════════════════════════
//	├── node.go               # Node 结构、Memory/Persistent 构造、Shutdown
//	├── fx.go                 # fx 应用装配（模块组合、协议注册表）
//	├── options.go            # WithXxx 配置选项
//	├── config.go             # 选项到配置的映射
//	│
//	# ════════════════════════════════════════════════════════════════
//	#                          协议门面（Facades）
//	# ════════════════════════════════════════════════════════════════
//	├── gossip.go             # Gossip 订阅入口
//	├── sender.go             # Sender 广播句柄
//	├── events.go             # Event 变体类型、回调接口
//	├── blobs.go              # Blobs 内容存储门面
//	├── tags.go               # Tags 标签门面
//	├── docs.go               # Docs 文档门面
//	├── authors.go            # Authors 作者管理门面
//	├── net.go                # Net 网络信息与延迟探测
//	│
//	# ════════════════════════════════════════════════════════════════
//	#                          支撑层
//	# ════════════════════════════════════════════════════════════════
//	├── ticket.go             # BlobTicket / DocTicket 分享票据
//	├── helpers.go            # 路径与文档键的互转
//	└── errors.go             # 公共错误定义
//
// # 架构分层
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  1. API Layer                                               │
//	│     Node, Gossip, Blobs, Docs, Net                          │
//	│     回调桥接，票据分享                                        │
//	├─────────────────────────────────────────────────────────────┤
//	│  2. Protocol Layer                                          │
//	│     internal/protocol: gossip, blobs, docs, ping            │
//	│     帧编解码，协议状态机                                      │
//	├─────────────────────────────────────────────────────────────┤
//	│  3. Core Layer                                              │
//	│     internal/core: endpoint, router, identity, storage      │
//	│     QUIC 端点，ALPN 分发，密钥与存储引擎                      │
//	└─────────────────────────────────────────────────────────────┘
//
// 所有阻塞操作接受 context.Context；回调里返回的错误被记录和计数，
// 不会中断事件流。节点关闭后一切操作返回 ErrNodeClosed。
package weave
