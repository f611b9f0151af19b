package weave

import (
	"fmt"
	"time"

	"github.com/dep2p/go-weave/pkg/interfaces"
	"github.com/dep2p/go-weave/pkg/lib/crypto"
)

// ════════════════════════════════════════════════════════════════════════════
//                              配置选项
// ════════════════════════════════════════════════════════════════════════════

// Option 节点配置选项函数
type Option func(*options) error

// Discovery 地址发现模式
type Discovery uint8

const (
	// DiscoveryStatic 静态地址簿（默认）
	//
	// bootstrap 列表、票据与 Net.AddNodeAddr 喂给地址簿，
	// 拨号时按 NodeID 查询补全地址。
	DiscoveryStatic Discovery = iota

	// DiscoveryNone 不做任何地址发现
	//
	// 拨号方必须提供带完整地址的 NodeAddr。
	DiscoveryNone
)

// protocolReg 一条扩展协议注册
type protocolReg struct {
	tag     string
	creator interfaces.ProtocolCreator
}

// options 内部选项结构
type options struct {
	// 存储
	gcInterval *time.Duration

	// 子系统开关
	docsEnabled bool
	blobEvents  BlobEventCallback

	// 网络
	ipv4Addr *string
	ipv6Addr *string

	// 发现
	discovery *Discovery

	// 身份
	secretKey []byte

	// 扩展协议（按注册顺序）
	protocols []protocolReg
}

// WithGCInterval 设置垃圾回收间隔
//
// 当前版本不执行周期回收：该值仅被记录，作为未来自动清理
// 未打标签内容的开关保留。
func WithGCInterval(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return fmt.Errorf("gc interval cannot be negative")
		}
		o.gcInterval = &d
		return nil
	}
}

// WithBlobEvents 注册提供侧 blob 事件回调
//
// 节点作为内容提供方服务下载请求时产生事件：客户端连接、
// 收到请求、传输进度、完成或中止。事件经事件桥推入 cb。
func WithBlobEvents(cb BlobEventCallback) Option {
	return func(o *options) error {
		if cb == nil {
			return errNilCallback
		}
		o.blobEvents = cb
		return nil
	}
}

// WithDocs 启用文档子系统
//
// 默认关闭；关闭时 Node.Docs() 与 Node.Authors() 返回
// ErrDocsDisabled。
func WithDocs() Option {
	return func(o *options) error {
		o.docsEnabled = true
		return nil
	}
}

// WithIPv4Addr 设置 IPv4 监听地址（host:port）
//
// 默认 "0.0.0.0:0"。传空字符串表示不监听 IPv4。
func WithIPv4Addr(addr string) Option {
	return func(o *options) error {
		o.ipv4Addr = &addr
		return nil
	}
}

// WithIPv6Addr 设置 IPv6 监听地址（[host]:port）
//
// 默认 "[::]:0"。传空字符串表示不监听 IPv6。
func WithIPv6Addr(addr string) Option {
	return func(o *options) error {
		o.ipv6Addr = &addr
		return nil
	}
}

// WithDiscovery 设置地址发现模式
func WithDiscovery(mode Discovery) Option {
	return func(o *options) error {
		if mode != DiscoveryStatic && mode != DiscoveryNone {
			return fmt.Errorf("unknown discovery mode %d", mode)
		}
		o.discovery = &mode
		return nil
	}
}

// WithSecretKey 注入节点私钥种子
//
// seed 必须恰好 32 字节（ed25519 种子），否则节点构造失败
// ErrInvalidSecretKey。相同种子产生相同 NodeID。
func WithSecretKey(seed []byte) Option {
	return func(o *options) error {
		if len(seed) != crypto.SeedSize {
			return ErrInvalidSecretKey
		}
		o.secretKey = append([]byte(nil), seed...)
		return nil
	}
}

// WithProtocol 注册扩展协议
//
// creator 在节点构造期间调用：端点已可用、路由器尚未启动。
// 返回的处理器接管该 ALPN 标签的全部入站连接，随节点关停。
// 标签与已注册协议（内建或更早的扩展）重复时构造失败
// ErrDuplicateProtocol。
func WithProtocol(tag string, creator interfaces.ProtocolCreator) Option {
	return func(o *options) error {
		if tag == "" {
			return fmt.Errorf("empty protocol tag")
		}
		if creator == nil {
			return fmt.Errorf("nil protocol creator: %s", tag)
		}
		for _, reg := range o.protocols {
			if reg.tag == tag {
				return fmt.Errorf("%w: %s", ErrDuplicateProtocol, tag)
			}
		}
		o.protocols = append(o.protocols, protocolReg{tag: tag, creator: creator})
		return nil
	}
}

// applyOptions 应用全部选项
func applyOptions(opts []Option) (*options, error) {
	o := &options{}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}
