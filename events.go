package weave

import (
	"context"
	"fmt"

	"github.com/dep2p/go-weave/pkg/types"
)

// ════════════════════════════════════════════════════════════════════════════
//                              Gossip 事件变体
// ════════════════════════════════════════════════════════════════════════════

// EventType gossip 订阅事件类型
type EventType uint8

const (
	// EventNeighborUp 新邻居加入主题覆盖网
	EventNeighborUp EventType = iota + 1
	// EventNeighborDown 邻居离开主题覆盖网
	EventNeighborDown
	// EventReceived 收到主题消息
	EventReceived
	// EventLagged 回调消费过慢，部分事件被丢弃
	EventLagged
	// EventError 订阅传输层出错（终止性）
	EventError
)

// String 返回事件类型的可读名称
func (t EventType) String() string {
	switch t {
	case EventNeighborUp:
		return "neighbor-up"
	case EventNeighborDown:
		return "neighbor-down"
	case EventReceived:
		return "received"
	case EventLagged:
		return "lagged"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// ReceivedMessage 一条收到的主题消息
type ReceivedMessage struct {
	// Content 消息内容
	Content []byte

	// DeliveredFrom 投递此消息的邻居（Base58 NodeID），
	// 不一定是消息的原始发送方
	DeliveredFrom string
}

// Event gossip 订阅事件（带标签变体）
//
// Type() 是安全的判别入口；各 AsXxx 访问器只在对应变体上合法，
// 在错误的变体上调用会 panic：读错分支是调用方的契约违规，
// 不是可恢复的运行时条件。
//
// 使用示例：
//
//	switch ev.Type() {
//	case weave.EventNeighborUp:
//	    fmt.Println("neighbor:", ev.AsNeighborUp())
//	case weave.EventReceived:
//	    msg := ev.AsReceived()
//	    fmt.Printf("%s: %s\n", msg.DeliveredFrom, msg.Content)
//	}
type Event struct {
	typ    EventType
	peer   string
	msg    *ReceivedMessage
	reason string
}

// Type 返回事件变体
func (e *Event) Type() EventType {
	return e.typ
}

// AsNeighborUp 返回新邻居的 NodeID
//
// 仅在 EventNeighborUp 变体上合法，其余变体 panic。
func (e *Event) AsNeighborUp() string {
	if e.typ != EventNeighborUp {
		panic(fmt.Sprintf("weave: AsNeighborUp called on %s event", e.typ))
	}
	return e.peer
}

// AsNeighborDown 返回离开邻居的 NodeID
//
// 仅在 EventNeighborDown 变体上合法，其余变体 panic。
func (e *Event) AsNeighborDown() string {
	if e.typ != EventNeighborDown {
		panic(fmt.Sprintf("weave: AsNeighborDown called on %s event", e.typ))
	}
	return e.peer
}

// AsReceived 返回收到的消息
//
// 仅在 EventReceived 变体上合法，其余变体 panic。
func (e *Event) AsReceived() *ReceivedMessage {
	if e.typ != EventReceived {
		panic(fmt.Sprintf("weave: AsReceived called on %s event", e.typ))
	}
	return e.msg
}

// AsError 返回错误描述
//
// 仅在 EventError 变体上合法，其余变体 panic。
func (e *Event) AsError() string {
	if e.typ != EventError {
		panic(fmt.Sprintf("weave: AsError called on %s event", e.typ))
	}
	return e.reason
}

// convertGossipEvent 把原生 gossip 事件转成公共变体
func convertGossipEvent(ev types.GossipEvent) *Event {
	switch ev.Type {
	case types.GossipNeighborUp:
		return &Event{typ: EventNeighborUp, peer: ev.Peer.String()}
	case types.GossipNeighborDown:
		return &Event{typ: EventNeighborDown, peer: ev.Peer.String()}
	case types.GossipReceived:
		return &Event{typ: EventReceived, msg: &ReceivedMessage{
			Content:       ev.Data,
			DeliveredFrom: ev.From.String(),
		}}
	case types.GossipLagged:
		return &Event{typ: EventLagged}
	case types.GossipError:
		return &Event{typ: EventError, reason: ev.Reason}
	default:
		return &Event{typ: EventError, reason: fmt.Sprintf("unknown gossip event %d", ev.Type)}
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              回调接口
// ════════════════════════════════════════════════════════════════════════════

// MessageCallback gossip 订阅回调
//
// 事件桥按通道顺序逐条调用 OnMessage，上一条返回前不投递下一条。
// 返回非 nil 错误会被记录和计数，但不终止订阅。
type MessageCallback interface {
	OnMessage(ctx context.Context, event *Event) error
}

// MessageCallbackFunc 函数适配器
type MessageCallbackFunc func(ctx context.Context, event *Event) error

// OnMessage 实现 MessageCallback
func (f MessageCallbackFunc) OnMessage(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// DownloadEvent 下载进度事件
type DownloadEvent = types.DownloadEvent

// DownloadEventType 下载进度事件类型
type DownloadEventType = types.DownloadEventType

// 下载进度事件类型（按原名导出，调用方只需导入根包）
const (
	DownloadFound      = types.DownloadFound
	DownloadProgressed = types.DownloadProgressed
	DownloadDone       = types.DownloadDone
	DownloadAllDone    = types.DownloadAllDone
	DownloadAbort      = types.DownloadAbort
)

// DownloadCallback blob 下载进度回调
type DownloadCallback interface {
	OnDownloadEvent(ctx context.Context, event *DownloadEvent) error
}

// DownloadCallbackFunc 函数适配器
type DownloadCallbackFunc func(ctx context.Context, event *DownloadEvent) error

// OnDownloadEvent 实现 DownloadCallback
func (f DownloadCallbackFunc) OnDownloadEvent(ctx context.Context, event *DownloadEvent) error {
	return f(ctx, event)
}

// AddEvent 导入进度事件
type AddEvent = types.AddEvent

// AddEventType 导入进度事件类型
type AddEventType = types.AddEventType

// 导入进度事件类型
const (
	AddFound      = types.AddFound
	AddProgressed = types.AddProgressed
	AddDone       = types.AddDone
	AddAllDone    = types.AddAllDone
	AddAbort      = types.AddAbort
)

// AddCallback blob 导入进度回调
type AddCallback interface {
	OnAddEvent(ctx context.Context, event *AddEvent) error
}

// AddCallbackFunc 函数适配器
type AddCallbackFunc func(ctx context.Context, event *AddEvent) error

// OnAddEvent 实现 AddCallback
func (f AddCallbackFunc) OnAddEvent(ctx context.Context, event *AddEvent) error {
	return f(ctx, event)
}

// BlobProvideEvent 提供侧事件
type BlobProvideEvent = types.BlobProvideEvent

// BlobProvideEventType 提供侧事件类型
type BlobProvideEventType = types.BlobProvideEventType

// 提供侧事件类型
const (
	BlobClientConnected    = types.BlobClientConnected
	BlobGetRequestReceived = types.BlobGetRequestReceived
	BlobTransferProgressed = types.BlobTransferProgressed
	BlobTransferCompleted  = types.BlobTransferCompleted
	BlobTransferAborted    = types.BlobTransferAborted
)

// BlobEventCallback 提供侧事件回调（WithBlobEvents 注册）
type BlobEventCallback interface {
	OnBlobEvent(ctx context.Context, event *BlobProvideEvent) error
}

// BlobEventCallbackFunc 函数适配器
type BlobEventCallbackFunc func(ctx context.Context, event *BlobProvideEvent) error

// OnBlobEvent 实现 BlobEventCallback
func (f BlobEventCallbackFunc) OnBlobEvent(ctx context.Context, event *BlobProvideEvent) error {
	return f(ctx, event)
}

// DocEvent 文档实时事件
type DocEvent = types.DocEvent

// DocEventType 文档实时事件类型
type DocEventType = types.DocEventType

// 文档实时事件类型
const (
	DocInsertLocal         = types.DocInsertLocal
	DocInsertRemote        = types.DocInsertRemote
	DocContentReady        = types.DocContentReady
	DocNeighborUp          = types.DocNeighborUp
	DocNeighborDown        = types.DocNeighborDown
	DocSyncFinished        = types.DocSyncFinished
	DocPendingContentReady = types.DocPendingContentReady
)

// ContentStatus 条目内容的本地状态
type ContentStatus = types.ContentStatus

// 条目内容状态
const (
	ContentComplete = types.ContentComplete
	ContentMissing  = types.ContentMissing
)

// DocCallback 文档实时事件回调（Doc.Subscribe 注册）
type DocCallback interface {
	OnDocEvent(ctx context.Context, event *DocEvent) error
}

// DocCallbackFunc 函数适配器
type DocCallbackFunc func(ctx context.Context, event *DocEvent) error

// OnDocEvent 实现 DocCallback
func (f DocCallbackFunc) OnDocEvent(ctx context.Context, event *DocEvent) error {
	return f(ctx, event)
}
