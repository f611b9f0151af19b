package types

// ============================================================================
//                              GossipEvent - 主题事件
// ============================================================================

// GossipEventType gossip 主题事件类型
type GossipEventType uint8

const (
	// GossipNeighborUp 新邻居加入主题覆盖网
	GossipNeighborUp GossipEventType = iota + 1
	// GossipNeighborDown 邻居离开主题覆盖网
	GossipNeighborDown
	// GossipReceived 收到主题消息
	GossipReceived
	// GossipLagged 订阅者消费过慢，事件被丢弃
	GossipLagged
	// GossipError 订阅底层出错（终止性）
	GossipError
)

// String 返回事件类型的可读名称
func (t GossipEventType) String() string {
	switch t {
	case GossipNeighborUp:
		return "neighbor-up"
	case GossipNeighborDown:
		return "neighbor-down"
	case GossipReceived:
		return "received"
	case GossipLagged:
		return "lagged"
	case GossipError:
		return "error"
	default:
		return "unknown"
	}
}

// GossipEvent 主题事件
//
// 按 Type 区分有效字段：
//   - NeighborUp/NeighborDown: Peer
//   - Received: Data + From
//   - Lagged: 无附加字段
//   - Error: Reason
type GossipEvent struct {
	Type GossipEventType

	// Peer 邻居节点（NeighborUp/NeighborDown）
	Peer NodeID

	// Data 消息内容（Received）
	Data []byte

	// From 投递此消息的邻居，不一定是消息源（Received）
	From NodeID

	// Reason 错误描述（Error）
	Reason string
}

// ============================================================================
//                              DownloadEvent - 下载进度
// ============================================================================

// DownloadEventType blob 下载进度事件类型
type DownloadEventType uint8

const (
	// DownloadFound 已在远端定位内容，得知总大小
	DownloadFound DownloadEventType = iota + 1
	// DownloadProgressed 收到一段内容
	DownloadProgressed
	// DownloadDone 单个内容接收完毕并通过校验
	DownloadDone
	// DownloadAllDone 整个下载任务结束
	DownloadAllDone
	// DownloadAbort 下载失败终止
	DownloadAbort
)

// DownloadEvent blob 下载进度事件
type DownloadEvent struct {
	Type DownloadEventType

	// Hash 内容地址
	Hash Hash

	// Size 内容总大小（Found）
	Size uint64

	// Offset 已接收字节数（Progressed）
	Offset uint64

	// Reason 失败原因（Abort）
	Reason string
}

// ============================================================================
//                              AddEvent - 导入进度
// ============================================================================

// AddEventType blob 导入进度事件类型
type AddEventType uint8

const (
	// AddFound 发现待导入条目，得知名称与大小
	AddFound AddEventType = iota + 1
	// AddProgressed 已读入一段内容
	AddProgressed
	// AddDone 单个条目导入完成，得到内容地址
	AddDone
	// AddAllDone 整个导入任务结束
	AddAllDone
	// AddAbort 导入失败终止
	AddAbort
)

// AddEvent blob 导入进度事件
type AddEvent struct {
	Type AddEventType

	// Name 条目名称（Found，通常为文件名）
	Name string

	// Size 条目总大小（Found）
	Size uint64

	// Offset 已读入字节数（Progressed）
	Offset uint64

	// Hash 内容地址（Done）
	Hash Hash

	// Reason 失败原因（Abort）
	Reason string
}

// ============================================================================
//                              BlobProvideEvent - 提供侧事件
// ============================================================================

// BlobProvideEventType blob 提供侧事件类型
type BlobProvideEventType uint8

const (
	// BlobClientConnected 有客户端建立 blob 连接
	BlobClientConnected BlobProvideEventType = iota + 1
	// BlobGetRequestReceived 收到内容请求
	BlobGetRequestReceived
	// BlobTransferProgressed 已发送一段内容
	BlobTransferProgressed
	// BlobTransferCompleted 传输完成
	BlobTransferCompleted
	// BlobTransferAborted 传输中止
	BlobTransferAborted
)

// BlobProvideEvent blob 提供侧事件
//
// 节点作为内容提供方服务下载请求时产生，
// 通过 WithBlobEvents 注册的回调观察。
type BlobProvideEvent struct {
	Type BlobProvideEventType

	// ConnID 连接编号（同一连接上的事件编号相同）
	ConnID uint64

	// Peer 请求方节点
	Peer NodeID

	// Hash 被请求的内容地址
	Hash Hash

	// Offset 已发送字节数（TransferProgressed）
	Offset uint64

	// Reason 中止原因（TransferAborted）
	Reason string
}

// ============================================================================
//                              DocEvent - 文档实时事件
// ============================================================================

// DocEventType 文档实时事件类型
type DocEventType uint8

const (
	// DocInsertLocal 本地写入了新条目
	DocInsertLocal DocEventType = iota + 1
	// DocInsertRemote 从远端收到新条目
	DocInsertRemote
	// DocContentReady 远端条目的内容已取回本地
	DocContentReady
	// DocNeighborUp 文档覆盖网有新邻居
	DocNeighborUp
	// DocNeighborDown 文档覆盖网邻居离开
	DocNeighborDown
	// DocSyncFinished 与某个节点的一轮同步结束
	DocSyncFinished
	// DocPendingContentReady 此前缺失的内容全部就绪
	DocPendingContentReady
)

// ContentStatus 条目内容的本地状态
type ContentStatus uint8

const (
	// ContentComplete 内容完整存在于本地
	ContentComplete ContentStatus = iota + 1
	// ContentMissing 内容尚未取回
	ContentMissing
)

// DocEvent 文档实时事件
type DocEvent struct {
	Type DocEventType

	// Entry 相关条目（InsertLocal/InsertRemote）
	Entry *Entry

	// From 条目来源或同步对端（InsertRemote/SyncFinished）
	From NodeID

	// Content 条目内容的本地状态（InsertRemote）
	Content ContentStatus

	// Hash 就绪内容的地址（ContentReady）
	Hash Hash

	// Peer 邻居节点（NeighborUp/NeighborDown）
	Peer NodeID

	// Err 同步错误描述（SyncFinished，空表示成功）
	Err string
}
