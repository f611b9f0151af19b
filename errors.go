package weave

import (
	"errors"

	"github.com/dep2p/go-weave/internal/protocol/blobs"
	"github.com/dep2p/go-weave/internal/protocol/docs"
	"github.com/dep2p/go-weave/pkg/types"
)

// 公共错误定义
//
// 服务层错误按原值导出，errors.Is 跨层成立：
// 门面返回的错误链里总能匹配到这里的哨兵。
var (
	// ────────────────────────────────────────────────────────────────────────
	// 参数校验错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrInvalidTopic 主题不是 32 字节
	ErrInvalidTopic = types.ErrInvalidTopic

	// ErrInvalidNodeID 节点标识无法解析
	ErrInvalidNodeID = types.ErrInvalidNodeID

	// ErrInvalidHash 内容地址无法解析
	ErrInvalidHash = types.ErrInvalidHash

	// ErrInvalidSecretKey 密钥种子不是 32 字节
	ErrInvalidSecretKey = errors.New("invalid secret key: must be 32 bytes")

	// ErrInvalidTicket 票据格式错误或前缀不符
	ErrInvalidTicket = errors.New("invalid ticket")

	// ErrDuplicateProtocol 扩展协议标签与已注册协议冲突
	ErrDuplicateProtocol = errors.New("duplicate protocol tag")

	// ────────────────────────────────────────────────────────────────────────
	// 节点生命周期错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrNodeClosed 节点已关闭
	ErrNodeClosed = errors.New("node closed")

	// ErrDocsDisabled 文档子系统未启用（WithDocs）
	ErrDocsDisabled = errors.New("docs not enabled")

	// ────────────────────────────────────────────────────────────────────────
	// 订阅与广播错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrSenderCancelled 订阅已取消，广播被拒绝
	ErrSenderCancelled = errors.New("sender cancelled")

	// ErrAlreadyCancelled 重复取消同一订阅
	ErrAlreadyCancelled = errors.New("sender already cancelled")

	// ────────────────────────────────────────────────────────────────────────
	// 数据访问错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrBlobNotFound 内容不在本地
	ErrBlobNotFound = blobs.ErrBlobNotFound

	// ErrTagNotFound 标签不存在
	ErrTagNotFound = blobs.ErrTagNotFound

	// ErrDocNotFound 文档不存在
	ErrDocNotFound = docs.ErrDocNotFound

	// ErrDocClosed 文档句柄已离开覆盖网
	ErrDocClosed = docs.ErrDocClosed

	// ErrAuthorNotFound 作者不存在
	ErrAuthorNotFound = docs.ErrAuthorNotFound

	// ErrDefaultAuthor 默认作者不可删除
	ErrDefaultAuthor = docs.ErrDefaultAuthor

	// ErrNoAddresses 节点地址记录没有直连地址
	ErrNoAddresses = types.ErrNoAddresses
)

// errNilCallback 回调为 nil（事件无处投递，直接拒绝订阅）
var errNilCallback = errors.New("weave: nil callback")
