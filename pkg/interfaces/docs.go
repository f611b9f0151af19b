// Package interfaces - Docs 复制文档服务接口
package interfaces

import (
	"context"

	"github.com/dep2p/go-weave/pkg/types"
)

// Docs 复制文档服务
//
// 文档是多作者的键值空间，条目值存放在 blob 存储中。
// 文档订阅者之间通过专属 gossip 主题广播新条目，
// 也可以与指定节点做一轮全量同步。
type Docs interface {
	// Create 新建文档
	Create(ctx context.Context) (Doc, error)

	// Open 打开本地已有文档，不存在时返回 ErrDocNotFound
	Open(ctx context.Context, id types.NamespaceID) (Doc, error)

	// Join 加入远端文档：登记命名空间并连入其覆盖网
	Join(ctx context.Context, id types.NamespaceID, bootstrap []types.NodeAddr) (Doc, error)

	// List 列出本地全部文档
	List(ctx context.Context) ([]types.NamespaceID, error)

	// Drop 删除本地文档及其全部条目
	Drop(ctx context.Context, id types.NamespaceID) error

	// Authors 返回作者管理
	Authors() Authors
}

// Doc 一个打开的文档
type Doc interface {
	// ID 返回文档标识
	ID() types.NamespaceID

	// SetBytes 写入条目，返回值的内容地址
	SetBytes(ctx context.Context, author types.AuthorID, key, value []byte) (types.Hash, error)

	// GetExact 精确查找 (author, key) 条目
	//
	// includeEmpty 为 false 时跳过删除标记（空值条目）。
	// 不存在时返回 (nil, nil)。
	GetExact(ctx context.Context, author types.AuthorID, key []byte, includeEmpty bool) (*types.Entry, error)

	// Entries 返回全部条目（按 key、author 排序）
	Entries(ctx context.Context) ([]*types.Entry, error)

	// Delete 写入删除标记，覆盖 author 名下指定前缀的条目
	//
	// 返回被覆盖的条目数。
	Delete(ctx context.Context, author types.AuthorID, prefix []byte) (int, error)

	// Subscribe 订阅实时事件
	//
	// 返回的通道在 stop 被调用或文档离开覆盖网后关闭。
	Subscribe(ctx context.Context) (events <-chan types.DocEvent, stop func(), err error)

	// StartSync 与指定节点各做一轮全量同步
	StartSync(ctx context.Context, peers []types.NodeAddr) error

	// Leave 离开文档覆盖网，停止接收与广播条目
	Leave(ctx context.Context) error
}

// Authors 文档作者管理
//
// 作者是 ed25519 密钥对，私钥存于节点密钥库。
type Authors interface {
	// Create 新建作者
	Create(ctx context.Context) (types.AuthorID, error)

	// Default 返回默认作者（首次调用时创建）
	Default(ctx context.Context) (types.AuthorID, error)

	// List 列出全部作者
	List(ctx context.Context) ([]types.AuthorID, error)

	// Delete 删除作者私钥，默认作者不可删除
	Delete(ctx context.Context, id types.AuthorID) error
}
