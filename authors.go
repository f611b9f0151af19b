package weave

import (
	"context"
)

// ════════════════════════════════════════════════════════════════════════════
//                              用户 API: Authors
// ════════════════════════════════════════════════════════════════════════════

// Authors 文档作者管理门面
//
// 作者是 ed25519 密钥对，私钥存于节点密钥库。写文档条目必须
// 指定作者；默认作者在首次使用时自动创建。
type Authors struct {
	n *Node
}

// Create 新建作者
func (a *Authors) Create(ctx context.Context) (AuthorID, error) {
	if a.n.isClosed() {
		return AuthorID{}, ErrNodeClosed
	}
	return a.n.docs.Authors().Create(ctx)
}

// Default 返回默认作者（首次调用时创建）
func (a *Authors) Default(ctx context.Context) (AuthorID, error) {
	if a.n.isClosed() {
		return AuthorID{}, ErrNodeClosed
	}
	return a.n.docs.Authors().Default(ctx)
}

// List 列出全部作者
func (a *Authors) List(ctx context.Context) ([]AuthorID, error) {
	if a.n.isClosed() {
		return nil, ErrNodeClosed
	}
	return a.n.docs.Authors().List(ctx)
}

// Delete 删除作者私钥
//
// 默认作者不可删除（ErrDefaultAuthor）；不存在的作者返回
// ErrAuthorNotFound。
func (a *Authors) Delete(ctx context.Context, id AuthorID) error {
	if a.n.isClosed() {
		return ErrNodeClosed
	}
	return a.n.docs.Authors().Delete(ctx, id)
}
