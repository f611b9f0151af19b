package weave

import (
	"context"
)

// ════════════════════════════════════════════════════════════════════════════
//                              用户 API: Tags
// ════════════════════════════════════════════════════════════════════════════

// Tags 标签门面
//
// 标签是指向内容地址的稳定命名，同时起到固定（防删）作用。
// 每次导入内容自动写一个 auto- 前缀的标签；调用方也可以自建标签。
type Tags struct {
	n *Node
}

// Set 写入或覆盖标签
func (t *Tags) Set(ctx context.Context, name []byte, hash Hash) error {
	if t.n.isClosed() {
		return ErrNodeClosed
	}
	return t.n.blobs.Tags().Set(ctx, name, hash)
}

// List 列出全部标签（按名称字节序）
func (t *Tags) List(ctx context.Context) ([]TagInfo, error) {
	if t.n.isClosed() {
		return nil, ErrNodeClosed
	}
	return t.n.blobs.Tags().List(ctx)
}

// Delete 删除标签
//
// 标签不存在时返回 ErrTagNotFound。
func (t *Tags) Delete(ctx context.Context, name []byte) error {
	if t.n.isClosed() {
		return ErrNodeClosed
	}
	return t.n.blobs.Tags().Delete(ctx, name)
}
