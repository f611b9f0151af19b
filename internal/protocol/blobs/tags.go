package blobs

import (
	"context"

	"github.com/dep2p/go-weave/pkg/interfaces"
	"github.com/dep2p/go-weave/pkg/types"
)

// tagStore 标签操作的服务视图
//
// 在服务关闭检查之后落到 Store 的标签方法上。
type tagStore struct {
	svc *Service
}

var _ interfaces.Tags = (*tagStore)(nil)

// Set 写入或覆盖标签
func (t *tagStore) Set(_ context.Context, name []byte, hash types.Hash) error {
	if t.svc.isClosed() {
		return ErrClosed
	}
	return t.svc.store.SetTag(name, hash)
}

// List 列出全部标签（按名称字节序）
func (t *tagStore) List(_ context.Context) ([]types.TagInfo, error) {
	if t.svc.isClosed() {
		return nil, ErrClosed
	}
	return t.svc.store.ListTags()
}

// Delete 删除标签
func (t *tagStore) Delete(_ context.Context, name []byte) error {
	if t.svc.isClosed() {
		return ErrClosed
	}
	return t.svc.store.DeleteTag(name)
}
