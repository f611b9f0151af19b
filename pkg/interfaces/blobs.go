// Package interfaces - Blobs 内容寻址存储接口
package interfaces

import (
	"context"
	"io"

	"github.com/dep2p/go-weave/pkg/types"
)

// Blobs 内容寻址存储与传输服务
//
// 内容以 BLAKE3 摘要为地址；相同内容只存一份。
type Blobs interface {
	// AddBytes 导入一段字节，返回内容地址并写入自动标签
	AddBytes(ctx context.Context, data []byte) (types.Hash, error)

	// AddReader 流式导入内容
	//
	// size 为预估大小（未知时传 0，仅影响进度事件）。
	// events 非 nil 时导入进度写入该通道，返回前由本方法关闭。
	AddReader(ctx context.Context, name string, r io.Reader, size uint64, events chan<- types.AddEvent) (types.Hash, uint64, error)

	// ReadBytes 读出完整内容，不存在时返回 ErrBlobNotFound
	ReadBytes(ctx context.Context, hash types.Hash) ([]byte, error)

	// Has 检查内容是否在本地
	Has(ctx context.Context, hash types.Hash) (bool, error)

	// Size 返回内容大小，不存在时返回 ErrBlobNotFound
	Size(ctx context.Context, hash types.Hash) (uint64, error)

	// List 列出本地全部内容
	List(ctx context.Context) ([]types.BlobInfo, error)

	// Delete 删除内容及指向它的全部标签
	Delete(ctx context.Context, hash types.Hash) error

	// Download 从指定节点取回内容并存入本地
	//
	// events 非 nil 时下载进度写入该通道，返回前由本方法关闭。
	// 取回的内容先校验 BLAKE3 摘要，不匹配即失败不落盘。
	// 内容已在本地时直接发出完成事件。
	Download(ctx context.Context, hash types.Hash, from types.NodeAddr, events chan<- types.DownloadEvent) error

	// Tags 返回标签存储
	Tags() Tags
}

// Tags 标签存储
//
// 标签是指向内容地址的稳定命名，同时起到固定（防删）作用。
type Tags interface {
	// Set 写入或覆盖标签
	Set(ctx context.Context, name []byte, hash types.Hash) error

	// List 列出全部标签（按名称字节序）
	List(ctx context.Context) ([]types.TagInfo, error)

	// Delete 删除标签，不存在时返回 ErrTagNotFound
	Delete(ctx context.Context, name []byte) error
}
