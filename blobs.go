package weave

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dep2p/go-weave/internal/bridge"
	"github.com/dep2p/go-weave/pkg/lib/cancel"
	"github.com/dep2p/go-weave/pkg/types"
)

// ════════════════════════════════════════════════════════════════════════════
//                              用户 API: Blobs
// ════════════════════════════════════════════════════════════════════════════

// Blobs 内容寻址存储门面
//
// 内容以 BLAKE3 摘要为地址，相同内容只存一份。每次导入写一个
// 自动标签固定内容；删除内容同时清掉指向它的标签。
//
// 使用示例：
//
//	blobs := node.Blobs()
//
//	// 导入并分享
//	hash, _ := blobs.AddBytes(ctx, []byte("hello"))
//	ticket, _ := blobs.Share(ctx, hash)
//	fmt.Println("ticket:", ticket)
//
//	// 另一个节点凭票据取回
//	blobs.DownloadTicket(ctx, parsed, nil)
//	data, _ := blobs.ReadToBytes(ctx, parsed.Hash)
type Blobs struct {
	n *Node
}

// AddBytes 导入一段字节，返回内容地址
func (b *Blobs) AddBytes(ctx context.Context, data []byte) (Hash, error) {
	if b.n.isClosed() {
		return Hash{}, ErrNodeClosed
	}
	return b.n.blobs.AddBytes(ctx, data)
}

// AddFromPath 从文件导入内容
//
// cb 非 nil 时接收导入进度事件（Found → Progressed* → Done →
// AllDone，失败时 Abort），全部事件投递完毕后本方法才返回。
func (b *Blobs) AddFromPath(ctx context.Context, path string, cb AddCallback) (Hash, error) {
	if b.n.isClosed() {
		return Hash{}, ErrNodeClosed
	}

	f, err := os.Open(path)
	if err != nil {
		return Hash{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var size uint64
	if info, err := f.Stat(); err == nil {
		size = uint64(info.Size())
	}

	events, done := b.pumpAdd(cb)
	hash, _, err := b.n.blobs.AddReader(ctx, filepath.Base(path), f, size, events)
	if done != nil {
		<-done
	}
	return hash, err
}

// ReadToBytes 读出完整内容
//
// 内容不在本地时返回 ErrBlobNotFound。
func (b *Blobs) ReadToBytes(ctx context.Context, hash Hash) ([]byte, error) {
	if b.n.isClosed() {
		return nil, ErrNodeClosed
	}
	return b.n.blobs.ReadBytes(ctx, hash)
}

// Has 检查内容是否在本地
func (b *Blobs) Has(ctx context.Context, hash Hash) (bool, error) {
	if b.n.isClosed() {
		return false, ErrNodeClosed
	}
	return b.n.blobs.Has(ctx, hash)
}

// Size 返回内容大小
func (b *Blobs) Size(ctx context.Context, hash Hash) (uint64, error) {
	if b.n.isClosed() {
		return 0, ErrNodeClosed
	}
	return b.n.blobs.Size(ctx, hash)
}

// List 列出本地全部内容
func (b *Blobs) List(ctx context.Context) ([]BlobInfo, error) {
	if b.n.isClosed() {
		return nil, ErrNodeClosed
	}
	return b.n.blobs.List(ctx)
}

// Delete 删除内容及指向它的全部标签
func (b *Blobs) Delete(ctx context.Context, hash Hash) error {
	if b.n.isClosed() {
		return ErrNodeClosed
	}
	return b.n.blobs.Delete(ctx, hash)
}

// Download 从指定节点取回内容并存入本地
//
// 取回的内容先校验 BLAKE3 摘要，不匹配即失败不落盘。
// cb 非 nil 时接收下载进度事件，全部事件投递完毕后本方法才返回。
func (b *Blobs) Download(ctx context.Context, hash Hash, from *NodeAddr, cb DownloadCallback) error {
	if b.n.isClosed() {
		return ErrNodeClosed
	}
	if from == nil {
		return fmt.Errorf("weave: nil download source")
	}

	events, done := b.pumpDownload(cb)
	err := b.n.blobs.Download(ctx, hash, *from, events)
	if done != nil {
		<-done
	}
	return err
}

// DownloadTicket 凭票据取回内容
//
// 票据里的提供方地址先进地址簿，之后向它拨号下载。
func (b *Blobs) DownloadTicket(ctx context.Context, ticket *BlobTicket, cb DownloadCallback) error {
	if ticket == nil {
		return ErrInvalidTicket
	}
	return b.Download(ctx, ticket.Hash, &ticket.Node, cb)
}

// Share 生成内容分享票据
//
// 内容必须已在本地（ErrBlobNotFound），票据携带本节点的
// 地址记录与内容地址。
func (b *Blobs) Share(ctx context.Context, hash Hash) (*BlobTicket, error) {
	if b.n.isClosed() {
		return nil, ErrNodeClosed
	}

	ok, err := b.n.blobs.Has(ctx, hash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrBlobNotFound
	}

	return &BlobTicket{
		Node:   b.n.ep.NodeAddr(),
		Hash:   hash,
		Format: BlobFormatRaw,
	}, nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              进度事件泵
// ════════════════════════════════════════════════════════════════════════════

// pumpAdd 起一个把导入进度泵入回调的事件桥
//
// 返回的通道由服务在导入结束时关闭，done 在全部事件投递后关闭。
// cb 为 nil 时两者皆为 nil。
func (b *Blobs) pumpAdd(cb AddCallback) (chan types.AddEvent, chan struct{}) {
	if cb == nil {
		return nil, nil
	}

	events := make(chan types.AddEvent, progressBuffer)
	done := make(chan struct{})
	n := b.n

	go func() {
		defer close(done)
		bridge.Run("blobs/add", cancel.NewToken(), events, func(ev types.AddEvent) error {
			n.metrics.EventsDelivered.Inc()
			if err := cb.OnAddEvent(n.rootCtx, &ev); err != nil {
				n.metrics.CallbackErrors.Inc()
				return err
			}
			return nil
		})
	}()
	return events, done
}

// pumpDownload 起一个把下载进度泵入回调的事件桥
func (b *Blobs) pumpDownload(cb DownloadCallback) (chan types.DownloadEvent, chan struct{}) {
	if cb == nil {
		return nil, nil
	}

	events := make(chan types.DownloadEvent, progressBuffer)
	done := make(chan struct{})
	n := b.n

	go func() {
		defer close(done)
		bridge.Run("blobs/download", cancel.NewToken(), events, func(ev types.DownloadEvent) error {
			n.metrics.EventsDelivered.Inc()
			if err := cb.OnDownloadEvent(n.rootCtx, &ev); err != nil {
				n.metrics.CallbackErrors.Inc()
				return err
			}
			return nil
		})
	}()
	return events, done
}

// progressBuffer 进度通道缓冲
//
// 进度事件由数据面非背压产生，小缓冲吸收回调的瞬时抖动。
const progressBuffer = 16
