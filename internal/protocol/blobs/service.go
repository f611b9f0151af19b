package blobs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/klauspost/compress/zstd"

	"github.com/dep2p/go-weave/config"
	"github.com/dep2p/go-weave/internal/core/metrics"
	"github.com/dep2p/go-weave/internal/wire"
	"github.com/dep2p/go-weave/pkg/interfaces"
	"github.com/dep2p/go-weave/pkg/lib/log"
	"github.com/dep2p/go-weave/pkg/types"
)

var logger = log.Logger("protocol/blobs")

// ============================================================================
//                              服务定义
// ============================================================================

// Service 内容寻址存储与传输服务
//
// 作为 Blobs 提供本地导入 / 读取 / 下载，作为 ProtocolHandler
// 向远端提供内容。提供侧事件写入 events 通道（可选，非阻塞，
// 满时丢弃），通道的生命周期由节点层管理。
type Service struct {
	ep      interfaces.Endpoint
	book    interfaces.AddressBook
	store   *Store
	cfg     config.BlobsConfig
	metrics *metrics.Metrics
	events  chan<- types.BlobProvideEvent

	connSeq atomic.Uint64

	mu     sync.Mutex
	closed bool
}

var (
	_ interfaces.Blobs           = (*Service)(nil)
	_ interfaces.ProtocolHandler = (*Service)(nil)
)

// NewService 创建内容服务
//
// events 为 nil 时不产生提供侧事件。
func NewService(ep interfaces.Endpoint, book interfaces.AddressBook, store *Store, cfg *config.Config, m *metrics.Metrics, events chan<- types.BlobProvideEvent) *Service {
	return &Service{
		ep:      ep,
		book:    book,
		store:   store,
		cfg:     cfg.Blobs,
		metrics: m,
		events:  events,
	}
}

// ============================================================================
//                              本地操作
// ============================================================================

// AddBytes 导入一段字节，返回内容地址并写入自动标签
func (s *Service) AddBytes(_ context.Context, data []byte) (types.Hash, error) {
	if s.isClosed() {
		return types.EmptyHash, ErrClosed
	}

	hash, err := s.store.Put(data)
	if err != nil {
		return types.EmptyHash, err
	}
	if _, err := s.store.AutoTag(hash); err != nil {
		return types.EmptyHash, err
	}

	logger.Debug("导入内容", "hash", hash.ShortString(), "bytes", len(data))
	return hash, nil
}

// AddReader 流式导入内容
//
// 按块读入并产生进度事件；events 非 nil 时在返回前关闭。
func (s *Service) AddReader(ctx context.Context, name string, r io.Reader, size uint64, events chan<- types.AddEvent) (types.Hash, uint64, error) {
	if events != nil {
		defer close(events)
	}
	if s.isClosed() {
		return types.EmptyHash, 0, ErrClosed
	}

	sendAdd(ctx, events, types.AddEvent{Type: types.AddFound, Name: name, Size: size})

	var buf bytes.Buffer
	chunk := make([]byte, s.cfg.ChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			sendAdd(ctx, events, types.AddEvent{Type: types.AddAbort, Reason: err.Error()})
			return types.EmptyHash, 0, err
		}
		n, err := r.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			sendAdd(ctx, events, types.AddEvent{Type: types.AddProgressed, Offset: uint64(buf.Len())})
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			sendAdd(ctx, events, types.AddEvent{Type: types.AddAbort, Reason: err.Error()})
			return types.EmptyHash, 0, fmt.Errorf("read content: %w", err)
		}
	}

	hash, err := s.store.Put(buf.Bytes())
	if err != nil {
		sendAdd(ctx, events, types.AddEvent{Type: types.AddAbort, Reason: err.Error()})
		return types.EmptyHash, 0, err
	}
	if _, err := s.store.AutoTag(hash); err != nil {
		sendAdd(ctx, events, types.AddEvent{Type: types.AddAbort, Reason: err.Error()})
		return types.EmptyHash, 0, err
	}

	total := uint64(buf.Len())
	sendAdd(ctx, events, types.AddEvent{Type: types.AddDone, Name: name, Hash: hash})
	sendAdd(ctx, events, types.AddEvent{Type: types.AddAllDone})

	logger.Debug("流式导入完成",
		"name", name,
		"hash", hash.ShortString(),
		"bytes", total)
	return hash, total, nil
}

// ReadBytes 读出完整内容
func (s *Service) ReadBytes(_ context.Context, hash types.Hash) ([]byte, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	return s.store.Get(hash)
}

// Has 检查内容是否在本地
func (s *Service) Has(_ context.Context, hash types.Hash) (bool, error) {
	if s.isClosed() {
		return false, ErrClosed
	}
	return s.store.Has(hash)
}

// Size 返回内容大小
func (s *Service) Size(_ context.Context, hash types.Hash) (uint64, error) {
	if s.isClosed() {
		return 0, ErrClosed
	}
	return s.store.Size(hash)
}

// List 列出本地全部内容
func (s *Service) List(_ context.Context) ([]types.BlobInfo, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	return s.store.List()
}

// Delete 删除内容及指向它的全部标签
func (s *Service) Delete(_ context.Context, hash types.Hash) error {
	if s.isClosed() {
		return ErrClosed
	}
	return s.store.Delete(hash)
}

// Tags 返回标签存储
func (s *Service) Tags() interfaces.Tags {
	return &tagStore{svc: s}
}

// ============================================================================
//                              下载
// ============================================================================

// Download 从指定节点取回内容并存入本地
//
// 内容整块取回后校验摘要，不匹配不落盘。内容已在本地时直接
// 发出完成事件。events 非 nil 时在返回前关闭。
func (s *Service) Download(ctx context.Context, hash types.Hash, from types.NodeAddr, events chan<- types.DownloadEvent) error {
	if events != nil {
		defer close(events)
	}
	if s.isClosed() {
		return ErrClosed
	}

	// 已有内容不再走网络
	if ok, err := s.store.Has(hash); err == nil && ok {
		size, _ := s.store.Size(hash)
		sendDL(ctx, events, types.DownloadEvent{Type: types.DownloadFound, Hash: hash, Size: size})
		sendDL(ctx, events, types.DownloadEvent{Type: types.DownloadDone, Hash: hash})
		sendDL(ctx, events, types.DownloadEvent{Type: types.DownloadAllDone})
		return nil
	}

	if from.HasAddrs() {
		_ = s.book.Add(from)
	}

	data, size, err := s.fetch(ctx, hash, from, events)
	if err != nil {
		sendDL(ctx, events, types.DownloadEvent{Type: types.DownloadAbort, Reason: err.Error()})
		return err
	}

	stored, err := s.store.Put(data)
	if err != nil {
		sendDL(ctx, events, types.DownloadEvent{Type: types.DownloadAbort, Reason: err.Error()})
		return err
	}
	if _, err := s.store.AutoTag(stored); err != nil {
		sendDL(ctx, events, types.DownloadEvent{Type: types.DownloadAbort, Reason: err.Error()})
		return err
	}

	sendDL(ctx, events, types.DownloadEvent{Type: types.DownloadDone, Hash: hash})
	sendDL(ctx, events, types.DownloadEvent{Type: types.DownloadAllDone})

	logger.Debug("下载完成",
		"hash", hash.ShortString(),
		"from", from.ID.ShortString(),
		"bytes", size)
	return nil
}

// fetch 通过一次 get 交换取回并校验内容
//
// 进度事件在本方法内产生：Found 一次，Progressed 每块一次。
func (s *Service) fetch(ctx context.Context, hash types.Hash, from types.NodeAddr, events chan<- types.DownloadEvent) ([]byte, uint64, error) {
	conn, err := s.ep.Dial(ctx, from, ALPN)
	if err != nil {
		return nil, 0, fmt.Errorf("dial provider: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	stream, err := conn.OpenStream(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("open blob stream: %w", err)
	}

	if err := wire.WriteFrame(stream, &getRequest{Hash: hash.Bytes()}); err != nil {
		return nil, 0, fmt.Errorf("send request: %w", err)
	}
	if err := stream.Close(); err != nil {
		return nil, 0, fmt.Errorf("send request: %w", err)
	}

	var resp getResponse
	if err := wire.ReadFrame(stream, &resp, uint64(s.cfg.MaxFrameSize)); err != nil {
		return nil, 0, fmt.Errorf("recv response: %w", err)
	}
	if !resp.Found {
		return nil, 0, fmt.Errorf("%w: %s", ErrBlobNotFound, hash.ShortString())
	}

	sendDL(ctx, events, types.DownloadEvent{Type: types.DownloadFound, Hash: hash, Size: resp.Size})

	dec, err := zstd.NewReader(stream)
	if err != nil {
		return nil, 0, fmt.Errorf("init decompressor: %w", err)
	}
	defer dec.Close()

	var buf bytes.Buffer
	chunk := make([]byte, s.cfg.ChunkSize)
	for {
		n, err := dec.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			s.metrics.BlobBytesReceived.Add(float64(n))
			sendDL(ctx, events, types.DownloadEvent{Type: types.DownloadProgressed, Hash: hash, Offset: uint64(buf.Len())})
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("recv content: %w", err)
		}
	}

	data := buf.Bytes()
	if !types.HashBytes(data).Equal(hash) {
		return nil, 0, ErrHashMismatch
	}
	return data, uint64(len(data)), nil
}

// ============================================================================
//                              提供侧
// ============================================================================

// Accept 处理一条接入的 blob 连接
//
// 每条流承载一次 get 交换；流接受失败视为连接结束。
func (s *Service) Accept(ctx context.Context, conn interfaces.Connection) error {
	if s.isClosed() {
		return ErrClosed
	}

	connID := s.connSeq.Add(1)
	remote := conn.RemoteID()
	s.emit(types.BlobProvideEvent{Type: types.BlobClientConnected, ConnID: connID, Peer: remote})

	for {
		stream, err := conn.AcceptStream(ctx)
		if err != nil {
			return nil
		}
		if err := s.handleGet(connID, remote, stream); err != nil {
			logger.Debug("内容请求处理失败",
				"remote", remote.ShortString(),
				"error", err)
			if errors.Is(err, ErrInvalidRequest) {
				continue
			}
			// 写方向出错说明连接已不可用
			return nil
		}
	}
}

// handleGet 在单条流上完成一次 get 应答
func (s *Service) handleGet(connID uint64, remote types.NodeID, stream interfaces.Stream) error {
	defer stream.Close()

	var req getRequest
	if err := wire.ReadFrame(stream, &req, uint64(s.cfg.MaxFrameSize)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	hash, err := types.HashFromBytes(req.Hash)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	s.emit(types.BlobProvideEvent{Type: types.BlobGetRequestReceived, ConnID: connID, Peer: remote, Hash: hash})

	data, err := s.store.Get(hash)
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			return wire.WriteFrame(stream, &getResponse{Found: false})
		}
		return err
	}

	if err := wire.WriteFrame(stream, &getResponse{Found: true, Size: uint64(len(data))}); err != nil {
		s.emit(types.BlobProvideEvent{Type: types.BlobTransferAborted, ConnID: connID, Peer: remote, Hash: hash, Reason: err.Error()})
		return err
	}

	enc, err := zstd.NewWriter(stream)
	if err != nil {
		return fmt.Errorf("init compressor: %w", err)
	}

	for off := 0; off < len(data); off += s.cfg.ChunkSize {
		end := off + s.cfg.ChunkSize
		if end > len(data) {
			end = len(data)
		}
		if _, err := enc.Write(data[off:end]); err != nil {
			_ = enc.Close()
			s.emit(types.BlobProvideEvent{Type: types.BlobTransferAborted, ConnID: connID, Peer: remote, Hash: hash, Reason: err.Error()})
			return err
		}
		s.metrics.BlobBytesSent.Add(float64(end - off))
		s.emit(types.BlobProvideEvent{Type: types.BlobTransferProgressed, ConnID: connID, Peer: remote, Hash: hash, Offset: uint64(end)})
	}

	if err := enc.Close(); err != nil {
		s.emit(types.BlobProvideEvent{Type: types.BlobTransferAborted, ConnID: connID, Peer: remote, Hash: hash, Reason: err.Error()})
		return err
	}

	s.emit(types.BlobProvideEvent{Type: types.BlobTransferCompleted, ConnID: connID, Peer: remote, Hash: hash})
	return nil
}

// Shutdown 停止服务
//
// 之后的本地操作与新请求直接失败，在途传输随连接关闭终止。
func (s *Service) Shutdown(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Service) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// emit 非阻塞发出提供侧事件
//
// 事件通道由节点层消费；消费不及时直接丢弃，数据面不等待。
func (s *Service) emit(ev types.BlobProvideEvent) {
	if s.events == nil {
		return
	}
	select {
	case s.events <- ev:
	default:
		s.metrics.EventsDropped.Inc()
	}
}

// sendAdd 投递导入进度事件
func sendAdd(ctx context.Context, events chan<- types.AddEvent, ev types.AddEvent) {
	if events == nil {
		return
	}
	select {
	case events <- ev:
	case <-ctx.Done():
	}
}

// sendDL 投递下载进度事件
func sendDL(ctx context.Context, events chan<- types.DownloadEvent, ev types.DownloadEvent) {
	if events == nil {
		return
	}
	select {
	case events <- ev:
	case <-ctx.Done():
	}
}
