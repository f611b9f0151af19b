package ping

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-weave/internal/core/metrics"
	"github.com/dep2p/go-weave/internal/wire"
	"github.com/dep2p/go-weave/pkg/interfaces"
	"github.com/dep2p/go-weave/pkg/lib/log"
	"github.com/dep2p/go-weave/pkg/types"
)

var logger = log.Logger("protocol/ping")

// ============================================================================
//                              服务定义
// ============================================================================

// Service 往返时延探测服务
//
// 同时承担两个角色：作为 Pinger 向远端发起探测，作为
// ProtocolHandler 回应远端发来的探测。每次探测在一条新流上
// 完成一次请求/回显交换，由回显的请求 ID 配对。
type Service struct {
	ep      interfaces.Endpoint
	cfg     *Config
	clock   clock.Clock
	metrics *metrics.Metrics

	mu     sync.Mutex
	closed bool
}

var (
	_ interfaces.Pinger          = (*Service)(nil)
	_ interfaces.ProtocolHandler = (*Service)(nil)
)

// NewService 创建探测服务
func NewService(ep interfaces.Endpoint, m *metrics.Metrics, opts ...Option) *Service {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Service{
		ep:      ep,
		cfg:     cfg,
		clock:   clock.New(),
		metrics: m,
	}
}

// ============================================================================
//                              探测发起
// ============================================================================

// Ping 向指定节点发起一次探测并返回往返时延
//
// 目标地址由端点通过地址簿解析；对端必须注册了相同的协议标签。
func (s *Service) Ping(ctx context.Context, node types.NodeID) (time.Duration, error) {
	if s.isClosed() {
		return 0, ErrClosed
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	conn, err := s.ep.Dial(ctx, types.NodeAddr{ID: node}, ALPN)
	if err != nil {
		return 0, fmt.Errorf("ping dial: %w", err)
	}
	defer conn.Close()

	// 超时或取消时强制断开，避免 Read 悬停
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	stream, err := conn.OpenStream(ctx)
	if err != nil {
		return 0, fmt.Errorf("ping stream: %w", err)
	}

	req := newPingRequest()
	start := s.clock.Now()

	if err := wire.WriteFrame(stream, req); err != nil {
		return 0, fmt.Errorf("send ping: %w", err)
	}
	if err := stream.Close(); err != nil {
		return 0, fmt.Errorf("send ping: %w", err)
	}

	var resp pongResponse
	if err := wire.ReadFrame(stream, &resp, maxFrameSize); err != nil {
		return 0, fmt.Errorf("recv pong: %w", err)
	}
	if resp.ID != req.ID {
		return 0, ErrInvalidMessage
	}

	rtt := s.clock.Since(start)
	s.metrics.PingRTT.Observe(rtt.Seconds())

	logger.Debug("探测完成",
		"node", node.ShortString(),
		"rtt", rtt)
	return rtt, nil
}

// ============================================================================
//                              探测应答
// ============================================================================

// Accept 处理一条接入连接
//
// 对端在每条流上做一次探测交换；流接受失败视为连接结束，
// 返回 nil 让路由器记为正常完成。
func (s *Service) Accept(ctx context.Context, conn interfaces.Connection) error {
	for {
		if s.isClosed() {
			return nil
		}
		stream, err := conn.AcceptStream(ctx)
		if err != nil {
			return nil
		}
		if err := s.handleStream(stream); err != nil {
			logger.Debug("探测应答失败",
				"remote", conn.RemoteID().ShortString(),
				"error", err)
		}
	}
}

// handleStream 在单条流上完成一次回显
func (s *Service) handleStream(stream interfaces.Stream) error {
	defer stream.Close()

	var req pingRequest
	if err := wire.ReadFrame(stream, &req, maxFrameSize); err != nil {
		return fmt.Errorf("recv ping: %w", err)
	}
	if req.ID == "" {
		return ErrInvalidMessage
	}
	if err := wire.WriteFrame(stream, newPongResponse(req.ID)); err != nil {
		return fmt.Errorf("send pong: %w", err)
	}
	return nil
}

// Shutdown 停止服务
//
// 之后的探测请求直接返回 ErrClosed，在途交换随连接关闭终止。
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
