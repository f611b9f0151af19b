// Package router 将单一 QUIC 端点上接受的连接按 ALPN 标签分发给协议处理器。
//
// 注册表在构造后不可变: 全部协议在 New 时一次登记, 重复标签直接失败。
// 端点的 ALPN 列表与注册表一致, 未注册的标签在 TLS 握手阶段就被拒绝,
// 路由器看到的每条连接都必然带着一个已登记的标签。
package router

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	tec "github.com/jbenet/go-temp-err-catcher"
	"go.uber.org/multierr"

	"github.com/dep2p/go-weave/internal/core/endpoint"
	"github.com/dep2p/go-weave/internal/core/metrics"
	"github.com/dep2p/go-weave/pkg/interfaces"
	"github.com/dep2p/go-weave/pkg/lib/log"
)

var logger = log.Logger("core/router")

// ============================================================================
// 注册项
// ============================================================================

// Registration 把一个 ALPN 标签绑定到它的协议处理器
type Registration struct {
	// Tag ALPN 协议标签, 如 "weave/gossip/0"
	Tag string

	// Handler 处理该协议全部入站连接的处理器
	Handler interfaces.ProtocolHandler
}

// ============================================================================
// 路由器
// ============================================================================

// Router 运行端点的接受循环并按 ALPN 分发连接
type Router struct {
	ep       interfaces.Endpoint
	handlers map[string]interfaces.ProtocolHandler
	tags     []string
	metrics  *metrics.Metrics

	loopCtx    context.Context
	loopCancel context.CancelFunc
	loopDone   chan struct{}

	started  atomic.Bool
	stopped  atomic.Bool
	stopOnce sync.Once
	inflight sync.WaitGroup
}

// New 构造路由器
//
// 注册表在此处固定: 空标签、空处理器或重复标签都会使构造失败,
// 之后不再提供任何注册入口。
//
// 参数:
//   - ep: 提供连接的端点
//   - regs: 全部协议注册项
//   - m: 连接级指标
//
// 返回值:
//   - *Router: 路由器实例
//   - error: 注册表不合法时的错误
func New(ep interfaces.Endpoint, regs []Registration, m *metrics.Metrics) (*Router, error) {
	if len(regs) == 0 {
		return nil, ErrNoProtocols
	}

	handlers := make(map[string]interfaces.ProtocolHandler, len(regs))
	tags := make([]string, 0, len(regs))
	for _, reg := range regs {
		if reg.Tag == "" {
			return nil, ErrEmptyTag
		}
		if reg.Handler == nil {
			return nil, fmt.Errorf("%w: %s", ErrNilHandler, reg.Tag)
		}
		if _, ok := handlers[reg.Tag]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTag, reg.Tag)
		}
		handlers[reg.Tag] = reg.Handler
		tags = append(tags, reg.Tag)
	}

	loopCtx, loopCancel := context.WithCancel(context.Background())
	return &Router{
		ep:         ep,
		handlers:   handlers,
		tags:       tags,
		metrics:    m,
		loopCtx:    loopCtx,
		loopCancel: loopCancel,
		loopDone:   make(chan struct{}),
	}, nil
}

// Tags 返回注册顺序下的全部 ALPN 标签
func (r *Router) Tags() []string {
	out := make([]string, len(r.tags))
	copy(out, r.tags)
	return out
}

// Start 启动接受循环
//
// 返回值:
//   - error: 路由器已停止或重复启动时的错误
func (r *Router) Start() error {
	if r.stopped.Load() {
		return ErrRouterStopped
	}
	if !r.started.CompareAndSwap(false, true) {
		return nil
	}

	go r.acceptLoop()
	logger.Info("路由器已启动", "protocols", len(r.handlers))
	return nil
}

// acceptLoop 持续接受连接并分发, 直到端点关闭或路由器停止
func (r *Router) acceptLoop() {
	defer close(r.loopDone)

	var catcher tec.TempErrCatcher
	for {
		conn, err := r.ep.Accept(r.loopCtx)
		if err != nil {
			if r.stopped.Load() || r.loopCtx.Err() != nil {
				return
			}
			if err == endpoint.ErrEndpointClosed {
				logger.Info("端点已关闭, 接受循环退出")
				return
			}
			if catcher.IsTemporary(err) {
				logger.Warn("接受连接暂时失败", "error", err)
				continue
			}
			logger.Error("接受循环终止", "error", err)
			return
		}
		r.accept(conn)
	}
}

// accept 登记一条连接并交给独立协程处理
func (r *Router) accept(conn interfaces.Connection) {
	tag := conn.ALPN()
	r.metrics.ConnsAccepted.WithLabelValues(tag).Inc()

	handler, ok := r.handlers[tag]
	if !ok {
		// ALPN 在握手阶段过滤, 到这里说明端点配置与注册表脱节
		logger.Error("连接携带未注册的协议标签", "alpn", tag, "remote", conn.RemoteID().ShortString())
		r.metrics.ConnsFailed.WithLabelValues(tag).Inc()
		_ = conn.Close()
		return
	}

	r.inflight.Add(1)
	go r.dispatch(conn, handler)
}

// dispatch 在独立协程中运行处理器, 处理器出错或崩溃只影响这一条连接
func (r *Router) dispatch(conn interfaces.Connection, handler interfaces.ProtocolHandler) {
	defer r.inflight.Done()

	tag := conn.ALPN()
	remote := conn.RemoteID().ShortString()
	logger.Debug("分发连接", "alpn", tag, "remote", remote)

	if err := r.runHandler(conn, handler); err != nil {
		r.metrics.ConnsFailed.WithLabelValues(tag).Inc()
		logger.Warn("协议处理失败", "alpn", tag, "remote", remote, "error", err)
		_ = conn.Close()
		return
	}

	r.metrics.ConnsCompleted.WithLabelValues(tag).Inc()
	logger.Debug("连接处理完成", "alpn", tag, "remote", remote)
}

// runHandler 调用处理器并把 panic 转换为错误
func (r *Router) runHandler(conn interfaces.Connection, handler interfaces.ProtocolHandler) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panic: %v", rec)
		}
	}()
	return handler.Accept(conn.Context(), conn)
}

// Shutdown 关闭路由器
//
// 首次调用停止接受循环, 在调用方的截止时间内依次调用每个处理器的
// Shutdown, 等待在途连接结束, 最后关闭端点; 各步骤的错误用 multierr
// 聚合返回。后续调用立即返回 nil。
//
// 参数:
//   - ctx: 限定处理器关闭与在途等待的截止时间
//
// 返回值:
//   - error: 聚合后的关闭错误
func (r *Router) Shutdown(ctx context.Context) error {
	var errs error
	r.stopOnce.Do(func() {
		r.stopped.Store(true)
		r.loopCancel()
		if r.started.Load() {
			<-r.loopDone
		}

		for tag, handler := range r.handlers {
			if err := handler.Shutdown(ctx); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("shutdown %s: %w", tag, err))
			}
		}

		waitCh := make(chan struct{})
		go func() {
			r.inflight.Wait()
			close(waitCh)
		}()
		select {
		case <-waitCh:
		case <-ctx.Done():
			errs = multierr.Append(errs, fmt.Errorf("wait for connections: %w", ctx.Err()))
		}

		if err := r.ep.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("close endpoint: %w", err))
		}

		logger.Info("路由器已关闭")
	})
	return errs
}
