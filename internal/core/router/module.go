package router

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-weave/internal/core/metrics"
	"github.com/dep2p/go-weave/pkg/interfaces"
)

// ============================================================================
//                              模块输入依赖
// ============================================================================

// ModuleInput 定义模块输入依赖
type ModuleInput struct {
	fx.In

	Endpoint interfaces.Endpoint

	// Registrations 全部协议注册项（内置 + 扩展）
	Registrations []Registration `name:"protocol_registrations"`

	Metrics *metrics.Metrics

	LC fx.Lifecycle
}

// ============================================================================
//                              服务提供
// ============================================================================

// ProvideRouter 提供连接路由器
//
// 路由器随 fx 生命周期启动和关闭：OnStart 进入接受循环，
// OnStop 停止循环、关闭全部处理器并关闭端点。
func ProvideRouter(input ModuleInput) (*Router, error) {
	r, err := New(input.Endpoint, input.Registrations, input.Metrics)
	if err != nil {
		return nil, err
	}

	input.LC.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			return r.Start()
		},
		OnStop: func(ctx context.Context) error {
			return r.Shutdown(ctx)
		},
	})

	return r, nil
}

// ============================================================================
//                              模块定义
// ============================================================================

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("router",
		fx.Provide(ProvideRouter),
	)
}
