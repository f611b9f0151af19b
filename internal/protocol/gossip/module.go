package gossip

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-weave/config"
	"github.com/dep2p/go-weave/internal/core/metrics"
	"github.com/dep2p/go-weave/pkg/interfaces"
)

// ============================================================================
//                              模块输入依赖
// ============================================================================

// ModuleInput 定义模块输入依赖
type ModuleInput struct {
	fx.In

	Config   *config.Config
	Endpoint interfaces.Endpoint
	Book     interfaces.AddressBook
	Metrics  *metrics.Metrics

	LC fx.Lifecycle
}

// ============================================================================
//                              服务提供
// ============================================================================

// ProvideService 提供主题覆盖网服务
//
// 关闭由路由器在协议停机时触发；这里的 OnStop 只兜底处理
// 路由器未接管的情形。
func ProvideService(input ModuleInput) (*Service, error) {
	svc, err := NewService(input.Endpoint, input.Book, input.Config, input.Metrics)
	if err != nil {
		return nil, err
	}

	input.LC.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return svc.Shutdown(ctx)
		},
	})

	return svc, nil
}

// ============================================================================
//                              模块定义
// ============================================================================

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("gossip",
		fx.Provide(ProvideService),
		fx.Provide(func(s *Service) interfaces.Gossip { return s }),
	)
}
