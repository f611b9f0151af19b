package ping

import (
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
	Metrics  *metrics.Metrics
}

// ============================================================================
//                              服务提供
// ============================================================================

// ProvideService 提供探测服务
//
// 服务本身无后台任务，关闭由路由器在协议停机时触发。
func ProvideService(input ModuleInput) *Service {
	return NewService(input.Endpoint, input.Metrics)
}

// ============================================================================
//                              模块定义
// ============================================================================

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("ping",
		fx.Provide(ProvideService),
		fx.Provide(func(s *Service) interfaces.Pinger { return s }),
	)
}
