package endpoint

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-weave/config"
	"github.com/dep2p/go-weave/internal/core/identity"
	"github.com/dep2p/go-weave/pkg/interfaces"
)

// ============================================================================
//                              模块输入依赖
// ============================================================================

// ModuleInput 定义模块输入依赖
type ModuleInput struct {
	fx.In

	Config   *config.Config
	Identity *identity.Identity
	Book     interfaces.AddressBook

	// ALPNs 全部已注册的协议标签（内置 + 扩展）
	ALPNs []string `name:"alpns"`

	LC fx.Lifecycle
}

// ============================================================================
//                              服务提供
// ============================================================================

// ProvideEndpoint 提供网络端点
//
// 端点随 fx 生命周期启动和关闭：OnStart 绑定 socket，
// OnStop 中断全部连接。
func ProvideEndpoint(input ModuleInput) (interfaces.Endpoint, error) {
	ep, err := New(input.Config, input.Identity, input.Book, input.ALPNs)
	if err != nil {
		return nil, err
	}

	input.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return ep.Start(ctx)
		},
		OnStop: func(_ context.Context) error {
			return ep.Close()
		},
	})

	return ep, nil
}

// ============================================================================
//                              模块定义
// ============================================================================

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("endpoint",
		fx.Provide(ProvideEndpoint),
	)
}
