package docs

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-weave/config"
	"github.com/dep2p/go-weave/internal/core/metrics"
	"github.com/dep2p/go-weave/pkg/interfaces"
	"github.com/dep2p/go-weave/pkg/lib/crypto"
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
	Engine   interfaces.Engine
	Blobs    interfaces.Blobs
	Gossip   interfaces.Gossip
	Keystore crypto.Keystore
	Metrics  *metrics.Metrics
}

// ============================================================================
//                              服务提供
// ============================================================================

// ProvideStore 在存储引擎上提供条目存储
func ProvideStore(engine interfaces.Engine) *Store {
	return NewStore(engine)
}

// ProvideService 提供文档服务
//
// 关闭由路由器在协议停机时触发。
func ProvideService(input ModuleInput, store *Store) *Service {
	return NewService(input.Endpoint, input.Book, store, input.Blobs, input.Gossip, input.Keystore, input.Config, input.Metrics)
}

// ============================================================================
//                              模块定义
// ============================================================================

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("docs",
		fx.Provide(ProvideStore),
		fx.Provide(ProvideService),
		fx.Provide(func(s *Service) interfaces.Docs { return s }),
	)
}
