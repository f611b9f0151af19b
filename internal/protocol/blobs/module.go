package blobs

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-weave/config"
	"github.com/dep2p/go-weave/internal/core/metrics"
	"github.com/dep2p/go-weave/pkg/interfaces"
	"github.com/dep2p/go-weave/pkg/types"
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
	Metrics  *metrics.Metrics

	// Events 提供侧事件通道，未注册回调时缺省为 nil
	Events chan types.BlobProvideEvent `name:"blob_provide_events" optional:"true"`
}

// ============================================================================
//                              服务提供
// ============================================================================

// ProvideStore 在存储引擎上提供内容存储
func ProvideStore(engine interfaces.Engine) *Store {
	return NewStore(engine)
}

// ProvideService 提供内容服务
//
// 关闭由路由器在协议停机时触发。
func ProvideService(input ModuleInput, store *Store) *Service {
	var events chan<- types.BlobProvideEvent
	if input.Events != nil {
		events = input.Events
	}
	return NewService(input.Endpoint, input.Book, store, input.Config, input.Metrics, events)
}

// ============================================================================
//                              模块定义
// ============================================================================

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("blobs",
		fx.Provide(ProvideStore),
		fx.Provide(ProvideService),
		fx.Provide(func(s *Service) interfaces.Blobs { return s }),
	)
}
