package storage

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"github.com/dep2p/go-weave/config"
	"github.com/dep2p/go-weave/pkg/interfaces"
)

// ============================================================================
//                              模块输入依赖
// ============================================================================

// ModuleInput 定义模块输入依赖
type ModuleInput struct {
	fx.In

	Config *config.Config
	LC     fx.Lifecycle
}

// ============================================================================
//                              服务提供
// ============================================================================

// ProvideEngine 按配置提供存储引擎
//
// DataDir 为空时使用内存引擎，否则打开 BadgerDB。
// 引擎在节点停止时随 fx 生命周期关闭。
func ProvideEngine(input ModuleInput) (interfaces.Engine, error) {
	var eng interfaces.Engine

	if input.Config.Storage.InMemory() {
		eng = NewMemoryEngine()
		logger.Debug("使用内存存储引擎")
	} else {
		be, err := NewBadgerEngine(input.Config.Storage.DBPath())
		if err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
		eng = be
		logger.Info("打开持久化存储引擎", "path", input.Config.Storage.DBPath())
	}

	input.LC.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return eng.Close()
		},
	})

	return eng, nil
}

// ============================================================================
//                              模块定义
// ============================================================================

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("storage",
		fx.Provide(ProvideEngine),
	)
}
