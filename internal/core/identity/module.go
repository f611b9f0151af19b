package identity

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-weave/config"
	"github.com/dep2p/go-weave/pkg/lib/crypto"
)

// ============================================================================
//                              模块输入依赖
// ============================================================================

// ModuleInput 定义模块输入依赖
type ModuleInput struct {
	fx.In

	Config *config.Config
}

// ============================================================================
//                              模块输出服务
// ============================================================================

// ModuleOutput 定义模块输出服务
type ModuleOutput struct {
	fx.Out

	Identity *Identity
	Keystore crypto.Keystore
}

// ============================================================================
//                              服务提供
// ============================================================================

// ProvideServices 提供模块服务
func ProvideServices(input ModuleInput) (ModuleOutput, error) {
	ks, err := OpenKeystore(input.Config)
	if err != nil {
		return ModuleOutput{}, err
	}

	id, err := Load(input.Config, ks)
	if err != nil {
		return ModuleOutput{}, err
	}

	return ModuleOutput{
		Identity: id,
		Keystore: ks,
	}, nil
}

// ============================================================================
//                              模块定义
// ============================================================================

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("identity",
		fx.Provide(ProvideServices),
	)
}
