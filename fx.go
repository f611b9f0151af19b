package weave

import (
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-weave/config"
	"github.com/dep2p/go-weave/internal/core/addressbook"
	"github.com/dep2p/go-weave/internal/core/endpoint"
	"github.com/dep2p/go-weave/internal/core/identity"
	"github.com/dep2p/go-weave/internal/core/metrics"
	"github.com/dep2p/go-weave/internal/core/router"
	"github.com/dep2p/go-weave/internal/core/storage"
	"github.com/dep2p/go-weave/internal/protocol/blobs"
	"github.com/dep2p/go-weave/internal/protocol/docs"
	"github.com/dep2p/go-weave/internal/protocol/gossip"
	"github.com/dep2p/go-weave/internal/protocol/ping"
	"github.com/dep2p/go-weave/pkg/interfaces"
	"github.com/dep2p/go-weave/pkg/types"
)

// buildApp 构建 fx 应用
//
// 组装全部内部模块。构造是原子的：任何 provider 或 invoke 失败，
// fx.New 返回错误，此时没有绑定 socket、没有后台 goroutine；
// app.Start 失败时 fx 回滚已启动的组件。
//
// 装配顺序（按依赖）：
//  1. Core: Metrics → Identity → Storage → AddressBook → Endpoint
//  2. Protocol: Gossip → Blobs → (Docs) → Ping
//  3. Router: 协议注册表固定后启动接受循环
func buildApp(cfg *config.Config, o *options, node *Node, blobEvents chan types.BlobProvideEvent) (*fx.App, error) {
	// ════════════════════════════════════════════════════════════════════════
	// 1. ALPN 注册表（内建在前，扩展按注册顺序在后）
	// ════════════════════════════════════════════════════════════════════════
	alpns := []string{gossip.ALPN, blobs.ALPN}
	if cfg.Docs.Enabled {
		alpns = append(alpns, docs.ALPN)
	}
	alpns = append(alpns, ping.ALPN)
	for _, reg := range o.protocols {
		alpns = append(alpns, reg.tag)
	}

	// ════════════════════════════════════════════════════════════════════════
	// 2. 核心模块
	// ════════════════════════════════════════════════════════════════════════
	modules := []fx.Option{
		fx.Supply(cfg),

		metrics.Module(),
		identity.Module(),
		storage.Module(),
		addressbook.Module(),

		fx.Provide(fx.Annotate(
			func() []string { return alpns },
			fx.ResultTags(`name:"alpns"`),
		)),
		endpoint.Module(),
	}

	// ════════════════════════════════════════════════════════════════════════
	// 3. 协议模块（docs 按配置加载）
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules,
		gossip.Module(),
		blobs.Module(),
		ping.Module(),
	)
	if cfg.Docs.Enabled {
		modules = append(modules, docs.Module())
	}

	// 提供侧 blob 事件通道（注册了 WithBlobEvents 时才存在）
	if blobEvents != nil {
		modules = append(modules, fx.Provide(fx.Annotate(
			func() chan types.BlobProvideEvent { return blobEvents },
			fx.ResultTags(`name:"blob_provide_events"`),
		)))
	}

	// ════════════════════════════════════════════════════════════════════════
	// 4. 协议注册表与路由器
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules,
		fx.Provide(fx.Annotate(
			buildRegistrations(o),
			fx.ParamTags("", "", "", "", `optional:"true"`),
			fx.ResultTags(`name:"protocol_registrations"`),
		)),
		router.Module(),
	)

	// ════════════════════════════════════════════════════════════════════════
	// 5. Node 组件注入与 fx 配置
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules,
		fx.Invoke(injectNodeComponents(node)),
		// 禁用 fx 日志输出（避免干扰用户日志）
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
	)

	app := fx.New(modules...)
	if err := app.Err(); err != nil {
		return nil, fmt.Errorf("build node: %w", err)
	}
	return app, nil
}

// buildRegistrations 创建协议注册表构造函数
//
// 服务就绪后组装注册表；扩展协议工厂在此时运行（端点已存在、
// 路由器尚未启动）。docs 服务未加载时对应参数为 nil。
func buildRegistrations(o *options) func(interfaces.Endpoint, *gossip.Service, *blobs.Service, *ping.Service, *docs.Service) ([]router.Registration, error) {
	return func(ep interfaces.Endpoint, gs *gossip.Service, bs *blobs.Service, ps *ping.Service, ds *docs.Service) ([]router.Registration, error) {
		regs := []router.Registration{
			{Tag: gossip.ALPN, Handler: gs},
			{Tag: blobs.ALPN, Handler: bs},
		}
		if ds != nil {
			regs = append(regs, router.Registration{Tag: docs.ALPN, Handler: ds})
		}
		regs = append(regs, router.Registration{Tag: ping.ALPN, Handler: ps})

		for _, reg := range o.protocols {
			h, err := reg.creator(ep)
			if err != nil {
				return nil, fmt.Errorf("protocol %s: %w", reg.tag, err)
			}
			if h == nil {
				return nil, fmt.Errorf("protocol %s: nil handler", reg.tag)
			}
			regs = append(regs, router.Registration{Tag: reg.tag, Handler: h})
		}
		return regs, nil
	}
}

// nodeInjectParams Node 组件注入参数
type nodeInjectParams struct {
	fx.In

	Endpoint interfaces.Endpoint
	Book     interfaces.AddressBook
	Gossip   interfaces.Gossip
	Blobs    interfaces.Blobs
	Pinger   interfaces.Pinger
	Metrics  *metrics.Metrics

	// Router 无需保存，列在这里保证它被实例化并挂上生命周期
	Router *router.Router

	// Docs 文档子系统关闭时为 nil
	Docs interfaces.Docs `optional:"true"`
}

// injectNodeComponents 创建 Node 组件注入函数
func injectNodeComponents(node *Node) interface{} {
	return func(params nodeInjectParams) {
		node.ep = params.Endpoint
		node.book = params.Book
		node.gossip = params.Gossip
		node.blobs = params.Blobs
		node.docs = params.Docs
		node.pinger = params.Pinger
		node.metrics = params.Metrics
	}
}
