package weave

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dep2p/go-weave/config"
	"github.com/dep2p/go-weave/pkg/interfaces"
)

// noopCreator 测试用协议工厂
func noopCreator(interfaces.Endpoint) (interfaces.ProtocolHandler, error) {
	return noopHandler{}, nil
}

type noopHandler struct{}

func (noopHandler) Accept(context.Context, interfaces.Connection) error { return nil }
func (noopHandler) Shutdown(context.Context) error                      { return nil }

// TestWithSecretKey 测试密钥种子长度校验
func TestWithSecretKey(t *testing.T) {
	if _, err := applyOptions([]Option{WithSecretKey(make([]byte, 32))}); err != nil {
		t.Fatalf("32-byte seed rejected: %v", err)
	}

	for _, n := range []int{0, 16, 31, 33, 64} {
		if _, err := applyOptions([]Option{WithSecretKey(make([]byte, n))}); !errors.Is(err, ErrInvalidSecretKey) {
			t.Errorf("seed length %d: error = %v, want ErrInvalidSecretKey", n, err)
		}
	}
}

// TestWithSecretKey_Copies 测试种子被拷贝而非引用
func TestWithSecretKey_Copies(t *testing.T) {
	seed := make([]byte, 32)
	seed[0] = 0xAA

	o, err := applyOptions([]Option{WithSecretKey(seed)})
	if err != nil {
		t.Fatal(err)
	}

	seed[0] = 0xBB
	if o.secretKey[0] != 0xAA {
		t.Error("secret seed should be copied at option time")
	}
}

// TestWithGCInterval 测试垃圾回收间隔校验
func TestWithGCInterval(t *testing.T) {
	if _, err := applyOptions([]Option{WithGCInterval(time.Hour)}); err != nil {
		t.Errorf("positive interval rejected: %v", err)
	}
	if _, err := applyOptions([]Option{WithGCInterval(0)}); err != nil {
		t.Errorf("zero interval rejected: %v", err)
	}
	if _, err := applyOptions([]Option{WithGCInterval(-time.Second)}); err == nil {
		t.Error("negative interval should fail")
	}
}

// TestWithProtocol 测试扩展协议注册校验
func TestWithProtocol(t *testing.T) {
	// 正常注册两个不同标签
	o, err := applyOptions([]Option{
		WithProtocol("myapp/echo/1", noopCreator),
		WithProtocol("myapp/chat/1", noopCreator),
	})
	if err != nil {
		t.Fatalf("applyOptions() error: %v", err)
	}
	if len(o.protocols) != 2 {
		t.Fatalf("protocols count = %d, want 2", len(o.protocols))
	}
	// 注册顺序保持
	if o.protocols[0].tag != "myapp/echo/1" || o.protocols[1].tag != "myapp/chat/1" {
		t.Errorf("registration order not preserved: %v", o.protocols)
	}

	// 空标签
	if _, err := applyOptions([]Option{WithProtocol("", noopCreator)}); err == nil {
		t.Error("empty tag should fail")
	}

	// nil 工厂
	if _, err := applyOptions([]Option{WithProtocol("x/1", nil)}); err == nil {
		t.Error("nil creator should fail")
	}

	// 扩展之间重复
	_, err = applyOptions([]Option{
		WithProtocol("myapp/echo/1", noopCreator),
		WithProtocol("myapp/echo/1", noopCreator),
	})
	if !errors.Is(err, ErrDuplicateProtocol) {
		t.Errorf("duplicate tag: error = %v, want ErrDuplicateProtocol", err)
	}
}

// TestValidateProtocols_BuiltinClash 测试扩展标签与内建协议冲突
func TestValidateProtocols_BuiltinClash(t *testing.T) {
	tests := []struct {
		name     string
		tag      string
		docs     bool
		wantFail bool
	}{
		{name: "gossip alpn", tag: "weave/gossip/0", wantFail: true},
		{name: "blobs alpn", tag: "weave/blobs/0", wantFail: true},
		{name: "ping alpn", tag: "weave/ping/0", wantFail: true},
		{name: "docs alpn with docs on", tag: "weave/docs/0", docs: true, wantFail: true},
		{name: "docs alpn with docs off", tag: "weave/docs/0", docs: false, wantFail: false},
		{name: "free tag", tag: "myapp/echo/1", wantFail: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &options{protocols: []protocolReg{{tag: tt.tag, creator: noopCreator}}}
			err := validateProtocols(o, tt.docs)
			if tt.wantFail && !errors.Is(err, ErrDuplicateProtocol) {
				t.Errorf("error = %v, want ErrDuplicateProtocol", err)
			}
			if !tt.wantFail && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

// TestWithDiscovery 测试发现模式校验
func TestWithDiscovery(t *testing.T) {
	for _, mode := range []Discovery{DiscoveryStatic, DiscoveryNone} {
		if _, err := applyOptions([]Option{WithDiscovery(mode)}); err != nil {
			t.Errorf("WithDiscovery(%d) error: %v", mode, err)
		}
	}
	if _, err := applyOptions([]Option{WithDiscovery(Discovery(77))}); err == nil {
		t.Error("unknown discovery mode should fail")
	}
}

// TestWithBlobEvents_Nil 测试 nil 回调被拒绝
func TestWithBlobEvents_Nil(t *testing.T) {
	if _, err := applyOptions([]Option{WithBlobEvents(nil)}); err == nil {
		t.Error("WithBlobEvents(nil) should fail")
	}
}

// TestBuildConfig 测试选项到配置的映射
func TestBuildConfig(t *testing.T) {
	o, err := applyOptions([]Option{
		WithIPv4Addr("127.0.0.1:7746"),
		WithIPv6Addr(""),
		WithDocs(),
		WithDiscovery(DiscoveryNone),
		WithGCInterval(30 * time.Minute),
	})
	if err != nil {
		t.Fatal(err)
	}

	cfg, err := buildConfig(o, "/tmp/weave-test")
	if err != nil {
		t.Fatalf("buildConfig() error: %v", err)
	}

	if cfg.Network.IPv4Addr != "127.0.0.1:7746" {
		t.Errorf("IPv4Addr = %q", cfg.Network.IPv4Addr)
	}
	if cfg.Network.IPv6Addr != "" {
		t.Errorf("IPv6Addr = %q, want empty", cfg.Network.IPv6Addr)
	}
	if !cfg.Docs.Enabled {
		t.Error("Docs.Enabled should be true")
	}
	if cfg.Discovery.Mode != config.DiscoveryNone {
		t.Errorf("Discovery.Mode = %v", cfg.Discovery.Mode)
	}
	if cfg.Storage.DataDir != "/tmp/weave-test" {
		t.Errorf("DataDir = %q", cfg.Storage.DataDir)
	}
	if time.Duration(cfg.Storage.GCInterval) != 30*time.Minute {
		t.Errorf("GCInterval = %v", cfg.Storage.GCInterval)
	}
}

// TestBuildConfig_Defaults 测试无选项时保持默认配置
func TestBuildConfig_Defaults(t *testing.T) {
	o, err := applyOptions(nil)
	if err != nil {
		t.Fatal(err)
	}

	cfg, err := buildConfig(o, "")
	if err != nil {
		t.Fatalf("buildConfig() error: %v", err)
	}

	def := config.NewConfig()
	if cfg.Network.IPv4Addr != def.Network.IPv4Addr {
		t.Errorf("IPv4Addr = %q, want default %q", cfg.Network.IPv4Addr, def.Network.IPv4Addr)
	}
	if cfg.Docs.Enabled {
		t.Error("docs should default to disabled")
	}
	if cfg.Storage.DataDir != "" {
		t.Errorf("DataDir = %q, want empty (memory)", cfg.Storage.DataDir)
	}
}

// TestBuildConfig_NoListenAddrs 测试两个地址族都关闭被拒绝
func TestBuildConfig_NoListenAddrs(t *testing.T) {
	o, err := applyOptions([]Option{WithIPv4Addr(""), WithIPv6Addr("")})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := buildConfig(o, ""); err == nil {
		t.Error("config with no listen addrs should fail validation")
	}
}

// TestBuildConfig_SecretSeed 测试种子进入配置
func TestBuildConfig_SecretSeed(t *testing.T) {
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(i)
	}

	o, err := applyOptions([]Option{WithSecretKey(seed)})
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := buildConfig(o, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Identity.SecretSeed) != 32 {
		t.Fatalf("SecretSeed length = %d", len(cfg.Identity.SecretSeed))
	}
}
