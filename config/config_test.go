package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewConfig 测试创建默认配置
func TestNewConfig(t *testing.T) {
	cfg := NewConfig()
	require.NotNil(t, cfg)

	// 验证默认配置有效
	err := cfg.Validate()
	assert.NoError(t, err)

	t.Log("✅ NewConfig 测试通过")
}

// TestIdentityConfig 测试身份配置
func TestIdentityConfig(t *testing.T) {
	t.Run("Default", func(t *testing.T) {
		cfg := DefaultIdentityConfig()
		assert.Equal(t, "node", cfg.KeyName)
		assert.Nil(t, cfg.SecretSeed)
	})

	t.Run("Validate_SeedLength", func(t *testing.T) {
		cfg := DefaultIdentityConfig()
		cfg.SecretSeed = make([]byte, 31)
		assert.Error(t, cfg.Validate())

		cfg.SecretSeed = make([]byte, 32)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("Validate_EmptyKeyName", func(t *testing.T) {
		cfg := DefaultIdentityConfig()
		cfg.KeyName = ""
		assert.Error(t, cfg.Validate())
	})

	t.Log("✅ IdentityConfig 测试通过")
}

// TestNetworkConfig 测试网络配置
func TestNetworkConfig(t *testing.T) {
	t.Run("Default", func(t *testing.T) {
		cfg := DefaultNetworkConfig()
		assert.Equal(t, "0.0.0.0:0", cfg.IPv4Addr)
		assert.Equal(t, "[::]:0", cfg.IPv6Addr)
		assert.Equal(t, 6*time.Second, cfg.MaxIdleTimeout.Duration())
		assert.NoError(t, cfg.Validate())
	})

	t.Run("Validate_NoAddrs", func(t *testing.T) {
		cfg := DefaultNetworkConfig()
		cfg.IPv4Addr = ""
		cfg.IPv6Addr = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("Validate_BadAddr", func(t *testing.T) {
		cfg := DefaultNetworkConfig()
		cfg.IPv4Addr = "not-an-address"
		assert.Error(t, cfg.Validate())
	})

	t.Run("Validate_SingleFamily", func(t *testing.T) {
		cfg := DefaultNetworkConfig()
		cfg.IPv6Addr = ""
		assert.NoError(t, cfg.Validate())
	})

	t.Log("✅ NetworkConfig 测试通过")
}

// TestStorageConfig 测试存储配置
func TestStorageConfig(t *testing.T) {
	t.Run("Default_InMemory", func(t *testing.T) {
		cfg := DefaultStorageConfig()
		assert.True(t, cfg.InMemory())
		assert.NoError(t, cfg.Validate())
	})

	t.Run("Paths", func(t *testing.T) {
		cfg := DefaultStorageConfig()
		cfg.DataDir = "/tmp/weave-test"
		assert.False(t, cfg.InMemory())
		assert.Equal(t, "/tmp/weave-test/weave.db", cfg.DBPath())
		assert.Equal(t, "/tmp/weave-test/keys", cfg.KeysPath())
	})

	t.Run("Validate_NegativeGC", func(t *testing.T) {
		cfg := DefaultStorageConfig()
		cfg.GCInterval = Duration(-time.Second)
		assert.Error(t, cfg.Validate())
	})

	t.Log("✅ StorageConfig 测试通过")
}

// TestGossipConfig 测试广播配置
func TestGossipConfig(t *testing.T) {
	cfg := DefaultGossipConfig()
	assert.Equal(t, 128, cfg.SubscriberBuffer)
	assert.Equal(t, 2048, cfg.SeenCacheSize)
	assert.NoError(t, cfg.Validate())

	cfg.SubscriberBuffer = 0
	assert.Error(t, cfg.Validate())

	t.Log("✅ GossipConfig 测试通过")
}

// TestDiscoveryConfig 测试发现配置
func TestDiscoveryConfig(t *testing.T) {
	cfg := DefaultDiscoveryConfig()
	assert.Equal(t, DiscoveryStatic, cfg.Mode)
	assert.NoError(t, cfg.Validate())

	cfg.Mode = "dht"
	assert.Error(t, cfg.Validate())

	t.Log("✅ DiscoveryConfig 测试通过")
}

// TestFromJSON 测试 JSON 解析
func TestFromJSON(t *testing.T) {
	t.Run("PartialOverride", func(t *testing.T) {
		data := []byte(`{
			"network": {"ipv4_addr": "127.0.0.1:4433", "max_idle_timeout": "10s"},
			"docs": {"enabled": true}
		}`)
		cfg, err := FromJSON(data)
		require.NoError(t, err)

		assert.Equal(t, "127.0.0.1:4433", cfg.Network.IPv4Addr)
		assert.Equal(t, 10*time.Second, cfg.Network.MaxIdleTimeout.Duration())
		assert.True(t, cfg.Docs.Enabled)
		// 未覆盖的字段保留默认值
		assert.Equal(t, 128, cfg.Gossip.SubscriberBuffer)
	})

	t.Run("Invalid", func(t *testing.T) {
		_, err := FromJSON([]byte(`{"discovery": {"mode": "dht"}}`))
		assert.Error(t, err)
	})

	t.Run("RoundTrip", func(t *testing.T) {
		cfg := NewConfig()
		cfg.Docs.Enabled = true
		data, err := cfg.ToJSON()
		require.NoError(t, err)

		parsed, err := FromJSON(data)
		require.NoError(t, err)
		assert.Equal(t, cfg.Docs.Enabled, parsed.Docs.Enabled)
		assert.Equal(t, cfg.Network.MaxIdleTimeout, parsed.Network.MaxIdleTimeout)
	})

	t.Log("✅ FromJSON 测试通过")
}

// TestDuration 测试时长解析
func TestDuration(t *testing.T) {
	t.Run("String", func(t *testing.T) {
		var d Duration
		require.NoError(t, d.UnmarshalJSON([]byte(`"1h30m"`)))
		assert.Equal(t, 90*time.Minute, d.Duration())
	})

	t.Run("Nanoseconds", func(t *testing.T) {
		var d Duration
		require.NoError(t, d.UnmarshalJSON([]byte(`3000000000`)))
		assert.Equal(t, 3*time.Second, d.Duration())
	})

	t.Run("Invalid", func(t *testing.T) {
		var d Duration
		assert.Error(t, d.UnmarshalJSON([]byte(`"soon"`)))
		assert.Error(t, d.UnmarshalJSON([]byte(`true`)))
	})

	t.Log("✅ Duration 测试通过")
}
