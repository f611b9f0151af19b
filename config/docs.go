package config

// DocsConfig 文档同步配置
//
// 文档子系统默认关闭，启用后节点会注册文档同步协议，
// 并为每个打开的命名空间加入对应的广播主题。
type DocsConfig struct {
	// Enabled 是否启用文档子系统
	Enabled bool `json:"enabled,omitempty"`

	// DefaultAuthorKey 密钥库中默认作者密钥的名称
	DefaultAuthorKey string `json:"default_author_key,omitempty"`
}

// DefaultDocsConfig 返回默认文档配置
func DefaultDocsConfig() DocsConfig {
	return DocsConfig{
		Enabled:          false,
		DefaultAuthorKey: "author-default",
	}
}
