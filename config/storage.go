package config

import (
	"fmt"
	"path/filepath"
	"time"
)

// StorageConfig 存储配置
//
// DataDir 为空时使用内存引擎，节点数据随进程消失；非空时使用
// BadgerDB 持久化存储，密钥库与数据库都放在该目录下。
//
// 数据目录结构：
//
//	${DataDir}/
//	├── weave.db/           # BadgerDB 主数据库（blobs、docs、tags）
//	│   ├── 000001.vlog
//	│   ├── 000001.sst
//	│   └── MANIFEST
//	└── keys/               # 节点密钥与文档作者密钥
//	    └── node.key
type StorageConfig struct {
	// DataDir 数据目录路径
	// 为空表示内存存储
	DataDir string `json:"data_dir,omitempty"`

	// GCInterval 垃圾回收间隔
	//
	// 当前版本不执行周期回收，该字段仅被记录，
	// 作为未来自动清理未打标签内容的开关保留。
	GCInterval Duration `json:"gc_interval,omitempty"`
}

// DefaultStorageConfig 返回默认的存储配置
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		DataDir:    "",
		GCInterval: Duration(500 * time.Millisecond),
	}
}

// Validate 验证存储配置的有效性
func (c StorageConfig) Validate() error {
	if c.GCInterval < 0 {
		return fmt.Errorf("gc interval cannot be negative")
	}
	return nil
}

// InMemory 报告是否使用内存引擎
func (c StorageConfig) InMemory() bool {
	return c.DataDir == ""
}

// DBPath 返回 BadgerDB 数据库路径
func (c StorageConfig) DBPath() string {
	return filepath.Join(c.DataDir, "weave.db")
}

// KeysPath 返回密钥库目录路径
func (c StorageConfig) KeysPath() string {
	return filepath.Join(c.DataDir, "keys")
}
