// Package storage 提供存储引擎实现
//
// 本包实现 pkg/interfaces 中的公共 Engine 接口：
//   - BadgerEngine: 基于 BadgerDB 的持久化引擎，用于持久化节点
//   - MemoryEngine: 进程内引擎，用于内存节点和测试
//
// blob 内容、标签、文档条目共用同一个引擎实例，按键前缀隔离：
//
//	blob/<hash>              blob 内容
//	tag/<name>               标签 → hash
//	doc/<ns>/<author>/<key>  文档条目
//
// # 线程安全
//
// 两种实现的所有方法都是线程安全的。
package storage

import "github.com/dep2p/go-weave/pkg/lib/log"

var logger = log.Logger("core/storage")
