// Package interfaces - Storage 存储引擎接口
//
// 本文件定义 weave 存储引擎的公共接口。
// 持久节点使用 BadgerDB 实现，内存节点使用内存实现。
package interfaces

import "errors"

// ErrKeyNotFound 键不存在
var ErrKeyNotFound = errors.New("storage: key not found")

// Engine 存储引擎基础接口
//
// 提供键值存储的基本操作。blob 内容、标签、文档条目
// 都落在同一个引擎实例上，以键前缀区分。
//
// 线程安全：实现必须保证所有方法的线程安全性。
type Engine interface {
	// Get 获取指定键的值
	//
	// 返回值的副本，调用者可以安全修改。
	// 键不存在时返回 ErrKeyNotFound。
	Get(key []byte) ([]byte, error)

	// Put 设置键值对，键已存在时覆盖旧值
	Put(key, value []byte) error

	// Delete 删除指定键，键不存在时不报错（幂等）
	Delete(key []byte) error

	// Has 检查键是否存在
	Has(key []byte) (bool, error)

	// Iterate 按字节序遍历指定前缀下的全部键值对
	//
	// fn 返回错误时遍历终止并原样返回该错误。
	// 遍历期间传给 fn 的 key/value 只在本次回调内有效。
	Iterate(prefix []byte, fn func(key, value []byte) error) error

	// Close 关闭存储引擎。多次调用是安全的。
	Close() error
}
