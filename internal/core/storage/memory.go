package storage

import (
	"sort"
	"strings"
	"sync"

	"github.com/dep2p/go-weave/pkg/interfaces"
)

// MemoryEngine 进程内存储引擎
//
// 数据随进程消失，供内存节点和测试使用。
type MemoryEngine struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// 确保实现接口
var _ interfaces.Engine = (*MemoryEngine)(nil)

// NewMemoryEngine 创建内存存储引擎
func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{
		data: make(map[string][]byte),
	}
}

// Get 获取指定键的值
func (e *MemoryEngine) Get(key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, ErrEmptyKey
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, ErrClosed
	}

	value, ok := e.data[string(key)]
	if !ok {
		return nil, interfaces.ErrKeyNotFound
	}

	cp := make([]byte, len(value))
	copy(cp, value)
	return cp, nil
}

// Put 设置键值对
func (e *MemoryEngine) Put(key, value []byte) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}

	cp := make([]byte, len(value))
	copy(cp, value)
	e.data[string(key)] = cp
	return nil
}

// Delete 删除指定键，不存在时不报错
func (e *MemoryEngine) Delete(key []byte) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}

	delete(e.data, string(key))
	return nil
}

// Has 检查键是否存在
func (e *MemoryEngine) Has(key []byte) (bool, error) {
	if len(key) == 0 {
		return false, ErrEmptyKey
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return false, ErrClosed
	}

	_, ok := e.data[string(key)]
	return ok, nil
}

// Iterate 按字节序遍历指定前缀下的全部键值对
//
// 遍历基于加锁时刻的键快照，回调中允许再调用引擎方法。
func (e *MemoryEngine) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return ErrClosed
	}

	p := string(prefix)
	keys := make([]string, 0, len(e.data))
	for k := range e.data {
		if strings.HasPrefix(k, p) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	snapshot := make([][]byte, len(keys))
	for i, k := range keys {
		v := e.data[k]
		cp := make([]byte, len(v))
		copy(cp, v)
		snapshot[i] = cp
	}
	e.mu.RUnlock()

	for i, k := range keys {
		if err := fn([]byte(k), snapshot[i]); err != nil {
			return err
		}
	}
	return nil
}

// Close 关闭存储引擎。多次调用是安全的。
func (e *MemoryEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.data = nil
	return nil
}
