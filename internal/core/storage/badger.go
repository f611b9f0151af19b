package storage

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"

	"github.com/dep2p/go-weave/pkg/interfaces"
	"github.com/dep2p/go-weave/pkg/lib/log"
)

// BadgerEngine BadgerDB 持久化存储引擎
//
// 基于 LSM 树的嵌入式键值存储，单目录单实例。
type BadgerEngine struct {
	db     *badger.DB
	closed atomic.Bool
}

// 确保实现接口
var _ interfaces.Engine = (*BadgerEngine)(nil)

// NewBadgerEngine 在指定目录打开 BadgerDB 数据库
//
// 目录不存在时自动创建。同一目录同时只能被一个进程打开。
func NewBadgerEngine(path string) (*BadgerEngine, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	opts := badger.DefaultOptions(path).
		WithLogger(&badgerLogger{log.Logger("storage/badger")})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}

	return &BadgerEngine{db: db}, nil
}

// Get 获取指定键的值
func (e *BadgerEngine) Get(key []byte) ([]byte, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	if len(key) == 0 {
		return nil, ErrEmptyKey
	}

	var value []byte
	err := e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return interfaces.ErrKeyNotFound
			}
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Put 设置键值对
func (e *BadgerEngine) Put(key, value []byte) error {
	if e.closed.Load() {
		return ErrClosed
	}
	if len(key) == 0 {
		return ErrEmptyKey
	}

	return e.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

// Delete 删除指定键
func (e *BadgerEngine) Delete(key []byte) error {
	if e.closed.Load() {
		return ErrClosed
	}
	if len(key) == 0 {
		return ErrEmptyKey
	}

	// badger 对不存在的键删除不报错，天然幂等
	return e.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

// Has 检查键是否存在
func (e *BadgerEngine) Has(key []byte) (bool, error) {
	if e.closed.Load() {
		return false, ErrClosed
	}
	if len(key) == 0 {
		return false, ErrEmptyKey
	}

	var exists bool
	err := e.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			exists = true
			return nil
		}
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	})
	return exists, err
}

// Iterate 按字节序遍历指定前缀下的全部键值对
func (e *BadgerEngine) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	if e.closed.Load() {
		return ErrClosed
	}

	return e.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := item.Key()
			if err := item.Value(func(value []byte) error {
				return fn(key, value)
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close 关闭存储引擎。多次调用是安全的。
func (e *BadgerEngine) Close() error {
	if e.closed.Swap(true) {
		return nil
	}
	return e.db.Close()
}

// badgerLogger 适配器：把 badger 的 printf 风格日志转到组件日志
type badgerLogger struct {
	l *log.LazyLogger
}

func (b *badgerLogger) Errorf(format string, args ...interface{}) {
	b.l.Error(fmt.Sprintf(format, args...))
}

func (b *badgerLogger) Warningf(format string, args ...interface{}) {
	b.l.Warn(fmt.Sprintf(format, args...))
}

func (b *badgerLogger) Infof(format string, args ...interface{}) {
	// badger 的 info 输出偏啰嗦，降级为 debug
	b.l.Debug(fmt.Sprintf(format, args...))
}

func (b *badgerLogger) Debugf(format string, args ...interface{}) {
	b.l.Debug(fmt.Sprintf(format, args...))
}
