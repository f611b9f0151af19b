package blobs

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dep2p/go-weave/pkg/interfaces"
	"github.com/dep2p/go-weave/pkg/types"
)

// 存储键前缀，与文档条目共用同一个引擎实例
var (
	blobKeyPrefix = []byte("blob/")
	tagKeyPrefix  = []byte("tag/")
)

// blobKey 返回内容的存储键
func blobKey(hash types.Hash) []byte {
	return append(append([]byte{}, blobKeyPrefix...), hash.Bytes()...)
}

// tagKey 返回标签的存储键
func tagKey(name []byte) []byte {
	return append(append([]byte{}, tagKeyPrefix...), name...)
}

// ============================================================================
//                              内容存储
// ============================================================================

// Store 内容寻址存储
//
// 内容按摘要落键，相同内容只存一份；标签是指向内容地址的
// 命名引用。跨键的复合操作（删内容连带删标签）经 mu 串行化。
type Store struct {
	mu     sync.Mutex
	engine interfaces.Engine
}

// NewStore 在存储引擎上创建内容存储
func NewStore(engine interfaces.Engine) *Store {
	return &Store{engine: engine}
}

// Put 写入内容，返回内容地址
func (s *Store) Put(data []byte) (types.Hash, error) {
	hash := types.HashBytes(data)
	if err := s.engine.Put(blobKey(hash), data); err != nil {
		return types.EmptyHash, fmt.Errorf("put blob: %w", err)
	}
	return hash, nil
}

// Get 读出完整内容
func (s *Store) Get(hash types.Hash) ([]byte, error) {
	data, err := s.engine.Get(blobKey(hash))
	if err != nil {
		if err == interfaces.ErrKeyNotFound {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("get blob: %w", err)
	}
	return data, nil
}

// Has 检查内容是否存在
func (s *Store) Has(hash types.Hash) (bool, error) {
	return s.engine.Has(blobKey(hash))
}

// Size 返回内容大小
func (s *Store) Size(hash types.Hash) (uint64, error) {
	data, err := s.Get(hash)
	if err != nil {
		return 0, err
	}
	return uint64(len(data)), nil
}

// List 列出全部内容
func (s *Store) List() ([]types.BlobInfo, error) {
	var out []types.BlobInfo
	err := s.engine.Iterate(blobKeyPrefix, func(key, value []byte) error {
		hash, err := types.HashFromBytes(key[len(blobKeyPrefix):])
		if err != nil {
			return fmt.Errorf("corrupt blob key: %w", err)
		}
		out = append(out, types.BlobInfo{Hash: hash, Size: uint64(len(value))})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete 删除内容以及指向它的全部标签
func (s *Store) Delete(hash types.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stale [][]byte
	err := s.engine.Iterate(tagKeyPrefix, func(key, value []byte) error {
		if bytes.Equal(value, hash.Bytes()) {
			stale = append(stale, append([]byte{}, key...))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan tags: %w", err)
	}
	for _, key := range stale {
		if err := s.engine.Delete(key); err != nil {
			return fmt.Errorf("delete tag: %w", err)
		}
	}
	return s.engine.Delete(blobKey(hash))
}

// ============================================================================
//                              标签
// ============================================================================

// SetTag 写入或覆盖标签
func (s *Store) SetTag(name []byte, hash types.Hash) error {
	if len(name) == 0 {
		return ErrEmptyTagName
	}
	return s.engine.Put(tagKey(name), hash.Bytes())
}

// ListTags 按名称字节序列出全部标签
func (s *Store) ListTags() ([]types.TagInfo, error) {
	var out []types.TagInfo
	err := s.engine.Iterate(tagKeyPrefix, func(key, value []byte) error {
		hash, err := types.HashFromBytes(value)
		if err != nil {
			return fmt.Errorf("corrupt tag value: %w", err)
		}
		out = append(out, types.TagInfo{
			Name: append([]byte{}, key[len(tagKeyPrefix):]...),
			Hash: hash,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteTag 删除标签
func (s *Store) DeleteTag(name []byte) error {
	key := tagKey(name)
	ok, err := s.engine.Has(key)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTagNotFound
	}
	return s.engine.Delete(key)
}

// AutoTag 为内容写入一个自动命名的标签
//
// 名称含导入时刻与随机后缀，既可读又不冲突。
func (s *Store) AutoTag(hash types.Hash) ([]byte, error) {
	name := []byte(fmt.Sprintf("auto-%s-%s",
		time.Now().UTC().Format(time.RFC3339Nano),
		uuid.NewString()[:8]))
	if err := s.SetTag(name, hash); err != nil {
		return nil, err
	}
	return name, nil
}
