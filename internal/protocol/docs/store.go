package docs

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"lukechampine.com/blake3"

	"github.com/dep2p/go-weave/internal/wire"
	"github.com/dep2p/go-weave/pkg/interfaces"
	"github.com/dep2p/go-weave/pkg/types"
)

// 存储键前缀，与 blob 内容共用同一个引擎实例
var (
	nsKeyPrefix    = []byte("docns/")
	entryKeyPrefix = []byte("doce/")
)

// nsKey 返回命名空间标记的存储键
func nsKey(ns types.NamespaceID) []byte {
	return append(append([]byte{}, nsKeyPrefix...), ns.Bytes()...)
}

// entryKey 返回条目的存储键
//
// (author, key) 压缩成定长摘要，保证键可直接定位且无歧义。
func entryKey(ns types.NamespaceID, author, key []byte) []byte {
	h := blake3.New(32, nil)
	h.Write(author)
	h.Write([]byte{0})
	h.Write(key)
	id := h.Sum(nil)

	out := make([]byte, 0, len(entryKeyPrefix)+32+32)
	out = append(out, entryKeyPrefix...)
	out = append(out, ns.Bytes()...)
	out = append(out, id...)
	return out
}

// entryPrefix 返回命名空间下全部条目的键前缀
func entryPrefix(ns types.NamespaceID) []byte {
	return append(append([]byte{}, entryKeyPrefix...), ns.Bytes()...)
}

// ============================================================================
//                              条目存储
// ============================================================================

// Store 文档条目存储
//
// 条目记录按 (namespace, author, key) 落键，值为 CBOR 编码的
// entryRecord。合并走 last-writer-wins，读改写经 mu 串行化。
type Store struct {
	mu     sync.Mutex
	engine interfaces.Engine
}

// NewStore 在存储引擎上创建文档存储
func NewStore(engine interfaces.Engine) *Store {
	return &Store{engine: engine}
}

// ============================================================================
//                              命名空间
// ============================================================================

// CreateNamespace 登记命名空间。幂等。
func (s *Store) CreateNamespace(ns types.NamespaceID) error {
	return s.engine.Put(nsKey(ns), []byte{})
}

// HasNamespace 检查命名空间是否已登记
func (s *Store) HasNamespace(ns types.NamespaceID) (bool, error) {
	return s.engine.Has(nsKey(ns))
}

// ListNamespaces 列出全部命名空间
func (s *Store) ListNamespaces() ([]types.NamespaceID, error) {
	var out []types.NamespaceID
	err := s.engine.Iterate(nsKeyPrefix, func(key, _ []byte) error {
		ns, err := types.NamespaceIDFromBytes(key[len(nsKeyPrefix):])
		if err != nil {
			return fmt.Errorf("corrupt namespace key: %w", err)
		}
		out = append(out, ns)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DropNamespace 删除命名空间及其全部条目
func (s *Store) DropNamespace(ns types.NamespaceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys [][]byte
	err := s.engine.Iterate(entryPrefix(ns), func(key, _ []byte) error {
		keys = append(keys, append([]byte{}, key...))
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan entries: %w", err)
	}
	for _, key := range keys {
		if err := s.engine.Delete(key); err != nil {
			return fmt.Errorf("delete entry: %w", err)
		}
	}
	return s.engine.Delete(nsKey(ns))
}

// ============================================================================
//                              条目
// ============================================================================

// GetRecord 读取条目记录，不存在时返回 (nil, nil)
func (s *Store) GetRecord(ns types.NamespaceID, author, key []byte) (*entryRecord, error) {
	data, err := s.engine.Get(entryKey(ns, author, key))
	if err != nil {
		if err == interfaces.ErrKeyNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get entry: %w", err)
	}
	var rec entryRecord
	if err := wire.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode entry: %w", err)
	}
	return &rec, nil
}

// ApplyRecord 按 last-writer-wins 合并一条记录
//
// 返回记录是否生效。已有条目更新（或同为最新）时记录被丢弃。
func (s *Store) ApplyRecord(ns types.NamespaceID, rec *entryRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.GetRecord(ns, rec.Author, rec.Key)
	if err != nil {
		return false, err
	}
	if existing != nil {
		incoming, err := recordToEntry(ns, rec)
		if err != nil {
			return false, err
		}
		current, err := recordToEntry(ns, existing)
		if err != nil {
			return false, err
		}
		if !incoming.Newer(current) {
			return false, nil
		}
	}

	data, err := wire.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("encode entry: %w", err)
	}
	if err := s.engine.Put(entryKey(ns, rec.Author, rec.Key), data); err != nil {
		return false, fmt.Errorf("put entry: %w", err)
	}
	return true, nil
}

// ListRecords 返回命名空间下的全部记录（按 key、author 排序）
func (s *Store) ListRecords(ns types.NamespaceID) ([]*entryRecord, error) {
	var out []*entryRecord
	err := s.engine.Iterate(entryPrefix(ns), func(_, value []byte) error {
		var rec entryRecord
		if err := wire.Unmarshal(value, &rec); err != nil {
			return fmt.Errorf("decode entry: %w", err)
		}
		out = append(out, &rec)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if c := bytes.Compare(out[i].Key, out[j].Key); c != 0 {
			return c < 0
		}
		return bytes.Compare(out[i].Author, out[j].Author) < 0
	})
	return out, nil
}

// ============================================================================
//                              记录转换
// ============================================================================

// recordToEntry 把存储记录转换为公开条目
func recordToEntry(ns types.NamespaceID, rec *entryRecord) (*types.Entry, error) {
	author, err := types.AuthorIDFromBytes(rec.Author)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	hash, err := types.HashFromBytes(rec.Hash)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	return &types.Entry{
		Namespace: ns,
		Author:    author,
		Key:       append([]byte{}, rec.Key...),
		Hash:      hash,
		Len:       rec.Len,
		Timestamp: rec.Timestamp,
	}, nil
}
