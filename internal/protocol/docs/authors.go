package docs

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/dep2p/go-weave/pkg/interfaces"
	"github.com/dep2p/go-weave/pkg/lib/crypto"
	"github.com/dep2p/go-weave/pkg/types"
)

// authorKeyPrefix 密钥库中作者密钥的名称前缀
const authorKeyPrefix = "author-"

// authorManager 文档作者管理
//
// 作者私钥与节点身份共用一个密钥库；默认作者存于配置指定的
// 名称下，其余作者以公钥命名。
type authorManager struct {
	mu      sync.Mutex
	ks      crypto.Keystore
	defName string
	svc     *Service
}

var _ interfaces.Authors = (*authorManager)(nil)

func newAuthorManager(ks crypto.Keystore, defName string, svc *Service) *authorManager {
	return &authorManager{ks: ks, defName: defName, svc: svc}
}

// authorID 从密钥导出作者标识
func authorID(key *crypto.SecretKey) (types.AuthorID, error) {
	return types.AuthorIDFromBytes(key.Public().Raw())
}

// keyName 返回作者密钥在密钥库中的名称
func keyName(id types.AuthorID) string {
	return authorKeyPrefix + id.String()
}

// Create 新建作者
func (a *authorManager) Create(_ context.Context) (types.AuthorID, error) {
	if a.svc.isClosed() {
		return types.EmptyAuthorID, ErrClosed
	}

	key, err := crypto.GenerateSecretKey()
	if err != nil {
		return types.EmptyAuthorID, fmt.Errorf("generate author key: %w", err)
	}
	id, err := authorID(key)
	if err != nil {
		return types.EmptyAuthorID, err
	}
	if err := a.ks.Put(keyName(id), key); err != nil {
		return types.EmptyAuthorID, fmt.Errorf("store author key: %w", err)
	}

	logger.Debug("新建作者", "author", id.ShortString())
	return id, nil
}

// Default 返回默认作者，首次调用时创建
func (a *authorManager) Default(_ context.Context) (types.AuthorID, error) {
	if a.svc.isClosed() {
		return types.EmptyAuthorID, ErrClosed
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	ok, err := a.ks.Has(a.defName)
	if err != nil {
		return types.EmptyAuthorID, err
	}
	if ok {
		key, err := a.ks.Get(a.defName)
		if err != nil {
			return types.EmptyAuthorID, err
		}
		return authorID(key)
	}

	key, err := crypto.GenerateSecretKey()
	if err != nil {
		return types.EmptyAuthorID, fmt.Errorf("generate author key: %w", err)
	}
	if err := a.ks.Put(a.defName, key); err != nil {
		return types.EmptyAuthorID, fmt.Errorf("store author key: %w", err)
	}

	id, err := authorID(key)
	if err != nil {
		return types.EmptyAuthorID, err
	}
	logger.Debug("创建默认作者", "author", id.ShortString())
	return id, nil
}

// List 列出全部作者
func (a *authorManager) List(_ context.Context) ([]types.AuthorID, error) {
	if a.svc.isClosed() {
		return nil, ErrClosed
	}

	names, err := a.ks.List()
	if err != nil {
		return nil, err
	}

	seen := make(map[types.AuthorID]struct{})
	var out []types.AuthorID
	for _, name := range names {
		if !strings.HasPrefix(name, authorKeyPrefix) {
			continue
		}
		key, err := a.ks.Get(name)
		if err != nil {
			return nil, err
		}
		id, err := authorID(key)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

// Delete 删除作者私钥
//
// 默认作者承担无显式作者时的写入，不允许删除。
func (a *authorManager) Delete(_ context.Context, id types.AuthorID) error {
	if a.svc.isClosed() {
		return ErrClosed
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if ok, err := a.ks.Has(a.defName); err != nil {
		return err
	} else if ok {
		key, err := a.ks.Get(a.defName)
		if err != nil {
			return err
		}
		defID, err := authorID(key)
		if err != nil {
			return err
		}
		if defID == id {
			return ErrDefaultAuthor
		}
	}

	name := keyName(id)
	ok, err := a.ks.Has(name)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAuthorNotFound
	}
	return a.ks.Delete(name)
}

// secretFor 取出作者私钥用于签名
func (a *authorManager) secretFor(id types.AuthorID) (*crypto.SecretKey, error) {
	name := keyName(id)
	if ok, err := a.ks.Has(name); err != nil {
		return nil, err
	} else if ok {
		return a.ks.Get(name)
	}

	// 默认作者存于独立名称下
	if ok, err := a.ks.Has(a.defName); err != nil {
		return nil, err
	} else if ok {
		key, err := a.ks.Get(a.defName)
		if err != nil {
			return nil, err
		}
		defID, err := authorID(key)
		if err != nil {
			return nil, err
		}
		if defID == id {
			return key, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrAuthorNotFound, id.ShortString())
}
