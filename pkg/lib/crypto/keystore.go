package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/argon2"
)

// ============================================================================
//                              密钥文件格式
// ============================================================================

// 密钥文件格式：
//
//   ┌────────────────────────────────────────────────────────────┐
//   │                    密钥文件                                 │
//   ├────────────────────────────────────────────────────────────┤
//   │  Magic:     "WEAVE-KEY"  (9 bytes)                         │
//   │  Version:   uint8                                          │
//   │  Encrypted: uint8 (0=否, 1=是)                              │
//   │  Data:      32 字节种子或加密数据                            │
//   └────────────────────────────────────────────────────────────┘
//
//   加密数据格式：
//   ┌────────────────────────────────────────────────────────────┐
//   │  Salt:       16 bytes                                      │
//   │  Nonce:      12 bytes                                      │
//   │  Ciphertext: 变长（AES-GCM 加密的种子）                      │
//   └────────────────────────────────────────────────────────────┘

const (
	keyFileMagic   = "WEAVE-KEY"
	keyFileVersion = 1
	keyFileExt     = ".key"

	// 加密参数
	saltSize  = 16
	nonceSize = 12

	// Argon2id 参数
	argon2Time    = 1
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4
	argon2KeyLen  = 32
)

// ============================================================================
//                              Keystore 接口
// ============================================================================

// Keystore 密钥存储接口
//
// 用于持久化节点身份密钥以及文档作者密钥。
type Keystore interface {
	// Has 检查是否存在指定 ID 的密钥
	Has(id string) (bool, error)

	// Put 存储密钥，已存在时返回 ErrKeyExists
	Put(id string, key *SecretKey) error

	// Get 获取密钥，不存在时返回 ErrKeyNotFound
	Get(id string) (*SecretKey, error)

	// Delete 删除密钥
	Delete(id string) error

	// List 列出所有密钥 ID
	List() ([]string, error)
}

// ============================================================================
//                              文件系统密钥存储
// ============================================================================

// FSKeystore 基于文件系统的密钥存储
//
// 每个密钥一个文件（<id>.key），密码非空时种子以
// argon2id + AES-GCM 加密存储。
type FSKeystore struct {
	dir      string
	password []byte
}

var _ Keystore = (*FSKeystore)(nil)

// NewFSKeystore 创建文件系统密钥存储
//
// 参数：
//   - dir: 存储目录（不存在时创建，权限 0700）
//   - password: 加密密码（为空则明文存储）
func NewFSKeystore(dir string, password []byte) (*FSKeystore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("keystore dir: %w", err)
	}
	return &FSKeystore{dir: dir, password: password}, nil
}

// Has 检查是否存在指定 ID 的密钥
func (ks *FSKeystore) Has(id string) (bool, error) {
	_, err := os.Stat(ks.keyPath(id))
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

// Put 存储密钥
func (ks *FSKeystore) Put(id string, key *SecretKey) error {
	exists, err := ks.Has(id)
	if err != nil {
		return err
	}
	if exists {
		return ErrKeyExists
	}

	data, err := ks.encode(key)
	if err != nil {
		return err
	}
	return os.WriteFile(ks.keyPath(id), data, 0600)
}

// Get 获取密钥
func (ks *FSKeystore) Get(id string) (*SecretKey, error) {
	data, err := os.ReadFile(ks.keyPath(id))
	if os.IsNotExist(err) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return ks.decode(data)
}

// Delete 删除密钥
func (ks *FSKeystore) Delete(id string) error {
	err := os.Remove(ks.keyPath(id))
	if os.IsNotExist(err) {
		return ErrKeyNotFound
	}
	return err
}

// List 列出所有密钥 ID
func (ks *FSKeystore) List() ([]string, error) {
	entries, err := os.ReadDir(ks.dir)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == keyFileExt {
			ids = append(ids, entry.Name()[:len(entry.Name())-len(keyFileExt)])
		}
	}
	return ids, nil
}

func (ks *FSKeystore) keyPath(id string) string {
	return filepath.Join(ks.dir, id+keyFileExt)
}

// encode 编码密钥（可选加密）
func (ks *FSKeystore) encode(key *SecretKey) ([]byte, error) {
	seed := key.Seed()

	var buf bytes.Buffer
	buf.WriteString(keyFileMagic)
	buf.WriteByte(keyFileVersion)

	if len(ks.password) > 0 {
		buf.WriteByte(1)
		encrypted, err := encryptData(seed, ks.password)
		if err != nil {
			return nil, err
		}
		buf.Write(encrypted)
	} else {
		buf.WriteByte(0)
		buf.Write(seed)
	}

	return buf.Bytes(), nil
}

// decode 解码密钥
func (ks *FSKeystore) decode(data []byte) (*SecretKey, error) {
	if len(data) < len(keyFileMagic)+2 {
		return nil, ErrInvalidKeyFile
	}
	if string(data[:len(keyFileMagic)]) != keyFileMagic {
		return nil, ErrInvalidKeyFile
	}

	offset := len(keyFileMagic)
	version := data[offset]
	if version != keyFileVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidKeyFile, version)
	}
	offset++

	encrypted := data[offset] == 1
	offset++

	seed := data[offset:]
	if encrypted {
		if len(ks.password) == 0 {
			return nil, ErrInvalidPassword
		}
		var err error
		seed, err = decryptData(seed, ks.password)
		if err != nil {
			return nil, err
		}
	}

	return SecretKeyFromSeed(seed)
}

// ============================================================================
//                              加密辅助函数
// ============================================================================

// encryptData 使用 AES-GCM 加密数据，密钥由 argon2id 从密码派生
func encryptData(plaintext, password []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}

	key := argon2.IDKey(password, salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	// 组装结果：salt || nonce || ciphertext
	result := make([]byte, 0, saltSize+nonceSize+len(ciphertext))
	result = append(result, salt...)
	result = append(result, nonce...)
	result = append(result, ciphertext...)
	return result, nil
}

// decryptData 使用 AES-GCM 解密数据
func decryptData(data, password []byte) ([]byte, error) {
	if len(data) < saltSize+nonceSize {
		return nil, ErrDecryptionFailed
	}

	salt := data[:saltSize]
	nonce := data[saltSize : saltSize+nonceSize]
	ciphertext := data[saltSize+nonceSize:]

	key := argon2.IDKey(password, salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// ============================================================================
//                              内存密钥存储
// ============================================================================

// MemKeystore 内存密钥存储（内存节点与测试用）
type MemKeystore struct {
	mu   sync.RWMutex
	keys map[string]*SecretKey
}

var _ Keystore = (*MemKeystore)(nil)

// NewMemKeystore 创建内存密钥存储
func NewMemKeystore() *MemKeystore {
	return &MemKeystore{
		keys: make(map[string]*SecretKey),
	}
}

// Has 检查是否存在指定 ID 的密钥
func (ks *MemKeystore) Has(id string) (bool, error) {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	_, ok := ks.keys[id]
	return ok, nil
}

// Put 存储密钥
func (ks *MemKeystore) Put(id string, key *SecretKey) error {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	if _, ok := ks.keys[id]; ok {
		return ErrKeyExists
	}
	ks.keys[id] = key
	return nil
}

// Get 获取密钥
func (ks *MemKeystore) Get(id string) (*SecretKey, error) {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	key, ok := ks.keys[id]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return key, nil
}

// Delete 删除密钥
func (ks *MemKeystore) Delete(id string) error {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	if _, ok := ks.keys[id]; !ok {
		return ErrKeyNotFound
	}
	delete(ks.keys, id)
	return nil
}

// List 列出所有密钥 ID
func (ks *MemKeystore) List() ([]string, error) {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	ids := make([]string, 0, len(ks.keys))
	for id := range ks.keys {
		ids = append(ids, id)
	}
	return ids, nil
}
