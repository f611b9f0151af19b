package types

import (
	"crypto/rand"
	"errors"

	"github.com/mr-tron/base58"
)

// ============================================================================
//                              NamespaceID - 文档标识
// ============================================================================

// NamespaceID 文档（命名空间）标识符，32 字节
type NamespaceID [32]byte

// EmptyNamespaceID 空文档标识
var EmptyNamespaceID NamespaceID

// ErrInvalidNamespaceID 无效的文档标识错误
var ErrInvalidNamespaceID = errors.New("invalid namespace ID: must be 32 bytes base58")

// NewNamespaceID 生成随机文档标识
func NewNamespaceID() NamespaceID {
	var id NamespaceID
	if _, err := rand.Read(id[:]); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return id
}

// NamespaceIDFromBytes 从字节切片创建 NamespaceID
func NamespaceIDFromBytes(b []byte) (NamespaceID, error) {
	if len(b) != 32 {
		return EmptyNamespaceID, ErrInvalidNamespaceID
	}
	var id NamespaceID
	copy(id[:], b)
	return id, nil
}

// ParseNamespaceID 从 Base58 字符串解析 NamespaceID
func ParseNamespaceID(s string) (NamespaceID, error) {
	b, err := base58.Decode(s)
	if err != nil || len(b) != 32 {
		return EmptyNamespaceID, ErrInvalidNamespaceID
	}
	var id NamespaceID
	copy(id[:], b)
	return id, nil
}

// String 返回 NamespaceID 的 Base58 字符串表示
func (id NamespaceID) String() string {
	return base58.Encode(id[:])
}

// ShortString 返回短字符串表示（日志用）
func (id NamespaceID) ShortString() string {
	s := id.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

// Bytes 返回字节切片
func (id NamespaceID) Bytes() []byte {
	return id[:]
}

// IsEmpty 检查是否为空
func (id NamespaceID) IsEmpty() bool {
	return id == EmptyNamespaceID
}

// ============================================================================
//                              AuthorID - 作者标识
// ============================================================================

// AuthorID 文档作者标识符（作者公钥，32 字节）
type AuthorID [32]byte

// EmptyAuthorID 空作者标识
var EmptyAuthorID AuthorID

// ErrInvalidAuthorID 无效的作者标识错误
var ErrInvalidAuthorID = errors.New("invalid author ID: must be 32 bytes base58")

// AuthorIDFromBytes 从字节切片创建 AuthorID
func AuthorIDFromBytes(b []byte) (AuthorID, error) {
	if len(b) != 32 {
		return EmptyAuthorID, ErrInvalidAuthorID
	}
	var id AuthorID
	copy(id[:], b)
	return id, nil
}

// ParseAuthorID 从 Base58 字符串解析 AuthorID
func ParseAuthorID(s string) (AuthorID, error) {
	b, err := base58.Decode(s)
	if err != nil || len(b) != 32 {
		return EmptyAuthorID, ErrInvalidAuthorID
	}
	var id AuthorID
	copy(id[:], b)
	return id, nil
}

// String 返回 AuthorID 的 Base58 字符串表示
func (id AuthorID) String() string {
	return base58.Encode(id[:])
}

// ShortString 返回短字符串表示（日志用）
func (id AuthorID) ShortString() string {
	s := id.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

// Bytes 返回字节切片
func (id AuthorID) Bytes() []byte {
	return id[:]
}

// IsEmpty 检查是否为空
func (id AuthorID) IsEmpty() bool {
	return id == EmptyAuthorID
}

// ============================================================================
//                              Entry - 文档条目
// ============================================================================

// Entry 文档条目
//
// (Namespace, Author, Key) 三元组唯一确定一个条目；
// 值不内联存储，而是以内容地址 Hash 引用 blob。
// 冲突解决采用 last-writer-wins：时间戳大者胜，
// 时间戳相同时按作者字节序比较。
type Entry struct {
	// Namespace 所属文档
	Namespace NamespaceID

	// Author 写入者
	Author AuthorID

	// Key 条目键（任意字节串）
	Key []byte

	// Hash 值的内容地址
	Hash Hash

	// Len 值的大小（字节）
	Len uint64

	// Timestamp 写入时间戳（Unix 微秒）
	Timestamp uint64
}

// Newer 判断本条目是否应覆盖 other（last-writer-wins）
func (e *Entry) Newer(other *Entry) bool {
	if e.Timestamp != other.Timestamp {
		return e.Timestamp > other.Timestamp
	}
	// 时间戳相同：作者字节序大者胜，保证全序
	for i := range e.Author {
		if e.Author[i] != other.Author[i] {
			return e.Author[i] > other.Author[i]
		}
	}
	return false
}

// IsEmptyValue 判断条目是否为删除标记（空值）
func (e *Entry) IsEmptyValue() bool {
	return e.Len == 0
}
