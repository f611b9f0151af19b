package docs

import "errors"

// 定义错误
var (
	// ErrClosed 服务已关闭
	ErrClosed = errors.New("docs service closed")

	// ErrDocNotFound 文档不存在
	ErrDocNotFound = errors.New("doc not found")

	// ErrDocClosed 文档已离开覆盖网
	ErrDocClosed = errors.New("doc closed")

	// ErrEmptyKey 条目键为空
	ErrEmptyKey = errors.New("empty entry key")

	// ErrInvalidEntry 条目字段或签名无效
	ErrInvalidEntry = errors.New("invalid entry")

	// ErrAuthorNotFound 作者不存在
	ErrAuthorNotFound = errors.New("author not found")

	// ErrDefaultAuthor 默认作者不可删除
	ErrDefaultAuthor = errors.New("default author cannot be deleted")

	// ErrRemoteMissingDoc 对端没有请求的文档
	ErrRemoteMissingDoc = errors.New("remote does not have doc")
)
