package blobs

import "errors"

// 定义错误
var (
	// ErrClosed 服务已关闭
	ErrClosed = errors.New("blobs service closed")

	// ErrBlobNotFound 内容不存在
	ErrBlobNotFound = errors.New("blob not found")

	// ErrTagNotFound 标签不存在
	ErrTagNotFound = errors.New("tag not found")

	// ErrEmptyTagName 标签名为空
	ErrEmptyTagName = errors.New("empty tag name")

	// ErrHashMismatch 取回的内容与请求的地址不符
	ErrHashMismatch = errors.New("downloaded content hash mismatch")

	// ErrInvalidRequest 请求帧无法解析
	ErrInvalidRequest = errors.New("invalid blob request")
)
