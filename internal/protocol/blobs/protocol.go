// Package blobs 实现内容寻址存储与点对点内容传输
//
// 内容以 BLAKE3 摘要为地址。请求方在一条流上发出 get 请求，
// 提供方应答内容大小后以 zstd 压缩流发送数据；请求方整块
// 校验摘要，不匹配即丢弃。
package blobs

const (
	// ALPN 协议标签
	ALPN = "weave/blobs/0"
)

// ============================================================================
//                              帧定义
// ============================================================================

// getRequest 内容请求
type getRequest struct {
	// Hash 请求的内容地址
	Hash []byte `cbor:"1,keyasint"`
}

// getResponse 内容应答
//
// Found 为假表示提供方没有该内容，流到此为止；
// 为真时 Size 是未压缩的内容大小，随后是 zstd 数据流。
type getResponse struct {
	// Found 内容是否存在
	Found bool `cbor:"1,keyasint"`

	// Size 未压缩的内容字节数
	Size uint64 `cbor:"2,keyasint,omitempty"`
}
