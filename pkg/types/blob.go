package types

// ============================================================================
//                              Blob 元数据
// ============================================================================

// BlobInfo blob 元数据
type BlobInfo struct {
	// Hash 内容地址
	Hash Hash

	// Size 内容大小（字节）
	Size uint64
}

// TagInfo 标签元数据
//
// 标签把一个稳定名称钉在某个内容地址上。
// 持有标签的内容不会被垃圾回收。
type TagInfo struct {
	// Name 标签名（任意字节串）
	Name []byte

	// Hash 指向的内容地址
	Hash Hash
}
