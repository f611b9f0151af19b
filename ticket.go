package weave

import (
	"fmt"
	"strings"

	"github.com/mr-tron/base58"

	"github.com/dep2p/go-weave/internal/wire"
	"github.com/dep2p/go-weave/pkg/types"
)

// ════════════════════════════════════════════════════════════════════════════
//                              分享票据
// ════════════════════════════════════════════════════════════════════════════

// 票据是自包含的分享凭证：携带内容（或文档）标识和提供方的
// 地址记录，拿到票据的节点无需任何额外发现即可取回数据。
// 字符串形式为前缀 + Base58(CBOR 载荷)。

const (
	// blobTicketPrefix blob 票据前缀
	blobTicketPrefix = "weavblob"

	// docTicketPrefix 文档票据前缀
	docTicketPrefix = "weavdoc"
)

// BlobFormat 票据中的内容格式
type BlobFormat uint8

const (
	// BlobFormatRaw 原始字节内容
	BlobFormatRaw BlobFormat = iota
	// BlobFormatHashSeq 哈希序列（集合），本版本仅保留编号
	BlobFormatHashSeq
)

// String 返回格式的可读名称
func (f BlobFormat) String() string {
	switch f {
	case BlobFormatRaw:
		return "raw"
	case BlobFormatHashSeq:
		return "hash-seq"
	default:
		return "unknown"
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              BlobTicket
// ════════════════════════════════════════════════════════════════════════════

// BlobTicket 内容分享票据
//
// 使用示例：
//
//	ticket, _ := node.Blobs().Share(ctx, hash)
//	s := ticket.String()            // 分享出去
//
//	parsed, _ := weave.ParseBlobTicket(s)
//	node2.Blobs().DownloadTicket(ctx, parsed, nil)
type BlobTicket struct {
	// Node 提供方地址记录
	Node NodeAddr

	// Hash 内容地址
	Hash Hash

	// Format 内容格式
	Format BlobFormat
}

// blobTicketPayload 票据的 CBOR 线上形态
type blobTicketPayload struct {
	ID     []byte   `cbor:"1,keyasint"`
	Addrs  []string `cbor:"2,keyasint,omitempty"`
	Hash   []byte   `cbor:"3,keyasint"`
	Format uint8    `cbor:"4,keyasint"`
}

// String 编码为可分享的字符串
func (t *BlobTicket) String() string {
	payload, err := wire.Marshal(&blobTicketPayload{
		ID:     t.Node.ID.Bytes(),
		Addrs:  t.Node.Addrs,
		Hash:   t.Hash.Bytes(),
		Format: uint8(t.Format),
	})
	if err != nil {
		// 载荷只含定长字段与字符串，编码不应失败
		return ""
	}
	return blobTicketPrefix + base58.Encode(payload)
}

// ParseBlobTicket 解析内容分享票据
//
// 校验前缀、解码载荷并验证节点与内容标识。
func ParseBlobTicket(s string) (*BlobTicket, error) {
	body, ok := strings.CutPrefix(s, blobTicketPrefix)
	if !ok || body == "" {
		return nil, ErrInvalidTicket
	}

	raw, err := base58.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTicket, err)
	}

	var payload blobTicketPayload
	if err := wire.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTicket, err)
	}

	id, err := types.NodeIDFromBytes(payload.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTicket, err)
	}
	hash, err := types.HashFromBytes(payload.Hash)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTicket, err)
	}

	return &BlobTicket{
		Node:   types.NodeAddr{ID: id, Addrs: payload.Addrs},
		Hash:   hash,
		Format: BlobFormat(payload.Format),
	}, nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              DocTicket
// ════════════════════════════════════════════════════════════════════════════

// DocTicket 文档分享票据
//
// 使用示例：
//
//	ticket, _ := doc.Share(ctx)
//	s := ticket.String()
//
//	parsed, _ := weave.ParseDocTicket(s)
//	docs2, _ := node2.Docs()
//	doc2, _ := docs2.Join(ctx, parsed)
type DocTicket struct {
	// Namespace 文档命名空间
	Namespace NamespaceID

	// Nodes 已在覆盖网中的节点（bootstrap 候选）
	Nodes []NodeAddr
}

// docTicketPayload 票据的 CBOR 线上形态
type docTicketPayload struct {
	Namespace []byte          `cbor:"1,keyasint"`
	Nodes     []ticketPeerRec `cbor:"2,keyasint,omitempty"`
}

// ticketPeerRec 载荷里的一条节点记录
type ticketPeerRec struct {
	ID    []byte   `cbor:"1,keyasint"`
	Addrs []string `cbor:"2,keyasint,omitempty"`
}

// String 编码为可分享的字符串
func (t *DocTicket) String() string {
	nodes := make([]ticketPeerRec, 0, len(t.Nodes))
	for _, n := range t.Nodes {
		nodes = append(nodes, ticketPeerRec{ID: n.ID.Bytes(), Addrs: n.Addrs})
	}

	payload, err := wire.Marshal(&docTicketPayload{
		Namespace: t.Namespace.Bytes(),
		Nodes:     nodes,
	})
	if err != nil {
		return ""
	}
	return docTicketPrefix + base58.Encode(payload)
}

// ParseDocTicket 解析文档分享票据
func ParseDocTicket(s string) (*DocTicket, error) {
	body, ok := strings.CutPrefix(s, docTicketPrefix)
	if !ok || body == "" {
		return nil, ErrInvalidTicket
	}

	raw, err := base58.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTicket, err)
	}

	var payload docTicketPayload
	if err := wire.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTicket, err)
	}

	ns, err := types.NamespaceIDFromBytes(payload.Namespace)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTicket, err)
	}

	nodes := make([]NodeAddr, 0, len(payload.Nodes))
	for _, rec := range payload.Nodes {
		id, err := types.NodeIDFromBytes(rec.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidTicket, err)
		}
		nodes = append(nodes, types.NodeAddr{ID: id, Addrs: rec.Addrs})
	}

	return &DocTicket{Namespace: ns, Nodes: nodes}, nil
}
