// Package wire 实现 weave 协议帧编解码
//
// 所有内建协议共用同一种帧格式：
//
//	┌─────────────────┬──────────────────────┐
//	│ 长度前缀 (uvarint) │ CBOR 编码的消息体      │
//	└─────────────────┴──────────────────────┘
//
// CBOR 采用确定性编码（canonical core profile），
// 同一消息在任何节点上编码出相同字节。
package wire

import (
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/multiformats/go-varint"
)

// DefaultMaxFrame 控制帧默认大小上限
const DefaultMaxFrame = 1 << 20 // 1 MiB

var (
	// ErrFrameTooLarge 帧超过大小上限
	ErrFrameTooLarge = errors.New("wire: frame too large")

	// ErrNilMessage 待编码消息为 nil
	ErrNilMessage = errors.New("wire: nil message")
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic("wire: cbor enc mode: " + err.Error())
	}
	encMode = em

	dm, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("wire: cbor dec mode: " + err.Error())
	}
	decMode = dm
}

// Marshal 编码消息为 CBOR 字节
func Marshal(v any) ([]byte, error) {
	if v == nil {
		return nil, ErrNilMessage
	}
	return encMode.Marshal(v)
}

// Unmarshal 从 CBOR 字节解码消息
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// WriteFrame 编码消息并带长度前缀写入流
func WriteFrame(w io.Writer, v any) error {
	data, err := Marshal(v)
	if err != nil {
		return fmt.Errorf("wire: marshal: %w", err)
	}

	prefix := varint.ToUvarint(uint64(len(data)))
	if _, err := w.Write(prefix); err != nil {
		return fmt.Errorf("wire: write length: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("wire: write body: %w", err)
	}
	return nil
}

// ReadFrame 从流中读取一帧并解码到 v
//
// maxSize 限制消息体大小，传 0 使用 DefaultMaxFrame。
// 流在帧边界处干净结束时返回 io.EOF。
func ReadFrame(r io.Reader, v any, maxSize uint64) error {
	if maxSize == 0 {
		maxSize = DefaultMaxFrame
	}

	length, err := varint.ReadUvarint(byteReader{r})
	if err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return fmt.Errorf("wire: read length: %w", err)
	}
	if length > maxSize {
		return fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, length, maxSize)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return fmt.Errorf("wire: read body: %w", err)
	}

	if err := decMode.Unmarshal(data, v); err != nil {
		return fmt.Errorf("wire: unmarshal: %w", err)
	}
	return nil
}

// byteReader 把 io.Reader 适配为 varint 需要的 io.ByteReader
type byteReader struct {
	r io.Reader
}

func (br byteReader) ReadByte() (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(br.r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}
