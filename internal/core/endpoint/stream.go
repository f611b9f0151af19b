package endpoint

import (
	"github.com/quic-go/quic-go"

	"github.com/dep2p/go-weave/pkg/interfaces"
)

// Stream QUIC 流封装
type Stream struct {
	quicStream *quic.Stream
}

// 确保实现接口
var _ interfaces.Stream = (*Stream)(nil)

func newStream(qs *quic.Stream) *Stream {
	return &Stream{quicStream: qs}
}

// Read 从流中读取数据
func (s *Stream) Read(p []byte) (int, error) {
	return s.quicStream.Read(p)
}

// Write 向流写入数据
func (s *Stream) Write(p []byte) (int, error) {
	return s.quicStream.Write(p)
}

// Close 结束发送方向，对端读到 io.EOF
func (s *Stream) Close() error {
	return s.quicStream.Close()
}
