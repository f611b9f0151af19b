package wire

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testMsg struct {
	Kind uint8  `cbor:"1,keyasint"`
	Name string `cbor:"2,keyasint"`
	Data []byte `cbor:"3,keyasint,omitempty"`
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer

	in := testMsg{Kind: 3, Name: "hello", Data: []byte{1, 2, 3}}
	require.NoError(t, WriteFrame(&buf, &in))

	var out testMsg
	require.NoError(t, ReadFrame(&buf, &out, 0))
	assert.Equal(t, in, out)
}

func TestMultipleFrames(t *testing.T) {
	var buf bytes.Buffer

	for i := 0; i < 5; i++ {
		require.NoError(t, WriteFrame(&buf, &testMsg{Kind: uint8(i), Name: "m"}))
	}

	for i := 0; i < 5; i++ {
		var out testMsg
		require.NoError(t, ReadFrame(&buf, &out, 0))
		assert.Equal(t, uint8(i), out.Kind)
	}

	// 流干净结束
	var out testMsg
	err := ReadFrame(&buf, &out, 0)
	assert.Equal(t, io.EOF, err)
}

func TestFrameTooLarge(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, &testMsg{Name: "0123456789"}))

	var out testMsg
	err := ReadFrame(&buf, &out, 4)
	assert.True(t, errors.Is(err, ErrFrameTooLarge), "err = %v", err)
}

func TestTruncatedFrame(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, &testMsg{Name: "payload"}))

	// 截断消息体
	data := buf.Bytes()[:buf.Len()-3]

	var out testMsg
	err := ReadFrame(bytes.NewReader(data), &out, 0)
	require.Error(t, err)
	assert.NotEqual(t, io.EOF, err, "截断不应被当作干净结束")
}

func TestDeterministicEncoding(t *testing.T) {
	msg := testMsg{Kind: 1, Name: "same", Data: []byte("x")}
	a, err := Marshal(&msg)
	require.NoError(t, err)
	b, err := Marshal(&msg)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNilMessage(t *testing.T) {
	_, err := Marshal(nil)
	assert.Equal(t, ErrNilMessage, err)
}
