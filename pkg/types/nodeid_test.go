package types

import (
	"testing"
)

func TestNodeID(t *testing.T) {
	var raw [32]byte
	for i := range raw {
		raw[i] = byte(i + 1)
	}
	id := NodeID(raw)

	t.Run("StringRoundTrip", func(t *testing.T) {
		parsed, err := ParseNodeID(id.String())
		if err != nil {
			t.Fatalf("ParseNodeID(String()) error = %v", err)
		}
		if !parsed.Equal(id) {
			t.Error("Base58 往返后 NodeID 不一致")
		}
	})

	t.Run("ParseNodeID", func(t *testing.T) {
		tests := []struct {
			name    string
			input   string
			wantErr bool
		}{
			{"valid", id.String(), false},
			{"empty", "", true},
			{"not base58", "0OIl+/", true},
			{"wrong length", "abc", true},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := ParseNodeID(tt.input)
				if (err != nil) != tt.wantErr {
					t.Errorf("ParseNodeID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				}
			})
		}
	})

	t.Run("FromBytes", func(t *testing.T) {
		if _, err := NodeIDFromBytes(raw[:16]); err == nil {
			t.Error("16 字节输入应当报错")
		}
		got, err := NodeIDFromBytes(raw[:])
		if err != nil {
			t.Fatalf("NodeIDFromBytes error = %v", err)
		}
		if !got.Equal(id) {
			t.Error("NodeIDFromBytes 结果不一致")
		}
	})

	t.Run("ShortString", func(t *testing.T) {
		if len(id.ShortString()) != 8 {
			t.Errorf("ShortString() 长度 = %d, want 8", len(id.ShortString()))
		}
	})

	t.Run("IsEmpty", func(t *testing.T) {
		if !EmptyNodeID.IsEmpty() {
			t.Error("EmptyNodeID.IsEmpty() = false, want true")
		}
		if id.IsEmpty() {
			t.Error("非空 NodeID 不应为 empty")
		}
		if EmptyNodeID.String() != "" {
			t.Error("空 NodeID 的 String() 应为空串")
		}
	})
}
