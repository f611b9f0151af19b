package types

import (
	"testing"
)

func TestNodeAddr(t *testing.T) {
	var raw [32]byte
	raw[0] = 7
	id := NodeID(raw)

	t.Run("Validate", func(t *testing.T) {
		tests := []struct {
			name    string
			addr    NodeAddr
			wantErr bool
		}{
			{"valid ipv4", NewNodeAddr(id, "127.0.0.1:7746"), false},
			{"valid ipv6", NewNodeAddr(id, "[::1]:7746"), false},
			{"no addrs ok", NewNodeAddr(id), false},
			{"empty id", NewNodeAddr(EmptyNodeID, "127.0.0.1:7746"), true},
			{"missing port", NewNodeAddr(id, "127.0.0.1"), true},
			{"garbage", NewNodeAddr(id, "not-an-addr:::"), true},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := tt.addr.Validate()
				if (err != nil) != tt.wantErr {
					t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
				}
			})
		}
	})

	t.Run("Equal", func(t *testing.T) {
		a := NewNodeAddr(id, "127.0.0.1:1", "127.0.0.1:2")
		b := NewNodeAddr(id, "127.0.0.1:1", "127.0.0.1:2")
		c := NewNodeAddr(id, "127.0.0.1:1")
		if !a.Equal(b) {
			t.Error("相同记录应相等")
		}
		if a.Equal(c) {
			t.Error("地址数不同的记录不应相等")
		}
	})

	t.Run("HasAddrs", func(t *testing.T) {
		if NewNodeAddr(id).HasAddrs() {
			t.Error("空地址列表 HasAddrs() = true")
		}
		if !NewNodeAddr(id, "127.0.0.1:1").HasAddrs() {
			t.Error("非空地址列表 HasAddrs() = false")
		}
	})
}
