package types

import (
	"testing"
)

func TestEntryNewer(t *testing.T) {
	var a1, a2 AuthorID
	a1[0] = 1
	a2[0] = 2

	t.Run("LaterTimestampWins", func(t *testing.T) {
		old := &Entry{Author: a1, Timestamp: 100}
		newer := &Entry{Author: a2, Timestamp: 200}
		if !newer.Newer(old) {
			t.Error("时间戳更大的条目应胜出")
		}
		if old.Newer(newer) {
			t.Error("时间戳更小的条目不应胜出")
		}
	})

	t.Run("TieBreakByAuthor", func(t *testing.T) {
		e1 := &Entry{Author: a1, Timestamp: 100}
		e2 := &Entry{Author: a2, Timestamp: 100}
		if !e2.Newer(e1) {
			t.Error("时间戳相同时作者字节序大者应胜出")
		}
		if e1.Newer(e2) {
			t.Error("作者字节序小者不应胜出")
		}
	})

	t.Run("SelfNotNewer", func(t *testing.T) {
		e := &Entry{Author: a1, Timestamp: 100}
		if e.Newer(e) {
			t.Error("条目不应比自身更新")
		}
	})
}

func TestNamespaceID(t *testing.T) {
	id := NewNamespaceID()
	if id.IsEmpty() {
		t.Fatal("随机生成的 NamespaceID 不应为空")
	}

	parsed, err := ParseNamespaceID(id.String())
	if err != nil {
		t.Fatalf("ParseNamespaceID(String()) error = %v", err)
	}
	if parsed != id {
		t.Error("Base58 往返后 NamespaceID 不一致")
	}

	if _, err := ParseNamespaceID("abc"); err == nil {
		t.Error("短输入应当报错")
	}
}

func TestAuthorID(t *testing.T) {
	var raw [32]byte
	raw[5] = 9
	id := AuthorID(raw)

	parsed, err := ParseAuthorID(id.String())
	if err != nil {
		t.Fatalf("ParseAuthorID(String()) error = %v", err)
	}
	if parsed != id {
		t.Error("Base58 往返后 AuthorID 不一致")
	}

	if _, err := AuthorIDFromBytes(raw[:10]); err == nil {
		t.Error("10 字节输入应当报错")
	}
}
