package weave

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dep2p/go-weave/pkg/types"
)

// TestBlobsRoundTrip 测试导入-读取-删除的完整回路
func TestBlobsRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	node := startMemoryNode(t)
	blobs := node.Blobs()
	content := []byte("weave blob round trip")

	hash, err := blobs.AddBytes(ctx, content)
	if err != nil {
		t.Fatalf("AddBytes() error: %v", err)
	}
	if !hash.Equal(HashBytes(content)) {
		t.Errorf("hash = %s, want BLAKE3 of content", hash)
	}

	ok, err := blobs.Has(ctx, hash)
	if err != nil || !ok {
		t.Fatalf("Has() = %v, %v, want true", ok, err)
	}

	size, err := blobs.Size(ctx, hash)
	if err != nil {
		t.Fatalf("Size() error: %v", err)
	}
	if size != uint64(len(content)) {
		t.Errorf("Size() = %d, want %d", size, len(content))
	}

	data, err := blobs.ReadToBytes(ctx, hash)
	if err != nil {
		t.Fatalf("ReadToBytes() error: %v", err)
	}
	if !bytes.Equal(data, content) {
		t.Errorf("content = %q, want %q", data, content)
	}

	list, err := blobs.List(ctx)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	found := false
	for _, info := range list {
		if info.Hash.Equal(hash) {
			found = true
			if info.Size != uint64(len(content)) {
				t.Errorf("List size = %d, want %d", info.Size, len(content))
			}
		}
	}
	if !found {
		t.Error("List() should contain the imported blob")
	}

	if err := blobs.Delete(ctx, hash); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if ok, _ := blobs.Has(ctx, hash); ok {
		t.Error("Has() after delete should be false")
	}
	if _, err := blobs.ReadToBytes(ctx, hash); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("ReadToBytes after delete: %v, want ErrBlobNotFound", err)
	}
}

// TestAddFromPath 测试文件导入与进度事件
func TestAddFromPath(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	node := startMemoryNode(t)
	content := bytes.Repeat([]byte("0123456789abcdef"), 4096) // 64 KiB，跨多个分块

	path := filepath.Join(t.TempDir(), "import.bin")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}

	var (
		mu     sync.Mutex
		events []types.AddEventType
		name   string
	)
	hash, err := node.Blobs().AddFromPath(ctx, path, AddCallbackFunc(func(_ context.Context, ev *AddEvent) error {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, ev.Type)
		if ev.Type == types.AddFound {
			name = ev.Name
		}
		return nil
	}))
	if err != nil {
		t.Fatalf("AddFromPath() error: %v", err)
	}
	if !hash.Equal(HashBytes(content)) {
		t.Error("hash mismatch")
	}

	// AddFromPath 返回时全部事件已投递完毕
	mu.Lock()
	defer mu.Unlock()
	if len(events) < 3 {
		t.Fatalf("events = %v, want at least Found/Done/AllDone", events)
	}
	if events[0] != types.AddFound {
		t.Errorf("first event = %v, want AddFound", events[0])
	}
	if events[len(events)-1] != types.AddAllDone {
		t.Errorf("last event = %v, want AddAllDone", events[len(events)-1])
	}
	if name != "import.bin" {
		t.Errorf("Found name = %q, want import.bin", name)
	}

	data, err := node.Blobs().ReadToBytes(ctx, hash)
	if err != nil || !bytes.Equal(data, content) {
		t.Error("imported content not readable")
	}
}

// TestAddFromPath_Missing 测试不存在的文件
func TestAddFromPath_Missing(t *testing.T) {
	ctx := context.Background()
	node := startMemoryNode(t)

	if _, err := node.Blobs().AddFromPath(ctx, "/no/such/file", nil); err == nil {
		t.Error("AddFromPath(missing) should fail")
	}
}

// TestBlobShare 测试分享票据的生成门槛与内容
func TestBlobShare(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	node := startMemoryNode(t)

	// 未导入的内容不能分享
	if _, err := node.Blobs().Share(ctx, HashBytes([]byte("nowhere"))); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("Share(missing): %v, want ErrBlobNotFound", err)
	}

	hash, err := node.Blobs().AddBytes(ctx, []byte("shareable"))
	if err != nil {
		t.Fatal(err)
	}
	ticket, err := node.Blobs().Share(ctx, hash)
	if err != nil {
		t.Fatalf("Share() error: %v", err)
	}
	if ticket.Node.ID.String() != node.NodeID() {
		t.Error("ticket should carry own node ID")
	}
	if !ticket.Hash.Equal(hash) {
		t.Error("ticket hash mismatch")
	}

	// 字符串形式可以解析回来
	parsed, err := ParseBlobTicket(ticket.String())
	if err != nil {
		t.Fatalf("ParseBlobTicket() error: %v", err)
	}
	if !parsed.Hash.Equal(hash) {
		t.Error("parsed ticket hash mismatch")
	}
}

// TestDownloadValidation 测试下载参数校验
func TestDownloadValidation(t *testing.T) {
	ctx := context.Background()
	node := startMemoryNode(t)

	if err := node.Blobs().Download(ctx, HashBytes([]byte("x")), nil, nil); err == nil {
		t.Error("Download(nil source) should fail")
	}
	if err := node.Blobs().DownloadTicket(ctx, nil, nil); !errors.Is(err, ErrInvalidTicket) {
		t.Errorf("DownloadTicket(nil): %v, want ErrInvalidTicket", err)
	}
}

// TestTags 测试标签门面
func TestTags(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	node := startMemoryNode(t)
	tags := node.Tags()

	hash, err := node.Blobs().AddBytes(ctx, []byte("tagged content"))
	if err != nil {
		t.Fatal(err)
	}

	if err := tags.Set(ctx, []byte("release-v1"), hash); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	list, err := tags.List(ctx)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	found := false
	for _, tag := range list {
		if string(tag.Name) == "release-v1" {
			found = true
			if !tag.Hash.Equal(hash) {
				t.Error("tag hash mismatch")
			}
		}
	}
	if !found {
		t.Error("List() should contain release-v1")
	}

	if err := tags.Delete(ctx, []byte("release-v1")); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if err := tags.Delete(ctx, []byte("release-v1")); !errors.Is(err, ErrTagNotFound) {
		t.Errorf("Delete(missing): %v, want ErrTagNotFound", err)
	}
}
