package weave

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dep2p/go-weave/pkg/types"
)

// startDocsNode 启动启用文档子系统的内存测试节点
func startDocsNode(t *testing.T) *Node {
	t.Helper()
	return startMemoryNode(t, WithDocs())
}

// TestDocEntries 测试条目的写入、读取与删除
func TestDocEntries(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	node := startDocsNode(t)
	docs, _ := node.Docs()
	authors, _ := node.Authors()

	doc, err := docs.Create(ctx)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	author, err := authors.Default(ctx)
	if err != nil {
		t.Fatalf("Default() error: %v", err)
	}

	// 写入
	value := []byte("hello docs")
	hash, err := doc.SetBytes(ctx, author, []byte("greeting"), value)
	if err != nil {
		t.Fatalf("SetBytes() error: %v", err)
	}
	if !hash.Equal(HashBytes(value)) {
		t.Error("entry hash should be the content address of the value")
	}

	// 值进了 blob 存储
	got, err := node.Blobs().ReadToBytes(ctx, hash)
	if err != nil || string(got) != "hello docs" {
		t.Errorf("value not in blob store: %q, %v", got, err)
	}

	// 精确读取
	entry, err := doc.GetExact(ctx, author, []byte("greeting"), false)
	if err != nil {
		t.Fatalf("GetExact() error: %v", err)
	}
	if entry == nil {
		t.Fatal("GetExact() returned nil for existing entry")
	}
	if !entry.Hash.Equal(hash) || entry.Len != uint64(len(value)) {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Author != author {
		t.Error("entry author mismatch")
	}

	// 不存在的键
	missing, err := doc.GetExact(ctx, author, []byte("nothing"), false)
	if err != nil || missing != nil {
		t.Errorf("GetExact(missing) = %v, %v, want nil, nil", missing, err)
	}

	// 枚举
	entries, err := doc.Entries(ctx)
	if err != nil {
		t.Fatalf("Entries() error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Entries() count = %d, want 1", len(entries))
	}

	// 删除：写删除标记
	count, err := doc.Delete(ctx, author, []byte("greet"))
	if err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if count != 1 {
		t.Errorf("Delete() count = %d, want 1", count)
	}

	// 默认视图跳过删除标记
	entry, err = doc.GetExact(ctx, author, []byte("greeting"), false)
	if err != nil || entry != nil {
		t.Errorf("GetExact after delete = %v, %v, want nil, nil", entry, err)
	}
	// includeEmpty 能看到删除标记
	entry, err = doc.GetExact(ctx, author, []byte("greeting"), true)
	if err != nil || entry == nil {
		t.Fatalf("GetExact(includeEmpty) = %v, %v", entry, err)
	}
	if !entry.IsEmptyValue() {
		t.Error("tombstone should have empty value")
	}
}

// TestDocSubscribeLocal 测试本地写入触发 InsertLocal 事件
func TestDocSubscribeLocal(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	node := startDocsNode(t)
	docs, _ := node.Docs()
	authors, _ := node.Authors()

	doc, err := docs.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}
	author, _ := authors.Default(ctx)

	var (
		mu     sync.Mutex
		seen   []types.DocEventType
		gotKey []byte
	)
	received := make(chan struct{}, 8)
	stop, err := doc.Subscribe(ctx, DocCallbackFunc(func(_ context.Context, ev *DocEvent) error {
		mu.Lock()
		seen = append(seen, ev.Type)
		if ev.Type == types.DocInsertLocal && ev.Entry != nil {
			gotKey = ev.Entry.Key
		}
		mu.Unlock()
		received <- struct{}{}
		return nil
	}))
	if err != nil {
		t.Fatalf("Subscribe() error: %v", err)
	}
	defer stop()

	if _, err := doc.SetBytes(ctx, author, []byte("live"), []byte("event")); err != nil {
		t.Fatal(err)
	}

	select {
	case <-received:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for InsertLocal event")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) == 0 || seen[0] != types.DocInsertLocal {
		t.Errorf("events = %v, want InsertLocal first", seen)
	}
	if string(gotKey) != "live" {
		t.Errorf("event key = %q, want live", gotKey)
	}

	// stop 幂等
	stop()
}

// TestDocOpenAndList 测试文档列表与按标识打开
func TestDocOpenAndList(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	node := startDocsNode(t)
	docs, _ := node.Docs()

	doc, err := docs.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}
	id := doc.ID()

	list, err := docs.List(ctx)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	found := false
	for _, ns := range list {
		if ns == id {
			found = true
		}
	}
	if !found {
		t.Error("List() should contain created doc")
	}

	// 再次打开同一文档
	again, err := docs.Open(ctx, id)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if again.ID() != id {
		t.Error("Open() returned wrong doc")
	}

	// 不存在的文档
	var unknown NamespaceID
	for i := range unknown {
		unknown[i] = 0xEE
	}
	if _, err := docs.Open(ctx, unknown); !errors.Is(err, ErrDocNotFound) {
		t.Errorf("Open(unknown): %v, want ErrDocNotFound", err)
	}
}

// TestDocDrop 测试删除文档后句柄失效
func TestDocDrop(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	node := startDocsNode(t)
	docs, _ := node.Docs()
	authors, _ := node.Authors()

	doc, err := docs.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}
	author, _ := authors.Default(ctx)
	if _, err := doc.SetBytes(ctx, author, []byte("k"), []byte("v")); err != nil {
		t.Fatal(err)
	}

	if err := docs.Drop(ctx, doc.ID()); err != nil {
		t.Fatalf("Drop() error: %v", err)
	}

	// 打开中的句柄失效
	if _, err := doc.SetBytes(ctx, author, []byte("k2"), []byte("v2")); !errors.Is(err, ErrDocClosed) {
		t.Errorf("SetBytes after drop: %v, want ErrDocClosed", err)
	}

	// 文档从列表消失
	list, err := docs.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, ns := range list {
		if ns == doc.ID() {
			t.Error("dropped doc still listed")
		}
	}

	// 再删一次
	if err := docs.Drop(ctx, doc.ID()); !errors.Is(err, ErrDocNotFound) {
		t.Errorf("Drop(again): %v, want ErrDocNotFound", err)
	}
}

// TestDocShareTicket 测试文档票据生成与校验
func TestDocShareTicket(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	node := startDocsNode(t)
	docs, _ := node.Docs()

	doc, err := docs.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}

	ticket, err := doc.Share(ctx)
	if err != nil {
		t.Fatalf("Share() error: %v", err)
	}
	if ticket.Namespace != doc.ID() {
		t.Error("ticket namespace mismatch")
	}
	if len(ticket.Nodes) != 1 || ticket.Nodes[0].ID.String() != node.NodeID() {
		t.Error("ticket should carry own node addr")
	}

	parsed, err := ParseDocTicket(ticket.String())
	if err != nil {
		t.Fatalf("ParseDocTicket() error: %v", err)
	}
	if parsed.Namespace != ticket.Namespace {
		t.Error("parsed namespace mismatch")
	}

	// 非法票据被 Join 拒绝
	if _, err := docs.Join(ctx, nil); !errors.Is(err, ErrInvalidTicket) {
		t.Errorf("Join(nil): %v, want ErrInvalidTicket", err)
	}
	if _, err := docs.Join(ctx, &DocTicket{}); !errors.Is(err, ErrInvalidTicket) {
		t.Errorf("Join(empty): %v, want ErrInvalidTicket", err)
	}
}

// TestAuthors 测试作者管理
func TestAuthors(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	node := startDocsNode(t)
	authors, _ := node.Authors()

	def, err := authors.Default(ctx)
	if err != nil {
		t.Fatalf("Default() error: %v", err)
	}

	// 默认作者稳定
	again, err := authors.Default(ctx)
	if err != nil || again != def {
		t.Errorf("Default() second call = %v, %v, want stable", again, err)
	}

	created, err := authors.Create(ctx)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if created == def {
		t.Error("new author should differ from default")
	}

	list, err := authors.List(ctx)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(list) < 2 {
		t.Errorf("List() count = %d, want >= 2", len(list))
	}

	// 默认作者不可删除
	if err := authors.Delete(ctx, def); !errors.Is(err, ErrDefaultAuthor) {
		t.Errorf("Delete(default): %v, want ErrDefaultAuthor", err)
	}

	// 普通作者可删除
	if err := authors.Delete(ctx, created); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if err := authors.Delete(ctx, created); !errors.Is(err, ErrAuthorNotFound) {
		t.Errorf("Delete(again): %v, want ErrAuthorNotFound", err)
	}
}
