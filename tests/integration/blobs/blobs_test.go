//go:build integration

package blobs_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-weave"
	"github.com/dep2p/go-weave/tests/testutil"
)

// TestBlobs_TicketDownload 测试凭票据跨节点下载
//
// 验证:
//   - 票据字符串往返后仍可定位提供方
//   - 下载内容与原始内容一致，摘要校验通过
//   - 进度事件按 Found → Progressed → Done → AllDone 顺序到达
func TestBlobs_TicketDownload(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	provider := testutil.NewTestNode(t).Start()
	fetcher := testutil.NewTestNode(t).Start()

	// 1. 提供方写入内容并生成票据
	content := make([]byte, 64*1024)
	_, err := rand.Read(content)
	require.NoError(t, err)

	hash, err := provider.Blobs().AddBytes(ctx, content)
	require.NoError(t, err, "写入内容失败")

	ticket, err := provider.Blobs().Share(ctx, hash)
	require.NoError(t, err, "生成票据失败")

	// 2. 票据经字符串分享给取回方
	parsed, err := weave.ParseBlobTicket(ticket.String())
	require.NoError(t, err, "解析票据失败")

	// 3. 取回并收集进度事件
	progress := testutil.NewEventCollector[*weave.DownloadEvent]()
	err = fetcher.Blobs().DownloadTicket(ctx, parsed,
		weave.DownloadCallbackFunc(func(_ context.Context, ev *weave.DownloadEvent) error {
			progress.Add(ev)
			return nil
		}))
	require.NoError(t, err, "下载失败")

	// 4. 内容一致
	data, err := fetcher.Blobs().ReadToBytes(ctx, hash)
	require.NoError(t, err, "读取下载内容失败")
	assert.True(t, bytes.Equal(content, data), "下载内容应与原始内容一致")

	// 5. 事件顺序（Download 返回前事件已全部投递）
	events := progress.Events()
	require.NotEmpty(t, events, "应收到进度事件")
	assert.Equal(t, weave.DownloadFound, events[0].Type, "首个事件应为 Found")
	assert.Equal(t, uint64(len(content)), events[0].Size, "Found 事件应携带总大小")
	assert.Equal(t, weave.DownloadAllDone, events[len(events)-1].Type, "末个事件应为 AllDone")

	var sawProgress, sawDone bool
	for _, ev := range events {
		switch ev.Type {
		case weave.DownloadProgressed:
			sawProgress = true
		case weave.DownloadDone:
			sawDone = true
		}
	}
	assert.True(t, sawProgress, "应有 Progressed 事件")
	assert.True(t, sawDone, "应有 Done 事件")

	t.Logf("✅ 票据下载测试通过: %d 字节, %d 个进度事件", len(content), len(events))
}

// TestBlobs_ProviderEvents 测试提供侧事件
//
// 验证:
//   - WithBlobEvents 注册的回调收到传输全程事件
//   - 事件按 ClientConnected → GetRequestReceived → TransferCompleted 顺序
//   - 事件标注请求方节点与内容地址
func TestBlobs_ProviderEvents(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	provided := testutil.NewEventCollector[*weave.BlobProvideEvent]()
	provider := testutil.NewTestNode(t).
		WithOptions(weave.WithBlobEvents(
			weave.BlobEventCallbackFunc(func(_ context.Context, ev *weave.BlobProvideEvent) error {
				provided.Add(ev)
				return nil
			}))).
		Start()
	fetcher := testutil.NewTestNode(t).Start()

	hash, err := provider.Blobs().AddBytes(ctx, []byte(testutil.DefaultTestContent))
	require.NoError(t, err)
	ticket, err := provider.Blobs().Share(ctx, hash)
	require.NoError(t, err)

	require.NoError(t, fetcher.Blobs().DownloadTicket(ctx, ticket, nil), "下载失败")

	// 提供侧事件异步投递，等传输完成事件落地
	testutil.Eventually(t, 10*time.Second, func() bool {
		return hasProvideEvent(provided, weave.BlobTransferCompleted)
	}, "等待 TransferCompleted 事件")

	events := provided.Events()
	var connected, requested bool
	for _, ev := range events {
		switch ev.Type {
		case weave.BlobClientConnected:
			connected = true
			assert.Equal(t, fetcher.NodeID(), ev.Peer.String(), "连接方应为取回节点")
		case weave.BlobGetRequestReceived:
			requested = true
			assert.True(t, ev.Hash.Equal(hash), "请求的内容地址应一致")
		}
	}
	assert.True(t, connected, "应有 ClientConnected 事件")
	assert.True(t, requested, "应有 GetRequestReceived 事件")

	t.Logf("✅ 提供侧事件测试通过: %d 个事件", len(events))
}

// TestBlobs_DownloadByNodeAddr 测试凭地址簿下载与重复下载
//
// 验证:
//   - 地址簿里有提供方记录后，仅凭 NodeID 即可下载
//   - 内容已在本地时再次下载不走网络，直接发完成事件
func TestBlobs_DownloadByNodeAddr(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	provider := testutil.NewTestNode(t).Start()
	fetcher := testutil.NewTestNode(t).Start()
	testutil.ConnectNodes(t, provider, fetcher)

	hash, err := provider.Blobs().AddBytes(ctx, []byte("addressed by node id"))
	require.NoError(t, err)

	// 1. 只给 NodeID，地址由地址簿补全
	from := &weave.NodeAddr{ID: testutil.NodeRecord(t, provider).ID}
	require.NoError(t, fetcher.Blobs().Download(ctx, hash, from, nil), "凭地址簿下载失败")

	ok, err := fetcher.Blobs().Has(ctx, hash)
	require.NoError(t, err)
	assert.True(t, ok, "内容应已落库")

	// 2. 重复下载短路：事件只有 Found → Done → AllDone，无 Progressed
	progress := testutil.NewEventCollector[*weave.DownloadEvent]()
	err = fetcher.Blobs().Download(ctx, hash, from,
		weave.DownloadCallbackFunc(func(_ context.Context, ev *weave.DownloadEvent) error {
			progress.Add(ev)
			return nil
		}))
	require.NoError(t, err, "重复下载应直接成功")

	events := progress.Events()
	require.Len(t, events, 3, "本地命中应只有三个事件")
	assert.Equal(t, weave.DownloadFound, events[0].Type)
	assert.Equal(t, weave.DownloadDone, events[1].Type)
	assert.Equal(t, weave.DownloadAllDone, events[2].Type)

	t.Log("✅ 地址簿下载测试通过")
}

// TestBlobs_MissingContent 测试下载不存在的内容
//
// 验证:
//   - 提供方没有该内容时下载失败并发 Abort 事件
func TestBlobs_MissingContent(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	provider := testutil.NewTestNode(t).Start()
	fetcher := testutil.NewTestNode(t).Start()
	testutil.ConnectNodes(t, provider, fetcher)

	missing := weave.HashBytes([]byte("never stored anywhere"))
	from := &weave.NodeAddr{ID: testutil.NodeRecord(t, provider).ID}

	progress := testutil.NewEventCollector[*weave.DownloadEvent]()
	err := fetcher.Blobs().Download(ctx, missing, from,
		weave.DownloadCallbackFunc(func(_ context.Context, ev *weave.DownloadEvent) error {
			progress.Add(ev)
			return nil
		}))
	require.Error(t, err, "下载缺失内容应失败")

	events := progress.Events()
	require.NotEmpty(t, events, "应收到事件")
	assert.Equal(t, weave.DownloadAbort, events[len(events)-1].Type, "末个事件应为 Abort")
	assert.NotEmpty(t, events[len(events)-1].Reason, "Abort 应带原因")

	t.Log("✅ 缺失内容测试通过")
}

// ============================================================================
//                              测试辅助
// ============================================================================

// hasProvideEvent 检查收集器里是否出现指定类型的提供侧事件
func hasProvideEvent(c *testutil.EventCollector[*weave.BlobProvideEvent], typ weave.BlobProvideEventType) bool {
	for _, ev := range c.Events() {
		if ev.Type == typ {
			return true
		}
	}
	return false
}
