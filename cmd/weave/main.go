// Package main 提供 weave 命令行入口
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dep2p/go-weave"
	"github.com/dep2p/go-weave/pkg/lib/log"
)

var logger = log.Logger("weave/cmd")

// ═══════════════════════════════════════════════════════════════════════════
// 命令行参数
// ═══════════════════════════════════════════════════════════════════════════
//
// 设计原则：
//
//   全局参数：节点怎么跑（数据目录、监听地址、身份、日志）
//   子命令参数：这次操作做什么（主题、票据、输出路径）
//
// 全局参数写在子命令之前：
//
//   weave -data-dir ./data blob add ./file.bin
//
// ═══════════════════════════════════════════════════════════════════════════
var (
	// ─────────────────────────────────────────────────────────────────────
	// 节点参数
	// ─────────────────────────────────────────────────────────────────────
	dataDir    = flag.String("data-dir", "", "数据目录（空 = 纯内存节点）")
	ipv4Addr   = flag.String("addr", "", "IPv4 监听地址（默认: 0.0.0.0:0）")
	ipv6Addr   = flag.String("addr6", "", "IPv6 监听地址（默认: [::]:0）")
	enableDocs = flag.Bool("docs", false, "启用文档同步引擎")
	secretFile = flag.String("secret-file", "", "身份密钥文件（64 位十六进制）")
	gcInterval = flag.Duration("gc", 0, "内容垃圾回收间隔（0 = 默认值）")

	// ─────────────────────────────────────────────────────────────────────
	// 日志参数
	// ─────────────────────────────────────────────────────────────────────
	logLevel = flag.String("log-level", "warn", "日志级别 (debug/info/warn/error/off)")
	logFile  = flag.String("log", "", "日志文件路径（空 = 标准错误输出）")

	// ─────────────────────────────────────────────────────────────────────
	// 信息显示
	// ─────────────────────────────────────────────────────────────────────
	showVersion = flag.Bool("version", false, "显示版本信息")
	showHelp    = flag.Bool("help", false, "显示帮助信息")
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	// 显示版本
	if *showVersion {
		printVersion()
		return nil
	}

	// 显示帮助
	if *showHelp {
		printHelp()
		return nil
	}

	// 环境变量填补未显式指定的参数
	applyEnvOverrides()

	// 设置日志
	logHandle, err := setupLogging()
	if err != nil {
		return fmt.Errorf("日志配置错误: %w", err)
	}
	if logHandle != nil {
		defer func() { _ = logHandle.Close() }()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 子命令分发
	args := flag.Args()
	cmd := "serve"
	if len(args) > 0 {
		cmd = args[0]
		args = args[1:]
	}

	switch cmd {
	case "serve":
		return runServe(ctx)
	case "id":
		return runID(ctx)
	case "ping":
		return runPing(ctx, args)
	case "gossip":
		return runGossip(ctx, args)
	case "blob":
		return runBlob(ctx, args)
	default:
		return fmt.Errorf("未知命令 %q（weave -help 查看用法）", cmd)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// 节点启动
// ═══════════════════════════════════════════════════════════════════════════

// buildNodeOptions 根据全局参数构建节点选项
func buildNodeOptions() ([]weave.Option, error) {
	var opts []weave.Option

	if *ipv4Addr != "" {
		opts = append(opts, weave.WithIPv4Addr(*ipv4Addr))
	}
	if *ipv6Addr != "" {
		opts = append(opts, weave.WithIPv6Addr(*ipv6Addr))
	}
	if *enableDocs {
		opts = append(opts, weave.WithDocs())
	}
	if *gcInterval > 0 {
		opts = append(opts, weave.WithGCInterval(*gcInterval))
	}
	if *secretFile != "" {
		seed, err := loadSecretKey(*secretFile)
		if err != nil {
			return nil, fmt.Errorf("读取密钥文件: %w", err)
		}
		opts = append(opts, weave.WithSecretKey(seed))
	}

	return opts, nil
}

// startNode 按全局参数启动节点
//
// -data-dir 为空时启动纯内存节点，进程退出后数据丢弃；
// 否则数据（blob、文档、身份密钥）落盘到指定目录。
func startNode(ctx context.Context) (*weave.Node, error) {
	opts, err := buildNodeOptions()
	if err != nil {
		return nil, err
	}

	logger.Info("启动 weave 节点", "version", weave.Version, "dataDir", *dataDir, "docs", *enableDocs)

	if *dataDir == "" {
		return weave.MemoryWithOptions(ctx, opts...)
	}
	return weave.PersistentWithOptions(ctx, *dataDir, opts...)
}

// shutdownNode 带超时关闭节点
func shutdownNode(node *weave.Node) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := node.Shutdown(ctx); err != nil {
		logger.Warn("关闭节点失败", "err", err)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// serve / id / ping 命令
// ═══════════════════════════════════════════════════════════════════════════

// runServe 启动常驻节点
func runServe(ctx context.Context) error {
	fmt.Printf("📦 weave %s\n", weave.Version)
	fmt.Println("正在启动 weave 节点...")

	node, err := startNode(ctx)
	if err != nil {
		return fmt.Errorf("启动失败: %w", err)
	}
	defer shutdownNode(node)

	if err := node.Net().Online(ctx); err != nil {
		return err
	}
	printNodeInfo(ctx, node)

	fmt.Println("节点已启动，按 Ctrl+C 退出")
	waitForSignal()

	fmt.Println("\n正在关闭节点...")
	return nil
}

// runID 打印节点身份后退出
//
// 配合 -data-dir / -secret-file 可查看持久身份对应的节点记录。
func runID(ctx context.Context) error {
	node, err := startNode(ctx)
	if err != nil {
		return err
	}
	defer shutdownNode(node)

	addr, err := node.Net().NodeAddr(ctx)
	if err != nil {
		return err
	}

	fmt.Println(addr.ID)
	for _, rec := range shareableRecords(addr) {
		fmt.Println(rec)
	}
	return nil
}

// runPing 测量到指定节点的往返时延
func runPing(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ping", flag.ExitOnError)
	count := fs.Int("count", 3, "探测次数")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("用法: weave ping [-count N] <NodeID@host:port>")
	}

	peer, err := parseNodeRecord(fs.Arg(0))
	if err != nil {
		return err
	}

	node, err := startNode(ctx)
	if err != nil {
		return err
	}
	defer shutdownNode(node)

	if err := node.Net().AddNodeAddr(ctx, peer); err != nil {
		return err
	}

	for i := 0; i < *count; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		rtt, err := node.Net().Latency(pingCtx, peer.ID.String())
		cancel()
		if err != nil {
			return fmt.Errorf("探测 %s 失败: %w", peer.ID.ShortString(), err)
		}
		fmt.Printf("%s: rtt=%v\n", peer.ID.ShortString(), rtt)
		if i+1 < *count {
			time.Sleep(time.Second)
		}
	}
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════
// 辅助函数
// ═══════════════════════════════════════════════════════════════════════════

// waitForSignal 阻塞等待退出信号
func waitForSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
}

// setupLogging 配置日志级别与输出位置
func setupLogging() (*os.File, error) {
	level, err := log.ParseLevel(*logLevel)
	if err != nil {
		return nil, err
	}

	if *logFile == "" {
		log.SetLevel(level)
		return nil, nil
	}

	file, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("打开日志文件失败: %w", err)
	}
	log.SetOutputWithLevel(file, level)
	return file, nil
}

// printNodeInfo 打印节点信息（美化输出）
//
// 输出包含可复制的完整节点记录（NodeID@地址），便于分享给其他设备连接。
func printNodeInfo(ctx context.Context, node *weave.Node) {
	addr, err := node.Net().NodeAddr(ctx)
	if err != nil {
		logger.Warn("获取节点地址失败", "err", err)
		return
	}

	caps := "Gossip, Blobs"
	if _, err := node.Docs(); err == nil {
		caps += ", Docs"
	}

	fmt.Println()
	fmt.Println("╔════════════════════════════════════════════════════════════════════════╗")
	fmt.Printf("║                      Weave Node Started (%s)                        ║\n", weave.Version)
	fmt.Println("╠════════════════════════════════════════════════════════════════════════╣")
	fmt.Printf("║  Node ID: %-60s  ║\n", addr.ID)
	fmt.Println("║                                                                        ║")
	fmt.Printf("║  Capabilities: %-56s  ║\n", caps)
	fmt.Println("║                                                                        ║")
	fmt.Println("║  Node records (copy to share):                                         ║")

	for _, rec := range shareableRecords(addr) {
		printWrappedLine(rec, 68)
	}

	fmt.Println("║                                                                        ║")
	fmt.Println("╚════════════════════════════════════════════════════════════════════════╝")
	fmt.Println()
}

// shareableRecords 组装可分享的节点记录（NodeID@地址）
//
// 通配监听地址（0.0.0.0 / [::]  端口 0）对外不可达，直接跳过。
func shareableRecords(addr *weave.NodeAddr) []string {
	records := make([]string, 0, len(addr.Addrs))
	for _, a := range addr.Addrs {
		if !isConnectableAddr(a) {
			continue
		}
		records = append(records, fmt.Sprintf("%s@%s", addr.ID, a))
	}
	return records
}

// printWrappedLine 打印可复制的长行内容（不截断）
func printWrappedLine(text string, width int) {
	if width <= 0 {
		fmt.Printf("║    %s  ║\n", text)
		return
	}
	for len(text) > width {
		fmt.Printf("║    %-*s  ║\n", width, text[:width])
		text = text[width:]
	}
	fmt.Printf("║    %-*s  ║\n", width, text)
}

// printVersion 打印版本信息
func printVersion() {
	fmt.Printf("weave %s\n", weave.Version)
}

// printHelp 打印帮助信息
func printHelp() {
	fmt.Println("weave - gossip / blob / docs 一体的 P2P 节点")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  weave [全局选项] <命令> [命令选项]")
	fmt.Println()
	fmt.Println("命令:")
	fmt.Println("  serve                                 启动常驻节点（默认命令）")
	fmt.Println("  id                                    打印节点身份与可分享记录")
	fmt.Println("  ping [-count N] <记录>                测量到指定节点的往返时延")
	fmt.Println("  gossip -topic <名称> [-bootstrap 记录,...]   订阅主题并进入聊天模式")
	fmt.Println("  blob add <路径>                       导入文件并打印分享票据")
	fmt.Println("  blob get [-out 路径] <票据>           凭票据下载内容")
	fmt.Println()
	fmt.Println("全局选项:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════════════════════")
	fmt.Println("节点记录格式")
	fmt.Println("═══════════════════════════════════════════════════════════════════════════")
	fmt.Println()
	fmt.Println("  <NodeID>@<host>:<port>      # 例: 8Kx...@192.168.1.10:4433")
	fmt.Println()
	fmt.Println("  NodeID 为 Base58 编码的节点公钥，weave id 命令可打印本节点记录。")
	fmt.Println("  多条记录用逗号分隔；同一节点的多个地址写多条记录即可。")
	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════════════════════")
	fmt.Println("环境变量")
	fmt.Println("═══════════════════════════════════════════════════════════════════════════")
	fmt.Println()
	fmt.Println("  WEAVE_DATA_DIR       数据目录（等价 -data-dir）")
	fmt.Println("  WEAVE_IPV4_ADDR      IPv4 监听地址（等价 -addr）")
	fmt.Println("  WEAVE_IPV6_ADDR      IPv6 监听地址（等价 -addr6）")
	fmt.Println("  WEAVE_SECRET_FILE    身份密钥文件（等价 -secret-file）")
	fmt.Println("  WEAVE_LOG_LEVEL      日志级别（等价 -log-level）")
	fmt.Println("  WEAVE_LOG_FILE       日志文件路径（等价 -log）")
	fmt.Println()
	fmt.Println("  命令行参数优先于环境变量。")
	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════════════════════")
	fmt.Println("使用示例")
	fmt.Println("═══════════════════════════════════════════════════════════════════════════")
	fmt.Println()
	fmt.Println("  # 启动常驻节点（随机端口，纯内存）")
	fmt.Println("  weave")
	fmt.Println()
	fmt.Println("  # 持久节点 + 固定端口 + 文档引擎")
	fmt.Println("  weave -data-dir ./data -addr 0.0.0.0:4433 -docs")
	fmt.Println()
	fmt.Println("  # 查看持久身份")
	fmt.Println("  weave -data-dir ./data id")
	fmt.Println()
	fmt.Println("  # 两台设备进入同一主题聊天")
	fmt.Println("  weave gossip -topic chat                          # 设备 A")
	fmt.Println("  weave gossip -topic chat -bootstrap <A的记录>     # 设备 B")
	fmt.Println()
	fmt.Println("  # 分享文件")
	fmt.Println("  weave blob add ./photo.jpg                        # 打印票据，保持运行")
	fmt.Println("  weave blob get -out photo.jpg <票据>              # 另一台设备下载")
	fmt.Println()
	fmt.Println("  # 测量延迟")
	fmt.Println("  weave ping <NodeID@host:port>")
}
