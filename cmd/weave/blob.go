package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dep2p/go-weave"
)

// ============================================================================
//                              blob 命令
// ============================================================================

// runBlob 分发 blob 子命令
func runBlob(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("用法: weave blob <add|get> ...")
	}
	switch args[0] {
	case "add":
		return runBlobAdd(ctx, args[1:])
	case "get":
		return runBlobGet(ctx, args[1:])
	default:
		return fmt.Errorf("未知 blob 子命令 %q（支持 add / get）", args[0])
	}
}

// runBlobAdd 导入文件并打印分享票据
//
// 导入完成后进程保持运行充当提供方，对方凭票据下载。
func runBlobAdd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("blob add", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("用法: weave blob add <路径>")
	}

	path, err := filepath.Abs(fs.Arg(0))
	if err != nil {
		return err
	}

	node, err := startNode(ctx)
	if err != nil {
		return err
	}
	defer shutdownNode(node)

	fmt.Printf("📦 weave %s\n", weave.Version)
	fmt.Printf("正在导入 %s ...\n", path)

	hash, err := node.Blobs().AddFromPath(ctx, path, weave.AddCallbackFunc(printAddEvent))
	if err != nil {
		return fmt.Errorf("导入失败: %w", err)
	}

	ticket, err := node.Blobs().Share(ctx, hash)
	if err != nil {
		return fmt.Errorf("生成票据失败: %w", err)
	}

	fmt.Println()
	fmt.Println("分享票据（对方执行 weave blob get <票据>）:")
	fmt.Println()
	fmt.Printf("  %s\n", ticket)
	fmt.Println()
	fmt.Println("保持本进程运行以供下载，按 Ctrl+C 退出")
	waitForSignal()

	fmt.Println("\n正在关闭节点...")
	return nil
}

// printAddEvent 打印一条导入进度事件
func printAddEvent(_ context.Context, ev *weave.AddEvent) error {
	switch ev.Type {
	case weave.AddFound:
		fmt.Printf("📄 %s (%d 字节)\n", ev.Name, ev.Size)
	case weave.AddDone:
		fmt.Printf("✅ 已导入: %s\n", ev.Hash)
	case weave.AddAbort:
		fmt.Printf("⚠️  导入中止: %s\n", ev.Reason)
	}
	return nil
}

// runBlobGet 凭票据下载内容
func runBlobGet(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("blob get", flag.ExitOnError)
	outPath := fs.String("out", "", "输出文件路径（空 = 只校验不落盘）")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("用法: weave blob get [-out 路径] <票据>")
	}

	ticket, err := weave.ParseBlobTicket(fs.Arg(0))
	if err != nil {
		return err
	}

	node, err := startNode(ctx)
	if err != nil {
		return err
	}
	defer shutdownNode(node)

	fmt.Printf("📦 weave %s\n", weave.Version)
	fmt.Printf("从 %s 下载 %s ...\n", ticket.Node.ID.ShortString(), ticket.Hash.ShortString())

	progress := &downloadProgress{}
	if err := node.Blobs().DownloadTicket(ctx, ticket, progress); err != nil {
		return fmt.Errorf("下载失败: %w", err)
	}

	size, err := node.Blobs().Size(ctx, ticket.Hash)
	if err != nil {
		return err
	}
	fmt.Printf("✅ 下载完成: %s (%d 字节)\n", ticket.Hash, size)

	if *outPath == "" {
		return nil
	}

	data, err := node.Blobs().ReadToBytes(ctx, ticket.Hash)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*outPath, data, 0600); err != nil {
		return fmt.Errorf("写出文件失败: %w", err)
	}
	fmt.Printf("已写入 %s\n", *outPath)
	return nil
}

// downloadProgress 下载进度打印
//
// Progressed 事件用回车覆盖同一行，避免刷屏。
type downloadProgress struct {
	total uint64
}

func (p *downloadProgress) OnDownloadEvent(_ context.Context, ev *weave.DownloadEvent) error {
	switch ev.Type {
	case weave.DownloadFound:
		p.total = ev.Size
		fmt.Printf("📥 已定位内容 (%d 字节)\n", ev.Size)
	case weave.DownloadProgressed:
		if p.total > 0 {
			fmt.Printf("\r已接收 %d/%d 字节", ev.Offset, p.total)
		}
	case weave.DownloadDone:
		fmt.Println("\r内容校验通过           ")
	case weave.DownloadAbort:
		fmt.Printf("\n⚠️  下载中止: %s\n", ev.Reason)
	}
	return nil
}
