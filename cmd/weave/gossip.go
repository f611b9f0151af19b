package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dep2p/go-weave"
)

// ============================================================================
//                              gossip 命令
// ============================================================================

// runGossip 订阅主题并进入聊天模式
//
// 标准输入按行广播到主题，收到的消息与邻居变动实时打印。
// 输入 EOF（Ctrl+D）或收到退出信号时取消订阅并退出。
func runGossip(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("gossip", flag.ExitOnError)
	topicName := fs.String("topic", "", "主题名称（必填，任意字符串）")
	bootstrap := fs.String("bootstrap", "", "引导节点记录，逗号分隔（首个节点可留空）")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *topicName == "" {
		return fmt.Errorf("用法: weave gossip -topic <名称> [-bootstrap 记录,...]")
	}

	// 引导节点先入地址簿，订阅时只传 NodeID
	peers, err := parseNodeRecords(*bootstrap)
	if err != nil {
		return err
	}

	node, err := startNode(ctx)
	if err != nil {
		return err
	}
	defer shutdownNode(node)

	bootstrapIDs := make([]string, 0, len(peers))
	for i := range peers {
		if err := node.Net().AddNodeAddr(ctx, &peers[i]); err != nil {
			return err
		}
		bootstrapIDs = append(bootstrapIDs, peers[i].ID.String())
	}

	topic := weave.TopicFromString(*topicName)
	self := node.NodeID()

	fmt.Printf("📦 weave %s\n", weave.Version)
	fmt.Printf("主题: %s (%s)\n", *topicName, topic.ShortString())
	fmt.Printf("本节点: %s\n", self)
	if addr, err := node.Net().NodeAddr(ctx); err == nil {
		for _, rec := range shareableRecords(addr) {
			fmt.Printf("引导记录: %s\n", rec)
		}
	}

	sender, err := node.Gossip().Subscribe(ctx, topic.Bytes(), bootstrapIDs, weave.MessageCallbackFunc(printGossipEvent))
	if err != nil {
		return fmt.Errorf("订阅失败: %w", err)
	}
	defer func() { _ = sender.Cancel() }()

	fmt.Println("已进入聊天模式，输入消息后回车发送，Ctrl+D 退出")
	return chatLoop(ctx, sender)
}

// printGossipEvent 打印一条订阅事件
func printGossipEvent(_ context.Context, ev *weave.Event) error {
	switch ev.Type() {
	case weave.EventNeighborUp:
		fmt.Printf("✅ 邻居上线: %s\n", shortID(ev.AsNeighborUp()))
	case weave.EventNeighborDown:
		fmt.Printf("❌ 邻居下线: %s\n", shortID(ev.AsNeighborDown()))
	case weave.EventReceived:
		msg := ev.AsReceived()
		fmt.Printf("[%s] %s\n", shortID(msg.DeliveredFrom), msg.Content)
	case weave.EventLagged:
		fmt.Println("⚠️  消费过慢，部分消息被丢弃")
	case weave.EventError:
		fmt.Printf("⚠️  订阅出错: %s\n", ev.AsError())
	}
	return nil
}

// chatLoop 读取标准输入并逐行广播
//
// 标准输入的读取无法被 ctx 中断，放在独立 goroutine 中，
// 主循环同时监听行输入、退出信号与 ctx 取消。
func chatLoop(ctx context.Context, sender *weave.Sender) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				// 输入结束（Ctrl+D）
				return nil
			}
			if line == "" {
				continue
			}
			if err := sender.Broadcast(ctx, []byte(line)); err != nil {
				return fmt.Errorf("广播失败: %w", err)
			}
		case <-sigCh:
			fmt.Println("\n正在退出聊天...")
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// shortID 缩短 Base58 NodeID 便于阅读
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
