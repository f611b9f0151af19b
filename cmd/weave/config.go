package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/dep2p/go-weave"
)

// ============================================================================
//                              环境变量（CLI 专用）
// ============================================================================

// 环境变量名（均使用 WEAVE_ 前缀）
const (
	envDataDir    = "WEAVE_DATA_DIR"
	envIPv4Addr   = "WEAVE_IPV4_ADDR"
	envIPv6Addr   = "WEAVE_IPV6_ADDR"
	envSecretFile = "WEAVE_SECRET_FILE"
	envLogLevel   = "WEAVE_LOG_LEVEL"
	envLogFile    = "WEAVE_LOG_FILE"
)

// applyEnvOverrides 用环境变量填补未显式指定的命令行参数
//
// 命令行参数优先级高于环境变量：只有当参数未在命令行出现时，
// 对应的环境变量才会生效。
func applyEnvOverrides() {
	if v := os.Getenv(envDataDir); v != "" && !isFlagSet("data-dir") {
		*dataDir = v
	}
	if v := os.Getenv(envIPv4Addr); v != "" && !isFlagSet("addr") {
		*ipv4Addr = v
	}
	if v := os.Getenv(envIPv6Addr); v != "" && !isFlagSet("addr6") {
		*ipv6Addr = v
	}
	if v := os.Getenv(envSecretFile); v != "" && !isFlagSet("secret-file") {
		*secretFile = v
	}
	if v := os.Getenv(envLogLevel); v != "" && !isFlagSet("log-level") {
		*logLevel = v
	}
	if v := os.Getenv(envLogFile); v != "" && !isFlagSet("log") {
		*logFile = v
	}
}

// isFlagSet 检查命令行参数是否被显式指定
func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// ============================================================================
//                              身份密钥加载
// ============================================================================

// loadSecretKey 从文件读取身份密钥种子
//
// 文件内容为 64 位十六进制字符（32 字节 ed25519 种子），
// 允许前后空白与末尾换行。
func loadSecretKey(path string) ([]byte, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: 用户指定的密钥文件路径是预期行为
	if err != nil {
		return nil, err
	}

	seed, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("密钥文件不是十六进制: %w", err)
	}
	if len(seed) != 32 {
		return nil, fmt.Errorf("密钥长度错误: 期望 32 字节，实际 %d 字节", len(seed))
	}
	return seed, nil
}

// ============================================================================
//                              节点记录解析
// ============================================================================

// parseNodeRecord 解析单条节点记录
//
// 格式: <NodeID>@<host>:<port>，NodeID 为 Base58 编码。
func parseNodeRecord(s string) (*weave.NodeAddr, error) {
	idStr, hostport, ok := strings.Cut(strings.TrimSpace(s), "@")
	if !ok || hostport == "" {
		return nil, fmt.Errorf("节点记录格式错误 %q: 期望 <NodeID>@<host>:<port>", s)
	}

	id, err := weave.ParseNodeID(idStr)
	if err != nil {
		return nil, fmt.Errorf("节点记录 %q: %w", s, err)
	}

	addr := weave.NodeAddr{ID: id, Addrs: []string{hostport}}
	if err := addr.Validate(); err != nil {
		return nil, fmt.Errorf("节点记录 %q: %w", s, err)
	}
	return &addr, nil
}

// parseNodeRecords 解析逗号分隔的多条节点记录
//
// 同一 NodeID 的多条记录合并为一个 NodeAddr（多地址）。
func parseNodeRecords(s string) ([]weave.NodeAddr, error) {
	var (
		order []weave.NodeID
		byID  = make(map[weave.NodeID]*weave.NodeAddr)
	)

	for _, rec := range splitAndTrim(s, ",") {
		addr, err := parseNodeRecord(rec)
		if err != nil {
			return nil, err
		}
		if existing, ok := byID[addr.ID]; ok {
			existing.Addrs = append(existing.Addrs, addr.Addrs...)
			continue
		}
		byID[addr.ID] = addr
		order = append(order, addr.ID)
	}

	result := make([]weave.NodeAddr, 0, len(order))
	for _, id := range order {
		result = append(result, *byID[id])
	}
	return result, nil
}

// ============================================================================
//                              辅助函数
// ============================================================================

// splitAndTrim 分割字符串并去除空白
func splitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// isConnectableAddr 判断地址是否对外可连接
//
// 通配地址与零端口只在本机有意义，分享出去无法拨通。
func isConnectableAddr(addr string) bool {
	if addr == "" {
		return false
	}

	unconnectablePrefixes := []string{
		"0.0.0.0:",
		"[::]:",
	}
	for _, prefix := range unconnectablePrefixes {
		if strings.HasPrefix(addr, prefix) {
			return false
		}
	}

	return !strings.HasSuffix(addr, ":0")
}
