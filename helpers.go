package weave

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ════════════════════════════════════════════════════════════════════════════
//                              路径与文档键互转
// ════════════════════════════════════════════════════════════════════════════

// 把文件系统导入文档时，文件路径映射为文档键：剥掉本地根目录、
// 加上逻辑前缀、追加一个 null 终止符（与生态内其他实现的键约定
// 保持一致）。prefix 和 root 传空字符串表示不使用。

// PathToKey 把文件路径转换为文档键
//
// 处理顺序：
//  1. root 非空且 path 在其下时，剥去 root 部分
//  2. prefix 非空时拼在前面
//  3. 追加 null 字节
//
// 示例：
//
//	PathToKey("/foo/bar", "", "")              // "/foo/bar\x00"
//	PathToKey("/foo/bar", "prefix:", "")       // "prefix:/foo/bar\x00"
//	PathToKey("/foo/bar", "prefix:", "/foo")   // "prefix:bar\x00"
func PathToKey(path, prefix, root string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("weave: empty path")
	}

	pathStr := path
	if root != "" {
		if rel, err := filepath.Rel(root, path); err == nil && rel != "." && !strings.HasPrefix(rel, "..") {
			pathStr = rel
		}
	}

	key := []byte(prefix + pathStr)
	key = append(key, 0)
	return key, nil
}

// KeyToPath 把文档键转换回文件路径
//
// PathToKey 的逆操作：剥掉末尾 null 字节、去掉 prefix、
// root 非空时拼回父目录。键必须是合法 UTF-8。
func KeyToPath(key []byte, prefix, root string) (string, error) {
	if n := len(key); n > 0 && key[n-1] == 0 {
		key = key[:n-1]
	}
	if len(key) == 0 {
		return "", fmt.Errorf("weave: empty key")
	}
	if !utf8.Valid(key) {
		return "", fmt.Errorf("weave: key is not valid utf-8")
	}

	pathStr := string(key)
	if prefix != "" {
		pathStr = strings.TrimPrefix(pathStr, prefix)
	}

	if root != "" {
		return filepath.Join(root, strings.TrimLeft(pathStr, "/")), nil
	}
	return pathStr, nil
}
