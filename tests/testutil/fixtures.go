// Package testutil 提供测试辅助工具
package testutil

// 测试数据固件
//
// 提供测试中常用的常量值，确保测试一致性。

const (
	// DefaultTestTopic 默认测试主题名称
	//
	// 所有以此名称派生主题的节点会进入同一个覆盖网。
	DefaultTestTopic = "weave/test/chat"

	// DefaultTestContent 默认测试内容
	//
	// 用于 blob 读写与下载测试的样本数据。
	DefaultTestContent = "hello from weave integration tests"
)
