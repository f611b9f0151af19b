// Package ping 实现往返时延探测服务
package ping

const (
	// ALPN 协议标签
	ALPN = "weave/ping/0"

	// maxFrameSize ping 帧的最大字节数
	maxFrameSize = 1024
)
