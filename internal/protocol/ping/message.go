package ping

import (
	"time"

	"github.com/google/uuid"
)

// pingRequest 探测请求
type pingRequest struct {
	// ID 请求ID
	ID string `cbor:"1,keyasint"`

	// Timestamp 发送时刻（Unix 纳秒）
	Timestamp int64 `cbor:"2,keyasint"`
}

// pongResponse 探测响应
type pongResponse struct {
	// ID 回显的请求ID
	ID string `cbor:"1,keyasint"`

	// Timestamp 响应时刻（Unix 纳秒）
	Timestamp int64 `cbor:"2,keyasint"`
}

// newPingRequest 创建探测请求
func newPingRequest() *pingRequest {
	return &pingRequest{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UnixNano(),
	}
}

// newPongResponse 创建回显响应
func newPongResponse(pingID string) *pongResponse {
	return &pongResponse{
		ID:        pingID,
		Timestamp: time.Now().UnixNano(),
	}
}
