// Package notify 定义经 Redis Pub/Sub 转发到 WebSocket 的消息。
// 字段名与客户端解析保持一致。
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// 消息类型。
const (
	TypePreview = "preview"
	TypeExport  = "export"
)

// PreviewMessage 在每次成功修改后发送，携带最新的预览标记。
type PreviewMessage struct {
	Type          string `json:"type"`
	WorkspaceID   string `json:"workspace_id"`
	ThemeClass    string `json:"theme_class"`
	HTML          string `json:"html"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// ExportMessage 报告异步导出的结果。
type ExportMessage struct {
	Type          string `json:"type"`
	WorkspaceID   string `json:"workspace_id"`
	ExportID      uint   `json:"export_id"`
	Sink          string `json:"sink"`
	Status        string `json:"status"`
	CorrelationID string `json:"correlation_id,omitempty"`
	ErrorCode     int    `json:"error_code"`
	ErrorMessage  string `json:"error_message"`
}

// Channel 返回工作区的通知频道名。
func Channel(workspaceID string) string {
	return "workspace_notify:" + workspaceID
}

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Publisher 把消息序列化后发布到工作区频道。
type Publisher struct {
	client redisPublisher
}

func NewPublisher(client redisPublisher) *Publisher {
	return &Publisher{client: client}
}

// Publish 发布任意消息；client 为空时直接忽略。
func (p *Publisher) Publish(ctx context.Context, workspaceID string, msg any) error {
	if p == nil || p.client == nil {
		return nil
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	channel := Channel(workspaceID)
	if err := p.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
	return nil
}
