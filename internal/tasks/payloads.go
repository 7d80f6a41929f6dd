package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeExportPDF = "export:pdf"
)

// ExportPDFPayload 指向一条待处理的导出记录。
type ExportPDFPayload struct {
	ExportID      uint   `json:"export_id"`
	WorkspaceID   string `json:"workspace_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewExportPDFTask 构造一个作品集 PDF 导出任务。
func NewExportPDFTask(exportID uint, workspaceID, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ExportPDFPayload{
		ExportID:      exportID,
		WorkspaceID:   workspaceID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeExportPDF, payload), nil
}

// ParseExportPDFPayload 解析任务负载。
func ParseExportPDFPayload(t *asynq.Task) (ExportPDFPayload, error) {
	var p ExportPDFPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return ExportPDFPayload{}, fmt.Errorf("unmarshal export payload: %w", err)
	}
	if p.ExportID == 0 || p.WorkspaceID == "" {
		return ExportPDFPayload{}, fmt.Errorf("export payload missing ids")
	}
	return p, nil
}
