package database

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 导出记录状态。
const (
	ExportStatusPending   = "pending"
	ExportStatusCompleted = "completed"
	ExportStatusFailed    = "failed"
)

// 导出类型。
const (
	ExportKindPDF   = "pdf"
	ExportKindShare = "share"
)

// Workspace 表示一个匿名编辑会话，PublicID 写入访问令牌。
type Workspace struct {
	gorm.Model
	PublicID string `gorm:"uniqueIndex;size:36"`
}

// DraftRecord 保存某个存储键下的草稿 JSON。
type DraftRecord struct {
	gorm.Model
	Key     string         `gorm:"column:draft_key;uniqueIndex;size:128"`
	Content datatypes.JSON `gorm:"type:jsonb"`
}

// Export 记录一次 PDF 或分享导出，ObjectKey 为对象存储中的位置。
type Export struct {
	gorm.Model
	WorkspaceID string `gorm:"index;size:36"`
	Kind        string `gorm:"size:16"`
	Status      string `gorm:"size:32"`
	ObjectKey   string `gorm:"size:512"`
	Error       string `gorm:"size:512"`
}

// AllModels 返回需要自动迁移的模型。
func AllModels() []any {
	return []any{&Workspace{}, &DraftRecord{}, &Export{}}
}
