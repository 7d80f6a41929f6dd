package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"gorm.io/gorm"

	"folioBuilder/internal/database"
	"folioBuilder/internal/errcode"
	"folioBuilder/internal/metrics"
	"folioBuilder/internal/notify"
	"folioBuilder/internal/storage"
	"folioBuilder/internal/tasks"
)

// Renderer 把 HTML 文档打印为 PDF。
type Renderer interface {
	Render(ctx context.Context, html string) ([]byte, error)
}

// Uploader 是对象存储的写入端。
type Uploader interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
}

// Publisher 把导出结果推送给工作区订阅者。
type Publisher interface {
	Publish(ctx context.Context, workspaceID string, msg any) error
}

// ExportConfig 描述 Worker 回调 API 所需的信息。
type ExportConfig struct {
	InternalSecret     string
	InternalAPIBaseURL string
	HTTPClient         *http.Client
}

// ExportPDFHandler 负责消费 PDF 导出任务。
type ExportPDFHandler struct {
	db        *gorm.DB
	storage   Uploader
	renderer  Renderer
	publisher Publisher
	logger    *slog.Logger
	cfg       ExportConfig
}

// NewExportPDFHandler 创建任务处理器。
func NewExportPDFHandler(db *gorm.DB, uploader Uploader, renderer Renderer, publisher Publisher, logger *slog.Logger, cfg ExportConfig) *ExportPDFHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportPDFHandler{
		db:        db,
		storage:   uploader,
		renderer:  renderer,
		publisher: publisher,
		logger:    logger,
		cfg:       cfg,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *ExportPDFHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	payload, err := tasks.ParseExportPDFPayload(t)
	if err != nil {
		h.logger.Error("parse task payload failed", slog.Any("error", err))
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	log := h.logger.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.String("workspace_id", payload.WorkspaceID),
		slog.Uint64("export_id", uint64(payload.ExportID)),
	)
	log.Info("starting pdf export task")

	var export database.Export
	if err := h.db.WithContext(ctx).First(&export, payload.ExportID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("export record not found, skipping task")
			return nil
		}
		log.Error("query export failed", slog.Any("error", err))
		return err
	}
	if export.WorkspaceID != payload.WorkspaceID {
		log.Warn("export belongs to another workspace, skipping task")
		return nil
	}

	defer func() {
		if retErr == nil {
			return
		}
		metrics.ExportObserved(database.ExportKindPDF, retErr)
		if !isFinalAsynqAttempt(ctx) {
			return
		}
		h.fail(ctx, log, &export, payload.CorrelationID, errcode.SystemError, strings.TrimSpace(retErr.Error()))
	}()

	document, err := fetchInternalDocument(ctx, h.cfg.HTTPClient, h.cfg.InternalAPIBaseURL, export.WorkspaceID, h.cfg.InternalSecret, payload.CorrelationID)
	if errors.Is(err, errDocumentMissing) {
		log.Warn("workspace document missing, giving up")
		h.fail(ctx, log, &export, payload.CorrelationID, errcode.ResourceMissing, err.Error())
		return nil
	}
	if err != nil {
		log.Error("fetch document failed", slog.Any("error", err))
		return err
	}

	started := time.Now()
	pdfBytes, err := h.renderer.Render(ctx, document)
	if err != nil {
		log.Error("render pdf failed", slog.Any("error", err))
		return err
	}
	log.Debug("pdf rendered", slog.Duration("elapsed", time.Since(started)), slog.Int("bytes", len(pdfBytes)))

	objectName := storage.ExportObjectKey(export.WorkspaceID, database.ExportKindPDF, uuid.NewString(), ".pdf")
	if _, err := h.storage.UploadFile(ctx, objectName, bytes.NewReader(pdfBytes), int64(len(pdfBytes)), "application/pdf"); err != nil {
		log.Error("upload pdf to minio failed", slog.Any("error", err))
		return err
	}

	update := map[string]any{
		"object_key": objectName,
		"status":     database.ExportStatusCompleted,
		"error":      "",
	}
	if err := h.db.WithContext(ctx).Model(&export).Updates(update).Error; err != nil {
		log.Error("update export failed", slog.Any("error", err))
		return err
	}
	metrics.ExportObserved(database.ExportKindPDF, nil)

	h.publish(ctx, log, notify.ExportMessage{
		Type:          notify.TypeExport,
		WorkspaceID:   export.WorkspaceID,
		ExportID:      export.ID,
		Sink:          database.ExportKindPDF,
		Status:        database.ExportStatusCompleted,
		CorrelationID: payload.CorrelationID,
		ErrorCode:     errcode.OK,
	})

	log.Info("pdf export task completed", slog.String("object_key", objectName))
	return nil
}

// fail 把导出标记为失败并通知客户端。
func (h *ExportPDFHandler) fail(ctx context.Context, log *slog.Logger, export *database.Export, correlationID string, code int, message string) {
	if err := h.db.WithContext(ctx).Model(export).Updates(map[string]any{
		"status": database.ExportStatusFailed,
		"error":  truncate(message, 512),
	}).Error; err != nil {
		log.Error("mark export failed", slog.Any("error", err))
	}
	h.publish(ctx, log, notify.ExportMessage{
		Type:          notify.TypeExport,
		WorkspaceID:   export.WorkspaceID,
		ExportID:      export.ID,
		Sink:          database.ExportKindPDF,
		Status:        database.ExportStatusFailed,
		CorrelationID: correlationID,
		ErrorCode:     code,
		ErrorMessage:  message,
	})
}

// 通知失败不影响导出结果，客户端可以轮询下载接口。
func (h *ExportPDFHandler) publish(ctx context.Context, log *slog.Logger, msg notify.ExportMessage) {
	if h.publisher == nil {
		return
	}
	if err := h.publisher.Publish(ctx, msg.WorkspaceID, msg); err != nil {
		log.Error("publish export notification failed", slog.Any("error", err))
	}
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
