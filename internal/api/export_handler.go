package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"gorm.io/gorm"

	"folioBuilder/internal/api/middleware"
	"folioBuilder/internal/builder"
	"folioBuilder/internal/database"
	"folioBuilder/internal/metrics"
	"folioBuilder/internal/render"
	"folioBuilder/internal/storage"
	"folioBuilder/internal/tasks"
)

// 导出目标，用作指标标签。
const (
	sinkDownload = "download"
	sinkPDF      = "pdf"
	sinkShare    = "share"
)

// ObjectStore 是 API 使用的对象存储能力。
type ObjectStore interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
	GeneratePresignedURL(ctx context.Context, objectKey string, duration time.Duration, downloadName string) (string, error)
	DeletePrefix(ctx context.Context, prefix string) error
}

// TaskEnqueuer 由 asynq.Client 实现。
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ExportOptions 控制导出频率与链接有效期。
type ExportOptions struct {
	RateLimitPerHour int
	LinkTTL          time.Duration
}

// ExportHandler 负责三种导出：下载、PDF 与分享链接。
type ExportHandler struct {
	db       *gorm.DB
	builder  *builder.Service
	storage  ObjectStore
	enqueuer TaskEnqueuer
	counter  redisRateCounter
	opts     ExportOptions
	now      func() time.Time
}

func NewExportHandler(db *gorm.DB, svc *builder.Service, objects ObjectStore, enqueuer TaskEnqueuer, counter redisRateCounter, opts ExportOptions) *ExportHandler {
	if opts.LinkTTL <= 0 {
		opts.LinkTTL = 24 * time.Hour
	}
	return &ExportHandler{
		db:       db,
		builder:  svc,
		storage:  objects,
		enqueuer: enqueuer,
		counter:  counter,
		opts:     opts,
		now:      time.Now,
	}
}

// DownloadHTML 以附件形式返回独立的 HTML 文档。
// GET /v1/workspace/export/html
func (h *ExportHandler) DownloadHTML(c *gin.Context) {
	workspaceID, ok := workspaceIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	doc, draft, err := h.builder.Document(c.Request.Context(), workspaceID)
	metrics.ExportObserved(sinkDownload, err)
	if err != nil {
		middleware.LoggerFromContext(c).Error("build document failed", slog.Any("error", err))
		Internal(c, "download failed, refresh and try again")
		return
	}

	filename := render.DownloadFilename(draft.Name)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(doc))
}

// RequestPDF 将 PDF 导出任务入队并立即返回 202。
// POST /v1/workspace/export/pdf
func (h *ExportHandler) RequestPDF(c *gin.Context) {
	workspaceID, ok := workspaceIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	if !h.allow(c, workspaceID) {
		return
	}
	ctx := c.Request.Context()

	export := database.Export{
		WorkspaceID: workspaceID,
		Kind:        database.ExportKindPDF,
		Status:      database.ExportStatusPending,
	}
	if err := h.db.WithContext(ctx).Create(&export).Error; err != nil {
		Internal(c, "failed to record export")
		return
	}

	correlationID := middleware.GetCorrelationID(c)
	task, err := tasks.NewExportPDFTask(export.ID, workspaceID, correlationID)
	if err != nil {
		Internal(c, "failed to create task")
		return
	}

	info, err := h.enqueuer.EnqueueContext(ctx, task, asynq.MaxRetry(5))
	if err != nil {
		metrics.ExportObserved(sinkPDF, err)
		_ = h.db.WithContext(ctx).Model(&export).Updates(map[string]any{
			"status": database.ExportStatusFailed,
			"error":  "enqueue failed",
		}).Error
		Internal(c, "pdf generation failed, retry later")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message":   "PDF generation request accepted",
		"task_id":   info.ID,
		"export_id": export.ID,
	})
}

// GetPDFLink 返回最近一次 PDF 导出的预签名下载链接。
// GET /v1/workspace/export/pdf/link
func (h *ExportHandler) GetPDFLink(c *gin.Context) {
	workspaceID, ok := workspaceIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	ctx := c.Request.Context()

	query := h.db.WithContext(ctx).
		Where("workspace_id = ? AND kind = ?", workspaceID, database.ExportKindPDF)
	if id := strings.TrimSpace(c.Query("export_id")); id != "" {
		query = query.Where("id = ?", id)
	}
	var export database.Export
	if err := query.Order("id DESC").First(&export).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "no pdf export found")
			return
		}
		Internal(c, "failed to query export")
		return
	}

	switch export.Status {
	case database.ExportStatusFailed:
		Conflict(c, "pdf generation failed, retry later")
		return
	case database.ExportStatusCompleted:
	default:
		Conflict(c, "pdf not ready")
		return
	}
	if h.storage == nil {
		Internal(c, "object storage unavailable")
		return
	}

	snap, err := h.builder.Snapshot(ctx, workspaceID)
	if err != nil {
		respondBuilderError(c, err)
		return
	}
	name := strings.TrimSuffix(render.DownloadFilename(snap.Draft.Name), ".html") + ".pdf"

	signedURL, err := h.storage.GeneratePresignedURL(ctx, export.ObjectKey, h.opts.LinkTTL, name)
	if err != nil {
		Internal(c, "failed to generate download link")
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": signedURL, "export_id": export.ID})
}

// Share 把文档上传到对象存储并返回分享链接；对象存储不可用时直接返回文档内容。
// POST /v1/workspace/export/share
func (h *ExportHandler) Share(c *gin.Context) {
	workspaceID, ok := workspaceIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	if !h.allow(c, workspaceID) {
		return
	}
	ctx := c.Request.Context()
	log := middleware.LoggerFromContext(c)

	doc, draft, err := h.builder.Document(ctx, workspaceID)
	if err != nil {
		metrics.ExportObserved(sinkShare, err)
		log.Error("build document failed", slog.Any("error", err))
		Internal(c, "share failed, refresh and try again")
		return
	}
	filename := render.DownloadFilename(draft.Name)

	url, expiresAt, err := h.publish(ctx, workspaceID, doc, filename)
	if err != nil {
		log.Warn("share upload failed, returning inline document", slog.Any("error", err))
		metrics.ExportObserved(sinkShare, nil)
		c.JSON(http.StatusOK, gin.H{
			"mode":     "inline",
			"filename": filename,
			"html":     doc,
		})
		return
	}
	metrics.ExportObserved(sinkShare, nil)
	c.JSON(http.StatusOK, gin.H{
		"mode":       "link",
		"url":        url,
		"filename":   filename,
		"expires_at": expiresAt,
	})
}

func (h *ExportHandler) publish(ctx context.Context, workspaceID, doc, filename string) (string, time.Time, error) {
	if h.storage == nil {
		return "", time.Time{}, errors.New("object storage unavailable")
	}
	objectKey := storage.ExportObjectKey(workspaceID, database.ExportKindShare, uuid.NewString(), ".html")
	if _, err := h.storage.UploadFile(ctx, objectKey, strings.NewReader(doc), int64(len(doc)), "text/html; charset=utf-8"); err != nil {
		return "", time.Time{}, fmt.Errorf("upload document: %w", err)
	}
	signedURL, err := h.storage.GeneratePresignedURL(ctx, objectKey, h.opts.LinkTTL, filename)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presign document: %w", err)
	}
	record := database.Export{
		WorkspaceID: workspaceID,
		Kind:        database.ExportKindShare,
		Status:      database.ExportStatusCompleted,
		ObjectKey:   objectKey,
	}
	if err := h.db.WithContext(ctx).Create(&record).Error; err != nil {
		return "", time.Time{}, fmt.Errorf("record share: %w", err)
	}
	return signedURL, h.now().Add(h.opts.LinkTTL), nil
}

// allow 按工作区每小时计数；计数器不可用时放行。
func (h *ExportHandler) allow(c *gin.Context, workspaceID string) bool {
	if h.counter == nil || h.opts.RateLimitPerHour <= 0 {
		return true
	}
	count, err := incrWithTTL(c.Request.Context(), h.counter, exportRateKey(workspaceID, h.now()), time.Hour)
	if err != nil {
		middleware.LoggerFromContext(c).Warn("export rate counter unavailable", slog.Any("error", err))
		return true
	}
	if count > int64(h.opts.RateLimitPerHour) {
		Error(c, http.StatusTooManyRequests, "export limit reached, try again later")
		return false
	}
	return true
}
