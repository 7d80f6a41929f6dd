package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"folioBuilder/internal/api/middleware"
	"folioBuilder/internal/builder"
	"folioBuilder/internal/database"
	"folioBuilder/internal/storage"
)

// TokenIssuer 为新工作区签发访问令牌。
type TokenIssuer interface {
	IssueWorkspaceToken(workspaceID string) (string, time.Time, error)
}

// WorkspaceHandler 负责工作区的创建与删除。
type WorkspaceHandler struct {
	db      *gorm.DB
	builder *builder.Service
	issuer  TokenIssuer
	storage ObjectStore
	logger  *slog.Logger
}

func NewWorkspaceHandler(db *gorm.DB, svc *builder.Service, issuer TokenIssuer, objects ObjectStore, logger *slog.Logger) *WorkspaceHandler {
	return &WorkspaceHandler{db: db, builder: svc, issuer: issuer, storage: objects, logger: logger}
}

// CreateWorkspace 创建匿名工作区并返回访问令牌。
// POST /v1/workspaces
func (h *WorkspaceHandler) CreateWorkspace(c *gin.Context) {
	ws := database.Workspace{PublicID: uuid.NewString()}
	if err := h.db.WithContext(c.Request.Context()).Create(&ws).Error; err != nil {
		Internal(c, "failed to create workspace")
		return
	}

	token, expiresAt, err := h.issuer.IssueWorkspaceToken(ws.PublicID)
	if err != nil {
		Internal(c, "failed to issue token")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"workspace_id": ws.PublicID,
		"access_token": token,
		"token_type":   "Bearer",
		"expires_at":   expiresAt,
	})
}

// DeleteWorkspace 清除草稿、导出记录与对象存储中的文件。
// DELETE /v1/workspace
func (h *WorkspaceHandler) DeleteWorkspace(c *gin.Context) {
	workspaceID, ok := workspaceIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	ctx := c.Request.Context()
	log := middleware.LoggerFromContext(c)

	if err := h.builder.Delete(ctx, workspaceID); err != nil {
		respondBuilderError(c, err)
		return
	}

	if h.storage != nil {
		if err := h.storage.DeletePrefix(ctx, storage.WorkspacePrefix(workspaceID)); err != nil {
			log.Warn("delete workspace objects failed", slog.Any("error", err))
		}
	}

	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("workspace_id = ?", workspaceID).Delete(&database.Export{}).Error; err != nil {
			return err
		}
		return tx.Where("public_id = ?", workspaceID).Delete(&database.Workspace{}).Error
	})
	if err != nil {
		Internal(c, "failed to delete workspace")
		return
	}

	c.Status(http.StatusNoContent)
}

func workspaceExists(ctx context.Context, db *gorm.DB, workspaceID string) (bool, error) {
	var ws database.Workspace
	err := db.WithContext(ctx).Where("public_id = ?", workspaceID).First(&ws).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
