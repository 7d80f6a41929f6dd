package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"folioBuilder/internal/api/middleware"
	"folioBuilder/internal/builder"
)

// InternalHandler 为 Worker 提供渲染用的完整文档。
type InternalHandler struct {
	db      *gorm.DB
	builder *builder.Service
}

func NewInternalHandler(db *gorm.DB, svc *builder.Service) *InternalHandler {
	return &InternalHandler{db: db, builder: svc}
}

// GetDocument 返回工作区的独立 HTML 文档，已由 InternalSecretMiddleware 鉴权。
// GET /v1/internal/workspaces/:id/document
func (h *InternalHandler) GetDocument(c *gin.Context) {
	workspaceID := strings.TrimSpace(c.Param("id"))
	if workspaceID == "" {
		BadRequest(c, "invalid workspace id")
		return
	}
	ctx := c.Request.Context()

	exists, err := workspaceExists(ctx, h.db, workspaceID)
	if err != nil {
		Internal(c, "failed to load workspace")
		return
	}
	if !exists {
		NotFound(c, "workspace not found")
		return
	}

	doc, _, err := h.builder.Document(ctx, workspaceID)
	if err != nil {
		middleware.LoggerFromContext(c).Error("build internal document failed", "error", err)
		Internal(c, "failed to build document")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(doc))
}
