package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"folioBuilder/internal/api/middleware"
	"folioBuilder/internal/builder"
	"folioBuilder/internal/portfolio"
)

func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func AbortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

func Unauthorized(c *gin.Context)           { Error(c, http.StatusUnauthorized, "unauthorized") }
func BadRequest(c *gin.Context, msg string) { Error(c, http.StatusBadRequest, msg) }
func Forbidden(c *gin.Context, msg string)  { Error(c, http.StatusForbidden, msg) }
func NotFound(c *gin.Context, msg string)   { Error(c, http.StatusNotFound, msg) }
func Conflict(c *gin.Context, msg string)   { Error(c, http.StatusConflict, msg) }
func Internal(c *gin.Context, msg string)   { Error(c, http.StatusInternalServerError, msg) }

// respondBuilderError 把表单修改的错误映射为 HTTP 状态码。
func respondBuilderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, portfolio.ErrUnknownField),
		errors.Is(err, portfolio.ErrUnknownList),
		errors.Is(err, portfolio.ErrInvalidDraft),
		errors.Is(err, builder.ErrInvalidWorkspace):
		BadRequest(c, err.Error())
	case errors.Is(err, portfolio.ErrEntryNotFound),
		errors.Is(err, builder.ErrWorkspaceDeleted):
		NotFound(c, err.Error())
	default:
		middleware.LoggerFromContext(c).Error("builder operation failed", "error", err)
		Internal(c, "something went wrong, refresh and try again")
	}
}

func workspaceIDFromContext(c *gin.Context) (string, bool) {
	value, exists := c.Get(middleware.WorkspaceIDKey)
	if !exists {
		return "", false
	}
	id, ok := value.(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
