package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// WorkspaceLookup 判断工作区是否仍然存在。
type WorkspaceLookup func(ctx context.Context, workspaceID string) (bool, error)

// RequireWorkspace 拒绝指向已删除工作区的令牌，需放在 AuthMiddleware 之后。
func RequireWorkspace(lookup WorkspaceLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceID := c.GetString(WorkspaceIDKey)
		if workspaceID == "" {
			abortUnauthorized(c)
			return
		}
		exists, err := lookup(c.Request.Context(), workspaceID)
		if err != nil {
			LoggerFromContext(c).Error("lookup workspace failed", slog.String("workspace_id", workspaceID), slog.Any("error", err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "something went wrong, refresh and try again"})
			return
		}
		if !exists {
			abortUnauthorized(c)
			return
		}
		c.Next()
	}
}
