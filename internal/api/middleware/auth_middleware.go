package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"folioBuilder/internal/auth"
)

// WorkspaceIDKey 是上下文中工作区 ID 的键。
const WorkspaceIDKey = "workspaceID"

// TokenValidator 校验工作区访问令牌。
type TokenValidator interface {
	ValidateToken(tokenString string) (*auth.TokenClaims, error)
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

// AuthMiddleware 校验访问令牌并将 workspaceID 注入上下文。
func AuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c)
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortUnauthorized(c)
			return
		}

		rawToken := parts[1]
		if strings.TrimSpace(rawToken) == "" {
			abortUnauthorized(c)
			return
		}

		claims, err := validator.ValidateToken(rawToken)
		if err != nil || claims.TokenType != auth.TokenTypeWorkspace || claims.WorkspaceID == "" {
			abortUnauthorized(c)
			return
		}

		c.Set(WorkspaceIDKey, claims.WorkspaceID)
		c.Next()
	}
}
