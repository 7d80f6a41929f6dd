package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"folioBuilder/internal/portfolio"
	"folioBuilder/internal/render"
)

// ListThemes 返回可选主题与配色。
// GET /v1/themes
func ListThemes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"themes":         render.Palettes(),
		"default":        portfolio.ThemePro,
		"default_accent": portfolio.DefaultAccent,
	})
}
