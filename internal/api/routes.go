package api

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"folioBuilder/internal/api/middleware"
	"folioBuilder/internal/builder"
)

// Dependencies 汇总注册路由所需的服务。Storage、Enqueuer 与 RateCounter 可以为空。
type Dependencies struct {
	DB      *gorm.DB
	Builder *builder.Service
	Auth    interface {
		middleware.TokenValidator
		TokenIssuer
	}
	Storage        ObjectStore
	Enqueuer       TaskEnqueuer
	RateCounter    redisRateCounter
	Subscriber     redisSubscriber
	Logger         *slog.Logger
	InternalSecret string
	AllowedOrigins []string
	ClamdAddr      string
	UploadMaxBytes int64
	UploadMaxDim   int
	Export         ExportOptions
}

// RegisterRoutes 注册 API 路由，不包含 /api 前缀。
func RegisterRoutes(router *gin.Engine, deps Dependencies) {
	workspaceHandler := NewWorkspaceHandler(deps.DB, deps.Builder, deps.Auth, deps.Storage, deps.Logger)
	profileHandler := NewProfileHandler(deps.Builder, deps.ClamdAddr, deps.UploadMaxBytes, deps.UploadMaxDim)
	formHandler := NewFormHandler(deps.Builder, profileHandler)
	exportHandler := NewExportHandler(deps.DB, deps.Builder, deps.Storage, deps.Enqueuer, deps.RateCounter, deps.Export)
	internalHandler := NewInternalHandler(deps.DB, deps.Builder)
	authMiddleware := middleware.AuthMiddleware(deps.Auth)
	requireWorkspace := middleware.RequireWorkspace(func(ctx context.Context, workspaceID string) (bool, error) {
		return workspaceExists(ctx, deps.DB, workspaceID)
	})

	v1 := router.Group("/v1")
	{
		v1.GET("/themes", ListThemes)
		v1.POST("/workspaces", workspaceHandler.CreateWorkspace)

		if deps.Subscriber != nil {
			wsHandler := NewWsHandler(deps.Subscriber, deps.Auth, deps.Builder, deps.Logger, deps.AllowedOrigins)
			v1.GET("/ws", wsHandler.HandleConnection)
		}

		workspace := v1.Group("/workspace")
		workspace.Use(authMiddleware, requireWorkspace)
		{
			workspace.DELETE("", workspaceHandler.DeleteWorkspace)

			workspace.GET("/form", formHandler.GetForm)
			workspace.GET("/draft", formHandler.GetDraft)
			workspace.PUT("/draft", formHandler.PutDraft)
			workspace.GET("/preview", formHandler.GetPreview)
			workspace.PUT("/fields/:field", formHandler.SetField)
			workspace.PUT("/theme", formHandler.SetTheme)
			workspace.POST("/lists/:kind", formHandler.AddEntry)
			workspace.PATCH("/lists/:kind/:entry", formHandler.UpdateEntry)
			workspace.DELETE("/lists/:kind/:entry", formHandler.RemoveEntry)

			workspace.POST("/profile", profileHandler.UploadProfile)
			workspace.DELETE("/profile", profileHandler.DeleteProfile)

			workspace.GET("/export/html", exportHandler.DownloadHTML)
			workspace.POST("/export/pdf", exportHandler.RequestPDF)
			workspace.GET("/export/pdf/link", exportHandler.GetPDFLink)
			workspace.POST("/export/share", exportHandler.Share)
		}

		internal := v1.Group("/internal")
		internal.Use(middleware.InternalSecretMiddleware(deps.InternalSecret))
		{
			internal.GET("/workspaces/:id/document", internalHandler.GetDocument)
		}
	}
}
