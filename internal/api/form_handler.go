package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"folioBuilder/internal/api/middleware"
	"folioBuilder/internal/builder"
	"folioBuilder/internal/portfolio"
)

// maxDraftBytes 限制导入草稿的请求体大小；头像以 data URL 内联，因此留有余量。
const maxDraftBytes = 8 << 20

// profileImporter 校验导入草稿中内嵌的头像。
type profileImporter interface {
	ImportDataURL(dataURL string) (string, error)
}

// FormHandler 负责表单字段、主题与列表的编辑。
type FormHandler struct {
	builder  *builder.Service
	profiles profileImporter
}

func NewFormHandler(svc *builder.Service, profiles profileImporter) *FormHandler {
	return &FormHandler{builder: svc, profiles: profiles}
}

type previewResponse struct {
	ThemeClass string `json:"theme_class"`
	HTML       string `json:"html"`
}

type formResponse struct {
	WorkspaceID string               `json:"workspace_id"`
	Form        *portfolio.FormState `json:"form"`
	Draft       portfolio.Draft      `json:"draft"`
	Preview     previewResponse      `json:"preview"`
}

func newFormResponse(snap builder.Snapshot) formResponse {
	return formResponse{
		WorkspaceID: snap.WorkspaceID,
		Form:        snap.Form,
		Draft:       snap.Draft,
		Preview: previewResponse{
			ThemeClass: snap.Preview.ThemeClass,
			HTML:       string(snap.Preview.HTML),
		},
	}
}

// mutate 执行一次修改并返回最新状态。
func (h *FormHandler) mutate(c *gin.Context, status int, fn func(*portfolio.FormState) error) {
	workspaceID, ok := workspaceIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	snap, err := h.builder.Mutate(c.Request.Context(), workspaceID, fn)
	if err != nil {
		respondBuilderError(c, err)
		return
	}
	c.JSON(status, newFormResponse(snap))
}

func (h *FormHandler) snapshot(c *gin.Context) (builder.Snapshot, bool) {
	workspaceID, ok := workspaceIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return builder.Snapshot{}, false
	}
	snap, err := h.builder.Snapshot(c.Request.Context(), workspaceID)
	if err != nil {
		respondBuilderError(c, err)
		return builder.Snapshot{}, false
	}
	return snap, true
}

// GetForm 返回表单、草稿与预览。
func (h *FormHandler) GetForm(c *gin.Context) {
	if snap, ok := h.snapshot(c); ok {
		c.JSON(http.StatusOK, newFormResponse(snap))
	}
}

// GetDraft 返回收集后的草稿，可直接作为 PUT /draft 的请求体。
func (h *FormHandler) GetDraft(c *gin.Context) {
	if snap, ok := h.snapshot(c); ok {
		c.JSON(http.StatusOK, snap.Draft)
	}
}

// GetPreview 返回预览标记。
func (h *FormHandler) GetPreview(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	if c.Query("format") == "html" {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(snap.Preview.HTML))
		return
	}
	c.JSON(http.StatusOK, previewResponse{ThemeClass: snap.Preview.ThemeClass, HTML: string(snap.Preview.HTML)})
}

// PutDraft 用经过校验的草稿整体替换表单。
func (h *FormHandler) PutDraft(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxDraftBytes+1))
	if err != nil {
		BadRequest(c, "failed to read body")
		return
	}
	if len(body) > maxDraftBytes {
		Error(c, http.StatusRequestEntityTooLarge, "draft too large")
		return
	}
	draft, err := portfolio.DecodeDraftJSON(body)
	if err != nil {
		respondBuilderError(c, err)
		return
	}
	if draft.Profile != "" {
		profile, err := h.profiles.ImportDataURL(draft.Profile)
		if err != nil {
			respondProfileError(c, middleware.LoggerFromContext(c), err)
			return
		}
		draft.Profile = profile
	}
	h.mutate(c, http.StatusOK, func(f *portfolio.FormState) error {
		f.ReplaceWithDraft(draft)
		return nil
	})
}

type setFieldRequest struct {
	Value *string `json:"value"`
}

// SetField 写入单值字段。
func (h *FormHandler) SetField(c *gin.Context) {
	var req setFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Value == nil {
		BadRequest(c, "value is required")
		return
	}
	field := c.Param("field")
	h.mutate(c, http.StatusOK, func(f *portfolio.FormState) error {
		return f.SetField(field, *req.Value)
	})
}

type setThemeRequest struct {
	Theme        string `json:"theme" binding:"required"`
	CustomAccent string `json:"customAccent"`
}

// SetTheme 切换主题，未知主题回落为 pro。
func (h *FormHandler) SetTheme(c *gin.Context) {
	var req setThemeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	h.mutate(c, http.StatusOK, func(f *portfolio.FormState) error {
		f.SetTheme(req.Theme, req.CustomAccent)
		return nil
	})
}

// AddEntry 在列表末尾追加一个空条目。
func (h *FormHandler) AddEntry(c *gin.Context) {
	kind, err := portfolio.ParseListKind(c.Param("kind"))
	if err != nil {
		respondBuilderError(c, err)
		return
	}
	h.mutate(c, http.StatusCreated, func(f *portfolio.FormState) error {
		_, err := f.AddEntry(kind)
		return err
	})
}

type updateEntryRequest struct {
	Values map[string]string `json:"values" binding:"required"`
}

// UpdateEntry 修改条目中的部分字段。
func (h *FormHandler) UpdateEntry(c *gin.Context) {
	kind, err := portfolio.ParseListKind(c.Param("kind"))
	if err != nil {
		respondBuilderError(c, err)
		return
	}
	var req updateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	entryID := c.Param("entry")
	h.mutate(c, http.StatusOK, func(f *portfolio.FormState) error {
		_, err := f.UpdateEntry(kind, entryID, req.Values)
		return err
	})
}

// RemoveEntry 删除条目。
func (h *FormHandler) RemoveEntry(c *gin.Context) {
	kind, err := portfolio.ParseListKind(c.Param("kind"))
	if err != nil {
		respondBuilderError(c, err)
		return
	}
	entryID := c.Param("entry")
	h.mutate(c, http.StatusOK, func(f *portfolio.FormState) error {
		return f.RemoveEntry(kind, entryID)
	})
}
