package api

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dutchcoders/go-clamd"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/nfnt/resize"

	"folioBuilder/internal/api/middleware"
	"folioBuilder/internal/builder"
	"folioBuilder/internal/portfolio"
)

var allowedProfileTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// maxProfilePixels 限制解码前的像素总数，防止小文件解压出巨大位图。
const maxProfilePixels = 40_000_000

var (
	errProfileTooLarge   = errors.New("image exceeds the upload limit")
	errProfilePixels     = errors.New("image dimensions are too large")
	errProfileType       = errors.New("only png, jpeg, gif and webp images are supported")
	errProfileMalicious  = errors.New("malicious file detected")
	errProfileUndecoding = errors.New("image could not be decoded")
)

// VirusScanner 由 clamd 客户端实现。
type VirusScanner interface {
	ScanStream(r io.Reader, abort chan bool) (chan *clamd.ScanResult, error)
}

// ProfileHandler 负责头像上传。图片缩放后以 data URL 保存在草稿中。
type ProfileHandler struct {
	builder      *builder.Service
	scanner      VirusScanner
	maxBytes     int64
	maxDimension int
}

// NewProfileHandler 返回 ProfileHandler；clamdAddr 为空时不做病毒扫描。
func NewProfileHandler(svc *builder.Service, clamdAddr string, maxBytes int64, maxDimension int) *ProfileHandler {
	h := &ProfileHandler{builder: svc, maxBytes: maxBytes, maxDimension: maxDimension}
	if clamdAddr != "" {
		h.scanner = clamd.NewClamd(clamdAddr)
	}
	return h
}

// WithScanner 替换扫描器。
func (h *ProfileHandler) WithScanner(s VirusScanner) *ProfileHandler {
	h.scanner = s
	return h
}

// UploadProfile 处理头像上传：限制大小、扫描病毒、识别类型并缩放。
// POST /v1/workspace/profile
func (h *ProfileHandler) UploadProfile(c *gin.Context) {
	workspaceID, ok := workspaceIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	log := middleware.LoggerFromContext(c)

	// multipart 头部需要额外空间
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+64*1024)
	file, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			Error(c, http.StatusRequestEntityTooLarge, errProfileTooLarge.Error())
			return
		}
		BadRequest(c, "missing file")
		return
	}
	if file.Size > h.maxBytes {
		Error(c, http.StatusRequestEntityTooLarge, errProfileTooLarge.Error())
		return
	}

	reader, err := file.Open()
	if err != nil {
		Internal(c, "failed to open file")
		return
	}
	data, err := io.ReadAll(io.LimitReader(reader, h.maxBytes+1))
	reader.Close()
	if err != nil {
		Internal(c, "failed to read file")
		return
	}

	dataURL, err := h.processImage(data)
	if err != nil {
		respondProfileError(c, log, err)
		return
	}

	snap, err := h.builder.Mutate(c.Request.Context(), workspaceID, func(f *portfolio.FormState) error {
		f.SetProfile(dataURL)
		return nil
	})
	if err != nil {
		respondBuilderError(c, err)
		return
	}
	c.JSON(http.StatusOK, newFormResponse(snap))
}

// DeleteProfile 清除头像，导出时回到占位图。
// DELETE /v1/workspace/profile
func (h *ProfileHandler) DeleteProfile(c *gin.Context) {
	workspaceID, ok := workspaceIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	snap, err := h.builder.Mutate(c.Request.Context(), workspaceID, func(f *portfolio.FormState) error {
		f.SetProfile("")
		return nil
	})
	if err != nil {
		respondBuilderError(c, err)
		return
	}
	c.JSON(http.StatusOK, newFormResponse(snap))
}

func respondProfileError(c *gin.Context, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, errProfileTooLarge):
		Error(c, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, errProfileType), errors.Is(err, errProfileMalicious),
		errors.Is(err, errProfileUndecoding), errors.Is(err, errProfilePixels):
		BadRequest(c, err.Error())
	default:
		log.Error("process profile image", slog.Any("error", err))
		Internal(c, "failed to process image")
	}
}

// ImportDataURL 校验导入草稿里的头像：解码 base64 后与上传走同样的检查。
func (h *ProfileHandler) ImportDataURL(dataURL string) (string, error) {
	if dataURL == "" {
		return "", nil
	}
	if !portfolio.IsProfileDataURL(dataURL) {
		return "", errProfileType
	}
	_, payload, _ := strings.Cut(dataURL, ";base64,")
	if int64(base64.StdEncoding.DecodedLen(len(payload))) > h.maxBytes+2 {
		return "", errProfileTooLarge
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", errProfileUndecoding
	}
	return h.processImage(data)
}

func (h *ProfileHandler) processImage(data []byte) (string, error) {
	if int64(len(data)) > h.maxBytes {
		return "", errProfileTooLarge
	}
	if err := h.scan(data); err != nil {
		return "", err
	}

	mime := mimetype.Detect(data).String()
	if !allowedProfileTypes[mime] {
		return "", errProfileType
	}

	out, outMime, err := downscale(data, mime, h.maxDimension)
	if err != nil {
		return "", err
	}
	dataURL := "data:" + outMime + ";base64," + base64.StdEncoding.EncodeToString(out)
	if !portfolio.IsProfileDataURL(dataURL) {
		return "", errProfileType
	}
	return dataURL, nil
}

func (h *ProfileHandler) scan(data []byte) error {
	if h.scanner == nil {
		return nil
	}
	abort := make(chan bool)
	defer close(abort)
	results, err := h.scanner.ScanStream(bytes.NewReader(data), abort)
	if err != nil {
		return fmt.Errorf("scan file: %w", err)
	}
	for result := range results {
		if result.Status != clamd.RES_OK {
			return errProfileMalicious
		}
	}
	return nil
}

// downscale 把超出 maxDimension 的图片等比缩小。webp 没有内置解码器，原样保留。
func downscale(data []byte, mime string, maxDimension int) ([]byte, string, error) {
	if mime == "image/webp" || maxDimension <= 0 {
		return data, mime, nil
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", errProfileUndecoding
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxProfilePixels {
		return nil, "", errProfilePixels
	}
	if cfg.Width <= maxDimension && cfg.Height <= maxDimension {
		return data, mime, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", errProfileUndecoding
	}
	thumb := resize.Thumbnail(uint(maxDimension), uint(maxDimension), img, resize.Lanczos3)

	var buf bytes.Buffer
	if mime == "image/jpeg" {
		if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 85}); err != nil {
			return nil, "", fmt.Errorf("encode jpeg: %w", err)
		}
		return buf.Bytes(), mime, nil
	}
	// gif 只保留第一帧
	if err := png.Encode(&buf, thumb); err != nil {
		return nil, "", fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), "image/png", nil
}
