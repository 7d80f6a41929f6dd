package api

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dutchcoders/go-clamd"
)

type fakeScanner struct {
	status string
}

func (s fakeScanner) ScanStream(r io.Reader, _ chan bool) (chan *clamd.ScanResult, error) {
	_, _ = io.Copy(io.Discard, r)
	ch := make(chan *clamd.ScanResult, 1)
	ch <- &clamd.ScanResult{Status: s.status}
	close(ch)
	return ch, nil
}

func newPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func newMultipartUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func (ts *testServer) upload(t *testing.T, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := newMultipartUpload(t, filename, content)
	req := httptest.NewRequest(http.MethodPost, "/v1/workspace/profile", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+ts.token)
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func TestUploadProfileDownscales(t *testing.T) {
	ts := newTestServer(t)

	w := ts.upload(t, "me.png", newPNG(t, 400, 200))
	if w.Code != http.StatusOK {
		t.Fatalf("upload: %d %s", w.Code, w.Body.String())
	}
	var body formBody
	decodeJSON(t, w, &body)
	const prefix = "data:image/png;base64,"
	if !strings.HasPrefix(body.Draft.Profile, prefix) {
		t.Fatalf("unexpected profile %.32q", body.Draft.Profile)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(body.Draft.Profile, prefix))
	if err != nil {
		t.Fatalf("decode data url: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if cfg.Width != 100 || cfg.Height != 50 {
		t.Fatalf("expected 100x50 thumbnail, got %dx%d", cfg.Width, cfg.Height)
	}
	if !strings.Contains(body.Preview.HTML, "pv-profile") {
		t.Fatal("preview should show the uploaded profile")
	}

	w = ts.authed(t, http.MethodDelete, "/v1/workspace/profile", nil)
	decodeJSON(t, w, &body)
	if body.Draft.Profile != "" {
		t.Fatal("expected profile to be cleared")
	}
}

func TestUploadProfileRejects(t *testing.T) {
	ts := newTestServer(t, func(d *Dependencies) { d.UploadMaxBytes = 1024 })

	if w := ts.upload(t, "notes.txt", []byte("just some text")); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for text upload, got %d", w.Code)
	}
	if w := ts.upload(t, "big.png", bytes.Repeat([]byte{0x89}, 4096)); w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 for oversized upload, got %d", w.Code)
	}

	w := ts.authed(t, http.MethodGet, "/v1/workspace/draft", nil)
	if strings.Contains(w.Body.String(), `"profile"`) {
		t.Fatal("rejected uploads must leave the profile unchanged")
	}
}

func TestProcessImageScansForViruses(t *testing.T) {
	h := NewProfileHandler(nil, "", 1<<20, 64).WithScanner(fakeScanner{status: clamd.RES_FOUND})
	if _, err := h.processImage(newPNG(t, 10, 10)); err != errProfileMalicious {
		t.Fatalf("expected malicious error, got %v", err)
	}

	h.WithScanner(fakeScanner{status: clamd.RES_OK})
	dataURL, err := h.processImage(newPNG(t, 10, 10))
	if err != nil {
		t.Fatalf("process clean image: %v", err)
	}
	if !strings.HasPrefix(dataURL, "data:image/png;base64,") {
		t.Fatalf("unexpected data url %q", dataURL)
	}
}

// pngHeader 只包含签名与 IHDR，足以让 DecodeConfig 读出尺寸。
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], w)
	binary.BigEndian.PutUint32(ihdr[4:8], h)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 2 // truecolor

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestDownscaleRejectsHugeDimensions(t *testing.T) {
	if _, _, err := downscale(pngHeader(8000, 8000), "image/png", 100); !errors.Is(err, errProfilePixels) {
		t.Fatalf("expected errProfilePixels, got %v", err)
	}

	ts := newTestServer(t)
	if w := ts.upload(t, "bomb.png", pngHeader(40000, 40000)); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized dimensions, got %d %s", w.Code, w.Body.String())
	}
}

func putDraftWithProfile(t *testing.T, ts *testServer, profile string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(map[string]string{"name": "Ada", "profile": profile})
	if err != nil {
		t.Fatalf("marshal draft: %v", err)
	}
	return ts.authed(t, http.MethodPut, "/v1/workspace/draft", body)
}

func TestPutDraftProfileGoesThroughImageChecks(t *testing.T) {
	ts := newTestServer(t)

	fake := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte(strings.Repeat("<script>alert(1)</script>", 100)))
	if w := putDraftWithProfile(t, ts, fake); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-image profile, got %d %s", w.Code, w.Body.String())
	}

	valid := "data:image/png;base64," + base64.StdEncoding.EncodeToString(newPNG(t, 400, 200))
	w := putDraftWithProfile(t, ts, valid)
	if w.Code != http.StatusOK {
		t.Fatalf("put draft: %d %s", w.Code, w.Body.String())
	}
	var body formBody
	decodeJSON(t, w, &body)
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(body.Draft.Profile, "data:image/png;base64,"))
	if err != nil {
		t.Fatalf("decode stored profile: %v", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if cfg.Width > 100 || cfg.Height > 100 {
		t.Fatalf("imported profile was not downscaled: %dx%d", cfg.Width, cfg.Height)
	}
}

func TestImportDataURLLimits(t *testing.T) {
	h := NewProfileHandler(nil, "", 1024, 100)

	big := "data:image/png;base64," + base64.StdEncoding.EncodeToString(make([]byte, 4096))
	if _, err := h.ImportDataURL(big); !errors.Is(err, errProfileTooLarge) {
		t.Fatalf("expected errProfileTooLarge, got %v", err)
	}
	if _, err := h.ImportDataURL("data:text/html;base64,PGI+"); !errors.Is(err, errProfileType) {
		t.Fatalf("expected errProfileType, got %v", err)
	}
	if got, err := h.ImportDataURL(""); err != nil || got != "" {
		t.Fatalf("empty profile should pass through, got %q %v", got, err)
	}

	h.WithScanner(fakeScanner{status: clamd.RES_FOUND})
	small := "data:image/png;base64," + base64.StdEncoding.EncodeToString(newPNG(t, 4, 4))
	if _, err := h.ImportDataURL(small); !errors.Is(err, errProfileMalicious) {
		t.Fatalf("expected errProfileMalicious, got %v", err)
	}
}
