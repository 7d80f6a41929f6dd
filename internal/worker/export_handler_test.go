package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"folioBuilder/internal/database"
	"folioBuilder/internal/errcode"
	"folioBuilder/internal/notify"
	"folioBuilder/internal/tasks"
)

type fakeRenderer struct {
	got string
	err error
}

func (r *fakeRenderer) Render(_ context.Context, html string) ([]byte, error) {
	r.got = html
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF-1.7 fake"), nil
}

type fakeUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (u *fakeUploader) UploadFile(_ context.Context, name string, reader io.Reader, _ int64, contentType string) (*minio.UploadInfo, error) {
	if contentType != "application/pdf" {
		return nil, fmt.Errorf("unexpected content type %q", contentType)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.objects == nil {
		u.objects = map[string][]byte{}
	}
	u.objects[name] = data
	return &minio.UploadInfo{Key: name, Size: int64(len(data))}, nil
}

type recordingPublisher struct {
	messages []notify.ExportMessage
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, msg any) error {
	if m, ok := msg.(notify.ExportMessage); ok {
		p.messages = append(p.messages, m)
	}
	return nil
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newDocumentServer(t *testing.T, secret string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Internal-Secret") != secret {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		if r.URL.Path != "/v1/internal/workspaces/ws-1/document" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, "<!doctype html><title>Ada – Portfolio</title>")
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExportPDFHandlerCompletes(t *testing.T) {
	db := openTestDB(t)
	export := database.Export{WorkspaceID: "ws-1", Kind: database.ExportKindPDF, Status: database.ExportStatusPending}
	if err := db.Create(&export).Error; err != nil {
		t.Fatalf("create export: %v", err)
	}
	srv := newDocumentServer(t, "s3cret")

	renderer := &fakeRenderer{}
	uploader := &fakeUploader{}
	pub := &recordingPublisher{}
	h := NewExportPDFHandler(db, uploader, renderer, pub, nil, ExportConfig{
		InternalSecret:     "s3cret",
		InternalAPIBaseURL: srv.URL + "/",
		HTTPClient:         srv.Client(),
	})

	task, _ := tasks.NewExportPDFTask(export.ID, "ws-1", "corr-1")
	if err := h.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("process: %v", err)
	}

	if !strings.Contains(renderer.got, "Ada – Portfolio") {
		t.Fatalf("renderer received unexpected document %q", renderer.got)
	}
	var stored database.Export
	if err := db.First(&stored, export.ID).Error; err != nil {
		t.Fatalf("reload export: %v", err)
	}
	if stored.Status != database.ExportStatusCompleted {
		t.Fatalf("unexpected status %q", stored.Status)
	}
	if !strings.HasPrefix(stored.ObjectKey, "workspaces/ws-1/pdf/") || !strings.HasSuffix(stored.ObjectKey, ".pdf") {
		t.Fatalf("unexpected object key %q", stored.ObjectKey)
	}
	if _, ok := uploader.objects[stored.ObjectKey]; !ok {
		t.Fatal("pdf was not uploaded under the recorded key")
	}
	if len(pub.messages) != 1 || pub.messages[0].Status != database.ExportStatusCompleted || pub.messages[0].CorrelationID != "corr-1" {
		t.Fatalf("unexpected notifications %+v", pub.messages)
	}
}

func TestExportPDFHandlerRenderFailureIsRetried(t *testing.T) {
	db := openTestDB(t)
	export := database.Export{WorkspaceID: "ws-1", Kind: database.ExportKindPDF, Status: database.ExportStatusPending}
	db.Create(&export)
	srv := newDocumentServer(t, "s3cret")

	pub := &recordingPublisher{}
	h := NewExportPDFHandler(db, &fakeUploader{}, &fakeRenderer{err: errors.New("chromium crashed")}, pub, nil, ExportConfig{
		InternalSecret:     "s3cret",
		InternalAPIBaseURL: srv.URL,
		HTTPClient:         srv.Client(),
	})

	task, _ := tasks.NewExportPDFTask(export.ID, "ws-1", "")
	if err := h.ProcessTask(context.Background(), task); err == nil {
		t.Fatal("expected render error to be returned for retry")
	}
	var stored database.Export
	db.First(&stored, export.ID)
	if stored.Status != database.ExportStatusPending {
		t.Fatalf("non-final attempt must leave export pending, got %q", stored.Status)
	}
	if len(pub.messages) != 0 {
		t.Fatalf("non-final attempt must not notify, got %+v", pub.messages)
	}
}

func TestExportPDFHandlerSkipsMissingOrForeignExport(t *testing.T) {
	db := openTestDB(t)
	export := database.Export{WorkspaceID: "other", Kind: database.ExportKindPDF, Status: database.ExportStatusPending}
	db.Create(&export)

	renderer := &fakeRenderer{}
	h := NewExportPDFHandler(db, &fakeUploader{}, renderer, nil, nil, ExportConfig{})

	for _, id := range []uint{export.ID, export.ID + 100} {
		task, _ := tasks.NewExportPDFTask(id, "ws-1", "")
		if err := h.ProcessTask(context.Background(), task); err != nil {
			t.Fatalf("export %d: expected skip, got %v", id, err)
		}
	}
	if renderer.got != "" {
		t.Fatal("renderer must not run for skipped exports")
	}
}

func TestExportPDFHandlerBadPayloadSkipsRetry(t *testing.T) {
	h := NewExportPDFHandler(nil, nil, nil, nil, nil, ExportConfig{})
	err := h.ProcessTask(context.Background(), asynq.NewTask(tasks.TypeExportPDF, []byte("{")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}

func TestFetchInternalDocumentRequiresSecret(t *testing.T) {
	srv := newDocumentServer(t, "s3cret")
	if _, err := fetchInternalDocument(context.Background(), srv.Client(), srv.URL, "ws-1", " ", ""); err == nil {
		t.Fatal("expected missing secret error")
	}
	if _, err := fetchInternalDocument(context.Background(), srv.Client(), srv.URL, "ws-1", "wrong", ""); err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestExportPDFHandlerMissingWorkspaceGivesUp(t *testing.T) {
	db := openTestDB(t)
	export := database.Export{WorkspaceID: "gone", Kind: database.ExportKindPDF, Status: database.ExportStatusPending}
	db.Create(&export)
	srv := newDocumentServer(t, "s3cret")

	pub := &recordingPublisher{}
	h := NewExportPDFHandler(db, &fakeUploader{}, &fakeRenderer{}, pub, nil, ExportConfig{
		InternalSecret:     "s3cret",
		InternalAPIBaseURL: srv.URL,
		HTTPClient:         srv.Client(),
	})

	task, _ := tasks.NewExportPDFTask(export.ID, "gone", "")
	if err := h.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("expected no retry for a missing workspace, got %v", err)
	}
	var stored database.Export
	db.First(&stored, export.ID)
	if stored.Status != database.ExportStatusFailed {
		t.Fatalf("expected failed export, got %q", stored.Status)
	}
	if len(pub.messages) != 1 || pub.messages[0].ErrorCode != errcode.ResourceMissing {
		t.Fatalf("unexpected notifications %+v", pub.messages)
	}
}
