package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"folioBuilder/internal/portfolio"
)

type formBody struct {
	WorkspaceID string              `json:"workspace_id"`
	Form        portfolio.FormState `json:"form"`
	Draft       portfolio.Draft     `json:"draft"`
	Preview     previewResponse     `json:"preview"`
}

func TestGetFormSeedsDefaults(t *testing.T) {
	ts := newTestServer(t)

	w := ts.authed(t, http.MethodGet, "/v1/workspace/form", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("form: %d %s", w.Code, w.Body.String())
	}
	var body formBody
	decodeJSON(t, w, &body)
	if body.WorkspaceID != ts.ws {
		t.Fatalf("unexpected workspace %q", body.WorkspaceID)
	}
	for _, kind := range portfolio.ListKinds {
		if got := len(body.Form.Lists[kind]); got != 1 {
			t.Errorf("%s: expected one seeded entry, got %d", kind, got)
		}
	}
	if body.Preview.ThemeClass != "theme-pro" || !strings.Contains(body.Preview.HTML, "Your Name") {
		t.Fatalf("unexpected preview %+v", body.Preview)
	}
}

func TestSetFieldAndTheme(t *testing.T) {
	ts := newTestServer(t)

	w := ts.authed(t, http.MethodPut, "/v1/workspace/fields/name", map[string]string{"value": "  Ada Lovelace "})
	if w.Code != http.StatusOK {
		t.Fatalf("set field: %d %s", w.Code, w.Body.String())
	}
	var body formBody
	decodeJSON(t, w, &body)
	if body.Draft.Name != "Ada Lovelace" {
		t.Fatalf("expected trimmed name, got %q", body.Draft.Name)
	}

	w = ts.authed(t, http.MethodPut, "/v1/workspace/theme", map[string]string{"theme": "custom", "customAccent": "#ff8800"})
	if w.Code != http.StatusOK {
		t.Fatalf("set theme: %d %s", w.Code, w.Body.String())
	}
	decodeJSON(t, w, &body)
	if body.Draft.Theme != portfolio.ThemeCustom || body.Draft.CustomAccent != "#ff8800" || body.Preview.ThemeClass != "theme-custom" {
		t.Fatalf("unexpected theme state %+v", body.Draft)
	}

	if w := ts.authed(t, http.MethodPut, "/v1/workspace/fields/nickname", map[string]string{"value": "x"}); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", w.Code)
	}
	if w := ts.authed(t, http.MethodPut, "/v1/workspace/fields/name", map[string]string{}); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing value, got %d", w.Code)
	}
}

func TestListEntryLifecycle(t *testing.T) {
	ts := newTestServer(t)

	w := ts.authed(t, http.MethodPost, "/v1/workspace/lists/education", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("add: %d %s", w.Code, w.Body.String())
	}
	var body formBody
	decodeJSON(t, w, &body)
	entries := body.Form.Lists[portfolio.ListEducation]
	if len(entries) != 2 {
		t.Fatalf("expected two education entries, got %d", len(entries))
	}
	id := entries[1].ID

	w = ts.authed(t, http.MethodPatch, "/v1/workspace/lists/education/"+id, map[string]any{
		"values": map[string]string{"inst": "MIT", "deg": "BS CS", "year": "2020"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update: %d %s", w.Code, w.Body.String())
	}
	decodeJSON(t, w, &body)
	want := []portfolio.Education{{Institution: "MIT", Degree: "BS CS", Year: "2020"}}
	if diff := cmp.Diff(want, body.Draft.Educations); diff != "" {
		t.Fatalf("educations mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(body.Preview.HTML, "<strong>MIT</strong> – BS CS") {
		t.Fatal("preview missing education entry")
	}

	if w := ts.authed(t, http.MethodPatch, "/v1/workspace/lists/education/"+id, map[string]any{
		"values": map[string]string{"gpa": "4"},
	}); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown entry field, got %d", w.Code)
	}

	w = ts.authed(t, http.MethodDelete, "/v1/workspace/lists/education/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("remove: %d %s", w.Code, w.Body.String())
	}
	decodeJSON(t, w, &body)
	if len(body.Draft.Educations) != 0 {
		t.Fatalf("expected no collected educations, got %+v", body.Draft.Educations)
	}

	if w := ts.authed(t, http.MethodDelete, "/v1/workspace/lists/education/"+id, nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for removed entry, got %d", w.Code)
	}
	if w := ts.authed(t, http.MethodPost, "/v1/workspace/lists/hobbies", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown list, got %d", w.Code)
	}
}

func TestPutDraftReplacesForm(t *testing.T) {
	ts := newTestServer(t)

	draft := `{"name":"Ada","skills":"Go, Rust,  ,C++","theme":"cre","edus":[{"inst":"MIT","deg":"BS CS","year":"2020","score":""}],"achs":["First program"]}`
	w := ts.authed(t, http.MethodPut, "/v1/workspace/draft", draft)
	if w.Code != http.StatusOK {
		t.Fatalf("put draft: %d %s", w.Code, w.Body.String())
	}

	w = ts.authed(t, http.MethodGet, "/v1/workspace/draft", nil)
	var got portfolio.Draft
	decodeJSON(t, w, &got)
	if got.Name != "Ada" || got.Theme != portfolio.ThemeCreative {
		t.Fatalf("unexpected draft %+v", got)
	}
	if diff := cmp.Diff([]string{"Go", "Rust", "C++"}, got.SkillList()); diff != "" {
		t.Fatalf("skills mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"First program"}, got.Achievements); diff != "" {
		t.Fatalf("achievements mismatch (-want +got):\n%s", diff)
	}

	for _, bad := range []string{`{"name":`, `{"nickname":"x"}`, `{"theme":"neon"}`} {
		if w := ts.authed(t, http.MethodPut, "/v1/workspace/draft", bad); w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", bad, w.Code)
		}
	}
}

func TestGetPreviewHTML(t *testing.T) {
	ts := newTestServer(t)
	ts.authed(t, http.MethodPut, "/v1/workspace/fields/name", map[string]string{"value": `<b>Tom & "Jerry"</b>`})

	w := ts.authed(t, http.MethodGet, "/v1/workspace/preview?format=html", nil)
	if w.Code != http.StatusOK || !strings.HasPrefix(w.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("unexpected preview response %d %q", w.Code, w.Header().Get("Content-Type"))
	}
	if strings.Contains(w.Body.String(), "<b>Tom") {
		t.Fatal("preview must escape user input")
	}
}
