package render

import (
	"strings"
	"testing"

	"folioBuilder/internal/portfolio"
)

func TestRenderPreviewEmptyDraft(t *testing.T) {
	pv, err := RenderPreview(portfolio.Collect(portfolio.NewFormState()))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	html := string(pv.HTML)
	for _, want := range []string{DefaultName, DefaultRole, DefaultSummary, DefaultContact, `<span class="muted">—</span>`, `<li class="muted">—</li>`} {
		if !strings.Contains(html, want) {
			t.Errorf("expected preview to contain %q", want)
		}
	}
	if strings.Contains(html, "pv-profile") {
		t.Error("preview must not show a profile image when none is set")
	}
}

func TestRenderPreviewThemeExclusive(t *testing.T) {
	for _, theme := range portfolio.Themes {
		pv, err := RenderPreview(portfolio.Draft{Theme: theme})
		if err != nil {
			t.Fatalf("render %s: %v", theme, err)
		}
		if pv.ThemeClass != "theme-"+string(theme) {
			t.Fatalf("unexpected theme class %q", pv.ThemeClass)
		}
		html := string(pv.HTML)
		count := 0
		for _, other := range portfolio.Themes {
			if strings.Contains(html, "theme-"+string(other)) {
				count++
			}
		}
		if count != 1 {
			t.Fatalf("theme %s: expected exactly one theme class, found %d", theme, count)
		}
	}
}

func TestRenderPreviewEscapes(t *testing.T) {
	d := portfolio.Draft{
		Name:         `<b>Tom & "Jerry"</b>`,
		Skills:       `<script>alert(1)</script>`,
		Achievements: []string{`<img src=x onerror=alert(1)>`},
		Projects:     []portfolio.Project{{Title: "X", Link: "javascript:alert(1)"}},
	}
	pv, err := RenderPreview(d)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	html := string(pv.HTML)
	for _, bad := range []string{"<b>", "<script>", "<img src=x", `"Jerry"`, "javascript:alert"} {
		if strings.Contains(html, bad) {
			t.Errorf("preview contains unescaped %q", bad)
		}
	}
	for _, want := range []string{"&lt;b&gt;Tom &amp; &#34;Jerry&#34;&lt;/b&gt;", "&lt;script&gt;"} {
		if !strings.Contains(html, want) {
			t.Errorf("expected escaped %q", want)
		}
	}
}

func TestRenderPreviewSections(t *testing.T) {
	d := portfolio.Draft{
		Skills:         "Go, Rust,  ,C++",
		Educations:     []portfolio.Education{{Institution: "MIT", Degree: "BS CS", Year: "2020"}},
		Certifications: []portfolio.Certification{{Title: "CKA", Issuer: "CNCF", Year: "2023", URL: "https://cncf.io/cka"}},
		Projects:       []portfolio.Project{{Title: "Engine", Tags: "math, gears", Link: "https://example.com"}},
		GitHub:         "https://github.com/ada",
	}
	pv, err := RenderPreview(d)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	s := string(pv.Sections)
	for _, want := range []string{
		`<span class="chip">Go</span><span class="chip">Rust</span><span class="chip">C&#43;&#43;</span>`,
		`<span class="chip">math</span><span class="chip">gears</span>`,
		">View</a>",
		">View Credential</a>",
		">GitHub</a>",
		"<strong>2023</strong>",
		"<strong>MIT</strong> – BS CS",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("sections missing %q", want)
		}
	}
	if strings.Index(s, "<strong>2023</strong>") > strings.Index(s, "<strong>2020</strong>") {
		t.Error("timeline must list newest year first")
	}
	for _, id := range portfolio.DefaultSectionOrder {
		if !strings.Contains(s, `id="`+string(id)+`"`) {
			t.Errorf("missing section %s", id)
		}
	}
}

func TestBuildDocumentMeta(t *testing.T) {
	doc, err := Export(portfolio.Draft{Name: "Ada", MetaDesc: "Engineer", Theme: portfolio.ThemeNorm})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	for _, want := range []string{
		"<!doctype html>",
		"<title>Ada – Portfolio</title>",
		`<meta name="description" content="Engineer"/>`,
		`<meta property="og:title" content="Ada's Portfolio"/>`,
		`<div class="preview theme-norm">`,
		`<a href="#certifications">Certifications</a>`,
		".accent{color:#2b6cb0}",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %q", want)
		}
	}
	if strings.Contains(doc, "og:image") {
		t.Error("og:image must be omitted when empty")
	}
}

func TestBuildDocumentEmptyDraft(t *testing.T) {
	doc, err := Export(portfolio.Collect(nil))
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(doc, "<title>Portfolio</title>") {
		t.Error("expected generic title")
	}
	for _, absent := range []string{"og:title", "og:description", `name="description"`} {
		if strings.Contains(doc, absent) {
			t.Errorf("unexpected %s meta", absent)
		}
	}
	if !strings.Contains(doc, "data:image/svg") || !strings.Contains(doc, "Profile%20Photo") {
		t.Error("expected placeholder profile image")
	}
}

func TestBuildDocumentUsesProfile(t *testing.T) {
	d := portfolio.Draft{Profile: "data:image/png;base64,iVBORw0KGgo="}
	doc, err := Export(d)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(doc, "data:image/png;base64,iVBORw0KGgo=") {
		t.Error("expected embedded profile image")
	}
	if strings.Contains(doc, "Profile%20Photo") {
		t.Error("placeholder must not be used when a profile is set")
	}
}

func TestBuildDocumentEscapes(t *testing.T) {
	doc, err := Export(portfolio.Draft{Name: `<i>x</i>`, MetaDesc: `"><script>`, OGImage: `" onload="x`})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	for _, bad := range []string{"<i>x</i>", `"><script>`, `" onload="`} {
		if strings.Contains(doc, bad) {
			t.Errorf("document contains unescaped %q", bad)
		}
	}
}

func TestStylesheetPalette(t *testing.T) {
	cases := []struct {
		theme  portfolio.Theme
		accent string
		want   string
	}{
		{portfolio.ThemePro, "", "linear-gradient(90deg,#2563eb,#2563eb)"},
		{portfolio.ThemeNorm, "", "linear-gradient(90deg,#2b6cb0,#2b6cb0)"},
		{portfolio.ThemeCreative, "", "linear-gradient(90deg,#7c5cff,#00c6ff)"},
		{portfolio.ThemeCustom, "#ff8800", ".theme-custom .accent{color:#ff8800}"},
		{portfolio.ThemeCustom, "red;}body{display:none", ".theme-custom .accent{color:#7c5cff}"},
	}
	for _, tc := range cases {
		css := string(Stylesheet(portfolio.Draft{Theme: tc.theme, CustomAccent: tc.accent}))
		if !strings.Contains(css, tc.want) {
			t.Errorf("%s/%q: stylesheet missing %q", tc.theme, tc.accent, tc.want)
		}
	}
}

func TestSanitizeSectionsStripsScripts(t *testing.T) {
	out := string(SanitizeSections(`<section id="about" class="section"><script>alert(1)</script><a href="javascript:x" onclick="y">z</a></section>`))
	if strings.Contains(out, "script") || strings.Contains(out, "onclick") || strings.Contains(out, "javascript") {
		t.Fatalf("unsafe markup survived: %s", out)
	}
	if !strings.Contains(out, `<section id="about" class="section">`) {
		t.Fatalf("allowed markup removed: %s", out)
	}
}

func TestDownloadFilename(t *testing.T) {
	cases := map[string]string{
		"":             "portfolio.html",
		"Ada Lovelace": "Ada_Lovelace.html",
		"José-Ñ":       "Jos___.html",
	}
	for in, want := range cases {
		if got := DownloadFilename(in); got != want {
			t.Errorf("DownloadFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
