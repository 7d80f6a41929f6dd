package render

import (
	"bytes"
	"fmt"
	"html/template"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"folioBuilder/internal/portfolio"
)

// PlaceholderProfileImage 是没有头像时导出文档使用的 SVG 占位图。
const PlaceholderProfileImage = "data:image/svg+xml,%3Csvg%20xmlns=%27http://www.w3.org/2000/svg%27%20width=%27340%27%20height=%27340%27%20viewBox=%270%200%20340%20340%27%3E%3Crect%20width=%27340%27%20height=%27340%27%20fill=%27%23e2e8f0%27/%3E%3Ctext%20x=%27170%27%20y=%27180%27%20font-family=%27Arial%27%20font-size=%2724%27%20text-anchor=%27middle%27%20fill=%27%23718096%27%3EProfile%20Photo%3C/text%3E%3C/svg%3E"

// Palette 描述一个主题的强调色。渐变主题的 Start 与 End 不同。
type Palette struct {
	Theme portfolio.Theme `json:"theme"`
	Label string          `json:"label"`
	Start string          `json:"accent_start"`
	End   string          `json:"accent_end"`
}

var palettes = map[portfolio.Theme]Palette{
	portfolio.ThemePro:      {Theme: portfolio.ThemePro, Label: "Professional", Start: "#2563eb", End: "#2563eb"},
	portfolio.ThemeNorm:     {Theme: portfolio.ThemeNorm, Label: "Normal", Start: "#2b6cb0", End: "#2b6cb0"},
	portfolio.ThemeCreative: {Theme: portfolio.ThemeCreative, Label: "Creative", Start: "#7c5cff", End: "#00c6ff"},
	portfolio.ThemeCustom:   {Theme: portfolio.ThemeCustom, Label: "Custom", Start: portfolio.DefaultAccent, End: portfolio.DefaultAccent},
}

// PaletteFor 返回主题的强调色；custom 主题使用用户颜色。
func PaletteFor(theme portfolio.Theme, accent string) Palette {
	p := palettes[portfolio.ParseTheme(string(theme))]
	if p.Theme == portfolio.ThemeCustom {
		accent = portfolio.NormalizeAccent(accent)
		p.Start, p.End = accent, accent
	}
	return p
}

// Palettes 按主题顺序列出全部调色板。
func Palettes() []Palette {
	out := make([]Palette, 0, len(portfolio.Themes))
	for _, t := range portfolio.Themes {
		out = append(out, palettes[t])
	}
	return out
}

const baseStylesheet = `
body{margin:0;font-family:Inter,system-ui,-apple-system,Segoe UI,Roboto,Arial;background:#0f1724;color:#e6eef8}
.preview{max-width:980px;margin:0 auto;border:1px solid rgba(255,255,255,.08);border-radius:16px;overflow:hidden}
.export-nav{position:sticky;top:0;padding:12px 18px;background:rgba(10,18,36,.9);border-bottom:1px solid rgba(255,255,255,.12);backdrop-filter:blur(10px);display:flex;justify-content:space-between;align-items:center}
.export-nav a{color:#e6eef8;text-decoration:none;margin:0 6px}
.export-nav nav{display:flex;gap:12px}
.export-hero{padding:28px 18px;background:linear-gradient(180deg,rgba(255,255,255,.04),transparent)}
.export-hero-inner{display:grid;grid-template-columns:1.2fr 320px;gap:18px;align-items:center}
.profile-frame{width:320px;height:320px;border-radius:999px;overflow:hidden;border:1px solid rgba(255,255,255,.12);background:rgba(255,255,255,.02)}
.profile-frame img{width:100%;height:100%;object-fit:cover}
.wrap{padding:18px}
.section{padding:16px 0;border-bottom:1px solid rgba(255,255,255,.08)}
.muted{color:#9aa7b8}
.grid2{display:grid;grid-template-columns:1fr 1fr;gap:12px}
@media (max-width:700px){.grid2{grid-template-columns:1fr}.export-hero-inner{grid-template-columns:1fr}.profile-frame{width:220px;height:220px}}
.card{background:linear-gradient(180deg,#111a2c,#162035);border:1px solid rgba(255,255,255,.08);border-radius:12px;padding:12px}
.chip{display:inline-block;padding:6px 10px;border-radius:999px;font-size:.85rem;margin:4px 6px 0 0;border:1px solid rgba(255,255,255,.1);color:#9aa7b8}
.list{margin:6px 0 0 16px}
.flex{display:flex;gap:8px;flex-wrap:wrap}
.project-desc{margin:6px 0}
.project-link{margin-top:6px}
h1{font-size:2.6rem;margin:0 0 6px}
.subtitle{margin:0 0 6px;color:#9aa7b8}
.lead{color:#9aa7b8;max-width:60ch;margin:6px 0 12px}
.hero-cta{margin:12px 0}
.hero-cta .btn{margin-right:8px}
.btn-ghost{background:transparent !important;color:inherit !important;border:1px solid currentColor !important}
.nav-brand{font-weight:800;color:#e6eef8;text-decoration:none;display:flex;gap:6px;align-items:center}
.theme-pro{background:#fff;color:#0b1220}
.theme-pro .export-nav{background:#fff;border-bottom:1px solid #e2e8f0}
.theme-pro .export-nav a{color:#4a5568}
.theme-pro .export-hero{background:#f7fafc}
.theme-pro .muted{color:#4a5568}
.theme-pro .card{background:#fff;border:1px solid #e2e8f0;box-shadow:none}
.theme-pro .nav-brand{color:#0b1220}
.theme-norm{background:#f7fafc;color:#1a202c}
.theme-norm .export-nav{background:#fff;border-bottom:1px solid #e2e8f0}
.theme-norm .export-nav a{color:#4a5568}
.theme-norm .export-hero{background:#fff}
.theme-norm .muted{color:#4a5568}
.theme-norm .card{background:#fff;border:1px solid #e2e8f0;box-shadow:none}
.theme-norm .nav-brand{color:#1a202c}
.theme-cre{background:linear-gradient(180deg,#0b132b,#0f172a);color:#f5f7ff}
.theme-cre .export-nav{background:linear-gradient(90deg,#4318ff,#e5383b);border:none}
.theme-cre .export-nav .nav-brand,.theme-cre .export-nav .brand-mark,.theme-cre .export-nav a{color:#fff}
.theme-cre .export-hero{background:radial-gradient(600px 300px at 10% 10%,rgba(67,24,255,.3),transparent),radial-gradient(600px 300px at 90% 15%,rgba(229,56,59,.25),transparent)}
.theme-cre .accent{background:linear-gradient(90deg,#4318ff,#e5383b);-webkit-background-clip:text;background-clip:text;color:transparent;font-weight:800}
.theme-cre .muted{color:#b8c1ec}
.theme-cre .card{background:rgba(255,255,255,.06);border:1px solid rgba(255,255,255,.18);backdrop-filter:blur(6px)}
@media print{.export-nav{position:static;background:#fff !important;border-bottom:1px solid #ddd}body{background:#fff;color:#000}a{color:#000}}
`

// Stylesheet 返回内联到导出文档的样式表。强调色只来自调色板或经过校验的十六进制颜色。
func Stylesheet(d portfolio.Draft) template.CSS {
	p := PaletteFor(d.Theme, d.CustomAccent)
	var b strings.Builder
	b.WriteString(baseStylesheet)
	fmt.Fprintf(&b, ".accent{color:%s}\n", p.Start)
	fmt.Fprintf(&b, ".brand-mark{color:%s}\n", p.Start)
	fmt.Fprintf(&b, ".btn{background:linear-gradient(90deg,%s,%s);color:#fff;border:1px solid rgba(255,255,255,.1);padding:10px 14px;border-radius:12px;display:inline-flex;align-items:center;gap:8px;text-decoration:none}\n", p.Start, p.End)
	if p.Theme == portfolio.ThemeCustom {
		fmt.Fprintf(&b, ".theme-custom .accent{color:%s}\n.theme-custom .brand-mark{color:%s}\n", p.Start, p.Start)
	}
	return template.CSS(b.String())
}

type navItem struct {
	ID    string
	Title string
}

type documentView struct {
	Title         string
	Name          string
	MetaDesc      string
	OGImage       string
	CSS           template.CSS
	ThemeClass    string
	Brand         string
	Nav           []navItem
	DisplayName   string
	Role          string
	Summary       string
	Contact       string
	ProfileImage  template.URL
	SectionsBlock template.HTML
}

const documentTemplate = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8"/>
<meta name="viewport" content="width=device-width, initial-scale=1"/>
<title>{{.Title}}</title>
{{- if .MetaDesc}}
<meta name="description" content="{{.MetaDesc}}"/>
{{- end}}
{{- if .Name}}
<meta property="og:title" content="{{.Name}}'s Portfolio"/>
{{- end}}
{{- if .MetaDesc}}
<meta property="og:description" content="{{.MetaDesc}}"/>
{{- end}}
{{- if .OGImage}}
<meta property="og:image" content="{{.OGImage}}"/>
{{- end}}
<style>{{.CSS}}</style>
</head>
<body>
<div class="preview {{.ThemeClass}}">
<header class="export-nav">
<a class="nav-brand" href="#about"><span class="brand-mark">◆</span> {{.Brand}}<span>Portfolio</span></a>
<nav aria-label="Portfolio sections">{{range .Nav}}<a href="#{{.ID}}">{{.Title}}</a>{{end}}</nav>
</header>
<div class="export-hero">
<div class="export-hero-inner">
<div class="hero-left">
<h1>Hi, I'm <span class="accent">{{.DisplayName}}</span></h1>
<p class="subtitle">{{.Role}}</p>
<p class="lead">{{.Summary}}</p>
<div class="hero-cta">
<a href="#projects" class="btn">View Projects</a>
<a href="#contact" class="btn btn-ghost">Contact Me</a>
</div>
<p class="muted">{{.Contact}}</p>
</div>
<div class="hero-right">
<div class="profile-frame"><img src="{{.ProfileImage}}" alt="Profile"></div>
</div>
</div>
</div>
<div class="wrap">
{{.SectionsBlock}}
</div>
</div>
</body>
</html>
`

var documentTmpl = template.Must(template.New("document").Parse(documentTemplate))

var sectionPolicy = newSectionPolicy()

func newSectionPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("section", "h2", "h3", "div", "p", "span", "strong", "ul", "li", "a")
	p.AllowAttrs("class", "id").Globally()
	p.AllowAttrs("href").OnElements("a")
	p.AllowAttrs("target").Matching(regexp.MustCompile(`^_blank$`)).OnElements("a")
	p.AllowAttrs("rel").Matching(regexp.MustCompile(`^noopener$`)).OnElements("a")
	p.RequireParseableURLs(true)
	p.AllowRelativeURLs(true)
	p.AllowURLSchemes("http", "https", "mailto")
	return p
}

// SanitizeSections 用白名单策略清洗区块标记。
func SanitizeSections(markup template.HTML) template.HTML {
	return template.HTML(sectionPolicy.Sanitize(string(markup)))
}

// BuildDocument 生成自包含的独立 HTML 文档：内联样式、固定导航与主页首屏，
// 随后嵌入预览的区块标记。
func BuildDocument(d portfolio.Draft, pv Preview) (string, error) {
	order := d.SectionOrder
	if len(order) == 0 {
		order = portfolio.DefaultSectionOrder
	}
	nav := make([]navItem, 0, len(order))
	for _, s := range order {
		nav = append(nav, navItem{ID: string(s), Title: s.Title()})
	}

	view := documentView{
		Title:         "Portfolio",
		Name:          d.Name,
		MetaDesc:      d.MetaDesc,
		OGImage:       d.OGImage,
		CSS:           Stylesheet(d),
		ThemeClass:    d.Theme.Class(),
		Brand:         orDefault(d.Name, "Your"),
		Nav:           nav,
		DisplayName:   orDefault(d.Name, DefaultName),
		Role:          orDefault(d.Role, DefaultRole),
		Summary:       orDefault(d.Summary, DefaultSummary),
		Contact:       orDefault(d.ContactLine(), DefaultContact),
		ProfileImage:  template.URL(PlaceholderProfileImage),
		SectionsBlock: SanitizeSections(pv.Sections),
	}
	if d.Name != "" {
		view.Title = d.Name + " – Portfolio"
	}
	if portfolio.IsProfileDataURL(d.Profile) {
		view.ProfileImage = template.URL(d.Profile)
	}

	var buf bytes.Buffer
	if err := documentTmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("build document: %w", err)
	}
	return buf.String(), nil
}

// Export 依次执行渲染与文档生成。
func Export(d portfolio.Draft) (string, error) {
	pv, err := RenderPreview(d)
	if err != nil {
		return "", err
	}
	return BuildDocument(d, pv)
}

var filenameUnsafe = regexp.MustCompile(`[^a-zA-Z0-9]`)

// DownloadFilename 把姓名中的非字母数字字符替换为下划线，姓名为空时使用 portfolio。
func DownloadFilename(name string) string {
	if name == "" {
		name = "portfolio"
	}
	return filenameUnsafe.ReplaceAllString(name, "_") + ".html"
}
