package render

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"

	"folioBuilder/internal/portfolio"
)

// 预览中缺省值的占位文字。
const (
	DefaultName    = "Your Name"
	DefaultRole    = "Role / Title"
	DefaultSummary = "Short objective appears here."
	DefaultContact = "email • phone • location"
	EmptyMarker    = "—"
)

// Preview 是一次渲染的结果。Sections 是 #preview-sections 的内部标记，
// 导出时原样嵌入独立文档。
type Preview struct {
	HTML       template.HTML
	Sections   template.HTML
	ThemeClass string
}

type link struct {
	Label string
	URL   string
}

type projectView struct {
	Title       string
	Description string
	Tags        []string
	Link        string
}

type timelineItem struct {
	Year  string
	Label string
	Kind  string
}

type previewView struct {
	ThemeClass string
	Name       string
	Role       string
	Summary    string
	Contact    string
	Profile    template.URL
	HasProfile bool
	Sections   template.HTML

	About          string
	Skills         []string
	Projects       []projectView
	Timeline       []timelineItem
	Educations     []portfolio.Education
	Certifications []portfolio.Certification
	Achievements   []string
	Links          []link
	Empty          string
}

const sectionsTemplate = `<section id="about" class="section"><h2 class="accent">About</h2><p class="lead">{{.About}}</p></section>
<section id="skills" class="section"><h2 class="accent">Skills</h2><div class="flex">{{range .Skills}}<span class="chip">{{.}}</span>{{else}}<span class="muted">{{$.Empty}}</span>{{end}}</div></section>
<section id="projects" class="section"><h2 class="accent">Projects</h2><div class="grid2">{{range .Projects}}<div class="card min"><strong>{{.Title}}</strong><div class="muted project-desc">{{.Description}}</div><div class="flex">{{range .Tags}}<span class="chip">{{.}}</span>{{end}}</div>{{if .Link}}<div class="project-link"><a href="{{.Link}}" target="_blank" rel="noopener">View</a></div>{{end}}</div>{{else}}<div class="muted">{{$.Empty}}</div>{{end}}</div></section>
<section id="timeline" class="section"><h2 class="accent">Timeline</h2><ul class="list">{{range .Timeline}}<li><strong>{{.Year}}</strong> <span class="muted">{{.Kind}}</span> {{.Label}}</li>{{else}}<li class="muted">{{$.Empty}}</li>{{end}}</ul></section>
<section id="contact" class="section"><h2 class="accent">Contact</h2><div class="flex">{{range .Links}}<a class="chip" href="{{.URL}}" target="_blank" rel="noopener">{{.Label}}</a> {{else}}<span class="muted">{{$.Empty}}</span>{{end}}</div></section>
<section id="education" class="section"><h2 class="accent">Education</h2>{{range .Educations}}<div class="card min"><strong>{{.Institution}}</strong> – {{.Degree}}<div class="muted">{{.Year}}{{if .Score}} • {{.Score}}{{end}}</div></div>{{else}}<div class="muted">{{$.Empty}}</div>{{end}}</section>
<section id="certifications" class="section"><h2 class="accent">Certifications</h2>{{range .Certifications}}<div class="card min"><strong>{{.Title}}</strong> – {{.Issuer}} <span class="muted">{{.Year}}</span>{{if .URL}}<div><a href="{{.URL}}" target="_blank" rel="noopener">View Credential</a></div>{{end}}</div>{{else}}<div class="muted">{{$.Empty}}</div>{{end}}</section>
<section id="achievements" class="section"><h2 class="accent">Achievements</h2><ul class="list">{{range .Achievements}}<li>{{.}}</li>{{else}}<li class="muted">{{$.Empty}}</li>{{end}}</ul></section>`

const previewTemplate = `<div id="preview" class="preview {{.ThemeClass}}">
<div class="preview-hero">
{{if .HasProfile}}<img id="pv-profile" class="avatar" src="{{.Profile}}" alt="Profile">{{end}}
<h1 id="pv-name">{{.Name}}</h1>
<p id="pv-role" class="subtitle">{{.Role}}</p>
<p id="pv-summary" class="lead">{{.Summary}}</p>
<p id="pv-contact" class="muted">{{.Contact}}</p>
</div>
<div id="preview-sections" class="wrap">{{.Sections}}</div>
</div>`

var (
	sectionsTmpl = template.Must(template.New("sections").Parse(sectionsTemplate))
	previewTmpl  = template.Must(template.New("preview").Parse(previewTemplate))
)

// RenderPreview 把 Draft 渲染为带主题的预览标记。
// 所有插值文本由 html/template 按上下文转义，非 http(s)/mailto 链接会被替换为无害值。
func RenderPreview(d portfolio.Draft) (Preview, error) {
	view := newPreviewView(d)

	var sections bytes.Buffer
	if err := sectionsTmpl.Execute(&sections, view); err != nil {
		return Preview{}, fmt.Errorf("render sections: %w", err)
	}
	view.Sections = template.HTML(sections.String())

	var root bytes.Buffer
	if err := previewTmpl.Execute(&root, view); err != nil {
		return Preview{}, fmt.Errorf("render preview: %w", err)
	}
	return Preview{
		HTML:       template.HTML(root.String()),
		Sections:   view.Sections,
		ThemeClass: view.ThemeClass,
	}, nil
}

func newPreviewView(d portfolio.Draft) previewView {
	view := previewView{
		ThemeClass:     d.Theme.Class(),
		Name:           orDefault(d.Name, DefaultName),
		Role:           orDefault(d.Role, DefaultRole),
		Summary:        orDefault(d.Summary, DefaultSummary),
		Contact:        orDefault(d.ContactLine(), DefaultContact),
		About:          orDefault(d.Summary, EmptyMarker),
		Skills:         d.SkillList(),
		Educations:     d.Educations,
		Certifications: d.Certifications,
		Achievements:   d.Achievements,
		Timeline:       timeline(d),
		Empty:          EmptyMarker,
	}
	if portfolio.IsProfileDataURL(d.Profile) {
		view.Profile = template.URL(d.Profile)
		view.HasProfile = true
	}
	for _, p := range d.Projects {
		view.Projects = append(view.Projects, projectView{
			Title:       p.Title,
			Description: p.Description,
			Tags:        portfolio.SplitTags(p.Tags),
			Link:        p.Link,
		})
	}
	for _, l := range []link{
		{Label: "GitHub", URL: d.GitHub},
		{Label: "LinkedIn", URL: d.LinkedIn},
		{Label: "Website", URL: d.Website},
	} {
		if l.URL != "" {
			view.Links = append(view.Links, l)
		}
	}
	return view
}

// timeline 汇总带年份的教育与证书记录，按年份倒序排列。
func timeline(d portfolio.Draft) []timelineItem {
	items := make([]timelineItem, 0, len(d.Educations)+len(d.Certifications))
	for _, e := range d.Educations {
		if e.Year == "" {
			continue
		}
		label := e.Institution
		if e.Degree != "" {
			label = joinNonEmpty(" – ", e.Degree, e.Institution)
		}
		items = append(items, timelineItem{Year: e.Year, Label: label, Kind: "Education"})
	}
	for _, c := range d.Certifications {
		if c.Year == "" {
			continue
		}
		items = append(items, timelineItem{Year: c.Year, Label: joinNonEmpty(" – ", c.Title, c.Issuer), Kind: "Certification"})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Year > items[j].Year })
	return items
}

func joinNonEmpty(sep string, parts ...string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += sep
		}
		out += p
	}
	return out
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
