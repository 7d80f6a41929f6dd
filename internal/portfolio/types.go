package portfolio

import (
	"regexp"
	"strings"
)

// Theme 表示预览与导出文档使用的配色方案。
type Theme string

const (
	ThemePro      Theme = "pro"
	ThemeNorm     Theme = "norm"
	ThemeCreative Theme = "cre"
	ThemeCustom   Theme = "custom"
)

// Themes 按固定顺序列出全部主题。
var Themes = []Theme{ThemePro, ThemeNorm, ThemeCreative, ThemeCustom}

// DefaultAccent 是自定义主题未选择颜色时的强调色。
const DefaultAccent = "#7c5cff"

var hexColorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// ParseTheme 将任意输入归一到已知主题，未知值回落到 pro。
func ParseTheme(raw string) Theme {
	switch Theme(strings.TrimSpace(raw)) {
	case ThemeNorm:
		return ThemeNorm
	case ThemeCreative:
		return ThemeCreative
	case ThemeCustom:
		return ThemeCustom
	default:
		return ThemePro
	}
}

// Class 返回预览根节点上的样式类名。
func (t Theme) Class() string {
	return "theme-" + string(ParseTheme(string(t)))
}

// NormalizeAccent 只接受十六进制颜色，其余情况返回默认强调色。
func NormalizeAccent(raw string) string {
	raw = strings.TrimSpace(raw)
	if hexColorPattern.MatchString(raw) {
		return raw
	}
	return DefaultAccent
}

// Section 是导出导航中的锚点标识。
type Section string

const (
	SectionAbout          Section = "about"
	SectionSkills         Section = "skills"
	SectionProjects       Section = "projects"
	SectionTimeline       Section = "timeline"
	SectionContact        Section = "contact"
	SectionEducation      Section = "education"
	SectionCertifications Section = "certifications"
	SectionAchievements   Section = "achievements"
)

// DefaultSectionOrder 是导航的固定顺序，不随内容是否为空而变化。
var DefaultSectionOrder = []Section{
	SectionAbout,
	SectionSkills,
	SectionProjects,
	SectionTimeline,
	SectionContact,
	SectionEducation,
	SectionCertifications,
	SectionAchievements,
}

// Title 返回首字母大写的导航文字。
func (s Section) Title() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// Education 是一条教育经历。
type Education struct {
	Institution string `json:"inst" yaml:"inst"`
	Degree      string `json:"deg" yaml:"deg"`
	Year        string `json:"year" yaml:"year"`
	Score       string `json:"score" yaml:"score"`
}

// Certification 是一条证书记录。
type Certification struct {
	Title  string `json:"title" yaml:"title"`
	Issuer string `json:"issuer" yaml:"issuer"`
	Year   string `json:"year" yaml:"year"`
	URL    string `json:"url" yaml:"url"`
}

// Project 是一条项目记录，Tags 为逗号分隔的标签。
type Project struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"desc" yaml:"desc"`
	Tags        string `json:"tags" yaml:"tags"`
	Link        string `json:"link" yaml:"link"`
}

// Draft 是某一时刻表单全部内容的不可变快照。
type Draft struct {
	Name         string `json:"name" yaml:"name"`
	Role         string `json:"role" yaml:"role"`
	Age          string `json:"age" yaml:"age"`
	Location     string `json:"location" yaml:"location"`
	Email        string `json:"email" yaml:"email"`
	Phone        string `json:"phone" yaml:"phone"`
	Summary      string `json:"summary" yaml:"summary"`
	Skills       string `json:"skills" yaml:"skills"`
	GitHub       string `json:"github" yaml:"github"`
	LinkedIn     string `json:"linkedin" yaml:"linkedin"`
	Website      string `json:"website" yaml:"website"`
	MetaDesc     string `json:"metaDesc" yaml:"metaDesc"`
	OGImage      string `json:"ogImage" yaml:"ogImage"`
	Theme        Theme  `json:"theme" yaml:"theme"`
	CustomAccent string `json:"customAccent" yaml:"customAccent"`
	Profile      string `json:"profile,omitempty" yaml:"profile,omitempty"`

	Educations     []Education     `json:"edus" yaml:"edus"`
	Certifications []Certification `json:"certs" yaml:"certs"`
	Achievements   []string        `json:"achs" yaml:"achs"`
	Projects       []Project       `json:"projs" yaml:"projs"`

	SectionOrder []Section `json:"sectionOrder" yaml:"-"`
}

// SkillList 返回拆分后的技能标签。
func (d Draft) SkillList() []string {
	return SplitTags(d.Skills)
}

// ContactLine 用 " • " 连接非空的邮箱、电话与所在地。
func (d Draft) ContactLine() string {
	parts := make([]string, 0, 3)
	for _, v := range []string{d.Email, d.Phone, d.Location} {
		if v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " • ")
}

// SplitTags 按逗号拆分，去除首尾空白并丢弃空段。
func SplitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

var profileDataURLPattern = regexp.MustCompile(`^data:image/(?:png|jpeg|gif|webp);base64,[A-Za-z0-9+/=]+$`)

// IsProfileDataURL 判断头像内容是否为可内嵌的 base64 图片 data URL。
func IsProfileDataURL(s string) bool {
	return profileDataURLPattern.MatchString(s)
}
