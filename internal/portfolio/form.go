package portfolio

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrUnknownField  = errors.New("unknown field")
	ErrUnknownList   = errors.New("unknown list")
	ErrEntryNotFound = errors.New("entry not found")
)

// ListKind 标识可重复的列表区块。
type ListKind string

const (
	ListEducation     ListKind = "education"
	ListCertification ListKind = "certification"
	ListAchievement   ListKind = "achievement"
	ListProject       ListKind = "project"
)

// ListKinds 按表单中的展示顺序列出全部列表。
var ListKinds = []ListKind{ListEducation, ListCertification, ListAchievement, ListProject}

var listFields = map[ListKind][]string{
	ListEducation:     {"inst", "deg", "year", "score"},
	ListCertification: {"title", "issuer", "year", "url"},
	ListAchievement:   {"txt"},
	ListProject:       {"title", "desc", "tags", "link"},
}

// ParseListKind 校验列表标识。
func ParseListKind(raw string) (ListKind, error) {
	kind := ListKind(strings.TrimSpace(raw))
	if _, ok := listFields[kind]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownList, raw)
	}
	return kind, nil
}

// Fields 返回该列表条目允许的字段名。
func (k ListKind) Fields() []string {
	return append([]string(nil), listFields[k]...)
}

// ScalarFields 是表单中的单值字段标识。
var ScalarFields = []string{
	"name", "role", "age", "location", "email", "phone", "summary",
	"skills", "github", "linkedin", "website", "metaDesc", "ogImage",
}

func isScalarField(id string) bool {
	for _, f := range ScalarFields {
		if f == id {
			return true
		}
	}
	return false
}

// Entry 是列表中的一个子记录，Values 保存未经裁剪的原始输入。
type Entry struct {
	ID     string            `json:"id"`
	Values map[string]string `json:"values"`
}

func newEntry(kind ListKind) Entry {
	values := make(map[string]string, len(listFields[kind]))
	for _, f := range listFields[kind] {
		values[f] = ""
	}
	return Entry{ID: uuid.NewString(), Values: values}
}

// Value 读取条目字段并去除首尾空白，缺失字段视为空串。
func (e Entry) Value(field string) string {
	return strings.TrimSpace(e.Values[field])
}

func (e Entry) blank() bool {
	for _, v := range e.Values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func (e Entry) clone() Entry {
	values := make(map[string]string, len(e.Values))
	for k, v := range e.Values {
		values[k] = v
	}
	return Entry{ID: e.ID, Values: values}
}

// FormState 是一个工作区的全部输入状态，Collect 从中生成 Draft。
// FormState 不做并发保护，由调用方保证同一时刻只有一个修改者。
type FormState struct {
	Fields       map[string]string    `json:"fields"`
	Theme        Theme                `json:"theme"`
	CustomAccent string               `json:"customAccent"`
	Profile      string               `json:"profile,omitempty"`
	Lists        map[ListKind][]Entry `json:"lists"`
}

// NewFormState 返回空表单：所有字段为空、主题为 pro、列表为空。
func NewFormState() *FormState {
	f := &FormState{
		Fields:       make(map[string]string, len(ScalarFields)),
		Theme:        ThemePro,
		CustomAccent: DefaultAccent,
		Lists:        make(map[ListKind][]Entry, len(ListKinds)),
	}
	for _, id := range ScalarFields {
		f.Fields[id] = ""
	}
	return f
}

// Value 读取单值字段并去除首尾空白。
func (f *FormState) Value(id string) string {
	if f == nil {
		return ""
	}
	return strings.TrimSpace(f.Fields[id])
}

// SetField 写入单值字段。
func (f *FormState) SetField(id, value string) error {
	if !isScalarField(id) {
		return fmt.Errorf("%w: %q", ErrUnknownField, id)
	}
	if f.Fields == nil {
		f.Fields = make(map[string]string, len(ScalarFields))
	}
	f.Fields[id] = value
	return nil
}

// SetTheme 切换主题；accent 为空时保持原有自定义颜色。
func (f *FormState) SetTheme(theme string, accent string) {
	f.Theme = ParseTheme(theme)
	if strings.TrimSpace(accent) != "" {
		f.CustomAccent = NormalizeAccent(accent)
	}
}

// SetProfile 设置或清除（传空串）头像 data URL。
func (f *FormState) SetProfile(dataURL string) {
	f.Profile = dataURL
}

// Entries 返回列表条目的副本。
func (f *FormState) Entries(kind ListKind) []Entry {
	src := f.Lists[kind]
	out := make([]Entry, 0, len(src))
	for _, e := range src {
		out = append(out, e.clone())
	}
	return out
}

// AddEntry 在列表末尾追加一个空条目。
func (f *FormState) AddEntry(kind ListKind) (Entry, error) {
	if _, ok := listFields[kind]; !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrUnknownList, kind)
	}
	if f.Lists == nil {
		f.Lists = make(map[ListKind][]Entry, len(ListKinds))
	}
	e := newEntry(kind)
	f.Lists[kind] = append(f.Lists[kind], e)
	return e.clone(), nil
}

// RemoveEntry 删除指定条目。
func (f *FormState) RemoveEntry(kind ListKind, id string) error {
	idx, err := f.indexOf(kind, id)
	if err != nil {
		return err
	}
	entries := f.Lists[kind]
	f.Lists[kind] = append(entries[:idx:idx], entries[idx+1:]...)
	return nil
}

// UpdateEntry 写入条目的若干字段，未出现在 values 中的字段保持不变。
func (f *FormState) UpdateEntry(kind ListKind, id string, values map[string]string) (Entry, error) {
	idx, err := f.indexOf(kind, id)
	if err != nil {
		return Entry{}, err
	}
	allowed := listFields[kind]
	for field := range values {
		if !contains(allowed, field) {
			return Entry{}, fmt.Errorf("%w: %s.%s", ErrUnknownField, kind, field)
		}
	}
	entry := f.Lists[kind][idx]
	if entry.Values == nil {
		entry.Values = make(map[string]string, len(allowed))
	}
	for field, v := range values {
		entry.Values[field] = v
	}
	f.Lists[kind][idx] = entry
	return entry.clone(), nil
}

func (f *FormState) indexOf(kind ListKind, id string) (int, error) {
	if _, ok := listFields[kind]; !ok {
		return -1, fmt.Errorf("%w: %q", ErrUnknownList, kind)
	}
	for i, e := range f.Lists[kind] {
		if e.ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s/%s", ErrEntryNotFound, kind, id)
}

// SeedDefaults 为每个空列表添加一个空条目。
func (f *FormState) SeedDefaults() {
	for _, kind := range ListKinds {
		if len(f.Lists[kind]) == 0 {
			_, _ = f.AddEntry(kind)
		}
	}
}

// Rehydrate 用已保存的条目替换列表内容。
// 缺少 ID 的条目会分配新 ID，未知字段被丢弃，缺失字段补为空串，
// 使载入的条目与新添加的条目行为一致。
func (f *FormState) Rehydrate(lists map[ListKind][]Entry) {
	if f.Lists == nil {
		f.Lists = make(map[ListKind][]Entry, len(ListKinds))
	}
	for _, kind := range ListKinds {
		stored, ok := lists[kind]
		if !ok {
			continue
		}
		entries := make([]Entry, 0, len(stored))
		for _, s := range stored {
			e := newEntry(kind)
			if strings.TrimSpace(s.ID) != "" {
				e.ID = s.ID
			}
			for _, field := range listFields[kind] {
				e.Values[field] = s.Values[field]
			}
			entries = append(entries, e)
		}
		f.Lists[kind] = entries
	}
}

// ReplaceWithDraft 用导入的 Draft 覆盖表单，每条记录生成一个新条目。
func (f *FormState) ReplaceWithDraft(d Draft) {
	next := NewFormState()
	values := d.scalarValues()
	for _, id := range ScalarFields {
		next.Fields[id] = values[id]
	}
	next.Theme = ParseTheme(string(d.Theme))
	next.CustomAccent = NormalizeAccent(d.CustomAccent)
	if IsProfileDataURL(d.Profile) {
		next.Profile = d.Profile
	}

	lists := map[ListKind][]Entry{
		ListEducation:     make([]Entry, 0, len(d.Educations)),
		ListCertification: make([]Entry, 0, len(d.Certifications)),
		ListAchievement:   make([]Entry, 0, len(d.Achievements)),
		ListProject:       make([]Entry, 0, len(d.Projects)),
	}
	for _, e := range d.Educations {
		lists[ListEducation] = append(lists[ListEducation], Entry{Values: map[string]string{
			"inst": e.Institution, "deg": e.Degree, "year": e.Year, "score": e.Score,
		}})
	}
	for _, c := range d.Certifications {
		lists[ListCertification] = append(lists[ListCertification], Entry{Values: map[string]string{
			"title": c.Title, "issuer": c.Issuer, "year": c.Year, "url": c.URL,
		}})
	}
	for _, a := range d.Achievements {
		lists[ListAchievement] = append(lists[ListAchievement], Entry{Values: map[string]string{"txt": a}})
	}
	for _, p := range d.Projects {
		lists[ListProject] = append(lists[ListProject], Entry{Values: map[string]string{
			"title": p.Title, "desc": p.Description, "tags": p.Tags, "link": p.Link,
		}})
	}
	next.Rehydrate(lists)
	*f = *next
}

// Clone 深拷贝表单状态。
func (f *FormState) Clone() *FormState {
	if f == nil {
		return NewFormState()
	}
	out := &FormState{
		Fields:       make(map[string]string, len(f.Fields)),
		Theme:        f.Theme,
		CustomAccent: f.CustomAccent,
		Profile:      f.Profile,
		Lists:        make(map[ListKind][]Entry, len(f.Lists)),
	}
	for k, v := range f.Fields {
		out.Fields[k] = v
	}
	for kind, entries := range f.Lists {
		cp := make([]Entry, 0, len(entries))
		for _, e := range entries {
			cp = append(cp, e.clone())
		}
		out.Lists[kind] = cp
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
