package portfolio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// StorageKey 是草稿在存储中的固定键名。
const StorageKey = "portfolio_builder_data"

// ErrNotFound 表示存储中没有对应的键。
var ErrNotFound = errors.New("draft not found")

// Store 是按键读写单个字符串值的存储后端。
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// KeyFor 返回工作区的存储键；workspace 为空时使用裸键。
func KeyFor(workspace string) string {
	workspace = strings.TrimSpace(workspace)
	if workspace == "" {
		return StorageKey
	}
	return StorageKey + ":" + workspace
}

// StoredState 是持久化的 JSON 结构：已裁剪的标量字段加四个结构化列表。
type StoredState struct {
	Name         string `json:"name"`
	Role         string `json:"role"`
	Age          string `json:"age"`
	Location     string `json:"location"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Summary      string `json:"summary"`
	Skills       string `json:"skills"`
	GitHub       string `json:"github"`
	LinkedIn     string `json:"linkedin"`
	Website      string `json:"website"`
	MetaDesc     string `json:"metaDesc"`
	OGImage      string `json:"ogImage"`
	Theme        string `json:"theme"`
	CustomAccent string `json:"customAccent"`
	Profile      string `json:"profile"`

	EduList  []Entry `json:"eduList"`
	CertList []Entry `json:"certList"`
	AchList  []Entry `json:"achList"`
	ProjList []Entry `json:"projList"`
}

// Snapshot 生成可持久化的状态。列表保存全部条目（包括空白条目），
// 以便重新载入后界面与保存时一致。
func Snapshot(f *FormState) StoredState {
	d := Collect(f)
	return StoredState{
		Name:         d.Name,
		Role:         d.Role,
		Age:          d.Age,
		Location:     d.Location,
		Email:        d.Email,
		Phone:        d.Phone,
		Summary:      d.Summary,
		Skills:       d.Skills,
		GitHub:       d.GitHub,
		LinkedIn:     d.LinkedIn,
		Website:      d.Website,
		MetaDesc:     d.MetaDesc,
		OGImage:      d.OGImage,
		Theme:        string(d.Theme),
		CustomAccent: d.CustomAccent,
		Profile:      d.Profile,
		EduList:      f.Entries(ListEducation),
		CertList:     f.Entries(ListCertification),
		AchList:      f.Entries(ListAchievement),
		ProjList:     f.Entries(ListProject),
	}
}

// FormState 把持久化状态还原为表单。
func (s StoredState) FormState() *FormState {
	f := NewFormState()
	values := map[string]string{
		"name": s.Name, "role": s.Role, "age": s.Age, "location": s.Location,
		"email": s.Email, "phone": s.Phone, "summary": s.Summary, "skills": s.Skills,
		"github": s.GitHub, "linkedin": s.LinkedIn, "website": s.Website,
		"metaDesc": s.MetaDesc, "ogImage": s.OGImage,
	}
	for _, id := range ScalarFields {
		f.Fields[id] = values[id]
	}
	f.Theme = ParseTheme(s.Theme)
	f.CustomAccent = NormalizeAccent(s.CustomAccent)
	if IsProfileDataURL(s.Profile) {
		f.Profile = s.Profile
	}
	lists := make(map[ListKind][]Entry, len(ListKinds))
	for kind, entries := range map[ListKind][]Entry{
		ListEducation:     s.EduList,
		ListCertification: s.CertList,
		ListAchievement:   s.AchList,
		ListProject:       s.ProjList,
	} {
		if entries != nil {
			lists[kind] = entries
		}
	}
	f.Rehydrate(lists)
	return f
}

// Persister 负责草稿的保存与载入。保存失败只记录日志，不影响调用方。
type Persister struct {
	store     Store
	logger    *slog.Logger
	onFailure func(op string)
}

// PersisterOption 配置 Persister。
type PersisterOption func(*Persister)

// WithLogger 设置日志输出。
func WithLogger(logger *slog.Logger) PersisterOption {
	return func(p *Persister) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithFailureHook 在每次保存或载入失败时回调，用于计数。
func WithFailureHook(fn func(op string)) PersisterOption {
	return func(p *Persister) {
		p.onFailure = fn
	}
}

func NewPersister(store Store, opts ...PersisterOption) *Persister {
	p := &Persister{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Save 序列化并写入表单状态。任何失败都会被吞掉并记录。
func (p *Persister) Save(ctx context.Context, key string, f *FormState) {
	if p == nil || p.store == nil {
		return
	}
	data, err := json.Marshal(Snapshot(f))
	if err != nil {
		p.fail("save", key, fmt.Errorf("marshal draft: %w", err))
		return
	}
	if err := p.store.Put(ctx, key, data); err != nil {
		p.fail("save", key, err)
	}
}

// Load 读取并还原表单状态。键不存在或数据损坏时返回 false。
func (p *Persister) Load(ctx context.Context, key string) (*FormState, bool) {
	if p == nil || p.store == nil {
		return nil, false
	}
	data, err := p.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			p.fail("load", key, err)
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}
	var state StoredState
	if err := json.Unmarshal(data, &state); err != nil {
		p.logger.Warn("stored draft is malformed, ignoring", "key", key, "error", err)
		return nil, false
	}
	return state.FormState(), true
}

// Clear 删除保存的草稿。
func (p *Persister) Clear(ctx context.Context, key string) error {
	if p == nil || p.store == nil {
		return nil
	}
	if err := p.store.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete draft %s: %w", key, err)
	}
	return nil
}

func (p *Persister) fail(op, key string, err error) {
	p.logger.Error("draft persistence failed", "op", op, "key", key, "error", err)
	if p.onFailure != nil {
		p.onFailure(op)
	}
}
