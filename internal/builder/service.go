// Package builder 管理每个工作区的表单状态。
// 每次修改都在副本上执行，随后同步完成收集、渲染与保存，失败时保留上一次的状态。
package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"folioBuilder/internal/metrics"
	"folioBuilder/internal/notify"
	"folioBuilder/internal/portfolio"
	"folioBuilder/internal/render"
)

var (
	ErrInvalidWorkspace = errors.New("invalid workspace id")
	ErrWorkspaceDeleted = errors.New("workspace deleted")
)

// Publisher 把预览更新推送给订阅者。
type Publisher interface {
	Publish(ctx context.Context, workspaceID string, msg any) error
}

// Snapshot 是某个工作区在一次修改之后的完整视图。Form 是副本，可随意修改。
type Snapshot struct {
	WorkspaceID string
	Form        *portfolio.FormState
	Draft       portfolio.Draft
	Preview     render.Preview
}

// session 在 ready 关闭前处于载入中；loadErr 非空表示载入失败。
type session struct {
	ready   chan struct{}
	loadErr error

	mu      sync.Mutex
	closed  bool
	form    *portfolio.FormState
	draft   portfolio.Draft
	preview render.Preview
}

// Service 持有全部已打开工作区的会话。同一工作区的修改串行执行，不同工作区互不阻塞。
type Service struct {
	persister *portfolio.Persister
	publisher Publisher
	logger    *slog.Logger
	keyFor    func(string) string

	mu       sync.Mutex
	sessions map[string]*session
}

// Option 配置 Service。
type Option func(*Service)

// WithPublisher 设置预览推送目标。
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithLogger 设置日志输出。
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithKeyFunc 覆盖工作区到存储键的映射，命令行用它写入裸键。
func WithKeyFunc(fn func(string) string) Option {
	return func(s *Service) {
		if fn != nil {
			s.keyFor = fn
		}
	}
}

func NewService(persister *portfolio.Persister, opts ...Option) *Service {
	s := &Service{
		persister: persister,
		logger:    slog.Default(),
		keyFor:    portfolio.KeyFor,
		sessions:  make(map[string]*session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot 返回工作区当前状态，首次访问时从存储载入。
func (s *Service) Snapshot(ctx context.Context, workspaceID string) (Snapshot, error) {
	sess, err := s.acquire(ctx, workspaceID)
	if err != nil {
		return Snapshot{}, err
	}
	defer sess.mu.Unlock()
	return sess.snapshot(workspaceID), nil
}

// Mutate 在表单副本上执行 fn。fn 返回错误时状态不变；成功时依次收集、渲染、保存并推送预览。
func (s *Service) Mutate(ctx context.Context, workspaceID string, fn func(*portfolio.FormState) error) (Snapshot, error) {
	sess, err := s.acquire(ctx, workspaceID)
	if err != nil {
		return Snapshot{}, err
	}
	defer sess.mu.Unlock()

	next := sess.form.Clone()
	if err := fn(next); err != nil {
		metrics.MutationObserved(false)
		return Snapshot{}, err
	}

	draft := portfolio.Collect(next)
	preview, err := render.RenderPreview(draft)
	if err != nil {
		metrics.MutationObserved(false)
		return Snapshot{}, fmt.Errorf("render preview: %w", err)
	}
	metrics.RenderObserved()
	metrics.MutationObserved(true)

	sess.form, sess.draft, sess.preview = next, draft, preview
	s.persister.Save(ctx, s.keyFor(workspaceID), next)
	s.publishPreview(ctx, workspaceID, preview)

	return sess.snapshot(workspaceID), nil
}

// Document 生成工作区当前状态的独立 HTML 文档。
func (s *Service) Document(ctx context.Context, workspaceID string) (string, portfolio.Draft, error) {
	snap, err := s.Snapshot(ctx, workspaceID)
	if err != nil {
		return "", portfolio.Draft{}, err
	}
	doc, err := render.BuildDocument(snap.Draft, snap.Preview)
	if err != nil {
		return "", portfolio.Draft{}, err
	}
	return doc, snap.Draft, nil
}

// Reset 删除已保存的草稿并把工作区恢复为默认表单，恢复后的表单不会立即写回存储。
func (s *Service) Reset(ctx context.Context, workspaceID string) (Snapshot, error) {
	sess, err := s.acquire(ctx, workspaceID)
	if err != nil {
		return Snapshot{}, err
	}
	defer sess.mu.Unlock()

	if err := s.persister.Clear(ctx, s.keyFor(workspaceID)); err != nil {
		return Snapshot{}, err
	}
	form := portfolio.NewFormState()
	form.SeedDefaults()
	draft := portfolio.Collect(form)
	preview, err := render.RenderPreview(draft)
	if err != nil {
		return Snapshot{}, fmt.Errorf("render preview: %w", err)
	}
	sess.form, sess.draft, sess.preview = form, draft, preview
	s.publishPreview(ctx, workspaceID, preview)
	return sess.snapshot(workspaceID), nil
}

// Delete 关闭会话并删除已保存的草稿。正在执行的修改先完成再被清除，
// 之后仍持有旧会话的调用返回 ErrWorkspaceDeleted。
func (s *Service) Delete(ctx context.Context, workspaceID string) error {
	workspaceID = strings.TrimSpace(workspaceID)
	if workspaceID == "" {
		return ErrInvalidWorkspace
	}

	s.mu.Lock()
	sess, ok := s.sessions[workspaceID]
	delete(s.sessions, workspaceID)
	s.mu.Unlock()

	if ok {
		<-sess.ready
		sess.mu.Lock()
		defer sess.mu.Unlock()
		sess.closed = true
	}
	return s.persister.Clear(ctx, s.keyFor(workspaceID))
}

// acquire 返回已加锁且未关闭的会话，调用方负责解锁。
func (s *Service) acquire(ctx context.Context, workspaceID string) (*session, error) {
	sess, err := s.open(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	if sess.closed {
		sess.mu.Unlock()
		return nil, ErrWorkspaceDeleted
	}
	return sess, nil
}

// open 返回工作区会话。首次访问时先登记一个载入中的会话再释放全局锁读取存储，
// 同一工作区的并发请求等待同一次载入，其它工作区不受影响。
func (s *Service) open(ctx context.Context, workspaceID string) (*session, error) {
	workspaceID = strings.TrimSpace(workspaceID)
	if workspaceID == "" {
		return nil, ErrInvalidWorkspace
	}

	s.mu.Lock()
	sess, ok := s.sessions[workspaceID]
	if !ok {
		sess = &session{ready: make(chan struct{})}
		s.sessions[workspaceID] = sess
	}
	s.mu.Unlock()

	if !ok {
		// 载入结果由所有等待者共享，不能随发起请求的取消而失败。
		s.load(context.WithoutCancel(ctx), workspaceID, sess)
	}

	select {
	case <-sess.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if sess.loadErr != nil {
		return nil, sess.loadErr
	}
	return sess, nil
}

func (s *Service) load(ctx context.Context, workspaceID string, sess *session) {
	defer close(sess.ready)

	form, restored := s.persister.Load(ctx, s.keyFor(workspaceID))
	if !restored {
		form = portfolio.NewFormState()
		form.SeedDefaults()
	}
	draft := portfolio.Collect(form)
	preview, err := render.RenderPreview(draft)
	if err != nil {
		sess.loadErr = fmt.Errorf("render preview: %w", err)
		s.mu.Lock()
		if s.sessions[workspaceID] == sess {
			delete(s.sessions, workspaceID)
		}
		s.mu.Unlock()
		return
	}
	metrics.RenderObserved()

	sess.form, sess.draft, sess.preview = form, draft, preview
	s.logger.Debug("workspace session opened", slog.String("workspace_id", workspaceID), slog.Bool("restored", restored))
}

func (s *Service) publishPreview(ctx context.Context, workspaceID string, pv render.Preview) {
	if s.publisher == nil {
		return
	}
	msg := notify.PreviewMessage{
		Type:        notify.TypePreview,
		WorkspaceID: workspaceID,
		ThemeClass:  pv.ThemeClass,
		HTML:        string(pv.HTML),
	}
	if err := s.publisher.Publish(ctx, workspaceID, msg); err != nil {
		s.logger.Warn("publish preview failed", slog.String("workspace_id", workspaceID), slog.Any("error", err))
	}
}

func (sess *session) snapshot(workspaceID string) Snapshot {
	return Snapshot{
		WorkspaceID: workspaceID,
		Form:        sess.form.Clone(),
		Draft:       sess.draft,
		Preview:     sess.preview,
	}
}
