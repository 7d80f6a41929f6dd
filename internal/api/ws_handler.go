package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"folioBuilder/internal/api/middleware"
	"folioBuilder/internal/auth"
	"folioBuilder/internal/builder"
	"folioBuilder/internal/notify"
)

const (
	wsAuthTimeout  = 10 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 5 * time.Second
)

var errWsClosed = errors.New("websocket closed")

type redisSubscriber interface {
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// previewSource 提供连接建立时推送的首帧预览。
type previewSource interface {
	Snapshot(ctx context.Context, workspaceID string) (builder.Snapshot, error)
}

// WsHandler 把工作区频道上的预览与导出通知转发给浏览器。
// 客户端连接后第一条消息必须是 {"type":"auth","token":...}。
type WsHandler struct {
	subscriber redisSubscriber
	validator  middleware.TokenValidator
	previews   previewSource
	logger     *slog.Logger
	upgrader   websocket.Upgrader
}

func NewWsHandler(subscriber redisSubscriber, validator middleware.TokenValidator, previews previewSource, logger *slog.Logger, allowedOrigins []string) *WsHandler {
	return &WsHandler{
		subscriber: subscriber,
		validator:  validator,
		previews:   previews,
		logger:     logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigins),
		},
	}
}

// originChecker 未配置白名单时只接受同源请求。
func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if len(allowed) == 0 {
			u, err := url.Parse(origin)
			return err == nil && strings.EqualFold(u.Host, r.Host)
		}
		for _, o := range allowed {
			if origin == o {
				return true
			}
		}
		return false
	}
}

type wsAuthMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// wsConn 串行化写操作，gorilla 连接不支持并发写。
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (w *wsConn) write(payload []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return w.conn.WriteMessage(websocket.TextMessage, payload)
}

func (w *wsConn) ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(wsWriteTimeout))
}

func (w *wsConn) close(code int, text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(wsWriteTimeout))
}

// HandleConnection 升级连接，完成鉴权后推送当前预览并开始转发通知。
func (h *WsHandler) HandleConnection(c *gin.Context) {
	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("upgrade websocket failed", slog.Any("error", err))
		return
	}
	defer raw.Close()
	conn := &wsConn{conn: raw}
	log := h.logger.With(slog.String("client_ip", c.ClientIP()))

	workspaceID, err := h.authenticate(conn)
	if err != nil {
		log.Warn("websocket authentication failed", slog.Any("error", err))
		return
	}
	log = log.With(slog.String("workspace_id", workspaceID))
	log.Info("websocket authenticated")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// 先订阅再取快照，两者之间发布的更新不会丢失。
	channel := notify.Channel(workspaceID)
	pubsub := h.subscriber.Subscribe(ctx, channel)
	defer pubsub.Close()

	h.sendInitialPreview(ctx, conn, workspaceID, log)

	errCh := make(chan error, 2)
	go drainReads(raw, errCh)
	go h.forward(ctx, conn, pubsub, channel, errCh, log)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		log.Info("websocket connection closed", slog.Any("reason", err))
	}
}

func (h *WsHandler) authenticate(conn *wsConn) (string, error) {
	_ = conn.conn.SetReadDeadline(time.Now().Add(wsAuthTimeout))
	_, message, err := conn.conn.ReadMessage()
	if err != nil {
		return "", fmt.Errorf("read auth message: %w", err)
	}
	_ = conn.conn.SetReadDeadline(time.Time{})

	var msg wsAuthMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		conn.close(websocket.ClosePolicyViolation, "invalid auth payload")
		return "", fmt.Errorf("decode auth payload: %w", err)
	}
	if msg.Type != "auth" || msg.Token == "" {
		conn.close(websocket.ClosePolicyViolation, "auth required")
		return "", errors.New("invalid auth message")
	}

	claims, err := h.validator.ValidateToken(msg.Token)
	if err != nil {
		conn.close(websocket.ClosePolicyViolation, "unauthorized")
		return "", fmt.Errorf("validate token: %w", err)
	}
	if claims.TokenType != auth.TokenTypeWorkspace || claims.WorkspaceID == "" {
		conn.close(websocket.ClosePolicyViolation, "workspace token required")
		return "", fmt.Errorf("invalid token type: %s", claims.TokenType)
	}
	return claims.WorkspaceID, nil
}

func (h *WsHandler) sendInitialPreview(ctx context.Context, conn *wsConn, workspaceID string, log *slog.Logger) {
	if h.previews == nil {
		return
	}
	snap, err := h.previews.Snapshot(ctx, workspaceID)
	if err != nil {
		log.Warn("load initial preview failed", slog.Any("error", err))
		return
	}
	payload, err := json.Marshal(notify.PreviewMessage{
		Type:        notify.TypePreview,
		WorkspaceID: workspaceID,
		ThemeClass:  snap.Preview.ThemeClass,
		HTML:        string(snap.Preview.HTML),
	})
	if err != nil {
		return
	}
	if err := conn.write(payload); err != nil {
		log.Debug("write initial preview failed", slog.Any("error", err))
	}
}

// drainReads 持续读取以感知客户端断开，鉴权后的客户端消息被忽略。
func drainReads(conn *websocket.Conn, errCh chan<- error) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			errCh <- fmt.Errorf("%w: %v", errWsClosed, err)
			return
		}
	}
}

func (h *WsHandler) forward(ctx context.Context, conn *wsConn, pubsub *redis.PubSub, channel string, errCh chan<- error, log *slog.Logger) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				errCh <- errors.New("notification channel closed")
				return
			}
			log.Debug("forwarding notification", slog.String("channel", channel))
			if err := conn.write([]byte(msg.Payload)); err != nil {
				errCh <- fmt.Errorf("write notification: %w", err)
				return
			}
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				errCh <- fmt.Errorf("write ping: %w", err)
				return
			}
		}
	}
}
