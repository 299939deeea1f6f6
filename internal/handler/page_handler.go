package handler

import (
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/RLokeshvarma/Smart-Bookmark/internal/middleware"
	"github.com/RLokeshvarma/Smart-Bookmark/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// PageSessionService はページハンドラーが必要とするセッション解決インターフェース。
type PageSessionService interface {
	GetCurrentSession(ctx context.Context, sessionID string) (*model.Session, error)
	GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error)
}

// PageHandlerConfig はページハンドラーの設定。
type PageHandlerConfig struct {
	// PollInterval はダッシュボードが一覧を再取得する間隔。
	PollInterval time.Duration
}

// PageHandler はHTMLページ配信と画面遷移ガードのハンドラー。
// ログイン状態に応じて / と /dashboard を相互にリダイレクトする。
type PageHandler struct {
	sessions PageSessionService
	config   PageHandlerConfig
}

// NewPageHandler はPageHandlerを生成する。
func NewPageHandler(sessions PageSessionService, config PageHandlerConfig) *PageHandler {
	return &PageHandler{
		sessions: sessions,
		config:   config,
	}
}

// currentSession はCookieからセッションを解決する。未ログインならnilを返す。
// セッション解決の失敗は未ログインと同じ扱いにする（ページは常に表示可能）。
func (h *PageHandler) currentSession(r *http.Request) *model.Session {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	session, err := h.sessions.GetCurrentSession(r.Context(), cookie.Value)
	if err != nil {
		slog.Error("failed to resolve session for page",
			slog.String("error", err.Error()),
		)
		return nil
	}
	return session
}

// Home はランディングページを表示する。
// ログイン済みの場合はダッシュボードへリダイレクトする。
// GET /
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	if h.currentSession(r) != nil {
		http.Redirect(w, r, "/dashboard", http.StatusTemporaryRedirect)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplates.ExecuteTemplate(w, "landing.html", nil); err != nil {
		slog.Error("failed to render landing page", slog.String("error", err.Error()))
	}
}

// Dashboard はブックマーク管理画面を表示する。
// 未ログインの場合はランディングページへリダイレクトする。
// GET /dashboard
func (h *PageHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	session := h.currentSession(r)
	if session == nil {
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}

	user, err := h.sessions.GetCurrentUser(r.Context(), session.ID)
	if err != nil || user == nil {
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}

	data := struct {
		UserName       string
		UserEmail      string
		PollIntervalMS int64
	}{
		UserName:       user.Name,
		UserEmail:      user.Email,
		PollIntervalMS: h.config.PollInterval.Milliseconds(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplates.ExecuteTemplate(w, "dashboard.html", data); err != nil {
		slog.Error("failed to render dashboard page", slog.String("error", err.Error()))
	}
}
