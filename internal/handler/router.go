package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/RLokeshvarma/Smart-Bookmark/internal/metrics"
	"github.com/RLokeshvarma/Smart-Bookmark/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionResolver   middleware.SessionResolver
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ページ
	PageSessionService PageSessionService
	PageConfig         PageHandlerConfig

	// ブックマーク
	BookmarkService BookmarkServiceInterface

	// 監視
	MetricsGatherer prometheus.Gatherer
	MetricsRecorder *metrics.Collector

	// ヘルスチェック
	HealthChecker func() error
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → SecurityHeaders → Logging → HTTPMetrics → Recovery → Session → CSRF
//
// ページと認証ルートはセッションミドルウェアの外に配置する
// （未ログインでも表示・遷移できる必要があるため）。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルート共通のミドルウェア
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(slog.Default()))
	if deps.MetricsRecorder != nil {
		r.Use(middleware.NewHTTPMetricsMiddleware(deps.MetricsRecorder))
	}
	r.Use(middleware.NewRecoveryMiddleware())

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	pageHandler := NewPageHandler(deps.PageSessionService, deps.PageConfig)
	var latencyRecorder ListLatencyRecorder
	if deps.MetricsRecorder != nil {
		latencyRecorder = deps.MetricsRecorder
	}
	bookmarkHandler := NewBookmarkHandler(deps.BookmarkService, latencyRecorder)

	// --- 認証不要のルート ---

	// ページ（ログイン状態に応じて自前でリダイレクトする）
	r.Get("/", pageHandler.Home)
	r.Get("/dashboard", pageHandler.Dashboard)

	// 認証ルート（OAuthフロー）
	r.Route("/auth", func(r chi.Router) {
		r.Get("/google/login", authHandler.Login)
		r.Get("/google/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// CSRFトークン取得エンドポイント
	r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

	// ヘルスチェック
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if deps.HealthChecker != nil {
			if err := deps.HealthChecker(); err != nil {
				http.Error(w, "unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheusスクレイプ
	if deps.MetricsGatherer != nil {
		r.Get("/metrics", metrics.Handler(deps.MetricsGatherer).ServeHTTP)
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → CSRF
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionResolver))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		// ブックマーク管理
		r.Route("/api/bookmarks", func(r chi.Router) {
			r.Get("/", bookmarkHandler.ListBookmarks)
			r.Post("/", bookmarkHandler.CreateBookmark)
			r.Delete("/{id}", bookmarkHandler.DeleteBookmark)
		})
	})

	return r
}
