package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/kiji/internal/metrics"
	"github.com/hitoshi/kiji/internal/middleware"
	"github.com/hitoshi/kiji/internal/view"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder middleware.SessionFinder
	SessionIssuer middleware.SessionIssuer
	SessionConfig middleware.SessionConfig
	RateLimiter   *middleware.RateLimiter
	Logger        *slog.Logger

	// ビューとフラッシュ
	Renderer       *view.Renderer
	SessionUpdater SessionDataUpdater

	// サービス
	AuthService    AuthServiceInterface
	ArticleService ArticleServiceInterface
	UserService    UserServiceInterface

	// 観測
	Metrics        metrics.MetricsCollector
	MetricsHandler http.Handler

	// /health用のDB疎通確認。nilの場合はプロセス生存のみ返す。
	HealthCheck func(ctx context.Context) error
}

// NewRouter は全ルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Session → Logging → Metrics
//	→ MethodOverride → CSRF → RateLimit(General)
//
// /health と /metrics はセッションを作らないよう、チェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())

	r.Get("/health", newHealthHandler(deps.HealthCheck))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	responder := NewResponder(deps.Renderer, deps.SessionUpdater)
	authHandler := NewAuthHandler(deps.AuthService, responder, deps.SessionConfig, deps.Metrics)
	articleHandler := NewArticleHandler(deps.ArticleService, responder, deps.Metrics)
	userHandler := NewUserHandler(deps.UserService, responder)

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder, deps.SessionIssuer, deps.SessionConfig))
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
		r.Use(middleware.NewMethodOverrideMiddleware())
		r.Use(middleware.NewCSRFMiddleware())
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// --- 認証不要のルート ---

		r.Get("/", articleHandler.Index)
		r.Get("/articles", articleHandler.Index)
		r.Get("/articles/sort", articleHandler.Sort)
		r.Get("/articles/search/user", articleHandler.SearchByUser)
		r.Get("/articles/search/article", articleHandler.SearchByArticle)
		r.Get("/articles/{id}", articleHandler.Show)

		r.Get("/register", authHandler.ShowRegister)
		r.Get("/login", authHandler.ShowLogin)
		// 認証試行にはブルートフォース対策の専用レート制限を追加
		r.With(deps.RateLimiter.LoginMiddleware()).Post("/register", authHandler.Register)
		r.With(deps.RateLimiter.LoginMiddleware()).Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)

		// --- 認証が必要なルート ---
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewRequireAuthMiddleware())

			r.Get("/articles/create", articleHandler.ShowCreate)
			r.Post("/articles", articleHandler.Store)
			r.Get("/articles/{id}/edit", articleHandler.Edit)
			r.Put("/articles/{id}", articleHandler.Update)
			r.Delete("/articles/{id}", articleHandler.Destroy)

			r.Get("/users", userHandler.Index)
			r.Get("/users/{id}", userHandler.Show)
			r.Delete("/users/{id}", userHandler.Destroy)
		})
	})

	return r
}

// newHealthHandler はヘルスチェックエンドポイントのハンドラーを返す。
// DB疎通に失敗した場合は503を返す。
func newHealthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				http.Error(w, "unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
