// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/kiji/internal/model"
)

// SessionCookieName はセッションIDを保持するCookieの名前。
const SessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	sessionContextKey = contextKey("session")
	userContextKey    = contextKey("user")
)

// SessionFinder はセッションの検索に必要なインターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionFinder interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// SessionIssuer は匿名セッションの発行と現在ユーザーの解決に必要なインターフェース。
// auth.Serviceが実装する。
type SessionIssuer interface {
	CreateAnonymousSession(ctx context.Context) (*model.Session, error)
	CurrentUser(ctx context.Context, session *model.Session) (*model.User, error)
}

// SessionConfig はセッションCookieの設定。
type SessionConfig struct {
	CookieSecure bool
	CookieMaxAge int
}

// NewSessionMiddleware はHTTP Only Cookieからセッションを読み取り、
// セッションと認証済みユーザーをリクエストコンテキストに注入するミドルウェアを返す。
// Cookieが無い、またはセッションが期限切れの場合は匿名セッションを新規発行する。
// CSRFトークンとフラッシュメッセージを未ログイン状態でも保持するため、
// 全リクエストが何らかのセッションを持つ。
func NewSessionMiddleware(finder SessionFinder, issuer SessionIssuer, config SessionConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var session *model.Session

			// 1. CookieからセッションIDを取得して検証
			if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
				found, err := finder.FindByID(r.Context(), cookie.Value)
				if err != nil {
					slog.Error("failed to find session",
						slog.String("error", err.Error()),
					)
				} else {
					session = found
				}
			}

			// 2. 有効なセッションが無ければ匿名セッションを発行
			if session == nil {
				created, err := issuer.CreateAnonymousSession(r.Context())
				if err != nil {
					slog.Error("failed to create session",
						slog.String("error", err.Error()),
					)
					http.Error(w, "internal server error", http.StatusInternalServerError)
					return
				}
				session = created
				SetSessionCookie(w, session.ID, config)
			}

			// 3. 認証済みなら現在ユーザーを解決
			user, err := issuer.CurrentUser(r.Context(), session)
			if err != nil {
				slog.Error("failed to resolve current user",
					slog.String("error", err.Error()),
				)
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey, session)
			ctx = context.WithValue(ctx, userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SetSessionCookie はセッションIDのCookieをレスポンスに設定する。
// ログイン・登録時のセッションID再発行でハンドラーからも呼ばれる。
func SetSessionCookie(w http.ResponseWriter, sessionID string, config SessionConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   config.CookieMaxAge,
		HttpOnly: true,
		Secure:   config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie はセッションIDのCookieを失効させる。ログアウト時に使う。
func ClearSessionCookie(w http.ResponseWriter, config SessionConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SessionFromContext はリクエストコンテキストからセッションを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func SessionFromContext(ctx context.Context) *model.Session {
	session, _ := ctx.Value(sessionContextKey).(*model.Session)
	return session
}

// UserFromContext はリクエストコンテキストから認証済みユーザーを取得する。
// 未認証の場合はnilを返す。
func UserFromContext(ctx context.Context) *model.User {
	user, _ := ctx.Value(userContextKey).(*model.User)
	return user
}

// ContextWithSession はコンテキストにセッションを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithSession(ctx context.Context, session *model.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}

// ContextWithUser はコンテキストにユーザーを注入する。
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// NewRequireAuthMiddleware は未認証リクエストをログインページへリダイレクトするミドルウェアを返す。
// セッションミドルウェアの後に配置する。
func NewRequireAuthMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if UserFromContext(r.Context()) == nil {
				http.Redirect(w, r, "/login", http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
