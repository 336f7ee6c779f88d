package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/hitoshi/kiji/internal/model"
)

// csrfFormField はフォームからCSRFトークンを読み取る際のフィールド名。
const csrfFormField = "_token"

// csrfHeaderName はリクエストヘッダーからCSRFトークンを読み取る際のヘッダー名。
const csrfHeaderName = "X-CSRF-Token"

// NewCSRFMiddleware はセッションに紐づくCSRFトークンの検証ミドルウェアを返す。
// 安全なメソッド（GET, HEAD, OPTIONS）は検証をスキップする。
// 状態変更メソッド（POST, PUT, PATCH, DELETE）はフォームの_tokenフィールド
// またはX-CSRF-Tokenヘッダーのトークンがセッションのトークンと一致することを必須とする。
// トークンはセッション発行時に生成されセッションのdataに保存されているため、
// セッションミドルウェアの後に配置する。
func NewCSRFMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			session := SessionFromContext(r.Context())
			if session == nil {
				slog.Warn("CSRF validation failed: no session",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)
				http.Error(w, "CSRF token validation failed", http.StatusForbidden)
				return
			}

			sessionToken := session.Data[model.SessionKeyCSRFToken]

			requestToken := r.PostFormValue(csrfFormField)
			if requestToken == "" {
				requestToken = r.Header.Get(csrfHeaderName)
			}

			if sessionToken == "" || requestToken == "" ||
				subtle.ConstantTimeCompare([]byte(sessionToken), []byte(requestToken)) != 1 {
				slog.Warn("CSRF validation failed: token mismatch",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)
				http.Error(w, "CSRF token validation failed", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isSafeMethod はHTTPメソッドが安全（読み取り専用）かどうかを判定する。
func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}
