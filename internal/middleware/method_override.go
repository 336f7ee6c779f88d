package middleware

import "net/http"

// methodOverrideField はフォームからHTTPメソッドを上書きする際のフィールド名。
const methodOverrideField = "_method"

// NewMethodOverrideMiddleware はPOSTフォームの_methodフィールドで
// HTTPメソッドを上書きするミドルウェアを返す。
// HTMLフォームはGETとPOSTしか送れないため、PUT・PATCH・DELETEの
// ルーティングはこの上書きに依存する。チェーンの先頭近くに配置する。
func NewMethodOverrideMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				switch r.PostFormValue(methodOverrideField) {
				case http.MethodPut:
					r.Method = http.MethodPut
				case http.MethodPatch:
					r.Method = http.MethodPatch
				case http.MethodDelete:
					r.Method = http.MethodDelete
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
