// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// PasswordHashはbcryptハッシュを保持し、平文パスワードは保存しない。
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session はブラウザごとのセッションを表す。
// 未ログインの匿名セッションではUserIDはnil。
// DataはフラッシュメッセージやCSRFトークンなどのセッションスコープの値を保持する。
type Session struct {
	ID        string
	UserID    *string
	Data      map[string]string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// セッションDataの予約キー。
const (
	// SessionKeyCSRFToken はセッション作成時に発行されるCSRFトークン。
	SessionKeyCSRFToken = "csrf_token"
	// SessionKeyFlashSuccess は次のレンダリングで1回だけ表示される成功メッセージ。
	SessionKeyFlashSuccess = "flash_success"
	// SessionKeyFlashError は次のレンダリングで1回だけ表示されるエラーメッセージ。
	SessionKeyFlashError = "flash_error"
	// SessionKeyLoginSuccess はログイン直後に1回だけ読まれるフラグ。
	SessionKeyLoginSuccess = "login_success"
)

// IsAuthenticated はセッションが認証済みかどうかを返す。
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.UserID != nil && *s.UserID != ""
}
