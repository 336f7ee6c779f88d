package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/kiji/internal/auth"
	"github.com/hitoshi/kiji/internal/middleware"
	"github.com/hitoshi/kiji/internal/model"
	"github.com/hitoshi/kiji/internal/view"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// Register はユーザーを作成し、認証済みセッションを発行する。
	// oldSessionIDのセッションは破棄される（セッションID再発行）。
	Register(ctx context.Context, input auth.RegisterInput, oldSessionID string) (*model.User, *model.Session, error)

	// Login は資格情報を検証し、認証済みセッションを発行する。
	Login(ctx context.Context, email, password, oldSessionID string) (*model.User, *model.Session, error)

	// Logout はセッションを破棄する。
	Logout(ctx context.Context, sessionID string) error
}

// AuthMetrics は認証ハンドラーが記録するメトリクスのインターフェース。
type AuthMetrics interface {
	RecordUserRegistered()
	RecordLoginFailure()
}

// AuthHandler はユーザー登録・ログイン・ログアウトのHTTPハンドラー。
type AuthHandler struct {
	service       AuthServiceInterface
	responder     *Responder
	sessionConfig middleware.SessionConfig
	metrics       AuthMetrics
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, responder *Responder, sessionConfig middleware.SessionConfig, metrics AuthMetrics) *AuthHandler {
	return &AuthHandler{
		service:       service,
		responder:     responder,
		sessionConfig: sessionConfig,
		metrics:       metrics,
	}
}

// ShowRegister は登録フォームを表示する。
// GET /register
func (h *AuthHandler) ShowRegister(w http.ResponseWriter, r *http.Request) {
	h.responder.Render(w, r, http.StatusOK, view.PageRegister, &view.Data{
		Title: "Register",
	})
}

// Register はユーザー登録を処理する。
// POST /register
// 検証失敗時はフィールドエラーと入力値（パスワード以外）を保持して
// フォームを再表示する。成功時はログイン状態でトップへリダイレクトする。
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	input := auth.RegisterInput{
		Name:                 r.PostFormValue("name"),
		Email:                r.PostFormValue("email"),
		Password:             r.PostFormValue("password"),
		PasswordConfirmation: r.PostFormValue("password_confirmation"),
	}

	oldSessionID := sessionID(r)

	_, session, err := h.service.Register(r.Context(), input, oldSessionID)
	if err != nil {
		if ve := model.AsValidationError(err); ve != nil {
			h.responder.Render(w, r, http.StatusUnprocessableEntity, view.PageRegister, &view.Data{
				Title:  "Register",
				Errors: ve.Fields,
				Old: map[string]string{
					"name":  input.Name,
					"email": input.Email,
				},
			})
			return
		}
		slog.Error("failed to register user", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordUserRegistered()
	middleware.SetSessionCookie(w, session.ID, h.sessionConfig)
	http.Redirect(w, r, "/", http.StatusFound)
}

// ShowLogin はログインフォームを表示する。
// GET /login
// 直前のログイン失敗がセッションに残っていれば、フィールドエラーと
// 入力済みメールアドレスを1回だけ再表示する。
func (h *AuthHandler) ShowLogin(w http.ResponseWriter, r *http.Request) {
	data := &view.Data{Title: "Login"}

	if session := middleware.SessionFromContext(r.Context()); session != nil {
		popped := h.responder.popSessionValues(r.Context(), session,
			sessionKeyLoginError, sessionKeyOldEmail)
		if msg := popped[sessionKeyLoginError]; msg != "" {
			data.Errors = map[string]string{"email": msg}
		}
		if old := popped[sessionKeyOldEmail]; old != "" {
			data.Old = map[string]string{"email": old}
		}
	}

	h.responder.Render(w, r, http.StatusOK, view.PageLogin, data)
}

// Login はログインを処理する。
// POST /login
// 失敗時は存在しないメールアドレスかパスワード誤りかを区別せず、
// 単一のエラーメッセージでログインフォームへ戻す。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")

	oldSessionID := sessionID(r)

	_, session, err := h.service.Login(r.Context(), email, password, oldSessionID)
	if err != nil {
		if errors.Is(err, model.ErrInvalidCredentials) {
			h.metrics.RecordLoginFailure()
			h.stashLoginFailure(w, r, email)
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		slog.Error("failed to log in", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	middleware.SetSessionCookie(w, session.ID, h.sessionConfig)
	http.Redirect(w, r, "/", http.StatusFound)
}

// Logout はログアウトを処理する。未ログインでも安全に動作する。
// POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if id := sessionID(r); id != "" {
		if err := h.service.Logout(r.Context(), id); err != nil {
			slog.Error("failed to log out", slog.String("error", err.Error()))
		}
	}
	middleware.ClearSessionCookie(w, h.sessionConfig)
	http.Redirect(w, r, "/", http.StatusFound)
}

// stashLoginFailure はログイン失敗のエラーと入力値をセッションに退避する。
// 次のGET /loginで1回だけ表示される。
func (h *AuthHandler) stashLoginFailure(w http.ResponseWriter, r *http.Request, email string) {
	h.responder.setSessionValue(w, r, sessionKeyLoginError, auth.MsgInvalidCredentials)
	h.responder.setSessionValue(w, r, sessionKeyOldEmail, email)
}

// sessionID はコンテキストのセッションからIDを取り出す。セッションが無ければ空文字。
func sessionID(r *http.Request) string {
	if session := middleware.SessionFromContext(r.Context()); session != nil {
		return session.ID
	}
	return ""
}
