// Package handler はサーバーレンダリングのHTTPハンドラーを提供する。
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/kiji/internal/middleware"
	"github.com/hitoshi/kiji/internal/model"
	"github.com/hitoshi/kiji/internal/view"
)

// SessionDataUpdater はセッションdataの更新に必要なインターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionDataUpdater interface {
	UpdateData(ctx context.Context, id string, data map[string]string) error
}

// ログインフォームへリダイレクトで引き継ぐセッションキー。
// ログイン失敗時のフィールドエラーと入力値を1回だけ再表示するために使う。
const (
	sessionKeyLoginError = "login_error"
	sessionKeyOldEmail   = "old_email"
)

// Responder はビューのレンダリングとフラッシュ付きリダイレクトをまとめる。
// 全ハンドラーで共有される。
type Responder struct {
	renderer *view.Renderer
	sessions SessionDataUpdater
}

// NewResponder はResponderを生成する。
func NewResponder(renderer *view.Renderer, sessions SessionDataUpdater) *Responder {
	return &Responder{
		renderer: renderer,
		sessions: sessions,
	}
}

// Render は共通ビューデータ（現在ユーザー・CSRFトークン・フラッシュ）を
// 補完してページをレンダリングする。
// フラッシュメッセージとlogin_successフラグはここで消費される（1回限り表示）。
func (rp *Responder) Render(w http.ResponseWriter, r *http.Request, status int, page string, data *view.Data) {
	if data == nil {
		data = &view.Data{}
	}

	data.CurrentUser = middleware.UserFromContext(r.Context())

	session := middleware.SessionFromContext(r.Context())
	if session != nil {
		data.CSRFToken = session.Data[model.SessionKeyCSRFToken]

		popped := rp.popSessionValues(r.Context(), session,
			model.SessionKeyFlashSuccess,
			model.SessionKeyFlashError,
			model.SessionKeyLoginSuccess,
		)
		data.FlashSuccess = popped[model.SessionKeyFlashSuccess]
		data.FlashError = popped[model.SessionKeyFlashError]
		data.LoginSuccess = popped[model.SessionKeyLoginSuccess] != ""
	}

	if err := rp.renderer.Render(w, status, page, data); err != nil {
		slog.Error("failed to render template",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// RedirectWithSuccess は成功フラッシュを積んでリダイレクトする。
func (rp *Responder) RedirectWithSuccess(w http.ResponseWriter, r *http.Request, url, message string) {
	rp.setSessionValue(w, r, model.SessionKeyFlashSuccess, message)
	http.Redirect(w, r, url, http.StatusFound)
}

// RedirectWithError はエラーフラッシュを積んでリダイレクトする。
func (rp *Responder) RedirectWithError(w http.ResponseWriter, r *http.Request, url, message string) {
	rp.setSessionValue(w, r, model.SessionKeyFlashError, message)
	http.Redirect(w, r, url, http.StatusFound)
}

// setSessionValue はセッションdataに値を書き込んで永続化する。
// 永続化に失敗してもリダイレクトは継続する（フラッシュが落ちるだけ）。
func (rp *Responder) setSessionValue(w http.ResponseWriter, r *http.Request, key, value string) {
	session := middleware.SessionFromContext(r.Context())
	if session == nil {
		return
	}
	session.Data[key] = value
	if err := rp.sessions.UpdateData(r.Context(), session.ID, session.Data); err != nil {
		slog.Error("failed to persist session data",
			slog.String("error", err.Error()),
		)
	}
}

// popSessionValues は指定キーの値を読み取り、セッションから削除して返す。
// 1回限り表示の契約を実装する。削除の永続化に失敗した場合はログのみ。
func (rp *Responder) popSessionValues(ctx context.Context, session *model.Session, keys ...string) map[string]string {
	popped := make(map[string]string, len(keys))
	dirty := false
	for _, key := range keys {
		if v, ok := session.Data[key]; ok {
			popped[key] = v
			delete(session.Data, key)
			dirty = true
		}
	}
	if dirty {
		if err := rp.sessions.UpdateData(ctx, session.ID, session.Data); err != nil {
			slog.Error("failed to clear flash data",
				slog.String("error", err.Error()),
			)
		}
	}
	return popped
}
