package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/kiji/internal/model"
	"github.com/hitoshi/kiji/internal/view"
)

// MsgUserDeleted はユーザー削除成功時のフラッシュメッセージ。
const MsgUserDeleted = "User deleted successfully!"

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	List(ctx context.Context) ([]*model.User, error)
	Get(ctx context.Context, id string) (*model.User, error)
	Delete(ctx context.Context, id string) error
}

// UserHandler はユーザー一覧・詳細・削除のHTTPハンドラー。認証必須ルート配下。
type UserHandler struct {
	service   UserServiceInterface
	responder *Responder
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface, responder *Responder) *UserHandler {
	return &UserHandler{
		service:   service,
		responder: responder,
	}
}

// Index は全ユーザーの一覧を表示する。
// GET /users
func (h *UserHandler) Index(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		slog.Error("failed to list users", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.responder.Render(w, r, http.StatusOK, view.PageUsersIndex, &view.Data{
		Title: "Users",
		Users: users,
	})
}

// Show はユーザー詳細を表示する。
// GET /users/{id}
func (h *UserHandler) Show(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	user, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		slog.Error("failed to get user", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.responder.Render(w, r, http.StatusOK, view.PageUsersShow, &view.Data{
		Title: user.Name,
		User:  user,
	})
}

// Destroy はユーザーを削除する。認証済みであれば誰のアカウントでも削除できる。
// 対象の記事とセッションはCASCADEで同時に消える。
// DELETE /users/{id}
func (h *UserHandler) Destroy(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		slog.Error("failed to delete user", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.responder.RedirectWithSuccess(w, r, "/users", MsgUserDeleted)
}
