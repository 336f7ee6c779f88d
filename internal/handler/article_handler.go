package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/kiji/internal/article"
	"github.com/hitoshi/kiji/internal/middleware"
	"github.com/hitoshi/kiji/internal/model"
	"github.com/hitoshi/kiji/internal/repository"
	"github.com/hitoshi/kiji/internal/view"
)

// MsgNotAuthorized は非所有者が記事の編集・削除を試みたときのフラッシュエラー。
const MsgNotAuthorized = "You are not authorized to edit this article."

// 記事操作成功時のフラッシュメッセージ。
const (
	MsgArticleUpdated = "Article updated successfully!"
	MsgArticleDeleted = "Article deleted successfully!"
)

// ArticleServiceInterface は記事ハンドラーが必要とするサービスインターフェース。
type ArticleServiceInterface interface {
	List(ctx context.Context, page int) (*article.ListResult, error)
	Get(ctx context.Context, id string) (*model.Article, *model.User, error)
	Create(ctx context.Context, input article.Input, ownerID string) (*model.Article, error)
	GetForEdit(ctx context.Context, id, requesterID string) (*model.Article, error)
	Update(ctx context.Context, id string, input article.Input, requesterID string) (*model.Article, error)
	Delete(ctx context.Context, id, requesterID string) error
	SearchByUser(ctx context.Context, query string) ([]repository.ArticleWithAuthor, error)
	SearchByArticle(ctx context.Context, query string) ([]repository.ArticleWithAuthor, error)
	SortByDate(ctx context.Context, order article.SortOrder) ([]repository.ArticleWithAuthor, error)
}

// ArticleMetrics は記事ハンドラーが記録するメトリクスのインターフェース。
type ArticleMetrics interface {
	RecordArticleCreated()
}

// ArticleHandler は記事CRUD・検索・並べ替えのHTTPハンドラー。
type ArticleHandler struct {
	service   ArticleServiceInterface
	responder *Responder
	metrics   ArticleMetrics
}

// NewArticleHandler はArticleHandlerを生成する。
func NewArticleHandler(service ArticleServiceInterface, responder *Responder, metrics ArticleMetrics) *ArticleHandler {
	return &ArticleHandler{
		service:   service,
		responder: responder,
		metrics:   metrics,
	}
}

// Index は記事一覧を表示する。1ページ5件、作成日時の降順。
// GET / および GET /articles
func (h *ArticleHandler) Index(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	result, err := h.service.List(r.Context(), page)
	if err != nil {
		slog.Error("failed to list articles", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.responder.Render(w, r, http.StatusOK, view.PageArticlesIndex, &view.Data{
		Title:      "Articles",
		Articles:   result.Articles,
		Page:       result.Page,
		TotalPages: result.TotalPages,
	})
}

// Show は記事詳細を所有ユーザーとともに表示する。
// GET /articles/{id}
func (h *ArticleHandler) Show(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	art, owner, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		slog.Error("failed to get article", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.responder.Render(w, r, http.StatusOK, view.PageArticlesShow, &view.Data{
		Title:   art.Title,
		Article: art,
		Author:  owner,
	})
}

// ShowCreate は記事作成フォームを表示する。認証必須ルート配下。
// GET /articles/create
func (h *ArticleHandler) ShowCreate(w http.ResponseWriter, r *http.Request) {
	h.responder.Render(w, r, http.StatusOK, view.PageArticlesCreate, &view.Data{
		Title: "New Article",
	})
}

// Store は記事を作成する。本文は保存前にサニタイズされる。
// POST /articles
func (h *ArticleHandler) Store(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	input := article.Input{
		Title:   r.PostFormValue("title"),
		Content: r.PostFormValue("content"),
	}

	if _, err := h.service.Create(r.Context(), input, user.ID); err != nil {
		if ve := model.AsValidationError(err); ve != nil {
			h.responder.Render(w, r, http.StatusUnprocessableEntity, view.PageArticlesCreate, &view.Data{
				Title:  "New Article",
				Errors: ve.Fields,
				Old: map[string]string{
					"title":   input.Title,
					"content": input.Content,
				},
			})
			return
		}
		slog.Error("failed to create article", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordArticleCreated()
	http.Redirect(w, r, "/articles", http.StatusFound)
}

// Edit は記事編集フォームを表示する。所有者のみ。
// GET /articles/{id}/edit
func (h *ArticleHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	user := middleware.UserFromContext(r.Context())

	art, err := h.service.GetForEdit(r.Context(), id, user.ID)
	if err != nil {
		h.handleArticleAuthError(w, r, err)
		return
	}

	h.responder.Render(w, r, http.StatusOK, view.PageArticlesEdit, &view.Data{
		Title:   "Edit Article",
		Article: art,
	})
}

// Update は記事を更新する。所有者のみ。
// PUT /articles/{id}
func (h *ArticleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	user := middleware.UserFromContext(r.Context())
	input := article.Input{
		Title:   r.PostFormValue("title"),
		Content: r.PostFormValue("content"),
	}

	art, err := h.service.Update(r.Context(), id, input, user.ID)
	if err != nil {
		if ve := model.AsValidationError(err); ve != nil {
			h.responder.Render(w, r, http.StatusUnprocessableEntity, view.PageArticlesEdit, &view.Data{
				Title:   "Edit Article",
				Article: &model.Article{ID: id},
				Errors:  ve.Fields,
				Old: map[string]string{
					"title":   input.Title,
					"content": input.Content,
				},
			})
			return
		}
		h.handleArticleAuthError(w, r, err)
		return
	}

	h.responder.RedirectWithSuccess(w, r, "/articles/"+art.ID, MsgArticleUpdated)
}

// Destroy は記事を削除する。所有者のみ。
// DELETE /articles/{id}
func (h *ArticleHandler) Destroy(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	user := middleware.UserFromContext(r.Context())

	if err := h.service.Delete(r.Context(), id, user.ID); err != nil {
		h.handleArticleAuthError(w, r, err)
		return
	}

	h.responder.RedirectWithSuccess(w, r, "/articles", MsgArticleDeleted)
}

// SearchByUser は所有ユーザー名の部分一致で記事を検索する。
// GET /articles/search/user?search=
func (h *ArticleHandler) SearchByUser(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("search")

	results, err := h.service.SearchByUser(r.Context(), query)
	if err != nil {
		slog.Error("failed to search articles by user", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.renderSearchResults(w, r, results, query)
}

// SearchByArticle はタイトル・本文の部分一致で記事を検索する。
// GET /articles/search/article?search=
func (h *ArticleHandler) SearchByArticle(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("search")

	results, err := h.service.SearchByArticle(r.Context(), query)
	if err != nil {
		slog.Error("failed to search articles", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.renderSearchResults(w, r, results, query)
}

// Sort は作成日時順で全記事を表示する。orderはascとdescのみ許可し、
// それ以外は404を返す。
// GET /articles/sort?order=asc|desc
func (h *ArticleHandler) Sort(w http.ResponseWriter, r *http.Request) {
	order := article.SortOrder(r.URL.Query().Get("order"))

	results, err := h.service.SortByDate(r.Context(), order)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		slog.Error("failed to sort articles", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.responder.Render(w, r, http.StatusOK, view.PageArticlesIndex, &view.Data{
		Title:      "Articles",
		Articles:   results,
		Page:       1,
		TotalPages: 1,
	})
}

// renderSearchResults は検索結果を一覧ページで表示する。検索結果はページ分割しない。
func (h *ArticleHandler) renderSearchResults(w http.ResponseWriter, r *http.Request, results []repository.ArticleWithAuthor, query string) {
	h.responder.Render(w, r, http.StatusOK, view.PageArticlesIndex, &view.Data{
		Title:      "Articles",
		Articles:   results,
		Query:      query,
		Page:       1,
		TotalPages: 1,
	})
}

// handleArticleAuthError は編集・削除系操作の認可エラーを振り分ける。
// 非所有者は一覧へフラッシュエラー付きでリダイレクト、未存在は404。
func (h *ArticleHandler) handleArticleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrForbidden):
		h.responder.RedirectWithError(w, r, "/articles", MsgNotAuthorized)
	case errors.Is(err, model.ErrNotFound):
		http.NotFound(w, r)
	default:
		slog.Error("article operation failed", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
