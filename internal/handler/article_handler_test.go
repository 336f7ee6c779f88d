package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/kiji/internal/article"
	"github.com/hitoshi/kiji/internal/model"
	"github.com/hitoshi/kiji/internal/repository"
)

type mockArticleService struct {
	listFn            func(ctx context.Context, page int) (*article.ListResult, error)
	getFn             func(ctx context.Context, id string) (*model.Article, *model.User, error)
	createFn          func(ctx context.Context, input article.Input, ownerID string) (*model.Article, error)
	getForEditFn      func(ctx context.Context, id, requesterID string) (*model.Article, error)
	updateFn          func(ctx context.Context, id string, input article.Input, requesterID string) (*model.Article, error)
	deleteFn          func(ctx context.Context, id, requesterID string) error
	searchByUserFn    func(ctx context.Context, query string) ([]repository.ArticleWithAuthor, error)
	searchByArticleFn func(ctx context.Context, query string) ([]repository.ArticleWithAuthor, error)
	sortByDateFn      func(ctx context.Context, order article.SortOrder) ([]repository.ArticleWithAuthor, error)
}

func (m *mockArticleService) List(ctx context.Context, page int) (*article.ListResult, error) {
	if m.listFn != nil {
		return m.listFn(ctx, page)
	}
	return &article.ListResult{Page: 1, TotalPages: 1}, nil
}

func (m *mockArticleService) Get(ctx context.Context, id string) (*model.Article, *model.User, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, nil, model.ErrNotFound
}

func (m *mockArticleService) Create(ctx context.Context, input article.Input, ownerID string) (*model.Article, error) {
	if m.createFn != nil {
		return m.createFn(ctx, input, ownerID)
	}
	return &model.Article{ID: "a1", Title: input.Title, Content: input.Content, UserID: ownerID}, nil
}

func (m *mockArticleService) GetForEdit(ctx context.Context, id, requesterID string) (*model.Article, error) {
	if m.getForEditFn != nil {
		return m.getForEditFn(ctx, id, requesterID)
	}
	return nil, model.ErrNotFound
}

func (m *mockArticleService) Update(ctx context.Context, id string, input article.Input, requesterID string) (*model.Article, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, input, requesterID)
	}
	return nil, model.ErrNotFound
}

func (m *mockArticleService) Delete(ctx context.Context, id, requesterID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id, requesterID)
	}
	return model.ErrNotFound
}

func (m *mockArticleService) SearchByUser(ctx context.Context, query string) ([]repository.ArticleWithAuthor, error) {
	if m.searchByUserFn != nil {
		return m.searchByUserFn(ctx, query)
	}
	return nil, nil
}

func (m *mockArticleService) SearchByArticle(ctx context.Context, query string) ([]repository.ArticleWithAuthor, error) {
	if m.searchByArticleFn != nil {
		return m.searchByArticleFn(ctx, query)
	}
	return nil, nil
}

func (m *mockArticleService) SortByDate(ctx context.Context, order article.SortOrder) ([]repository.ArticleWithAuthor, error) {
	if m.sortByDateFn != nil {
		return m.sortByDateFn(ctx, order)
	}
	return nil, nil
}

func newArticleHandlerForTest(t *testing.T, service *mockArticleService) (*ArticleHandler, *mockSessionUpdater, *stubMetrics) {
	t.Helper()
	responder, updater := newTestResponder(t)
	metrics := &stubMetrics{}
	return NewArticleHandler(service, responder, metrics), updater, metrics
}

// withURLParam はchiのルートコンテキストにURLパラメータを設定する。
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func sampleArticles(n int) []repository.ArticleWithAuthor {
	articles := make([]repository.ArticleWithAuthor, n)
	for i := range articles {
		articles[i] = repository.ArticleWithAuthor{
			Article: model.Article{
				ID:        "a" + string(rune('1'+i)),
				Title:     "Sample Title",
				Content:   "<p>body</p>",
				UserID:    "u1",
				CreatedAt: time.Now(),
			},
			AuthorName: "John Doe",
		}
	}
	return articles
}

func TestArticleIndex_PassesPageParam(t *testing.T) {
	var gotPage int
	service := &mockArticleService{
		listFn: func(ctx context.Context, page int) (*article.ListResult, error) {
			gotPage = page
			return &article.ListResult{Articles: sampleArticles(5), Page: page, TotalPages: 2}, nil
		},
	}
	h, _, _ := newArticleHandlerForTest(t, service)

	req := withSession(httptest.NewRequest(http.MethodGet, "/articles?page=2", nil), anonSession())
	w := httptest.NewRecorder()
	h.Index(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if gotPage != 2 {
		t.Errorf("page = %d, want 2", gotPage)
	}
	if !strings.Contains(w.Body.String(), "Sample Title") {
		t.Error("body should contain article titles")
	}
}

func TestArticleShow_UnknownID_Returns404(t *testing.T) {
	h, _, _ := newArticleHandlerForTest(t, &mockArticleService{})

	req := withURLParam(withSession(httptest.NewRequest(http.MethodGet, "/articles/missing", nil), anonSession()), "id", "missing")
	w := httptest.NewRecorder()
	h.Show(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestArticleShow_RendersArticleWithAuthor(t *testing.T) {
	service := &mockArticleService{
		getFn: func(ctx context.Context, id string) (*model.Article, *model.User, error) {
			return &model.Article{ID: id, Title: "Hello", Content: "<p>world</p>", UserID: "u1"},
				&model.User{ID: "u1", Name: "John Doe"}, nil
		},
	}
	h, _, _ := newArticleHandlerForTest(t, service)

	req := withURLParam(withSession(httptest.NewRequest(http.MethodGet, "/articles/a1", nil), anonSession()), "id", "a1")
	w := httptest.NewRecorder()
	h.Show(w, req)

	body := w.Body.String()
	if !strings.Contains(body, "Hello") {
		t.Error("body should contain the title")
	}
	if !strings.Contains(body, "John Doe") {
		t.Error("body should contain the author name")
	}
}

func TestArticleStore_Success_RedirectsAndCounts(t *testing.T) {
	var gotOwner string
	service := &mockArticleService{
		createFn: func(ctx context.Context, input article.Input, ownerID string) (*model.Article, error) {
			gotOwner = ownerID
			return &model.Article{ID: "a1", Title: input.Title, UserID: ownerID}, nil
		},
	}
	h, _, metrics := newArticleHandlerForTest(t, service)

	form := url.Values{"title": {"Test"}, "content": {"Body"}}
	req := withUser(withSession(postForm("/articles", form), authedSession("u1")), &model.User{ID: "u1"})
	w := httptest.NewRecorder()
	h.Store(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/articles" {
		t.Errorf("Location = %q, want /articles", loc)
	}
	if gotOwner != "u1" {
		t.Errorf("owner = %q, want the requester", gotOwner)
	}
	if metrics.articlesCreated != 1 {
		t.Errorf("articlesCreated = %d, want 1", metrics.articlesCreated)
	}
}

func TestArticleStore_ValidationFailure_RerendersForm(t *testing.T) {
	service := &mockArticleService{
		createFn: func(ctx context.Context, input article.Input, ownerID string) (*model.Article, error) {
			ve := model.NewValidationError()
			ve.Add("title", article.MsgTitleRequired)
			return nil, ve
		},
	}
	h, _, metrics := newArticleHandlerForTest(t, service)

	form := url.Values{"title": {""}, "content": {"Body text"}}
	req := withUser(withSession(postForm("/articles", form), authedSession("u1")), &model.User{ID: "u1"})
	w := httptest.NewRecorder()
	h.Store(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, article.MsgTitleRequired) {
		t.Error("body should contain the title field error")
	}
	if !strings.Contains(body, "Body text") {
		t.Error("body should repopulate the submitted content")
	}
	if metrics.articlesCreated != 0 {
		t.Error("failed creation must not be counted")
	}
}

func TestArticleEdit_NonOwner_RedirectsWithFlashError(t *testing.T) {
	service := &mockArticleService{
		getForEditFn: func(ctx context.Context, id, requesterID string) (*model.Article, error) {
			return nil, model.ErrForbidden
		},
	}
	h, updater, _ := newArticleHandlerForTest(t, service)

	session := authedSession("intruder")
	req := withURLParam(withUser(withSession(httptest.NewRequest(http.MethodGet, "/articles/a1/edit", nil), session), &model.User{ID: "intruder"}), "id", "a1")
	w := httptest.NewRecorder()
	h.Edit(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/articles" {
		t.Errorf("Location = %q, want /articles", loc)
	}
	flashed := updater.updated[session.ID]
	if flashed[model.SessionKeyFlashError] != MsgNotAuthorized {
		t.Errorf("flash error = %q, want %q", flashed[model.SessionKeyFlashError], MsgNotAuthorized)
	}
}

func TestArticleEdit_Owner_RendersFormWithCurrentValues(t *testing.T) {
	service := &mockArticleService{
		getForEditFn: func(ctx context.Context, id, requesterID string) (*model.Article, error) {
			return &model.Article{ID: id, Title: "Old Title", Content: "Old content", UserID: requesterID}, nil
		},
	}
	h, _, _ := newArticleHandlerForTest(t, service)

	req := withURLParam(withUser(withSession(httptest.NewRequest(http.MethodGet, "/articles/a1/edit", nil), authedSession("u1")), &model.User{ID: "u1"}), "id", "a1")
	w := httptest.NewRecorder()
	h.Edit(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `value="Old Title"`) {
		t.Error("form should be prefilled with the current title")
	}
	if !strings.Contains(body, "Old content") {
		t.Error("form should be prefilled with the current content")
	}
}

func TestArticleUpdate_Success_RedirectsToShowWithFlash(t *testing.T) {
	service := &mockArticleService{
		updateFn: func(ctx context.Context, id string, input article.Input, requesterID string) (*model.Article, error) {
			return &model.Article{ID: id, Title: input.Title, Content: input.Content, UserID: requesterID}, nil
		},
	}
	h, updater, _ := newArticleHandlerForTest(t, service)

	session := authedSession("u1")
	form := url.Values{"title": {"New"}, "content": {"Updated"}}
	req := withURLParam(withUser(withSession(postForm("/articles/a1", form), session), &model.User{ID: "u1"}), "id", "a1")
	w := httptest.NewRecorder()
	h.Update(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/articles/a1" {
		t.Errorf("Location = %q, want /articles/a1", loc)
	}
	flashed := updater.updated[session.ID]
	if flashed[model.SessionKeyFlashSuccess] != MsgArticleUpdated {
		t.Errorf("flash = %q, want %q", flashed[model.SessionKeyFlashSuccess], MsgArticleUpdated)
	}
}

func TestArticleUpdate_NonOwner_RedirectsWithFlashError(t *testing.T) {
	service := &mockArticleService{
		updateFn: func(ctx context.Context, id string, input article.Input, requesterID string) (*model.Article, error) {
			return nil, model.ErrForbidden
		},
	}
	h, updater, _ := newArticleHandlerForTest(t, service)

	session := authedSession("intruder")
	form := url.Values{"title": {"x"}, "content": {"y"}}
	req := withURLParam(withUser(withSession(postForm("/articles/a1", form), session), &model.User{ID: "intruder"}), "id", "a1")
	w := httptest.NewRecorder()
	h.Update(w, req)

	if loc := w.Header().Get("Location"); loc != "/articles" {
		t.Errorf("Location = %q, want /articles", loc)
	}
	flashed := updater.updated[session.ID]
	if flashed[model.SessionKeyFlashError] != MsgNotAuthorized {
		t.Errorf("flash error = %q, want %q", flashed[model.SessionKeyFlashError], MsgNotAuthorized)
	}
}

func TestArticleDestroy_Success_RedirectsWithFlash(t *testing.T) {
	var deleted string
	service := &mockArticleService{
		deleteFn: func(ctx context.Context, id, requesterID string) error {
			deleted = id
			return nil
		},
	}
	h, updater, _ := newArticleHandlerForTest(t, service)

	session := authedSession("u1")
	req := withURLParam(withUser(withSession(postForm("/articles/a1", url.Values{}), session), &model.User{ID: "u1"}), "id", "a1")
	w := httptest.NewRecorder()
	h.Destroy(w, req)

	if deleted != "a1" {
		t.Errorf("deleted = %q, want a1", deleted)
	}
	if loc := w.Header().Get("Location"); loc != "/articles" {
		t.Errorf("Location = %q, want /articles", loc)
	}
	flashed := updater.updated[session.ID]
	if flashed[model.SessionKeyFlashSuccess] != MsgArticleDeleted {
		t.Errorf("flash = %q, want %q", flashed[model.SessionKeyFlashSuccess], MsgArticleDeleted)
	}
}

func TestArticleSearchByUser_PassesQuery(t *testing.T) {
	var gotQuery string
	service := &mockArticleService{
		searchByUserFn: func(ctx context.Context, query string) ([]repository.ArticleWithAuthor, error) {
			gotQuery = query
			return sampleArticles(1), nil
		},
	}
	h, _, _ := newArticleHandlerForTest(t, service)

	req := withSession(httptest.NewRequest(http.MethodGet, "/articles/search/user?search=John", nil), anonSession())
	w := httptest.NewRecorder()
	h.SearchByUser(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if gotQuery != "John" {
		t.Errorf("query = %q, want John", gotQuery)
	}
}

func TestArticleSort_InvalidOrder_Returns404(t *testing.T) {
	service := &mockArticleService{
		sortByDateFn: func(ctx context.Context, order article.SortOrder) ([]repository.ArticleWithAuthor, error) {
			return nil, model.ErrNotFound
		},
	}
	h, _, _ := newArticleHandlerForTest(t, service)

	req := withSession(httptest.NewRequest(http.MethodGet, "/articles/sort?order=sideways", nil), anonSession())
	w := httptest.NewRecorder()
	h.Sort(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestArticleSort_ValidOrder_RendersList(t *testing.T) {
	var gotOrder article.SortOrder
	service := &mockArticleService{
		sortByDateFn: func(ctx context.Context, order article.SortOrder) ([]repository.ArticleWithAuthor, error) {
			gotOrder = order
			return sampleArticles(2), nil
		},
	}
	h, _, _ := newArticleHandlerForTest(t, service)

	req := withSession(httptest.NewRequest(http.MethodGet, "/articles/sort?order=asc", nil), anonSession())
	w := httptest.NewRecorder()
	h.Sort(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if gotOrder != article.SortAsc {
		t.Errorf("order = %q, want asc", gotOrder)
	}
}
