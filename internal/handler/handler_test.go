package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/hitoshi/kiji/internal/middleware"
	"github.com/hitoshi/kiji/internal/model"
	"github.com/hitoshi/kiji/internal/view"
)

// mockSessionUpdater はセッションdataの更新を記録するテスト用実装。
type mockSessionUpdater struct {
	updated map[string]map[string]string
}

func newMockSessionUpdater() *mockSessionUpdater {
	return &mockSessionUpdater{updated: make(map[string]map[string]string)}
}

func (m *mockSessionUpdater) UpdateData(ctx context.Context, id string, data map[string]string) error {
	copied := make(map[string]string, len(data))
	for k, v := range data {
		copied[k] = v
	}
	m.updated[id] = copied
	return nil
}

// stubMetrics はメトリクス記録を数えるテスト用実装。
type stubMetrics struct {
	httpStatuses    []int
	latencies       int
	articlesCreated int
	usersRegistered int
	loginFailures   int
	sessionsPurged  int64
}

func (s *stubMetrics) RecordHTTPStatus(statusCode int)              { s.httpStatuses = append(s.httpStatuses, statusCode) }
func (s *stubMetrics) RecordRequestLatency(duration time.Duration)  { s.latencies++ }
func (s *stubMetrics) RecordArticleCreated()                        { s.articlesCreated++ }
func (s *stubMetrics) RecordUserRegistered()                        { s.usersRegistered++ }
func (s *stubMetrics) RecordLoginFailure()                          { s.loginFailures++ }
func (s *stubMetrics) RecordSessionsPurged(count int64)             { s.sessionsPurged += count }

func newTestResponder(t *testing.T) (*Responder, *mockSessionUpdater) {
	t.Helper()
	renderer, err := view.NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer failed: %v", err)
	}
	updater := newMockSessionUpdater()
	return NewResponder(renderer, updater), updater
}

// anonSession はCSRFトークン付きの匿名セッションを返す。
func anonSession() *model.Session {
	return &model.Session{
		ID:        "sess-1",
		Data:      map[string]string{model.SessionKeyCSRFToken: "tok"},
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

// authedSession は認証済みセッションを返す。
func authedSession(userID string) *model.Session {
	s := anonSession()
	s.UserID = &userID
	return s
}

// withSession はリクエストにセッションを注入する。
func withSession(r *http.Request, session *model.Session) *http.Request {
	return r.WithContext(middleware.ContextWithSession(r.Context(), session))
}

// withUser はリクエストに認証済みユーザーを注入する。
func withUser(r *http.Request, user *model.User) *http.Request {
	return r.WithContext(middleware.ContextWithUser(r.Context(), user))
}
