// Package view はembedしたHTMLテンプレートのレンダリングを提供する。
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/hitoshi/kiji/internal/model"
	"github.com/hitoshi/kiji/internal/repository"
)

//go:embed templates/*.html
var templateFS embed.FS

// ページテンプレートの名前。Renderに渡すキーと一致する。
const (
	PageArticlesIndex  = "articles_index"
	PageArticlesShow   = "articles_show"
	PageArticlesCreate = "articles_create"
	PageArticlesEdit   = "articles_edit"
	PageLogin          = "login"
	PageRegister       = "register"
	PageUsersIndex     = "users_index"
	PageUsersShow      = "users_show"
)

var pages = []string{
	PageArticlesIndex,
	PageArticlesShow,
	PageArticlesCreate,
	PageArticlesEdit,
	PageLogin,
	PageRegister,
	PageUsersIndex,
	PageUsersShow,
}

// Data はテンプレートに渡すビューデータ。
// ページごとに使うフィールドだけを設定する。
type Data struct {
	Title string

	// 共通: ナビゲーション・フラッシュ・フォーム用
	CurrentUser  *model.User
	CSRFToken    string
	FlashSuccess string
	FlashError   string
	LoginSuccess bool
	Errors       map[string]string
	Old          map[string]string

	// 記事ページ用
	Articles   []repository.ArticleWithAuthor
	Article    *model.Article
	Author     *model.User
	Page       int
	TotalPages int
	Query      string

	// ユーザーページ用
	Users []*model.User
	User  *model.User
}

// Renderer はパース済みテンプレートを保持する。
type Renderer struct {
	templates map[string]*template.Template
}

// NewRenderer は全ページテンプレートをレイアウトと結合してパースする。
// テンプレートの構文エラーは起動時にここで検出される。
func NewRenderer() (*Renderer, error) {
	funcs := template.FuncMap{
		// サニタイズ済みの記事本文をエスケープせずに出力する。
		// 本文は保存時にbluemondayを通している。
		"raw": func(s string) template.HTML {
			return template.HTML(s)
		},
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
		"seq": func(n int) []int {
			s := make([]int, n)
			for i := range s {
				s[i] = i + 1
			}
			return s
		},
	}

	templates := make(map[string]*template.Template)
	for _, page := range pages {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(
			templateFS,
			"templates/layout.html",
			"templates/"+page+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		templates[page] = t
	}

	return &Renderer{templates: templates}, nil
}

// Render は指定ページをレンダリングしてレスポンスに書き込む。
// 部分的なレスポンスを避けるため、一度バッファに書き出してから送信する。
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data *Data) error {
	t, ok := r.templates[page]
	if !ok {
		return fmt.Errorf("unknown template: %s", page)
	}
	if data == nil {
		data = &Data{}
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		return fmt.Errorf("execute template %s: %w", page, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
