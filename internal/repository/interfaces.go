// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/kiji/internal/model"
)

// ErrDuplicateEmail はメールアドレスのUNIQUE制約違反を表す。
var ErrDuplicateEmail = errors.New("email already registered")

// ArticleWithAuthor は記事と所有ユーザー名を結合した構造体。
// 一覧・検索ビューで著者名を表示するために使う。
type ArticleWithAuthor struct {
	model.Article
	AuthorName string
}

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	// メールアドレスが登録済みの場合はErrDuplicateEmailを返す。
	Create(ctx context.Context, user *model.User) error

	// List は全ユーザーを登録日時の昇順で返す。
	List(ctx context.Context) ([]*model.User, error)

	// DeleteByID は指定IDのユーザーを削除する。
	// 所有記事とセッションはCASCADE削除される。
	// 対象が存在しない場合はmodel.ErrNotFoundを返す。
	DeleteByID(ctx context.Context, id string) error
}

// ArticleRepository は記事データの永続化インターフェース。
type ArticleRepository interface {
	// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Article, error)

	// List は記事一覧を作成日時の降順でページ取得する。
	List(ctx context.Context, limit, offset int) ([]ArticleWithAuthor, error)

	// Count は記事の総数を返す。ページナビゲーション用。
	Count(ctx context.Context) (int, error)

	// Create は記事を作成する。
	Create(ctx context.Context, article *model.Article) error

	// Update は記事のタイトル・本文・更新日時を上書きする。
	// 対象が存在しない場合はmodel.ErrNotFoundを返す。
	Update(ctx context.Context, article *model.Article) error

	// DeleteByID は指定IDの記事を削除する。
	// 対象が存在しない場合はmodel.ErrNotFoundを返す。
	DeleteByID(ctx context.Context, id string) error

	// SearchByAuthorName は所有ユーザー名の部分一致（大文字小文字を区別しない）で記事を検索する。
	SearchByAuthorName(ctx context.Context, query string) ([]ArticleWithAuthor, error)

	// SearchByTitleOrContent はタイトルまたは本文の部分一致で記事を検索する。
	SearchByTitleOrContent(ctx context.Context, query string) ([]ArticleWithAuthor, error)

	// ListOrderedByCreatedAt は全記事を作成日時順で返す。
	// ascendingがtrueなら昇順、falseなら降順。
	ListOrderedByCreatedAt(ctx context.Context, ascending bool) ([]ArticleWithAuthor, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error

	// FindByID は指定IDのセッションを取得する。期限切れ・未存在の場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)

	// UpdateData はセッションのdataカラム全体を置き換える。
	UpdateData(ctx context.Context, id string, data map[string]string) error

	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error

	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error

	// DeleteExpired は期限切れセッションを一括削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}
