package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/kiji/internal/model"
)

// PostgresArticleRepo はPostgreSQLを使用した記事リポジトリ。
type PostgresArticleRepo struct {
	db *sql.DB
}

// NewPostgresArticleRepo はPostgresArticleRepoを生成する。
func NewPostgresArticleRepo(db *sql.DB) *PostgresArticleRepo {
	return &PostgresArticleRepo{db: db}
}

// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
func (r *PostgresArticleRepo) FindByID(ctx context.Context, id string) (*model.Article, error) {
	article := &model.Article{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, content, user_id, created_at, updated_at FROM articles WHERE id = $1`,
		id,
	).Scan(&article.ID, &article.Title, &article.Content, &article.UserID, &article.CreatedAt, &article.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find article by ID: %w", err)
	}

	return article, nil
}

// List は記事一覧を作成日時の降順でページ取得する。
func (r *PostgresArticleRepo) List(ctx context.Context, limit, offset int) ([]ArticleWithAuthor, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT a.id, a.title, a.content, a.user_id, a.created_at, a.updated_at, u.name
		 FROM articles a
		 JOIN users u ON u.id = a.user_id
		 ORDER BY a.created_at DESC
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	defer rows.Close()

	return scanArticlesWithAuthor(rows)
}

// Count は記事の総数を返す。
func (r *PostgresArticleRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM articles`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return count, nil
}

// Create は記事を作成する。
func (r *PostgresArticleRepo) Create(ctx context.Context, article *model.Article) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO articles (id, title, content, user_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		article.ID, article.Title, article.Content, article.UserID, article.CreatedAt, article.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert article: %w", err)
	}
	return nil
}

// Update は記事のタイトル・本文・更新日時を上書きする。
func (r *PostgresArticleRepo) Update(ctx context.Context, article *model.Article) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE articles SET title = $1, content = $2, updated_at = $3 WHERE id = $4`,
		article.Title, article.Content, article.UpdatedAt, article.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update article: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

// DeleteByID は指定IDの記事を削除する。
func (r *PostgresArticleRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM articles WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete article: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

// SearchByAuthorName は所有ユーザー名の部分一致（大文字小文字を区別しない）で記事を検索する。
func (r *PostgresArticleRepo) SearchByAuthorName(ctx context.Context, query string) ([]ArticleWithAuthor, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT a.id, a.title, a.content, a.user_id, a.created_at, a.updated_at, u.name
		 FROM articles a
		 JOIN users u ON u.id = a.user_id
		 WHERE u.name ILIKE '%' || $1 || '%'
		 ORDER BY a.created_at DESC`,
		query,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search articles by author: %w", err)
	}
	defer rows.Close()

	return scanArticlesWithAuthor(rows)
}

// SearchByTitleOrContent はタイトルまたは本文の部分一致で記事を検索する。
func (r *PostgresArticleRepo) SearchByTitleOrContent(ctx context.Context, query string) ([]ArticleWithAuthor, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT a.id, a.title, a.content, a.user_id, a.created_at, a.updated_at, u.name
		 FROM articles a
		 JOIN users u ON u.id = a.user_id
		 WHERE a.title ILIKE '%' || $1 || '%' OR a.content ILIKE '%' || $1 || '%'
		 ORDER BY a.created_at DESC`,
		query,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search articles: %w", err)
	}
	defer rows.Close()

	return scanArticlesWithAuthor(rows)
}

// ListOrderedByCreatedAt は全記事を作成日時順で返す。
func (r *PostgresArticleRepo) ListOrderedByCreatedAt(ctx context.Context, ascending bool) ([]ArticleWithAuthor, error) {
	// ORDER BY方向はプレースホルダにできないため、bool分岐で固定文字列を選ぶ。
	direction := "DESC"
	if ascending {
		direction = "ASC"
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT a.id, a.title, a.content, a.user_id, a.created_at, a.updated_at, u.name
		 FROM articles a
		 JOIN users u ON u.id = a.user_id
		 ORDER BY a.created_at `+direction,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles ordered by created_at: %w", err)
	}
	defer rows.Close()

	return scanArticlesWithAuthor(rows)
}

// scanArticlesWithAuthor は記事+著者名の行セットをスキャンする。
func scanArticlesWithAuthor(rows *sql.Rows) ([]ArticleWithAuthor, error) {
	articles := []ArticleWithAuthor{}
	for rows.Next() {
		var a ArticleWithAuthor
		if err := rows.Scan(&a.ID, &a.Title, &a.Content, &a.UserID, &a.CreatedAt, &a.UpdatedAt, &a.AuthorName); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate articles: %w", err)
	}
	return articles, nil
}

// compile-time interface check
var _ ArticleRepository = (*PostgresArticleRepo)(nil)
