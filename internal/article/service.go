// Package article は記事管理のドメインロジックを提供する。
package article

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/kiji/internal/model"
	"github.com/hitoshi/kiji/internal/repository"
	"github.com/hitoshi/kiji/internal/security"
)

// PageSize は記事一覧の1ページあたりの件数。
const PageSize = 5

// フォーム検証メッセージ。
const (
	MsgTitleRequired   = "The title field is required."
	MsgTitleTooLong    = "The title may not be greater than 255 characters."
	MsgContentRequired = "The content field is required."
)

// maxTitleLength はタイトルの最大文字数。
const maxTitleLength = 255

// SortOrder は並び替え方向を表す。
type SortOrder string

const (
	// SortAsc は作成日時の昇順。
	SortAsc SortOrder = "asc"
	// SortDesc は作成日時の降順。
	SortDesc SortOrder = "desc"
)

// validSortOrders は許可された並び替え方向のセット。
// セットにない値は検証エラーではなくNotFoundとして扱う（厳密な許可リスト）。
var validSortOrders = map[SortOrder]bool{
	SortAsc:  true,
	SortDesc: true,
}

// Input は記事の作成・更新フォームの入力を表す。
type Input struct {
	Title   string
	Content string
}

// ListResult はListの戻り値。
type ListResult struct {
	Articles   []repository.ArticleWithAuthor
	Page       int
	TotalPages int
}

// Service は記事管理のサービス層。
// 所有者以外による変更の拒否もここで判定する。
type Service struct {
	articleRepo repository.ArticleRepository
	userRepo    repository.UserRepository
	sanitizer   security.ContentSanitizer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	articleRepo repository.ArticleRepository,
	userRepo repository.UserRepository,
	sanitizer security.ContentSanitizer,
) *Service {
	return &Service{
		articleRepo: articleRepo,
		userRepo:    userRepo,
		sanitizer:   sanitizer,
	}
}

// List は記事一覧を作成日時の降順でページ取得する。
// pageは1始まり。1未満の値は1ページ目として扱う。
func (s *Service) List(ctx context.Context, page int) (*ListResult, error) {
	if page < 1 {
		page = 1
	}

	articles, err := s.articleRepo.List(ctx, PageSize, (page-1)*PageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}

	count, err := s.articleRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count articles: %w", err)
	}

	totalPages := (count + PageSize - 1) / PageSize
	if totalPages < 1 {
		totalPages = 1
	}

	return &ListResult{
		Articles:   articles,
		Page:       page,
		TotalPages: totalPages,
	}, nil
}

// Get は記事とその所有ユーザーを取得する。
// 記事が存在しない場合はmodel.ErrNotFoundを返す。
func (s *Service) Get(ctx context.Context, id string) (*model.Article, *model.User, error) {
	art, err := s.articleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find article: %w", err)
	}
	if art == nil {
		return nil, nil, model.ErrNotFound
	}

	owner, err := s.userRepo.FindByID(ctx, art.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find article owner: %w", err)
	}
	if owner == nil {
		// 外部キー制約があるため通常は起こらない
		return nil, nil, model.ErrNotFound
	}

	return art, owner, nil
}

// Create は新しい記事を作成する。所有者は呼び出し時の認証済みユーザーとなる。
// 検証失敗時は*model.ValidationErrorを返し、レコードは作成されない。
func (s *Service) Create(ctx context.Context, input Input, ownerID string) (*model.Article, error) {
	if ve := validateInput(input); ve.HasErrors() {
		return nil, ve
	}

	now := time.Now()
	art := &model.Article{
		ID:        uuid.New().String(),
		Title:     strings.TrimSpace(input.Title),
		Content:   s.sanitizer.Sanitize(input.Content),
		UserID:    ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.articleRepo.Create(ctx, art); err != nil {
		return nil, fmt.Errorf("failed to create article: %w", err)
	}

	return art, nil
}

// GetForEdit は編集フォーム表示のために記事を取得する。
// 記事が存在しない場合はmodel.ErrNotFound、
// 所有者以外のアクセスはmodel.ErrForbiddenを返す。
func (s *Service) GetForEdit(ctx context.Context, id, requesterID string) (*model.Article, error) {
	art, err := s.articleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find article: %w", err)
	}
	if art == nil {
		return nil, model.ErrNotFound
	}
	if !art.IsOwnedBy(requesterID) {
		return nil, model.ErrForbidden
	}
	return art, nil
}

// Update は記事のタイトルと本文を更新する。
// 所有者以外の要求はmodel.ErrForbiddenで拒否され、記事は変更されない。
func (s *Service) Update(ctx context.Context, id string, input Input, requesterID string) (*model.Article, error) {
	art, err := s.GetForEdit(ctx, id, requesterID)
	if err != nil {
		return nil, err
	}

	if ve := validateInput(input); ve.HasErrors() {
		return nil, ve
	}

	art.Title = strings.TrimSpace(input.Title)
	art.Content = s.sanitizer.Sanitize(input.Content)
	art.UpdatedAt = time.Now()

	if err := s.articleRepo.Update(ctx, art); err != nil {
		return nil, fmt.Errorf("failed to update article: %w", err)
	}

	return art, nil
}

// Delete は記事を削除する。所有者以外の要求はmodel.ErrForbiddenで拒否される。
func (s *Service) Delete(ctx context.Context, id, requesterID string) error {
	art, err := s.articleRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find article: %w", err)
	}
	if art == nil {
		return model.ErrNotFound
	}
	if !art.IsOwnedBy(requesterID) {
		return model.ErrForbidden
	}

	if err := s.articleRepo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete article: %w", err)
	}
	return nil
}

// SearchByUser は所有ユーザー名の部分一致で記事を検索する。大文字小文字は区別しない。
func (s *Service) SearchByUser(ctx context.Context, query string) ([]repository.ArticleWithAuthor, error) {
	articles, err := s.articleRepo.SearchByAuthorName(ctx, strings.TrimSpace(query))
	if err != nil {
		return nil, fmt.Errorf("failed to search articles by user: %w", err)
	}
	return articles, nil
}

// SearchByArticle はタイトルまたは本文の部分一致で記事を検索する。
func (s *Service) SearchByArticle(ctx context.Context, query string) ([]repository.ArticleWithAuthor, error) {
	articles, err := s.articleRepo.SearchByTitleOrContent(ctx, strings.TrimSpace(query))
	if err != nil {
		return nil, fmt.Errorf("failed to search articles: %w", err)
	}
	return articles, nil
}

// SortByDate は全記事を作成日時順で返す。
// orderが許可リスト（asc, desc）にない場合はmodel.ErrNotFoundを返す。
func (s *Service) SortByDate(ctx context.Context, order SortOrder) ([]repository.ArticleWithAuthor, error) {
	if !validSortOrders[order] {
		return nil, model.ErrNotFound
	}

	articles, err := s.articleRepo.ListOrderedByCreatedAt(ctx, order == SortAsc)
	if err != nil {
		return nil, fmt.Errorf("failed to sort articles: %w", err)
	}
	return articles, nil
}

// validateInput は記事フォームの入力を検証する。
func validateInput(input Input) *model.ValidationError {
	ve := model.NewValidationError()

	title := strings.TrimSpace(input.Title)
	if title == "" {
		ve.Add("title", MsgTitleRequired)
	} else if len([]rune(title)) > maxTitleLength {
		ve.Add("title", MsgTitleTooLong)
	}

	if strings.TrimSpace(input.Content) == "" {
		ve.Add("content", MsgContentRequired)
	}

	return ve
}
