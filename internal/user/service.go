// Package user はユーザー管理のビジネスロジックを提供する。
package user

import (
	"context"
	"fmt"

	"github.com/hitoshi/kiji/internal/model"
	"github.com/hitoshi/kiji/internal/repository"
)

// Service はユーザー一覧・詳細・削除を扱うサービス。
type Service struct {
	userRepo repository.UserRepository
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository) *Service {
	return &Service{userRepo: userRepo}
}

// List は登録済みユーザーを全件返す。
func (s *Service) List(ctx context.Context) ([]*model.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Get は指定IDのユーザーを返す。存在しなければErrNotFound。
func (s *Service) Get(ctx context.Context, id string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, model.ErrNotFound
	}
	return user, nil
}

// Delete は指定IDのユーザーを削除する。
// ユーザーに紐づく記事とセッションはDB側のON DELETE CASCADEで同時に消える。
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.userRepo.DeleteByID(ctx, id); err != nil {
		if err == model.ErrNotFound {
			return model.ErrNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
