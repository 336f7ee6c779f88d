package user

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/kiji/internal/model"
)

type mockUserRepo struct {
	findByIDFn   func(ctx context.Context, id string) (*model.User, error)
	listFn       func(ctx context.Context) ([]*model.User, error)
	deleteByIDFn func(ctx context.Context, id string) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error { return nil }

func (m *mockUserRepo) List(ctx context.Context) ([]*model.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockUserRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

func TestList_ReturnsAllUsers(t *testing.T) {
	repo := &mockUserRepo{
		listFn: func(ctx context.Context) ([]*model.User, error) {
			return []*model.User{
				{ID: "u1", Name: "John Doe", Email: "john@example.com"},
				{ID: "u2", Name: "Jane Doe", Email: "jane@example.com"},
			}, nil
		},
	}
	svc := NewService(repo)

	users, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("len(users) = %d, want 2", len(users))
	}
	if users[0].Name != "John Doe" || users[1].Name != "Jane Doe" {
		t.Errorf("unexpected users: %+v", users)
	}
}

func TestGet_ReturnsUser(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Name: "John Doe"}, nil
		},
	}
	svc := NewService(repo)

	user, err := svc.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if user.ID != "u1" || user.Name != "John Doe" {
		t.Errorf("user = %+v", user)
	}
}

func TestGet_UnknownID_ReturnsNotFound(t *testing.T) {
	svc := NewService(&mockUserRepo{})

	_, err := svc.Get(context.Background(), "missing")
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDelete_DeletesAnyUser(t *testing.T) {
	deleted := ""
	repo := &mockUserRepo{
		deleteByIDFn: func(ctx context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	svc := NewService(repo)

	if err := svc.Delete(context.Background(), "u2"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if deleted != "u2" {
		t.Errorf("deleted = %q, want %q", deleted, "u2")
	}
}

func TestDelete_UnknownID_ReturnsNotFound(t *testing.T) {
	repo := &mockUserRepo{
		deleteByIDFn: func(ctx context.Context, id string) error {
			return model.ErrNotFound
		},
	}
	svc := NewService(repo)

	err := svc.Delete(context.Background(), "missing")
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
