// Package auth はユーザー登録、ログイン、セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/kiji/internal/model"
	"github.com/hitoshi/kiji/internal/repository"
)

// フォーム検証メッセージ。登録フォームのフィールド単位で表示される。
const (
	MsgNameRequired     = "The name field is required."
	MsgEmailRequired    = "The email field is required."
	MsgEmailInvalid     = "The email must be a valid email address."
	MsgEmailTaken       = "The email has already been taken."
	MsgPasswordRequired = "The password field is required."
	MsgPasswordTooShort = "The password must be at least 8 characters."
	MsgPasswordMismatch = "The password confirmation does not match."

	// MsgInvalidCredentials はログイン失敗時にemailフィールドへ付与される。
	// メールアドレス不明とパスワード不一致を区別しない。
	MsgInvalidCredentials = "These credentials do not match our records."
)

// minPasswordLength は登録時に要求するパスワードの最小文字数。
const minPasswordLength = 8

// RegisterInput はユーザー登録フォームの入力を表す。
type RegisterInput struct {
	Name                 string
	Email                string
	Password             string
	PasswordConfirmation string
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		config:      config,
	}
}

// Register は新規ユーザーを作成し、認証済みセッションを発行する。
// 検証失敗時は*model.ValidationErrorを返し、レコードは作成されない。
// oldSessionIDが空でない場合、登録成功時に旧セッションを破棄する（セッションID固定攻撃対策）。
func (s *Service) Register(ctx context.Context, input RegisterInput, oldSessionID string) (*model.User, *model.Session, error) {
	if ve := validateRegisterInput(input); ve.HasErrors() {
		return nil, nil, ve
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))

	// UNIQUE制約が最終的な守りだが、典型的な重複は事前に検出してフィールドエラーにする。
	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check email uniqueness: %w", err)
	}
	if existing != nil {
		ve := model.NewValidationError()
		ve.Add("email", MsgEmailTaken)
		return nil, nil, ve
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			// 事前チェックとINSERTの間に同じメールアドレスで登録された場合
			ve := model.NewValidationError()
			ve.Add("email", MsgEmailTaken)
			return nil, nil, ve
		}
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	session, err := s.issueSession(ctx, user.ID, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.discardSession(ctx, oldSessionID)

	slog.Info("new user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, session, nil
}

// Login はメールアドレスとパスワードを検証し、認証済みセッションを発行する。
// 認証失敗時はmodel.ErrInvalidCredentialsを返し、リクエスターは未認証のままとなる。
// 成功時は1回だけ読まれるlogin_successフラグをセッションに付与し、
// 旧セッションを破棄する（セッションID固定攻撃対策）。
func (s *Service) Login(ctx context.Context, email, password, oldSessionID string) (*model.User, *model.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if user == nil {
		return nil, nil, model.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, model.ErrInvalidCredentials
	}

	session, err := s.issueSession(ctx, user.ID, map[string]string{
		model.SessionKeyLoginSuccess: "1",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.discardSession(ctx, oldSessionID)

	slog.Info("user logged in", slog.String("user_id", user.ID))

	return user, session, nil
}

// Logout はセッションを破棄する。
// 既にログアウト済みでもエラーにはならない（匿名状態に退化する）。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// CurrentUser はセッションから現在のユーザーを取得する。
// 未認証セッションまたはユーザーが存在しない場合はnilを返す。
func (s *Service) CurrentUser(ctx context.Context, session *model.Session) (*model.User, error) {
	if !session.IsAuthenticated() {
		return nil, nil
	}
	user, err := s.userRepo.FindByID(ctx, *session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// CreateAnonymousSession は未認証セッションを作成する。
// CSRFトークンとフラッシュメッセージをログイン前から保持できるよう、
// 初回リクエスト時にミドルウェアから呼ばれる。
func (s *Service) CreateAnonymousSession(ctx context.Context) (*model.Session, error) {
	return s.issueSession(ctx, "", nil)
}

// issueSession は新しいセッションを作成し永続化する。
// userIDが空の場合は匿名セッションとなる。CSRFトークンはこの時点で発行される。
func (s *Service) issueSession(ctx context.Context, userID string, extra map[string]string) (*model.Session, error) {
	sessionID, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}
	csrfToken, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSRF token: %w", err)
	}

	data := map[string]string{
		model.SessionKeyCSRFToken: csrfToken,
	}
	for k, v := range extra {
		data[k] = v
	}

	session := &model.Session{
		ID:        sessionID,
		Data:      data,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}
	if userID != "" {
		session.UserID = &userID
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// discardSession は旧セッションを削除する。失敗してもログインは継続する。
func (s *Service) discardSession(ctx context.Context, sessionID string) {
	if sessionID == "" {
		return
	}
	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		slog.Warn("failed to discard old session",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}
}

// validateRegisterInput は登録フォームの入力を検証する。
func validateRegisterInput(input RegisterInput) *model.ValidationError {
	ve := model.NewValidationError()

	if strings.TrimSpace(input.Name) == "" {
		ve.Add("name", MsgNameRequired)
	}

	email := strings.TrimSpace(input.Email)
	if email == "" {
		ve.Add("email", MsgEmailRequired)
	} else if _, err := mail.ParseAddress(email); err != nil {
		ve.Add("email", MsgEmailInvalid)
	}

	if input.Password == "" {
		ve.Add("password", MsgPasswordRequired)
	} else if len(input.Password) < minPasswordLength {
		ve.Add("password", MsgPasswordTooShort)
	}

	if input.Password != input.PasswordConfirmation {
		ve.Add("password_confirmation", MsgPasswordMismatch)
	}

	return ve
}

// generateToken は暗号的に安全な256ビットのランダムトークンを生成する。
// セッションIDとCSRFトークンの両方に使う。
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
