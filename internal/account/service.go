// Package account はアカウントの作成・認証・削除・一覧のドメインロジックを提供する。
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/relay/internal/model"
	"github.com/hitoshi/relay/internal/repository"
)

// Service はアカウント管理のビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository) *Service {
	return &Service{userRepo: userRepo}
}

// CreateUser は新規アカウントを作成する。
// パスワードは平文を保存せず、ソルト付きbcryptハッシュのみを保持する。
// ユーザー名が既に存在する場合は既存行を上書きせずValidationErrorを返す。
func (s *Service) CreateUser(ctx context.Context, username, password string) error {
	if username == "" {
		return model.NewEmptyFieldError("username")
	}
	if password == "" {
		return model.NewEmptyFieldError("password")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) {
			return model.NewUsernameExistsError()
		}
		slog.Error("failed to create user",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return model.NewStorageError()
	}

	slog.Info("user created", slog.String("username", username))
	return nil
}

// VerifyUser は認証情報を検証する。
// ユーザーが存在しない場合はUserNotFound、ハッシュ不一致の場合は
// InvalidPasswordを返す。成功時はlast_loginを更新する。
// ハッシュ比較にはbcrypt.CompareHashAndPasswordを使用する。
// この比較はタイミング攻撃に対して安全なプリミティブである。
func (s *Service) VerifyUser(ctx context.Context, username, password string) error {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		slog.Error("failed to look up user",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return model.NewStorageError()
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return model.NewInvalidPasswordError()
	}

	if err := s.userRepo.UpdateLastLogin(ctx, username, time.Now()); err != nil {
		slog.Error("failed to update last login",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return model.NewStorageError()
	}

	return nil
}

// DeleteAccount はアカウントと関連データを削除する。
// セッション、送受信メッセージ、ユーザー行を単一トランザクションで
// この順に削除し、部分適用で孤児メッセージを残さない。
func (s *Service) DeleteAccount(ctx context.Context, username string) error {
	slog.Info("account deletion started", slog.String("username", username))

	if err := s.userRepo.DeleteCascade(ctx, username); err != nil {
		slog.Error("account deletion failed",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return model.NewStorageError()
	}

	slog.Info("account deleted", slog.String("username", username))
	return nil
}

// ListResult はアカウント一覧取得の結果を表す。
type ListResult struct {
	Accounts   []model.AccountSummary
	TotalCount int
	HasMore    bool
}

// ListAccounts はユーザー名の辞書順でアカウント一覧を返す。
// patternが空でない場合は部分一致（大文字小文字を区別）で絞り込む。
// 内部エラー時はエラーを返さず空の結果を返す。
func (s *Service) ListAccounts(ctx context.Context, pattern string, limit, offset int) ListResult {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	accounts, err := s.userRepo.List(ctx, pattern, limit, offset)
	if err != nil {
		slog.Error("failed to list accounts", slog.String("error", err.Error()))
		return ListResult{Accounts: []model.AccountSummary{}}
	}

	total, err := s.userRepo.Count(ctx, pattern)
	if err != nil {
		slog.Error("failed to count accounts", slog.String("error", err.Error()))
		total = len(accounts)
	}

	return ListResult{
		Accounts:   accounts,
		TotalCount: total,
		HasMore:    offset+len(accounts) < total,
	}
}
