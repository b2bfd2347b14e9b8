// Package session はセッショントークンの発行・検証・破棄を提供する。
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/relay/internal/model"
	"github.com/hitoshi/relay/internal/repository"
)

// ServiceConfig はセッションサービスの設定。
type ServiceConfig struct {
	TTLHours int // セッション有効期間（時間）
}

// Service はセッション管理のビジネスロジックを提供する。
// トークンは発行時に有効期限が固定され、検証によって延長されることはない。
type Service struct {
	sessionRepo repository.SessionRepository
	config      ServiceConfig
}

// NewService はServiceを生成する。TTLHoursが0以下の場合は24時間を使用する。
func NewService(sessionRepo repository.SessionRepository, config ServiceConfig) *Service {
	if config.TTLHours <= 0 {
		config.TTLHours = 24
	}
	return &Service{
		sessionRepo: sessionRepo,
		config:      config,
	}
}

// Create は指定ユーザーの新しいセッションを発行し、トークンを返す。
func (s *Service) Create(ctx context.Context, username string) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}

	now := time.Now()
	sess := &model.Session{
		Token:     token,
		Username:  username,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(s.config.TTLHours) * time.Hour),
	}

	if err := s.sessionRepo.Create(ctx, sess); err != nil {
		return "", fmt.Errorf("failed to save session: %w", err)
	}

	slog.Info("session created",
		slog.String("username", username),
		slog.Time("expires_at", sess.ExpiresAt),
	)

	return token, nil
}

// Verify はトークンを検証し、有効な場合は所有ユーザー名を返す。
// 行が存在しない、または期限切れの場合は空文字列を返す。
func (s *Service) Verify(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", nil
	}

	sess, err := s.sessionRepo.FindByToken(ctx, token)
	if err != nil {
		return "", fmt.Errorf("failed to find session: %w", err)
	}
	if sess == nil {
		return "", nil
	}

	return sess.Username, nil
}

// Delete はセッションを破棄する。存在しないトークンの破棄もエラーにしない。
func (s *Service) Delete(ctx context.Context, token string) error {
	if err := s.sessionRepo.DeleteByToken(ctx, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// PurgeExpired は期限切れセッション行を物理削除し、削除件数を返す。
// cleanupサブコマンドからのみ呼ばれる。
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	purged, err := s.sessionRepo.PurgeExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired sessions: %w", err)
	}
	if purged > 0 {
		slog.Info("expired sessions purged", slog.Int64("count", purged))
	}
	return purged, nil
}

// generateToken は暗号的に安全なセッショントークンを生成する。
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
