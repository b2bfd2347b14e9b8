// Package message はメッセージの送信・取得・削除・既読管理のドメインロジックを提供する。
package message

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/relay/internal/model"
	"github.com/hitoshi/relay/internal/repository"
)

// ContentSanitizer はメッセージ本文のサニタイズ機能のインターフェース。
type ContentSanitizer interface {
	Sanitize(raw string) string
}

// MetricsRecorder はメッセージ関連メトリクスの記録インターフェース。
// nilの場合は記録をスキップする。
type MetricsRecorder interface {
	RecordMessageSent(sizeBytes int)
	RecordMessagesDeleted(count int)
}

// ServiceConfig はメッセージサービスの設定。
type ServiceConfig struct {
	MaxBytes int // 本文の最大バイト数。0以下の場合は無制限。
}

// Service はメッセージ管理のビジネスロジックを提供する。
type Service struct {
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
	sanitizer   ContentSanitizer
	metrics     MetricsRecorder
	config      ServiceConfig
}

// NewService はServiceを生成する。sanitizerとmetricsはnil許容。
func NewService(
	messageRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	sanitizer ContentSanitizer,
	metrics MetricsRecorder,
	config ServiceConfig,
) *Service {
	return &Service{
		messageRepo: messageRepo,
		userRepo:    userRepo,
		sanitizer:   sanitizer,
		metrics:     metrics,
		config:      config,
	}
}

// Send はメッセージを送信し、採番したメッセージIDを返す。
// 宛先アカウントの存在は送信時点で毎回確認する（キャッシュしない）。
// 新規メッセージはdelivered=false, unread=true, deleted=falseで初期化され、
// タイムスタンプはミリ秒単位のUNIXエポックを使用する。
func (s *Service) Send(ctx context.Context, sender, recipient, content string) (string, error) {
	if recipient == "" {
		return "", model.NewEmptyFieldError("recipient")
	}

	exists, err := s.userRepo.Exists(ctx, recipient)
	if err != nil {
		slog.Error("failed to check recipient",
			slog.String("recipient", recipient),
			slog.String("error", err.Error()),
		)
		return "", model.NewStorageError()
	}
	if !exists {
		slog.Warn("message rejected: recipient does not exist",
			slog.String("sender", sender),
			slog.String("recipient", recipient),
		)
		return "", model.NewRecipientNotFoundError()
	}

	if s.sanitizer != nil {
		content = s.sanitizer.Sanitize(content)
	}

	size := len(content)
	if s.config.MaxBytes > 0 && size > s.config.MaxBytes {
		return "", model.NewMessageTooLargeError(s.config.MaxBytes)
	}

	msg := &model.Message{
		ID:        uuid.New().String(),
		Sender:    sender,
		Recipient: recipient,
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
		Delivered: false,
		Unread:    true,
		Deleted:   false,
	}

	slog.Info("storing message",
		slog.String("message_id", msg.ID),
		slog.String("sender", sender),
		slog.String("recipient", recipient),
		slog.Int("size_bytes", size),
	)

	if err := s.messageRepo.Insert(ctx, msg); err != nil {
		slog.Error("failed to store message",
			slog.String("message_id", msg.ID),
			slog.String("error", err.Error()),
		)
		return "", model.NewStorageError()
	}

	if s.metrics != nil {
		s.metrics.RecordMessageSent(size)
	}

	return msg.ID, nil
}

// GetResult はメッセージ一覧取得の結果を表す。
type GetResult struct {
	Messages []model.Message
	HasMore  bool
}

// Get は指定ユーザーの未削除メッセージをタイムスタンプ降順で最大limit件返す。
// この呼び出しの副作用として、当該ユーザー宛の全未削除メッセージが
// 配達済み（delivered=true）になる。返却ページに含まれない行も対象。
func (s *Service) Get(ctx context.Context, username string, limit int) (GetResult, error) {
	if limit <= 0 {
		limit = 50
	}

	messages, err := s.messageRepo.ListForUser(ctx, username, limit)
	if err != nil {
		slog.Error("failed to get messages",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return GetResult{}, model.NewStorageError()
	}

	return GetResult{
		Messages: messages,
		HasMore:  len(messages) == limit,
	}, nil
}

// DeleteResult はバッチ削除の結果を表す。
// 部分失敗は全体の失敗ではなく、FailedIDsで個別に報告する。
type DeleteResult struct {
	FailedIDs []string
}

// Delete は指定メッセージ群をソフト削除する。
// usernameが送信者であるメッセージのみが対象で、条件を満たさないIDは
// FailedIDsに追加して行を変更しない。全体エラーはストレージ障害に限る。
func (s *Service) Delete(ctx context.Context, ids []string, username string) (DeleteResult, error) {
	var failed []string
	deleted := 0

	for _, id := range ids {
		ok, err := s.messageRepo.SoftDelete(ctx, id, username)
		if err != nil {
			slog.Error("failed to delete message",
				slog.String("message_id", id),
				slog.String("error", err.Error()),
			)
			return DeleteResult{FailedIDs: ids}, model.NewStorageError()
		}
		if !ok {
			failed = append(failed, id)
			continue
		}
		deleted++
	}

	if s.metrics != nil && deleted > 0 {
		s.metrics.RecordMessagesDeleted(deleted)
	}

	return DeleteResult{FailedIDs: failed}, nil
}

// MarkConversationRead は相手からの未削除メッセージをすべて既読にする。
// deliveredフラグには触れない。
func (s *Service) MarkConversationRead(ctx context.Context, username, otherUser string) error {
	if otherUser == "" {
		return model.NewEmptyFieldError("other_user")
	}

	if err := s.messageRepo.MarkConversationRead(ctx, username, otherUser); err != nil {
		slog.Error("failed to mark conversation read",
			slog.String("username", username),
			slog.String("other_user", otherUser),
			slog.String("error", err.Error()),
		)
		return model.NewStorageError()
	}

	return nil
}

// UnreadCount は指定ユーザー宛の未読メッセージ数を返す。
// 未読の定義はunread=TRUEかつdeleted=FALSEに統一している。
// deliveredは配達確認専用であり、件数計算には使用しない。
func (s *Service) UnreadCount(ctx context.Context, username string) (int, error) {
	count, err := s.messageRepo.CountUnread(ctx, username)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}

// UnreadCountBySender はUnreadCountと同じ定義の件数を送信者ごとに返す。
func (s *Service) UnreadCountBySender(ctx context.Context, username string) (map[string]int, error) {
	counts, err := s.messageRepo.CountUnreadBySender(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to count unread messages by sender: %w", err)
	}
	return counts, nil
}
