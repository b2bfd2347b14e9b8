// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/relay/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// Create はユーザーを新規作成する。既存行の上書きは行わない。
	// usernameが既に存在する場合はErrUsernameTakenを返す。
	Create(ctx context.Context, user *model.User) error

	// FindByUsername は指定ユーザーを取得する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// Exists はユーザーの存在有無を返す。
	Exists(ctx context.Context, username string) (bool, error)

	// UpdateLastLogin は最終ログイン時刻を更新する。
	UpdateLastLogin(ctx context.Context, username string, at time.Time) error

	// List はユーザー名の辞書順でアカウント一覧を返す。
	// patternが空でない場合は部分一致（大文字小文字を区別）で絞り込む。
	List(ctx context.Context, pattern string, limit, offset int) ([]model.AccountSummary, error)

	// Count はList と同じ絞り込み条件での総件数を返す。
	Count(ctx context.Context, pattern string) (int, error)

	// DeleteCascade はユーザーの関連データを単一トランザクションで削除する。
	// 削除順序: sessions → messages（送信・受信とも物理削除）→ user行。
	// 途中で失敗した場合は全体をロールバックし、孤児メッセージを残さない。
	DeleteCascade(ctx context.Context, username string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error

	// FindByToken は指定トークンのセッションを取得する。
	// 行が存在しない、またはexpires_atが現在時刻以前の場合はnilを返す。
	// 期限切れ行の削除は行わない（遅延失効）。
	FindByToken(ctx context.Context, token string) (*model.Session, error)

	// DeleteByToken は指定トークンのセッションを削除する。
	// 存在しないトークンの削除はエラーにしない（冪等）。
	DeleteByToken(ctx context.Context, token string) error

	// DeleteByUsername は指定ユーザーの全セッションを削除する。
	DeleteByUsername(ctx context.Context, username string) error

	// PurgeExpired は期限切れセッション行を物理削除し、削除件数を返す。
	// 通常の検証パスでは呼ばれず、cleanupサブコマンド専用。
	PurgeExpired(ctx context.Context) (int64, error)
}

// MessageRepository はメッセージデータの永続化インターフェース。
type MessageRepository interface {
	// Insert は新規メッセージを保存する。
	Insert(ctx context.Context, msg *model.Message) error

	// ListForUser は指定ユーザーが送信者または受信者である未削除メッセージを
	// タイムスタンプ降順で最大limit件返す。
	// 副作用として、同一トランザクション内で当該ユーザー宛の全未削除メッセージの
	// deliveredフラグをTRUEにする。返却ページに含まれない行も対象になる。
	ListForUser(ctx context.Context, username string, limit int) ([]model.Message, error)

	// SoftDelete は指定メッセージをソフト削除する。
	// usernameが送信者である行のみを対象とし、行が更新されたかどうかを返す。
	SoftDelete(ctx context.Context, messageID, username string) (bool, error)

	// MarkConversationRead はsender=otherUser, recipient=usernameの
	// 未削除メッセージのunreadフラグをFALSEにする。deliveredには触れない。
	MarkConversationRead(ctx context.Context, username, otherUser string) error

	// CountUnread は指定ユーザー宛のunread=TRUEかつ未削除のメッセージ数を返す。
	CountUnread(ctx context.Context, username string) (int, error)

	// CountUnreadBySender はCountUnreadと同じ条件の件数を送信者ごとに返す。
	CountUnreadBySender(ctx context.Context, username string) (map[string]int, error)
}
