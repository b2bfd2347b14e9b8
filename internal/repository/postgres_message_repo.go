package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/relay/internal/model"
)

// PostgresMessageRepo はPostgreSQLを使用したメッセージリポジトリ。
type PostgresMessageRepo struct {
	db *sql.DB
}

// NewPostgresMessageRepo はPostgresMessageRepoを生成する。
func NewPostgresMessageRepo(db *sql.DB) *PostgresMessageRepo {
	return &PostgresMessageRepo{db: db}
}

// Insert は新規メッセージを保存する。
func (r *PostgresMessageRepo) Insert(ctx context.Context, msg *model.Message) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO messages (message_id, sender, recipient, content, timestamp, delivered, unread, deleted)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		msg.ID, msg.Sender, msg.Recipient, msg.Content, msg.Timestamp,
		msg.Delivered, msg.Unread, msg.Deleted,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// ListForUser は指定ユーザーが送信者または受信者である未削除メッセージを
// タイムスタンプ降順で最大limit件返す。
//
// 副作用として、当該ユーザー宛の全未削除メッセージのdeliveredフラグを
// 同一トランザクション内でTRUEにする。返却ページに含まれない行も対象になる。
// 読み取りと状態遷移の結合は意図的に保持している。
func (r *PostgresMessageRepo) ListForUser(ctx context.Context, username string, limit int) ([]model.Message, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE messages
		 SET delivered = TRUE
		 WHERE recipient = $1 AND deleted = FALSE`,
		username,
	); err != nil {
		return nil, fmt.Errorf("failed to mark messages delivered: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT message_id, sender, recipient, content, timestamp, delivered, unread, deleted
		 FROM messages
		 WHERE (recipient = $1 OR sender = $1) AND deleted = FALSE
		 ORDER BY timestamp DESC
		 LIMIT $2`,
		username, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		var msg model.Message
		if err := rows.Scan(
			&msg.ID, &msg.Sender, &msg.Recipient, &msg.Content,
			&msg.Timestamp, &msg.Delivered, &msg.Unread, &msg.Deleted,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate message rows: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return messages, nil
}

// SoftDelete は指定メッセージをソフト削除する。
// usernameが送信者である行のみを対象とし、行が更新されたかどうかを返す。
func (r *PostgresMessageRepo) SoftDelete(ctx context.Context, messageID, username string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE messages
		 SET deleted = TRUE
		 WHERE message_id = $1 AND sender = $2`,
		messageID, username,
	)
	if err != nil {
		return false, fmt.Errorf("failed to soft-delete message: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// MarkConversationRead はsender=otherUser, recipient=usernameの
// 未削除メッセージのunreadフラグをFALSEにする。deliveredには触れない。
func (r *PostgresMessageRepo) MarkConversationRead(ctx context.Context, username, otherUser string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE messages
		 SET unread = FALSE
		 WHERE sender = $1 AND recipient = $2 AND deleted = FALSE`,
		otherUser, username,
	)
	if err != nil {
		return fmt.Errorf("failed to mark conversation read: %w", err)
	}
	return nil
}

// CountUnread は指定ユーザー宛のunread=TRUEかつ未削除のメッセージ数を返す。
func (r *PostgresMessageRepo) CountUnread(ctx context.Context, username string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*)
		 FROM messages
		 WHERE recipient = $1 AND unread = TRUE AND deleted = FALSE`,
		username,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}

// CountUnreadBySender はCountUnreadと同じ条件の件数を送信者ごとに返す。
func (r *PostgresMessageRepo) CountUnreadBySender(ctx context.Context, username string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT sender, COUNT(*)
		 FROM messages
		 WHERE recipient = $1 AND unread = TRUE AND deleted = FALSE
		 GROUP BY sender`,
		username,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count unread messages by sender: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			sender string
			count  int
		)
		if err := rows.Scan(&sender, &count); err != nil {
			return nil, fmt.Errorf("failed to scan unread count row: %w", err)
		}
		counts[sender] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate unread count rows: %w", err)
	}

	return counts, nil
}

// compile-time interface check
var _ MessageRepository = (*PostgresMessageRepo)(nil)
