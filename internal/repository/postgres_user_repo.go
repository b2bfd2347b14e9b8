package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/relay/internal/model"
)

// ErrUsernameTaken はユーザー名が既に使用されている場合に返される。
var ErrUsernameTaken = errors.New("username already exists")

// uniqueViolation はPostgreSQLの一意制約違反エラーコード。
const uniqueViolation = "23505"

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// Create はユーザーを新規作成する。既存行の上書きは行わない。
// usernameが既に存在する場合はErrUsernameTakenを返す。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, created_at)
		 VALUES ($1, $2, $3)`,
		user.Username, user.PasswordHash, user.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrUsernameTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindByUsername は指定ユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	user := &model.User{}
	var lastLogin sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT username, password_hash, created_at, last_login
		 FROM users
		 WHERE username = $1`,
		username,
	).Scan(&user.Username, &user.PasswordHash, &user.CreatedAt, &lastLogin)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if lastLogin.Valid {
		user.LastLogin = &lastLogin.Time
	}

	return user, nil
}

// Exists はユーザーの存在有無を返す。
func (r *PostgresUserRepo) Exists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`,
		username,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

// UpdateLastLogin は最終ログイン時刻を更新する。
func (r *PostgresUserRepo) UpdateLastLogin(ctx context.Context, username string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_login = $1 WHERE username = $2`,
		at, username,
	)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

// List はユーザー名の辞書順でアカウント一覧を返す。
// patternが空でない場合は部分一致（大文字小文字を区別）で絞り込む。
func (r *PostgresUserRepo) List(ctx context.Context, pattern string, limit, offset int) ([]model.AccountSummary, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if pattern != "" {
		rows, err = r.db.QueryContext(ctx,
			`SELECT username, last_login
			 FROM users
			 WHERE position($1 in username) > 0
			 ORDER BY username
			 LIMIT $2 OFFSET $3`,
			pattern, limit, offset,
		)
	} else {
		rows, err = r.db.QueryContext(ctx,
			`SELECT username, last_login
			 FROM users
			 ORDER BY username
			 LIMIT $1 OFFSET $2`,
			limit, offset,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var accounts []model.AccountSummary
	for rows.Next() {
		var (
			acc       model.AccountSummary
			lastLogin sql.NullTime
		)
		if err := rows.Scan(&acc.Username, &lastLogin); err != nil {
			return nil, fmt.Errorf("failed to scan account row: %w", err)
		}
		if lastLogin.Valid {
			acc.LastLogin = &lastLogin.Time
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate account rows: %w", err)
	}

	return accounts, nil
}

// Count はListと同じ絞り込み条件での総件数を返す。
func (r *PostgresUserRepo) Count(ctx context.Context, pattern string) (int, error) {
	var (
		count int
		err   error
	)
	if pattern != "" {
		err = r.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM users WHERE position($1 in username) > 0`,
			pattern,
		).Scan(&count)
	} else {
		err = r.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM users`,
		).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// DeleteCascade はユーザーの関連データを単一トランザクションで削除する。
// 削除順序: sessions → messages（送信・受信とも物理削除）→ user行。
func (r *PostgresUserRepo) DeleteCascade(ctx context.Context, username string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM sessions WHERE username = $1`, username,
	); err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM messages WHERE sender = $1 OR recipient = $1`, username,
	); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM users WHERE username = $1`, username,
	)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %s", username)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
