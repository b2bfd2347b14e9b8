// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// usernameが一意キーであり、パスワードは必ずbcryptハッシュで保持する。
type User struct {
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	LastLogin    *time.Time // 未ログインの場合はnil
}

// Session はユーザーのログインセッションを表す。
// Tokenは暗号的に安全な乱数から生成された不透明トークン。
// 有効期限は作成時に固定され、スライド延長は行わない。
type Session struct {
	Token     string
	Username  string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Message はユーザー間のダイレクトメッセージを表す。
// Timestampはミリ秒単位のUNIXエポック。
// Deliveredは受信者が一度でもメッセージ一覧を取得したかどうか（配達確認）、
// Unreadは受信者がまだ会話を既読にしていないかどうかを表す独立したフラグ。
// Deletedは送信者によるソフト削除フラグで、物理削除はアカウント削除の
// カスケードでのみ発生する。
type Message struct {
	ID        string
	Sender    string
	Recipient string
	Content   string
	Timestamp int64
	Delivered bool
	Unread    bool
	Deleted   bool
}

// AccountSummary はアカウント一覧取得時の1件分の情報を表す。
type AccountSummary struct {
	Username  string
	LastLogin *time.Time
}
