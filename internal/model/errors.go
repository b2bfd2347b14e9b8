// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// Messageはワイヤ契約の一部としてクライアントにそのまま返す文字列。
type APIError struct {
	Code     string // エラーコード
	Message  string // クライアントに返すエラーメッセージ
	Category string // カテゴリ: auth, validation, permission, storage
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidSession    = "INVALID_SESSION"
	ErrCodeUsernameExists    = "USERNAME_EXISTS"
	ErrCodeUserNotFound      = "USER_NOT_FOUND"
	ErrCodeInvalidPassword   = "INVALID_PASSWORD"
	ErrCodeRecipientNotFound = "RECIPIENT_NOT_FOUND"
	ErrCodeNotMessageSender  = "NOT_MESSAGE_SENDER"
	ErrCodeMessageTooLarge   = "MESSAGE_TOO_LARGE"
	ErrCodeEmptyField        = "EMPTY_FIELD"
	ErrCodeStorageFailure    = "STORAGE_FAILURE"
)

// InvalidSessionMessage は全エンドポイント共通のセッション失効メッセージ。
// 認証失敗はこの一言に統一し、失効か不在かを区別させない。
const InvalidSessionMessage = "Invalid or expired session"

// NewInvalidSessionError はセッション不正・期限切れエラーを生成する。
func NewInvalidSessionError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSession,
		Message:  InvalidSessionMessage,
		Category: "auth",
	}
}

// NewUsernameExistsError はユーザー名重複エラーを生成する。
func NewUsernameExistsError() *APIError {
	return &APIError{
		Code:     ErrCodeUsernameExists,
		Message:  "Username already exists",
		Category: "validation",
	}
}

// NewUserNotFoundError はユーザー未存在エラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "User not found",
		Category: "validation",
	}
}

// NewInvalidPasswordError はパスワード不一致エラーを生成する。
func NewInvalidPasswordError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPassword,
		Message:  "Invalid password",
		Category: "validation",
	}
}

// NewRecipientNotFoundError は宛先ユーザー未存在エラーを生成する。
// 削除済みアカウント宛の送信もこのエラーになる。
func NewRecipientNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeRecipientNotFound,
		Message:  "Recipient not found",
		Category: "validation",
	}
}

// NewNotMessageSenderError は送信者以外によるメッセージ削除エラーを生成する。
func NewNotMessageSenderError() *APIError {
	return &APIError{
		Code:     ErrCodeNotMessageSender,
		Message:  "You can only delete messages that you sent.",
		Category: "permission",
	}
}

// NewMessageTooLargeError はメッセージサイズ超過エラーを生成する。
func NewMessageTooLargeError(limit int) *APIError {
	return &APIError{
		Code:     ErrCodeMessageTooLarge,
		Message:  fmt.Sprintf("Message exceeds the maximum size of %d bytes", limit),
		Category: "validation",
	}
}

// NewEmptyFieldError は必須フィールド未入力エラーを生成する。
func NewEmptyFieldError(field string) *APIError {
	return &APIError{
		Code:     ErrCodeEmptyField,
		Message:  fmt.Sprintf("%s must not be empty", field),
		Category: "validation",
	}
}

// NewStorageError は予期しない永続化エラーを生成する。
// 内部の詳細はログのみに残し、クライアントには一般的な文言を返す。
func NewStorageError() *APIError {
	return &APIError{
		Code:     ErrCodeStorageFailure,
		Message:  "Internal storage error",
		Category: "storage",
	}
}
