package model

import (
	"errors"
	"strings"
	"testing"
)

// TestAPIError_ImplementsError はAPIErrorがerrorインターフェースを満たし、
// errors.Asで取り出せることを検証する。
func TestAPIError_ImplementsError(t *testing.T) {
	var err error = NewStorageError()

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatal("expected errors.As to extract *APIError")
	}
	if apiErr.Code != ErrCodeStorageFailure {
		t.Errorf("code = %q, want %q", apiErr.Code, ErrCodeStorageFailure)
	}
}

// TestAPIError_ErrorFormat はError()がコードとメッセージを含むことを検証する。
func TestAPIError_ErrorFormat(t *testing.T) {
	err := NewUserNotFoundError()

	got := err.Error()
	want := "[USER_NOT_FOUND] User not found"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

// TestErrorConstructors_WireMessages はクライアント契約のエラー文言を検証する。
func TestErrorConstructors_WireMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *APIError
		wantCode    string
		wantMessage string
	}{
		{"invalid_session", NewInvalidSessionError(), ErrCodeInvalidSession, "Invalid or expired session"},
		{"username_exists", NewUsernameExistsError(), ErrCodeUsernameExists, "Username already exists"},
		{"user_not_found", NewUserNotFoundError(), ErrCodeUserNotFound, "User not found"},
		{"invalid_password", NewInvalidPasswordError(), ErrCodeInvalidPassword, "Invalid password"},
		{"recipient_not_found", NewRecipientNotFoundError(), ErrCodeRecipientNotFound, "Recipient not found"},
		{"not_message_sender", NewNotMessageSenderError(), ErrCodeNotMessageSender, "You can only delete messages that you sent."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", tt.err.Code, tt.wantCode)
			}
			if tt.err.Message != tt.wantMessage {
				t.Errorf("message = %q, want %q", tt.err.Message, tt.wantMessage)
			}
		})
	}
}

// TestNewEmptyFieldError はフィールド名がメッセージに含まれることを検証する。
func TestNewEmptyFieldError(t *testing.T) {
	err := NewEmptyFieldError("username")

	if err.Code != ErrCodeEmptyField {
		t.Errorf("code = %q, want %q", err.Code, ErrCodeEmptyField)
	}
	if err.Message == "" {
		t.Fatal("expected non-empty message")
	}
	if want := "username"; !strings.Contains(err.Message, want) {
		t.Errorf("message = %q, expected to contain %q", err.Message, want)
	}
}

// TestNewMessageTooLargeError は上限値がメッセージに含まれることを検証する。
func TestNewMessageTooLargeError(t *testing.T) {
	err := NewMessageTooLargeError(65536)

	if err.Code != ErrCodeMessageTooLarge {
		t.Errorf("code = %q, want %q", err.Code, ErrCodeMessageTooLarge)
	}
	if !strings.Contains(err.Message, "65536") {
		t.Errorf("message = %q, expected to contain limit", err.Message)
	}
}

// TestErrorCategories はエラーカテゴリの分類を検証する。
func TestErrorCategories(t *testing.T) {
	tests := []struct {
		name         string
		err          *APIError
		wantCategory string
	}{
		{"invalid_session_is_auth", NewInvalidSessionError(), "auth"},
		{"invalid_password_is_validation", NewInvalidPasswordError(), "validation"},
		{"username_exists_is_validation", NewUsernameExistsError(), "validation"},
		{"empty_field_is_validation", NewEmptyFieldError("x"), "validation"},
		{"not_message_sender_is_permission", NewNotMessageSenderError(), "permission"},
		{"storage_is_storage", NewStorageError(), "storage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Category != tt.wantCategory {
				t.Errorf("category = %q, want %q", tt.err.Category, tt.wantCategory)
			}
		})
	}
}
