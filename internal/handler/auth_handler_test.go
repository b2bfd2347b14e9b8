package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/relay/internal/middleware"
	"github.com/hitoshi/relay/internal/model"
)

// --- モック ---

type mockCredentialVerifier struct {
	verifyUserFn func(ctx context.Context, username, password string) error
}

func (m *mockCredentialVerifier) VerifyUser(ctx context.Context, username, password string) error {
	if m.verifyUserFn != nil {
		return m.verifyUserFn(ctx, username, password)
	}
	return nil
}

type mockSessionIssuer struct {
	createFn func(ctx context.Context, username string) (string, error)
	deleteFn func(ctx context.Context, token string) error
	deleted  []string
}

func (m *mockSessionIssuer) Create(ctx context.Context, username string) (string, error) {
	if m.createFn != nil {
		return m.createFn(ctx, username)
	}
	return "token-123", nil
}

func (m *mockSessionIssuer) Delete(ctx context.Context, token string) error {
	m.deleted = append(m.deleted, token)
	if m.deleteFn != nil {
		return m.deleteFn(ctx, token)
	}
	return nil
}

type mockUnreadCounter struct {
	unreadCountFn func(ctx context.Context, username string) (int, error)
}

func (m *mockUnreadCounter) UnreadCount(ctx context.Context, username string) (int, error) {
	if m.unreadCountFn != nil {
		return m.unreadCountFn(ctx, username)
	}
	return 0, nil
}

func loginRequestBody(username, password string) *strings.Reader {
	return strings.NewReader(`{"username":"` + username + `","password":"` + password + `"}`)
}

// --- テスト ---

// TestLogin_Success はトークン発行・プレゼンス登録・未読件数を検証する。
func TestLogin_Success(t *testing.T) {
	verifier := &mockCredentialVerifier{}
	sessions := &mockSessionIssuer{
		createFn: func(ctx context.Context, username string) (string, error) {
			return "abc123", nil
		},
	}
	unread := &mockUnreadCounter{
		unreadCountFn: func(ctx context.Context, username string) (int, error) {
			return 7, nil
		},
	}
	presence := &mockPresence{}
	metrics := &mockAccountMetrics{}
	h := NewAuthHandler(verifier, sessions, unread, presence, metrics)

	req := httptest.NewRequest(http.MethodPost, "/api/login", loginRequestBody("alice", "secret"))
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp loginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if !resp.Success {
		t.Error("success should be true")
	}
	if resp.SessionToken != "abc123" {
		t.Errorf("session_token = %q, want %q", resp.SessionToken, "abc123")
	}
	if resp.UnreadCount != 7 {
		t.Errorf("unread_count = %d, want 7", resp.UnreadCount)
	}
	if presence.set["alice"] != "abc123" {
		t.Errorf("presence not registered: %v", presence.set)
	}
	if metrics.sessionsIssued != 1 {
		t.Errorf("sessionsIssued = %d, want 1", metrics.sessionsIssued)
	}
}

// TestLogin_UnreadCountFailure は未読件数の取得失敗がログインを妨げないことを検証する。
func TestLogin_UnreadCountFailure(t *testing.T) {
	unread := &mockUnreadCounter{
		unreadCountFn: func(ctx context.Context, username string) (int, error) {
			return 0, errors.New("db down")
		},
	}
	h := NewAuthHandler(&mockCredentialVerifier{}, &mockSessionIssuer{}, unread, &mockPresence{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/login", loginRequestBody("alice", "secret"))
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp loginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if !resp.Success {
		t.Error("success should be true")
	}
	if resp.UnreadCount != 0 {
		t.Errorf("unread_count = %d, want 0", resp.UnreadCount)
	}
}

// TestLogin_WrongPassword はパスワード不一致で401が返ることを検証する。
func TestLogin_WrongPassword(t *testing.T) {
	verifier := &mockCredentialVerifier{
		verifyUserFn: func(ctx context.Context, username, password string) error {
			return model.NewInvalidPasswordError()
		},
	}
	sessions := &mockSessionIssuer{
		createFn: func(ctx context.Context, username string) (string, error) {
			t.Fatal("Create should not be called on failed verification")
			return "", nil
		},
	}
	h := NewAuthHandler(verifier, sessions, &mockUnreadCounter{}, &mockPresence{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/login", loginRequestBody("alice", "wrong"))
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	var envelope middleware.ErrorEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if envelope.Error != "Invalid password" {
		t.Errorf("error = %q, want %q", envelope.Error, "Invalid password")
	}
}

// TestLogin_UserNotFound は未登録ユーザーで404が返ることを検証する。
func TestLogin_UserNotFound(t *testing.T) {
	verifier := &mockCredentialVerifier{
		verifyUserFn: func(ctx context.Context, username, password string) error {
			return model.NewUserNotFoundError()
		},
	}
	h := NewAuthHandler(verifier, &mockSessionIssuer{}, &mockUnreadCounter{}, &mockPresence{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/login", loginRequestBody("ghost", "secret"))
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// TestLogin_SessionCreateFailure はトークン発行失敗で500が返ることを検証する。
func TestLogin_SessionCreateFailure(t *testing.T) {
	sessions := &mockSessionIssuer{
		createFn: func(ctx context.Context, username string) (string, error) {
			return "", errors.New("db down")
		},
	}
	presence := &mockPresence{}
	h := NewAuthHandler(&mockCredentialVerifier{}, sessions, &mockUnreadCounter{}, presence, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/login", loginRequestBody("alice", "secret"))
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if len(presence.set) != 0 {
		t.Errorf("presence should not be registered on failure: %v", presence.set)
	}
}

// TestLogin_InvalidBody は不正JSONで400が返ることを検証する。
func TestLogin_InvalidBody(t *testing.T) {
	h := NewAuthHandler(&mockCredentialVerifier{}, &mockSessionIssuer{}, &mockUnreadCounter{}, &mockPresence{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader("{broken"))
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// TestLogout はセッション破棄とプレゼンス除去を検証する。
func TestLogout(t *testing.T) {
	sessions := &mockSessionIssuer{}
	presence := &mockPresence{set: map[string]string{"alice": "tok-1"}}
	h := NewAuthHandler(&mockCredentialVerifier{}, sessions, &mockUnreadCounter{}, presence, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/logout", nil)
	ctx := middleware.ContextWithUsername(req.Context(), "alice")
	ctx = middleware.ContextWithToken(ctx, "tok-1")
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	h.Logout(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if len(sessions.deleted) != 1 || sessions.deleted[0] != "tok-1" {
		t.Errorf("deleted tokens = %v, want [tok-1]", sessions.deleted)
	}
	if len(presence.removed) != 1 || presence.removed[0] != "alice" {
		t.Errorf("presence.removed = %v, want [alice]", presence.removed)
	}
}

// TestLogout_NoSession は未認証コンテキストで401が返ることを検証する。
func TestLogout_NoSession(t *testing.T) {
	sessions := &mockSessionIssuer{}
	h := NewAuthHandler(&mockCredentialVerifier{}, sessions, &mockUnreadCounter{}, &mockPresence{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/logout", nil)
	w := httptest.NewRecorder()

	h.Logout(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if len(sessions.deleted) != 0 {
		t.Errorf("Delete should not be called: %v", sessions.deleted)
	}
}

// TestLogout_DeleteFailure はストレージ障害で500が返ることを検証する。
func TestLogout_DeleteFailure(t *testing.T) {
	sessions := &mockSessionIssuer{
		deleteFn: func(ctx context.Context, token string) error {
			return errors.New("db down")
		},
	}
	presence := &mockPresence{set: map[string]string{"alice": "tok-1"}}
	h := NewAuthHandler(&mockCredentialVerifier{}, sessions, &mockUnreadCounter{}, presence, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/logout", nil)
	ctx := middleware.ContextWithUsername(req.Context(), "alice")
	ctx = middleware.ContextWithToken(ctx, "tok-1")
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	h.Logout(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if len(presence.removed) != 0 {
		t.Errorf("presence should stay on failure: %v", presence.removed)
	}
}
