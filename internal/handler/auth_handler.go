package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/relay/internal/middleware"
)

// CredentialVerifier は認証ハンドラーが必要とする資格情報検証インターフェース。
type CredentialVerifier interface {
	// VerifyUser は認証情報を検証し、成功時にlast_loginを更新する。
	VerifyUser(ctx context.Context, username, password string) error
}

// SessionIssuer はセッションの発行・破棄インターフェース。
type SessionIssuer interface {
	Create(ctx context.Context, username string) (string, error)
	Delete(ctx context.Context, token string) error
}

// UnreadCounter はログイン応答用の未読件数取得インターフェース。
type UnreadCounter interface {
	UnreadCount(ctx context.Context, username string) (int, error)
}

// PresenceWriter はプレゼンスレジストリの登録・除去インターフェース。
type PresenceWriter interface {
	Set(username, token string)
	Remove(username string)
}

// AuthMetrics は認証関連メトリクスの記録インターフェース。nil許容。
type AuthMetrics interface {
	RecordSessionIssued()
}

// AuthHandler はログイン・ログアウトのHTTPハンドラー。
type AuthHandler struct {
	accounts CredentialVerifier
	sessions SessionIssuer
	unread   UnreadCounter
	presence PresenceWriter
	metrics  AuthMetrics
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(
	accounts CredentialVerifier,
	sessions SessionIssuer,
	unread UnreadCounter,
	presence PresenceWriter,
	metrics AuthMetrics,
) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		sessions: sessions,
		unread:   unread,
		presence: presence,
		metrics:  metrics,
	}
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse はログインレスポンス。
type loginResponse struct {
	Success      bool   `json:"success"`
	Error        string `json:"error"`
	SessionToken string `json:"session_token"`
	UnreadCount  int    `json:"unread_count"`
}

// Login は認証情報を検証し、セッショントークンを発行する。
// 成功時はプレゼンスレジストリに登録し（最後のログインが勝つ）、
// 未読メッセージ件数を応答に含める。
// POST /api/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	slog.Info("login attempt", slog.String("username", req.Username))

	if err := h.accounts.VerifyUser(r.Context(), req.Username, req.Password); err != nil {
		handleServiceError(w, err)
		return
	}

	token, err := h.sessions.Create(r.Context(), req.Username)
	if err != nil {
		slog.Error("failed to create session",
			slog.String("username", req.Username),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	h.presence.Set(req.Username, token)

	if h.metrics != nil {
		h.metrics.RecordSessionIssued()
	}

	unread, err := h.unread.UnreadCount(r.Context(), req.Username)
	if err != nil {
		// 未読件数はログイン成功を妨げない。0件として返す。
		slog.Warn("failed to count unread messages at login",
			slog.String("username", req.Username),
			slog.String("error", err.Error()),
		)
		unread = 0
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Success:      true,
		SessionToken: token,
		UnreadCount:  unread,
	})
}

// Logout は呼び出し元のセッションを破棄し、プレゼンスレジストリから除去する。
// POST /api/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	username, err := middleware.UsernameFromContext(r.Context())
	if err != nil {
		middleware.WriteInvalidSession(w)
		return
	}
	token, err := middleware.TokenFromContext(r.Context())
	if err != nil {
		middleware.WriteInvalidSession(w)
		return
	}

	if err := h.sessions.Delete(r.Context(), token); err != nil {
		slog.Error("failed to logout",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	h.presence.Remove(username)

	slog.Info("user logged out", slog.String("username", username))

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}
