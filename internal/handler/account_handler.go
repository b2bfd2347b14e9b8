package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/hitoshi/relay/internal/account"
	"github.com/hitoshi/relay/internal/middleware"
)

// AccountServiceInterface はアカウントハンドラーが必要とするサービスインターフェース。
type AccountServiceInterface interface {
	// CreateUser は新規アカウントを作成する。重複時はValidationErrorを返す。
	CreateUser(ctx context.Context, username, password string) error
	// DeleteAccount はアカウントと関連データをカスケード削除する。
	DeleteAccount(ctx context.Context, username string) error
	// ListAccounts はユーザー名の辞書順でアカウント一覧を返す。
	ListAccounts(ctx context.Context, pattern string, limit, offset int) account.ListResult
}

// PresenceReader はオンライン状態の参照インターフェース。
type PresenceReader interface {
	Online(username string) bool
	Remove(username string)
}

// AccountMetrics はアカウント関連メトリクスの記録インターフェース。nil許容。
type AccountMetrics interface {
	RecordAccountCreated()
}

// AccountHandler はアカウント管理のHTTPハンドラー。
type AccountHandler struct {
	service  AccountServiceInterface
	presence PresenceReader
	metrics  AccountMetrics
}

// NewAccountHandler はAccountHandlerを生成する。
func NewAccountHandler(service AccountServiceInterface, presence PresenceReader, metrics AccountMetrics) *AccountHandler {
	return &AccountHandler{
		service:  service,
		presence: presence,
		metrics:  metrics,
	}
}

// createAccountRequest はアカウント作成リクエストのボディ。
type createAccountRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// successResponse はペイロードを持たない操作の共通レスポンス。
type successResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// CreateAccount は新規アカウントを作成する。
// POST /api/accounts
func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.CreateUser(r.Context(), req.Username, req.Password); err != nil {
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordAccountCreated()
	}

	writeJSON(w, http.StatusCreated, successResponse{Success: true})
}

// accountEntry はアカウント一覧の1件分。
type accountEntry struct {
	Username string `json:"username"`
	IsOnline bool   `json:"is_online"`
}

// listAccountsResponse はアカウント一覧レスポンス。
type listAccountsResponse struct {
	Accounts   []accountEntry `json:"accounts"`
	HasMore    bool           `json:"has_more"`
	TotalCount int            `json:"total_count"`
	Error      string         `json:"error"`
}

// ListAccounts はアカウント一覧を取得する。
// 各アカウントにはプレゼンスレジストリ由来のis_onlineを付与する。
// GET /api/accounts?pattern=&page_size=&page_number=
func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	pattern := q.Get("pattern")
	pageSize := intQueryParam(q.Get("page_size"), 50)
	pageNumber := intQueryParam(q.Get("page_number"), 0)
	if pageSize > 100 {
		pageSize = 100
	}

	result := h.service.ListAccounts(r.Context(), pattern, pageSize, pageSize*pageNumber)

	entries := make([]accountEntry, 0, len(result.Accounts))
	for _, acc := range result.Accounts {
		entries = append(entries, accountEntry{
			Username: acc.Username,
			IsOnline: h.presence.Online(acc.Username),
		})
	}

	writeJSON(w, http.StatusOK, listAccountsResponse{
		Accounts:   entries,
		HasMore:    result.HasMore,
		TotalCount: result.TotalCount,
	})
}

// DeleteAccount は呼び出し元自身のアカウントを削除する。
// セッション・送受信メッセージ・ユーザー行がカスケード削除され、
// プレゼンスレジストリからも除去される。
// DELETE /api/accounts/me
func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	username, err := middleware.UsernameFromContext(r.Context())
	if err != nil {
		middleware.WriteInvalidSession(w)
		return
	}

	if err := h.service.DeleteAccount(r.Context(), username); err != nil {
		handleServiceError(w, err)
		return
	}

	h.presence.Remove(username)

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// intQueryParam はクエリパラメータを非負整数として解釈する。
// 未指定・不正値の場合はデフォルト値を返す。
func intQueryParam(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	return v
}
