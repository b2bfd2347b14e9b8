package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/relay/internal/model"
)

// ErrorEnvelope はエラーレスポンスの統一フォーマット。
// すべての操作はsuccessフラグと人間可読なエラー文字列を返す。
type ErrorEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// WriteErrorResponse は統一エンベロープでHTTPエラーレスポンスを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorEnvelope{
		Success: false,
		Error:   apiErr.Message,
		Code:    apiErr.Code,
	})
}

// WriteInvalidSession はセッション失効時の定型レスポンスを書き込む。
// 全エンドポイントで同一の文言を返し、失効理由を区別させない。
func WriteInvalidSession(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusUnauthorized, model.NewInvalidSessionError())
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, model.NewStorageError())
}
