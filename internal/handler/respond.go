// Package handler はHTTPハンドラーを提供する。
// 各操作はセッション解決→ストア委譲→型付きレスポンス整形の順で処理される。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/relay/internal/middleware"
	"github.com/hitoshi/relay/internal/model"
)

// writeJSON はレスポンスをJSONで書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードと
// 統一エンベロープに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidSession:
		return http.StatusUnauthorized
	case model.ErrCodeUsernameExists:
		return http.StatusConflict
	case model.ErrCodeUserNotFound, model.ErrCodeRecipientNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidPassword:
		return http.StatusUnauthorized
	case model.ErrCodeNotMessageSender:
		return http.StatusForbidden
	case model.ErrCodeMessageTooLarge, model.ErrCodeEmptyField:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON はリクエストボディをJSONとしてデコードする。
// 失敗した場合はfalseを返し、エラーレスポンスを書き込み済みにする。
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST_BODY",
			Message:  "Request body must be valid JSON",
			Category: "validation",
		})
		return false
	}
	return true
}
