package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/relay/internal/message"
	"github.com/hitoshi/relay/internal/middleware"
	"github.com/hitoshi/relay/internal/model"
)

// MessageServiceInterface はメッセージハンドラーが必要とするサービスインターフェース。
type MessageServiceInterface interface {
	// Send はメッセージを送信し、採番したメッセージIDを返す。
	Send(ctx context.Context, sender, recipient, content string) (string, error)
	// Get は未削除メッセージをタイムスタンプ降順で返す。
	// 副作用として呼び出しユーザー宛の全未削除メッセージを配達済みにする。
	Get(ctx context.Context, username string, limit int) (message.GetResult, error)
	// Delete は送信者本人のメッセージのみソフト削除し、失敗分をIDで報告する。
	Delete(ctx context.Context, ids []string, username string) (message.DeleteResult, error)
	// MarkConversationRead は相手からの未削除メッセージをすべて既読にする。
	MarkConversationRead(ctx context.Context, username, otherUser string) error
	// UnreadCountBySender は未読件数を送信者ごとに返す。
	UnreadCountBySender(ctx context.Context, username string) (map[string]int, error)
}

// MessageHandler はメッセージ管理のHTTPハンドラー。
type MessageHandler struct {
	service MessageServiceInterface
}

// NewMessageHandler はMessageHandlerを生成する。
func NewMessageHandler(service MessageServiceInterface) *MessageHandler {
	return &MessageHandler{service: service}
}

// sendMessageRequest はメッセージ送信リクエストのボディ。
type sendMessageRequest struct {
	Recipient string `json:"recipient"`
	Content   string `json:"content"`
}

// sendMessageResponse はメッセージ送信レスポンス。
type sendMessageResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	MessageID string `json:"message_id"`
}

// SendMessage はメッセージを送信する。
// POST /api/messages
func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	sender, err := middleware.UsernameFromContext(r.Context())
	if err != nil {
		middleware.WriteInvalidSession(w)
		return
	}

	var req sendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	id, err := h.service.Send(r.Context(), sender, req.Recipient, req.Content)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, sendMessageResponse{
		Success:   true,
		MessageID: id,
	})
}

// messageEntry はメッセージ一覧の1件分。
type messageEntry struct {
	MessageID string `json:"message_id"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
	Delivered bool   `json:"delivered"`
	Unread    bool   `json:"unread"`
	Deleted   bool   `json:"deleted"`
}

// getMessagesResponse はメッセージ一覧レスポンス。
type getMessagesResponse struct {
	Messages []messageEntry `json:"messages"`
	HasMore  bool           `json:"has_more"`
	Error    string         `json:"error"`
}

// GetMessages は呼び出しユーザーの送受信メッセージを取得する。
// GET /api/messages?max_messages=N
func (h *MessageHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	username, err := middleware.UsernameFromContext(r.Context())
	if err != nil {
		middleware.WriteInvalidSession(w)
		return
	}

	limit := intQueryParam(r.URL.Query().Get("max_messages"), 50)

	result, err := h.service.Get(r.Context(), username, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	entries := make([]messageEntry, 0, len(result.Messages))
	for _, msg := range result.Messages {
		entries = append(entries, messageEntry{
			MessageID: msg.ID,
			Sender:    msg.Sender,
			Recipient: msg.Recipient,
			Content:   msg.Content,
			Timestamp: msg.Timestamp,
			Delivered: msg.Delivered,
			Unread:    msg.Unread,
			Deleted:   msg.Deleted,
		})
	}

	writeJSON(w, http.StatusOK, getMessagesResponse{
		Messages: entries,
		HasMore:  result.HasMore,
	})
}

// deleteMessagesRequest はバッチ削除リクエストのボディ。
type deleteMessagesRequest struct {
	MessageIDs []string `json:"message_ids"`
}

// deleteMessagesResponse はバッチ削除レスポンス。
// successはストレージ障害の有無のみを表し、権限による個別の失敗は
// failed_message_idsで報告する。
type deleteMessagesResponse struct {
	Success          bool     `json:"success"`
	Error            string   `json:"error"`
	FailedMessageIDs []string `json:"failed_message_ids"`
}

// DeleteMessages は指定メッセージ群をソフト削除する。
// 送信者本人のメッセージのみが対象で、条件を満たさないIDは
// failed_message_idsに載せて残りの処理を継続する。
// POST /api/messages/delete
func (h *MessageHandler) DeleteMessages(w http.ResponseWriter, r *http.Request) {
	username, err := middleware.UsernameFromContext(r.Context())
	if err != nil {
		middleware.WriteInvalidSession(w)
		return
	}

	var req deleteMessagesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.service.Delete(r.Context(), req.MessageIDs, username)
	if err != nil {
		// ストレージ障害時も処理できなかったIDの一覧は返す
		failed := result.FailedIDs
		if failed == nil {
			failed = []string{}
		}
		status := http.StatusInternalServerError
		errMessage := model.NewStorageError().Message
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			status = mapAPIErrorToHTTPStatus(apiErr)
			errMessage = apiErr.Message
		}
		writeJSON(w, status, deleteMessagesResponse{
			Error:            errMessage,
			FailedMessageIDs: failed,
		})
		return
	}

	resp := deleteMessagesResponse{
		Success:          true,
		FailedMessageIDs: result.FailedIDs,
	}
	if len(result.FailedIDs) > 0 {
		resp.Error = model.NewNotMessageSenderError().Message
	}
	if resp.FailedMessageIDs == nil {
		resp.FailedMessageIDs = []string{}
	}

	writeJSON(w, http.StatusOK, resp)
}

// MarkConversationAsRead は指定ユーザーとの会話を既読にする。
// POST /api/conversations/{username}/read
func (h *MessageHandler) MarkConversationAsRead(w http.ResponseWriter, r *http.Request) {
	username, err := middleware.UsernameFromContext(r.Context())
	if err != nil {
		middleware.WriteInvalidSession(w)
		return
	}

	otherUser := chi.URLParam(r, "username")

	if err := h.service.MarkConversationRead(r.Context(), username, otherUser); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// unreadBySenderResponse は送信者ごとの未読件数レスポンス。
type unreadBySenderResponse struct {
	Counts map[string]int `json:"counts"`
	Error  string         `json:"error"`
}

// UnreadBySender は未読メッセージ件数を送信者ごとに返す。
// GET /api/conversations/unread
func (h *MessageHandler) UnreadBySender(w http.ResponseWriter, r *http.Request) {
	username, err := middleware.UsernameFromContext(r.Context())
	if err != nil {
		middleware.WriteInvalidSession(w)
		return
	}

	counts, err := h.service.UnreadCountBySender(r.Context(), username)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, unreadBySenderResponse{Counts: counts})
}
