package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/relay/internal/model"
)

// TestWriteErrorResponse は統一エンベロープの内容を検証する。
func TestWriteErrorResponse(t *testing.T) {
	w := httptest.NewRecorder()

	WriteErrorResponse(w, http.StatusNotFound, model.NewUserNotFoundError())

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}

	var envelope ErrorEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if envelope.Success {
		t.Error("success should be false")
	}
	if envelope.Error != "User not found" {
		t.Errorf("error = %q, want %q", envelope.Error, "User not found")
	}
	if envelope.Code != model.ErrCodeUserNotFound {
		t.Errorf("code = %q, want %q", envelope.Code, model.ErrCodeUserNotFound)
	}
}

// TestWriteInvalidSession は定型の401レスポンスを検証する。
func TestWriteInvalidSession(t *testing.T) {
	w := httptest.NewRecorder()

	WriteInvalidSession(w)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	var envelope ErrorEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if envelope.Error != "Invalid or expired session" {
		t.Errorf("error = %q, want %q", envelope.Error, "Invalid or expired session")
	}
}

// TestWriteInternalServerError は内部詳細を含まない500レスポンスを検証する。
func TestWriteInternalServerError(t *testing.T) {
	w := httptest.NewRecorder()

	WriteInternalServerError(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}

	var envelope ErrorEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if envelope.Success {
		t.Error("success should be false")
	}
	if envelope.Error != "Internal storage error" {
		t.Errorf("error = %q, want %q", envelope.Error, "Internal storage error")
	}
}
