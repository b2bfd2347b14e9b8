// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// usernameContextKey はリクエストコンテキストにユーザー名を格納するためのキー。
var usernameContextKey = contextKey("username")

// SessionVerifier はセッショントークン検証のインターフェース。
// session.Serviceの部分集合として定義する。
type SessionVerifier interface {
	// Verify はトークンが有効な場合に所有ユーザー名、無効なら空文字列を返す。
	Verify(ctx context.Context, token string) (string, error)
}

// NewSessionMiddleware はAuthorization: Bearerヘッダーからセッショントークンを
// 読み取り、有効性を検証するミドルウェアを返す。
// 認証済みユーザー名をリクエストコンテキストに注入する。
// すべての認証失敗は、ストアに触れる前に同一の定型エンベロープ
// （success=false, error="Invalid or expired session"）で応答する。
func NewSessionMiddleware(verifier SessionVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. Authorizationヘッダーからトークンを取得
			token := bearerToken(r)
			if token == "" {
				WriteInvalidSession(w)
				return
			}

			// 2. セッションの有効性を検証
			username, err := verifier.Verify(r.Context(), token)
			if err != nil {
				slog.Error("failed to verify session",
					slog.String("error", err.Error()),
				)
				WriteInvalidSession(w)
				return
			}
			if username == "" {
				WriteInvalidSession(w)
				return
			}

			// 3. リクエストログにユーザー名を記録
			logUsername(r.Context(), username)

			// 4. 認証済みユーザー名とトークンをコンテキストに注入
			ctx := ContextWithUsername(r.Context(), username)
			ctx = context.WithValue(ctx, tokenContextKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// tokenContextKey はリクエストコンテキストにセッショントークンを格納するためのキー。
var tokenContextKey = contextKey("session_token")

// bearerToken はAuthorizationヘッダーからBearerトークンを取り出す。
// ヘッダーが無い、または形式が異なる場合は空文字列を返す。
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, prefix))
}

// UsernameFromContext はリクエストコンテキストから認証済みユーザー名を取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func UsernameFromContext(ctx context.Context) (string, error) {
	username, ok := ctx.Value(usernameContextKey).(string)
	if !ok || username == "" {
		return "", fmt.Errorf("username not found in context")
	}
	return username, nil
}

// TokenFromContext はリクエストコンテキストからセッショントークンを取得する。
// ログアウトやアカウント削除で呼び出し元セッションを破棄するために使用する。
func TokenFromContext(ctx context.Context) (string, error) {
	token, ok := ctx.Value(tokenContextKey).(string)
	if !ok || token == "" {
		return "", fmt.Errorf("session token not found in context")
	}
	return token, nil
}

// ContextWithUsername はコンテキストにユーザー名を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, usernameContextKey, username)
}

// ContextWithToken はコンテキストにセッショントークンを注入する。テスト用。
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey, token)
}
