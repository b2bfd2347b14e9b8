package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// requestLogContext はロギングミドルウェアより内側のミドルウェアが
// ログエントリへ属性を追記するための入れ物。
// セッションミドルウェアのr.WithContextは呼び出し元に伝播しないため、
// コンテキスト値ではなく可変の共有オブジェクトで受け渡す。
type requestLogContext struct {
	mu       sync.Mutex
	username string
}

var logContextKey = contextKey("request_log")

func (lc *requestLogContext) setUsername(username string) {
	lc.mu.Lock()
	lc.username = username
	lc.mu.Unlock()
}

func (lc *requestLogContext) getUsername() string {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.username
}

// logUsername はリクエストのログエントリに認証済みユーザー名を記録する。
// ロギングミドルウェアの外で呼ばれた場合は何もしない。
func logUsername(ctx context.Context, username string) {
	if lc, ok := ctx.Value(logContextKey).(*requestLogContext); ok {
		lc.setUsername(username)
	}
}

// statusRecorder はhttp.ResponseWriterをラップし、ステータスコードと
// レスポンスサイズを記録する。
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	bytes      int
	written    bool
}

// WriteHeader はステータスコードを記録してから委譲する。
func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

// Write はデータを書き込む。WriteHeaderが未呼び出しの場合は200を記録する。
func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.statusCode = http.StatusOK
		sr.written = true
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

// NewLoggingMiddleware はリクエストのJSON構造化ログを出力するミドルウェアを返す。
// ログにはmethod、path、status、duration_ms、response_bytes、
// username（認証済みの場合）を含む。これが仕様上の観測シンクへ渡す
// サイズ・レイテンシ情報のテキスト出力になる。
func NewLoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rec := &statusRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			lc := &requestLogContext{}
			r = r.WithContext(context.WithValue(r.Context(), logContextKey, lc))

			next.ServeHTTP(rec, r)

			duration := time.Since(start)
			durationMs := float64(duration.Nanoseconds()) / float64(time.Millisecond)

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.statusCode),
				slog.Float64("duration_ms", durationMs),
				slog.Int("response_bytes", rec.bytes),
			}

			// セッションミドルウェアがユーザー名を記録していた場合は追加
			if username := lc.getUsername(); username != "" {
				attrs = append(attrs, slog.String("username", username))
			}

			// slogのログレベルをステータスコードに応じて変更
			level := slog.LevelInfo
			if rec.statusCode >= 500 {
				level = slog.LevelError
			} else if rec.statusCode >= 400 {
				level = slog.LevelWarn
			}

			args := make([]any, len(attrs))
			for i, attr := range attrs {
				args[i] = attr
			}

			logger.Log(r.Context(), level, "http_request", args...)
		})
	}
}
