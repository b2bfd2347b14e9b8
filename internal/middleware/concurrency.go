package middleware

import "net/http"

// NewConcurrencyLimitMiddleware は同時処理中のリクエスト数をmaxInFlightに
// 制限するミドルウェアを返す。上限到達時の呼び出しはスロットの解放を待って
// ブロックし、開始した処理は呼び出し元が離脱しても完了まで実行される。
// 明示的な操作タイムアウトやキャンセル伝播は行わない。
func NewConcurrencyLimitMiddleware(maxInFlight int) func(next http.Handler) http.Handler {
	if maxInFlight <= 0 {
		maxInFlight = 64
	}
	sem := make(chan struct{}, maxInFlight)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sem <- struct{}{}
			defer func() { <-sem }()
			next.ServeHTTP(w, r)
		})
	}
}
