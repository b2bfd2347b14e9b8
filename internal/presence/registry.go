// Package presence はプロセスローカルなオンライン状態の管理を提供する。
//
// レジストリは表示用の参考情報にすぎず、アクセス制御の根拠には使わない。
// 永続化も期限切れもなく、グレースフルでないプロセス終了後は
// 次回ログアウトまで古い「オンライン」が残ることを許容する。
package presence

import "sync"

// Registry はユーザー名から現在のセッショントークンへのインメモリマップ。
// サービスインスタンスのフィールドとして保持し、グローバル変数にはしない。
type Registry struct {
	mu      sync.RWMutex
	entries map[string]string // username -> session token
}

// NewRegistry はRegistryを生成する。
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]string),
	}
}

// Set はログイン成功時にエントリを登録する。
// 同一ユーザーの既存エントリは上書きする（最後のログインが勝つ）。
func (r *Registry) Set(username, token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[username] = token
}

// Remove はログアウトまたはアカウント削除時にエントリを除去する。
// 存在しないユーザーの除去は何もしない。
func (r *Registry) Remove(username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, username)
}

// Online は指定ユーザーがオンラインとして登録されているかを返す。
func (r *Registry) Online(username string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[username]
	return ok
}

// Len は登録されているエントリ数を返す。テストおよびメトリクス用。
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
