package presence

import (
	"fmt"
	"sync"
	"testing"
)

// TestRegistry_SetAndOnline は登録したユーザーがオンライン判定されることを検証する。
func TestRegistry_SetAndOnline(t *testing.T) {
	r := NewRegistry()

	if r.Online("alice") {
		t.Error("alice should be offline before Set")
	}

	r.Set("alice", "token-1")
	if !r.Online("alice") {
		t.Error("alice should be online after Set")
	}
	if r.Online("bob") {
		t.Error("bob should be offline")
	}
}

// TestRegistry_Remove は除去後にオフラインになることを検証する。
func TestRegistry_Remove(t *testing.T) {
	r := NewRegistry()
	r.Set("alice", "token-1")

	r.Remove("alice")
	if r.Online("alice") {
		t.Error("alice should be offline after Remove")
	}
}

// TestRegistry_Remove_UnknownUser は未登録ユーザーの除去が何もしないことを検証する。
func TestRegistry_Remove_UnknownUser(t *testing.T) {
	r := NewRegistry()
	r.Set("alice", "token-1")

	r.Remove("ghost")
	if !r.Online("alice") {
		t.Error("alice should remain online")
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
}

// TestRegistry_Set_LastLoginWins は再ログインで既存エントリが上書きされることを検証する。
func TestRegistry_Set_LastLoginWins(t *testing.T) {
	r := NewRegistry()
	r.Set("alice", "token-1")
	r.Set("alice", "token-2")

	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
	if !r.Online("alice") {
		t.Error("alice should be online")
	}
}

// TestRegistry_ConcurrentAccess は並行アクセスで競合しないことを検証する。
// go test -race で実行することを想定。
func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(3)
		username := fmt.Sprintf("user-%d", i%10)
		go func() {
			defer wg.Done()
			r.Set(username, "token")
		}()
		go func() {
			defer wg.Done()
			r.Online(username)
		}()
		go func() {
			defer wg.Done()
			r.Remove(username)
		}()
	}
	wg.Wait()

	if r.Len() > 10 {
		t.Errorf("Len = %d, want at most 10", r.Len())
	}
}
