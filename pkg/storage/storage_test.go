package storage

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *MemoryStore {
	t.Helper()

	store := NewMemoryStore(2 * time.Minute)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestUserLifecycle(t *testing.T) {
	store := newTestStore(t)

	user := &User{
		Username: "alice",
		Group:    "ristretto255",
		Y1:       []byte{0x01, 0x02},
		Y2:       []byte{0x03, 0x04},
	}

	t.Run("Create", func(t *testing.T) {
		if err := store.CreateUser(user); err != nil {
			t.Fatalf("create failed: %v", err)
		}

		got, err := store.GetUser("alice")
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if got.Group != "ristretto255" {
			t.Errorf("unexpected group %q", got.Group)
		}
		if got.CreatedAt.IsZero() {
			t.Error("CreatedAt should be stamped on create")
		}
	})

	t.Run("DuplicateRejected", func(t *testing.T) {
		if err := store.CreateUser(user); !errors.Is(err, ErrUserExists) {
			t.Errorf("expected ErrUserExists, got %v", err)
		}
	})

	t.Run("GetUnknown", func(t *testing.T) {
		if _, err := store.GetUser("bob"); !errors.Is(err, ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		users, err := store.ListUsers()
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(users) != 1 || users[0].Username != "alice" {
			t.Errorf("unexpected user list: %+v", users)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := store.DeleteUser("alice"); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if err := store.DeleteUser("alice"); !errors.Is(err, ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})
}

func TestSessionLifecycle(t *testing.T) {
	store := newTestStore(t)

	session := &LoginSession{
		ID:       "session-1",
		Username: "alice",
		R1:       []byte{0x0a},
		R2:       []byte{0x0b},
		C:        []byte{0x0c},
	}

	if err := store.CreateSession(session); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	got, err := store.GetSession("session-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Used {
		t.Error("fresh session must not be marked used")
	}
	if got.ExpiresAt.IsZero() {
		t.Error("expiry should default from the store TTL")
	}

	claimed, err := store.ClaimSession("session-1")
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if !claimed.Used {
		t.Error("claimed session must be marked used")
	}

	if _, err := store.ClaimSession("session-1"); !errors.Is(err, ErrSessionUsed) {
		t.Errorf("expected ErrSessionUsed on second claim, got %v", err)
	}

	if err := store.DeleteSession("session-1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := store.GetSession("session-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionClaimIsExclusive(t *testing.T) {
	store := newTestStore(t)

	if err := store.CreateSession(&LoginSession{ID: "race", Username: "alice"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	const workers = 16
	var wg sync.WaitGroup
	wins := make(chan struct{}, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.ClaimSession("race"); err == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	if got := len(wins); got != 1 {
		t.Fatalf("expected exactly one successful claim, got %d", got)
	}
}

func TestSessionExpiry(t *testing.T) {
	store := newTestStore(t)

	session := &LoginSession{
		ID:        "stale",
		Username:  "alice",
		ExpiresAt: time.Now().Add(-time.Second),
	}
	if err := store.CreateSession(session); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := store.GetSession("stale"); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("expected ErrSessionExpired from get, got %v", err)
	}
	if _, err := store.ClaimSession("stale"); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("expected ErrSessionExpired from claim, got %v", err)
	}

	// The failed claim evicts the session entirely.
	if _, err := store.ClaimSession("stale"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after eviction, got %v", err)
	}
}

func TestCleanupExpiredSessions(t *testing.T) {
	store := newTestStore(t)

	if err := store.CreateSession(&LoginSession{ID: "live", Username: "alice"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := store.CreateSession(&LoginSession{ID: "dead", Username: "alice", ExpiresAt: time.Now().Add(-time.Second)}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := store.CleanupExpiredSessions(); err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}

	if _, err := store.GetSession("live"); err != nil {
		t.Errorf("live session should survive cleanup: %v", err)
	}
	if _, err := store.GetSession("dead"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound for swept session, got %v", err)
	}
}

func TestDenylist(t *testing.T) {
	store := newTestStore(t)

	barred, err := store.IsInDenylist("mallory")
	if err != nil || barred {
		t.Fatalf("expected mallory to start unbarred, got %v %v", barred, err)
	}

	if err := store.AddToDenylist("mallory"); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	barred, err = store.IsInDenylist("mallory")
	if err != nil || !barred {
		t.Fatalf("expected mallory to be barred, got %v %v", barred, err)
	}

	names, err := store.ListDenylist()
	if err != nil || len(names) != 1 || names[0] != "mallory" {
		t.Fatalf("unexpected denylist %v %v", names, err)
	}

	if err := store.RemoveFromDenylist("mallory"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	barred, _ = store.IsInDenylist("mallory")
	if barred {
		t.Error("expected mallory to be unbarred after removal")
	}
}

func TestStoreStatsAndPing(t *testing.T) {
	store := newTestStore(t)

	if err := store.Ping(); err != nil {
		t.Fatalf("ping failed: %v", err)
	}

	if err := store.CreateUser(&User{Username: "alice"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := store.CreateSession(&LoginSession{ID: "s1", Username: "alice"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	stats := store.Stats()
	if stats["users"] != 1 || stats["sessions"] != 1 || stats["denylist"] != 0 {
		t.Errorf("unexpected stats %v", stats)
	}
}
