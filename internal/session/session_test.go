package session

import (
	"os"
	"path/filepath"
	"testing"
)

func TestManagerLoadsPersistedSession(t *testing.T) {
	store := NewMemStore()
	store.Set(keyToken, "tok-1")
	store.Set(keyUser, `{"email": "a@b.c", "name": "Ada"}`)

	m, err := NewManager(store)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	cur := m.Current()
	if cur.Token != "tok-1" {
		t.Errorf("Token = %q", cur.Token)
	}
	if cur.User == nil || cur.User.Email != "a@b.c" || cur.User.Name != "Ada" {
		t.Errorf("User = %+v", cur.User)
	}
	if !cur.IsAuthenticated() {
		t.Error("session with a token should be authenticated")
	}
}

func TestManagerCorruptUserClearsSession(t *testing.T) {
	store := NewMemStore()
	store.Set(keyToken, "tok-1")
	store.Set(keyUser, "{not json")

	m, err := NewManager(store)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if m.Current().IsAuthenticated() {
		t.Error("corrupt user record should clear the whole session")
	}
	if _, ok, _ := store.Get(keyToken); ok {
		t.Error("token should be removed from the store")
	}
}

func TestManagerTokenWithoutUserStillValid(t *testing.T) {
	store := NewMemStore()
	store.Set(keyToken, "tok-1")

	m, err := NewManager(store)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	cur := m.Current()
	if cur.Token != "tok-1" || cur.User != nil {
		t.Errorf("Current = %+v", cur)
	}
}

func TestSaveAndClear(t *testing.T) {
	m, err := NewManager(NewMemStore())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if m.Token() != "" {
		t.Fatalf("fresh manager has token %q", m.Token())
	}

	if err := m.Save(Session{Token: "tok-2", User: &User{Email: "a@b.c"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if m.Token() != "tok-2" {
		t.Errorf("Token = %q after Save", m.Token())
	}

	if err := m.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if m.Token() != "" || m.Current().User != nil {
		t.Errorf("session survives Clear: %+v", m.Current())
	}
}

func TestSaveDropsStaleCachedUser(t *testing.T) {
	store := NewMemStore()
	m, err := NewManager(store)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	m.Save(Session{Token: "tok-1", User: &User{Email: "old@b.c"}})

	// Re-login without profile info should not keep the old identity.
	if err := m.Save(Session{Token: "tok-2"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, ok, _ := store.Get(keyUser); ok {
		t.Error("cached user should be removed when the new session has none")
	}
	if m.Current().User != nil {
		t.Errorf("in-memory user = %+v", m.Current().User)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := DefaultPath(filepath.Join(t.TempDir(), "nested"))
	fs := NewFileStore(path)

	if _, ok, err := fs.Get(keyToken); err != nil || ok {
		t.Fatalf("missing file: ok=%v err=%v", ok, err)
	}

	if err := fs.Set(keyToken, "tok-1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, ok, _ := fs.Get(keyToken); !ok || v != "tok-1" {
		t.Errorf("Get = %q, %v", v, ok)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("session file mode = %o, want 600", perm)
	}

	// A second store over the same path sees persisted values.
	if v, ok, _ := NewFileStore(path).Get(keyToken); !ok || v != "tok-1" {
		t.Errorf("reload Get = %q, %v", v, ok)
	}

	if err := fs.Remove(keyToken); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := fs.Remove(keyToken); err != nil {
		t.Errorf("Remove of a missing key: %v", err)
	}
	if _, ok, _ := fs.Get(keyToken); ok {
		t.Error("key still present after Remove")
	}
}
