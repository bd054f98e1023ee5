// Package session persists the authenticated session (bearer token plus
// cached user info) in an opaque key-value store.
package session

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Store keys. Values are opaque strings; the store does not interpret
// them.
const (
	keyToken = "auth_token"
	keyUser  = "auth_user"
)

// Store is an opaque string key-value store. Get returns ok=false for a
// missing key; Remove of a missing key is not an error.
type Store interface {
	Get(key string) (val string, ok bool, err error)
	Set(key, val string) error
	Remove(key string) error
}

// User is the cached account identity.
type User struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Session is the authentication state. A token without cached user info
// is still a valid session.
type Session struct {
	Token string
	User  *User
}

// IsAuthenticated reports whether a token is present.
func (s Session) IsAuthenticated() bool { return s.Token != "" }

// Manager loads and persists the session. It is safe for concurrent use
// and serves as the api.TokenProvider for authenticated requests.
type Manager struct {
	store Store

	mu  sync.Mutex
	cur Session
}

// NewManager creates a Manager and loads any persisted session.
// A corrupt cached user record clears the whole session rather than
// resurrecting half a login.
func NewManager(store Store) (*Manager, error) {
	m := &Manager{store: store}

	token, ok, err := store.Get(keyToken)
	if err != nil {
		return nil, fmt.Errorf("reading session token: %w", err)
	}
	if !ok || token == "" {
		return m, nil
	}
	m.cur.Token = token

	raw, ok, err := store.Get(keyUser)
	if err != nil {
		return nil, fmt.Errorf("reading cached user: %w", err)
	}
	if ok && raw != "" {
		var u User
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			if err := m.Clear(); err != nil {
				return nil, err
			}
			return m, nil
		}
		m.cur.User = &u
	}
	return m, nil
}

// Current returns the in-memory session.
func (m *Manager) Current() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cur
}

// Token implements api.TokenProvider. It is read at call time, so a
// re-login mid-process is picked up by the next request.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cur.Token
}

// Save persists a new session, replacing any existing one.
func (m *Manager) Save(s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Set(keyToken, s.Token); err != nil {
		return fmt.Errorf("persisting session token: %w", err)
	}
	if s.User != nil {
		raw, err := json.Marshal(s.User)
		if err != nil {
			return fmt.Errorf("encoding cached user: %w", err)
		}
		if err := m.store.Set(keyUser, string(raw)); err != nil {
			return fmt.Errorf("persisting cached user: %w", err)
		}
	} else if err := m.store.Remove(keyUser); err != nil {
		return fmt.Errorf("clearing cached user: %w", err)
	}

	m.cur = s
	return nil
}

// Clear destroys the session in memory and in the store.
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range []string{keyToken, keyUser} {
		if err := m.store.Remove(k); err != nil {
			return fmt.Errorf("removing %s: %w", k, err)
		}
	}
	m.cur = Session{}
	return nil
}
