package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists session values as a flat JSON object with 0600
// permissions. It satisfies Store.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a FileStore writing to path. The parent
// directory is created on first Set.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultPath places the session file next to the rest of the app's
// data.
func DefaultPath(dataDir string) string {
	return filepath.Join(dataDir, "session.json")
}

func (f *FileStore) load() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading session file: %w", err)
	}
	vals := map[string]string{}
	if err := json.Unmarshal(data, &vals); err != nil {
		return nil, fmt.Errorf("parsing session file: %w", err)
	}
	return vals, nil
}

func (f *FileStore) save(vals map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("creating session dir: %w", err)
	}
	data, err := json.MarshalIndent(vals, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0o600)
}

func (f *FileStore) Get(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	vals, err := f.load()
	if err != nil {
		return "", false, err
	}
	v, ok := vals[key]
	return v, ok, nil
}

func (f *FileStore) Set(key, val string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	vals, err := f.load()
	if err != nil {
		return err
	}
	vals[key] = val
	return f.save(vals)
}

func (f *FileStore) Remove(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	vals, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := vals[key]; !ok {
		return nil
	}
	delete(vals, key)
	return f.save(vals)
}

// MemStore is an in-memory Store for tests.
type MemStore struct {
	mu   sync.Mutex
	vals map[string]string
}

func NewMemStore() *MemStore {
	return &MemStore{vals: map[string]string{}}
}

func (m *MemStore) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vals[key]
	return v, ok, nil
}

func (m *MemStore) Set(key, val string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vals[key] = val
	return nil
}

func (m *MemStore) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vals, key)
	return nil
}
