// Package artifact stores binary artifacts (rendered charts) produced while
// answering a turn, keyed by user and name. An in-memory implementation
// serves tests and prototypes; DirStore persists to a served directory.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrNotFound is returned when no artifact exists for the given user/name
// pair.
var ErrNotFound = fmt.Errorf("artifact not found")

// Store persists artifacts and returns a reference (URL or path) that can
// be embedded in answers.
type Store interface {
	// Save stores (or overwrites) the artifact bytes and returns its
	// reference.
	Save(userID, name string, data []byte) (string, error)

	// Get returns the stored artifact bytes or ErrNotFound.
	Get(userID, name string) ([]byte, error)
}

// InMemoryStore keeps all artifacts in a nested map guarded by an RWMutex.
// Data is copied on save and retrieval so callers cannot mutate internal
// buffers. It enforces no retention limits; for production prefer DirStore
// or another durable implementation.
type InMemoryStore struct {
	mu        sync.RWMutex
	artifacts map[string]map[string][]byte // userID -> name -> data
}

// NewInMemoryStore returns an empty in-memory artifact store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{artifacts: make(map[string]map[string][]byte)}
}

// Save implements Store. The returned reference uses a memory scheme.
func (s *InMemoryStore) Save(userID, name string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.artifacts[userID]; !ok {
		s.artifacts[userID] = make(map[string][]byte)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	s.artifacts[userID][name] = cp
	return "memory://" + userID + "/" + name, nil
}

// Get implements Store.
func (s *InMemoryStore) Get(userID, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.artifacts[userID]
	if !ok {
		return nil, ErrNotFound
	}
	data, ok := m[name]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// DirStore writes artifacts under dir/userID/name and returns references
// rooted at baseURL (typically the path a fileserver mounts dir on).
type DirStore struct {
	dir     string
	baseURL string
}

// NewDirStore creates the backing directory if needed.
func NewDirStore(dir, baseURL string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}
	return &DirStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Save implements Store.
func (s *DirStore) Save(userID, name string, data []byte) (string, error) {
	userDir := filepath.Join(s.dir, filepath.Base(userID))
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return "", fmt.Errorf("create user directory: %w", err)
	}
	path := filepath.Join(userDir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return s.baseURL + "/" + filepath.Base(userID) + "/" + filepath.Base(name), nil
}

// Get implements Store.
func (s *DirStore) Get(userID, name string) ([]byte, error) {
	path := filepath.Join(s.dir, filepath.Base(userID), filepath.Base(name))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return data, nil
}
