// Package credstore persists the session's token pair. The pair is written
// atomically on login/register and cleared atomically on logout; only the
// session store writes it, while the transport client reads the access
// token on every outbound request.
package credstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Credentials is the durable token pair.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Store persists a credential pair. Save and Clear replace the pair as a
// unit; there is no partial update.
type Store interface {
	Load() (Credentials, error)
	Save(creds Credentials) error
	Clear() error
	// AccessToken returns the current access token, or "" when signed out.
	// Satisfies api.TokenSource.
	AccessToken() string
}

// FileStore keeps credentials in a JSON file with owner-only permissions.
// The pair is cached in memory after the first load so the per-request
// token read does not hit the disk.
type FileStore struct {
	mu     sync.Mutex
	path   string
	cached *Credentials
}

// NewFileStore creates a store backed by the given file path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the credential pair from disk. A missing file yields empty
// credentials, not an error.
func (s *FileStore) Load() (Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *FileStore) loadLocked() (Credentials, error) {
	if s.cached != nil {
		return *s.cached, nil
	}
	var creds Credentials
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.cached = &creds
		return creds, nil
	}
	if err != nil {
		return creds, fmt.Errorf("read credentials: %w", err)
	}
	if err := json.Unmarshal(raw, &creds); err != nil {
		return creds, fmt.Errorf("parse credentials: %w", err)
	}
	s.cached = &creds
	return creds, nil
}

// Save writes the pair atomically: a temp file in the same directory is
// renamed over the target so readers never observe a half-written pair.
func (s *FileStore) Save(creds Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}

	raw, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close credentials: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace credentials: %w", err)
	}

	s.cached = &creds
	return nil
}

// Clear removes both tokens in one step.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cached = &Credentials{}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove credentials: %w", err)
	}
	return nil
}

// AccessToken returns the cached access token, loading from disk on first
// use. Errors degrade to "" (treated as signed out).
func (s *FileStore) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	creds, err := s.loadLocked()
	if err != nil {
		return ""
	}
	return creds.AccessToken
}

// Memory is an in-process Store for tests.
type Memory struct {
	mu    sync.Mutex
	creds Credentials
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Load() (Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creds, nil
}

func (m *Memory) Save(creds Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = creds
	return nil
}

func (m *Memory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = Credentials{}
	return nil
}

func (m *Memory) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creds.AccessToken
}
