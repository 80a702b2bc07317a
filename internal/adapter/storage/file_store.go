package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rl1809/storefront/internal/port"
)

const (
	// rw-r--r--
	FileModeDefault fs.FileMode = 0644
	// rwxr-xr-x
	DirModeDefault fs.FileMode = 0755
)

// FileStore keeps every ledger key in a single JSON document. Writes go to a
// temp file that is synced and renamed over the document, so a crash leaves
// either the old or the new state on disk.
type FileStore struct {
	path string
	mu   sync.Mutex
	data map[string]json.RawMessage
}

// NewFileStore opens the document at path, creating the parent directory
// when needed. A missing document is an empty store.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), DirModeDefault); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	s := &FileStore{path: path, data: make(map[string]json.RawMessage)}
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read store: %w", err)
	}

	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &s.data); err != nil {
			return nil, fmt.Errorf("decode store %s: %w", path, err)
		}
	}
	return s, nil
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.data[key]
	if !ok {
		return nil, port.ErrKeyNotFound
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("decode key %s: %w", key, err)
	}
	return []byte(value), nil
}

func (s *FileStore) Put(ctx context.Context, entries ...port.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]json.RawMessage, len(s.data)+len(entries))
	for k, v := range s.data {
		next[k] = v
	}
	for _, e := range entries {
		raw, err := json.Marshal(string(e.Value))
		if err != nil {
			return fmt.Errorf("encode key %s: %w", e.Key, err)
		}
		next[e.Key] = raw
	}

	if err := s.write(next); err != nil {
		return err
	}
	s.data = next
	return nil
}

func (s *FileStore) write(data map[string]json.RawMessage) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, FileModeDefault); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replace store: %w", err)
	}
	return nil
}
