package local

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// DocumentName is the file holding every key of a Store
const DocumentName = "storage.json"

// Store is a thread-safe string key-value store kept in a single JSON
// document. Every write replaces the document through a temp file and a
// rename, so a multi-key write is never observed half applied.
type Store struct {
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
}

// NewStore creates a store whose document lives in basePath
func NewStore(basePath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve store path: %w", err)
	}
	if err := os.MkdirAll(abs, 0700); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &Store{path: filepath.Join(abs, DocumentName), logger: logger}, nil
}

// Path returns the location of the backing document
func (s *Store) Path() string {
	return s.path
}

// Get returns the value stored under key
func (s *Store) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, err := s.read()
	if err != nil {
		return "", false, err
	}
	value, ok := doc[key]
	return value, ok, nil
}

// SetMany stores all entries in one write
func (s *Store) SetMany(entries map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readForWrite()
	if err != nil {
		return err
	}
	for k, v := range entries {
		doc[k] = v
	}
	return s.write(doc)
}

// Delete removes keys; missing keys are ignored
func (s *Store) Delete(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readForWrite()
	if err != nil {
		return err
	}

	changed := false
	for _, k := range keys {
		if _, ok := doc[k]; ok {
			delete(doc, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.write(doc)
}

// Keys returns all stored keys in sorted order
func (s *Store) Keys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// read loads the document. A missing document is empty.
func (s *Store) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read document: %w", err)
	}
	if len(data) == 0 {
		return map[string]string{}, nil
	}

	doc := map[string]string{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return doc, nil
}

// readForWrite loads the document for modification; a corrupt document is
// replaced rather than blocking every future write.
func (s *Store) readForWrite() (map[string]string, error) {
	doc, err := s.read()
	if errors.Is(err, ErrCorrupt) {
		return map[string]string{}, nil
	}
	return doc, err
}

func (s *Store) write(doc map[string]string) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".storage-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace document: %w", err)
	}
	return nil
}
