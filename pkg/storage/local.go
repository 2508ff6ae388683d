package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LocalStore keeps artifacts as files in a single directory
type LocalStore struct {
	dir   string
	known map[string]bool
	mu    sync.RWMutex
}

// NewLocalStore creates dir if needed and indexes the files already in it
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}

	store := &LocalStore{
		dir:   dir,
		known: make(map[string]bool),
	}

	if err := store.scanExistingFiles(); err != nil {
		return nil, fmt.Errorf("failed to scan existing files: %w", err)
	}

	return store, nil
}

// scanExistingFiles indexes completed artifacts, ignoring leftover temp files
func (s *LocalStore) scanExistingFiles() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), ".tmp") {
			continue
		}
		s.known[entry.Name()] = true
	}

	return nil
}

// Exists checks the index first and falls back to the filesystem
func (s *LocalStore) Exists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	known := s.known[name]
	s.mu.RUnlock()
	if known {
		return true, nil
	}

	_, err := os.Stat(filepath.Join(s.dir, name))
	switch {
	case err == nil:
		s.mu.Lock()
		s.known[name] = true
		s.mu.Unlock()
		return true, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, fmt.Errorf("failed to stat artifact: %w", err)
	}
}

// Put writes data to a temporary file and renames it into place
func (s *LocalStore) Put(ctx context.Context, name string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	filename := filepath.Join(s.dir, name)
	tempFile := filename + ".tmp"

	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to rename temporary file: %w", err)
	}

	s.mu.Lock()
	s.known[name] = true
	s.mu.Unlock()

	return s.Ref(name), nil
}

// Ref returns the artifact path relative to the archive directory
func (s *LocalStore) Ref(name string) string {
	return filepath.ToSlash(filepath.Join(filepath.Base(s.dir), name))
}

// Dir returns the media directory
func (s *LocalStore) Dir() string {
	return s.dir
}

// Count returns the number of stored artifacts
func (s *LocalStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.known)
}

var _ ArtifactStore = (*LocalStore)(nil)
