package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"tweetvault/pkg/logger"
)

// FileName is the position file written inside the archive directory
const FileName = "paging_positions.json"

// Store is the durable map from endpoint key to resume position.
// Every change rewrites the whole file.
type Store struct {
	mu        sync.Mutex
	path      string
	positions map[string]string
	logger    logger.Logger
}

// Open loads the position file in dir. A missing file starts empty; an
// unreadable or corrupt one is logged and also starts empty, which makes
// every phase begin from its first page.
func Open(dir string, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	s := &Store{
		path:      filepath.Join(dir, FileName),
		positions: make(map[string]string),
		logger:    log.WithField("component", "checkpoint"),
	}

	data, err := os.ReadFile(s.path)
	switch {
	case os.IsNotExist(err):
		return s, nil
	case err != nil:
		s.logger.WithError(err).Warn("Failed to read paging positions, starting fresh")
		return s, nil
	}

	if err := json.Unmarshal(data, &s.positions); err != nil {
		s.logger.WithError(err).Warn("Paging positions file is corrupt, starting fresh")
		s.positions = make(map[string]string)
		return s, nil
	}
	if s.positions == nil {
		s.positions = make(map[string]string)
	}

	s.logger.DebugWithFields("Paging positions loaded", map[string]interface{}{
		"path":    s.path,
		"entries": len(s.positions),
	})
	return s, nil
}

// Path returns the location of the position file
func (s *Store) Path() string {
	return s.path
}

// Position returns the saved position for key
func (s *Store) Position(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.positions[key]
	return pos, ok
}

// SetPosition records the position for key and persists the map. A write
// failure is logged and returned, but the in-memory position is kept.
func (s *Store) SetPosition(key, position string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.positions[key]; ok && cur == position {
		return nil
	}
	s.positions[key] = position
	return s.persist()
}

// ClearPosition removes key once its phase has completed
func (s *Store) ClearPosition(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.positions[key]; !ok {
		return nil
	}
	delete(s.positions, key)
	return s.persist()
}

// Keys returns the endpoint keys with a pending position, sorted
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.positions))
	for k := range s.positions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Reset forgets every position so the next run starts from the beginning
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.positions = make(map[string]string)
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete paging positions: %w", err)
	}

	s.logger.Info("Paging positions reset")
	return nil
}

func (s *Store) persist() error {
	if err := writeAtomic(s.path, s.positions); err != nil {
		s.logger.WithError(err).Warn("Failed to persist paging positions")
		return err
	}
	return nil
}

func writeAtomic(path string, v interface{}) error {
	tempPath := path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary positions file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode positions: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync positions file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close positions file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace positions file: %w", err)
	}
	return nil
}
