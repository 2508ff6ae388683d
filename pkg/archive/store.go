package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"tweetvault/pkg/logger"
)

// ErrNotFound is returned when no archive document exists
var ErrNotFound = errors.New("archive not found")

// Store reads and writes archive documents, one <account id>.json per
// account, in the archive directory
type Store struct {
	dir    string
	logger logger.Logger
}

// NewStore creates the archive directory if needed
func NewStore(dir string, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &Store{dir: dir, logger: log.WithField("component", "archive")}, nil
}

// Dir returns the archive directory
func (s *Store) Dir() string {
	return s.dir
}

// MediaDir returns the local artifact directory
func (s *Store) MediaDir() string {
	return filepath.Join(s.dir, "media")
}

// Path returns the document path for id
func (s *Store) Path(id int64) string {
	return filepath.Join(s.dir, strconv.FormatInt(id, 10)+".json")
}

// Load reads the document for id
func (s *Store) Load(id int64) (*Archive, error) {
	data, err := os.ReadFile(s.Path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}

	var doc Archive
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode archive %s: %w", s.Path(id), err)
	}
	doc.ensureMaps()

	s.logger.DebugWithFields("Archive loaded", map[string]interface{}{
		"account": id,
		"tweets":  len(doc.Tweets),
	})
	return &doc, nil
}

// Find returns the id of the single archive in the directory. With several
// documents the most recently modified one wins.
func (s *Store) Find() (int64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to read archive directory: %w", err)
	}

	var (
		found  int64
		newest int64
	)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSuffix(name, ".json"), 10, 64)
		if err != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); found == 0 || mod > newest {
			found, newest = id, mod
		}
	}

	if found == 0 {
		return 0, ErrNotFound
	}
	return found, nil
}

// Save writes the cached archive atomically
func (s *Store) Save(c *Cache) error {
	data, err := c.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode archive: %w", err)
	}

	path := s.Path(c.ID())
	tempPath := path + ".tmp"

	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary archive file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write archive: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync archive: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close archive: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace archive: %w", err)
	}

	s.logger.DebugWithFields("Archive saved", map[string]interface{}{
		"path":  path,
		"bytes": len(data),
	})
	return nil
}
