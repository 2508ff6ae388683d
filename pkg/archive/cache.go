package archive

import (
	"encoding/json"
	"sync"
)

// Cache is the shared handle to the archive of a run. Every access goes
// through a scoped accessor so the lock is released on all exit paths.
type Cache struct {
	mu  sync.RWMutex
	doc *Archive
}

// NewCache wraps doc
func NewCache(doc *Archive) *Cache {
	doc.ensureMaps()
	return &Cache{doc: doc}
}

// With runs fn with exclusive access to the archive
func (c *Cache) With(fn func(a *Archive) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fn(c.doc)
}

// Read runs fn with shared access. fn must not mutate the archive.
func (c *Cache) Read(fn func(a *Archive)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn(c.doc)
}

// ID returns the archived account id
func (c *Cache) ID() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.doc.ID()
}

// MediaRef returns the artifact recorded for url
func (c *Cache) MediaRef(url string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ref, ok := c.doc.Media[url]
	return ref, ok
}

// SetMedia records the artifact for url. An existing mapping is kept.
func (c *Cache) SetMedia(url, ref string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.doc.Media[url]; !ok {
		c.doc.Media[url] = ref
	}
}

// HasProfile reports whether id's profile is cached
func (c *Cache) HasProfile(id int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.doc.Profiles[id]
	return ok
}

// Stats counts every collection
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.doc.Stats()
}

// Snapshot returns a deep copy of the archive
func (c *Cache) Snapshot() (*Archive, error) {
	data, err := c.Marshal()
	if err != nil {
		return nil, err
	}

	var out Archive
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	out.ensureMaps()
	return &out, nil
}

// Marshal encodes the archive under the read lock
func (c *Cache) Marshal() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return json.MarshalIndent(c.doc, "", "  ")
}
