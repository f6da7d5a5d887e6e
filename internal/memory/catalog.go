package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// catalog is the on-disk record of stored memories. The vector index
// holds embeddings; the catalog is the source of truth for listing and
// existence checks.
type catalog struct {
	path string

	mu      sync.RWMutex
	entries map[string]Memory
}

func openCatalog(path string) (*catalog, error) {
	c := &catalog{
		path:    path,
		entries: make(map[string]Memory),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &c.entries); err != nil {
			return nil, fmt.Errorf("parsing catalog %s: %w", path, err)
		}
	}
	return c, nil
}

func (c *catalog) get(id string) (Memory, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.entries[id]
	return m, ok
}

func (c *catalog) put(m Memory) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[m.ID] = m
	return c.persistLocked()
}

func (c *catalog) remove(id string) (Memory, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.entries[id]
	if !ok {
		return Memory{}, ErrNotFound
	}
	delete(c.entries, id)
	if err := c.persistLocked(); err != nil {
		c.entries[id] = m
		return Memory{}, err
	}
	return m, nil
}

// list returns all memories, newest first.
func (c *catalog) list() []Memory {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Memory, 0, len(c.entries))
	for _, m := range c.entries {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (c *catalog) count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// persistLocked writes the catalog atomically via a temp file rename.
// Caller must hold c.mu.
func (c *catalog) persistLocked() error {
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding catalog: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing catalog: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing catalog: %w", err)
	}
	return nil
}

func catalogPath(dataDir string) string {
	return filepath.Join(dataDir, "memories.json")
}
