// Package cache stores probe results on disk, keyed by topic and the
// repository content hash, with an in-memory LRU in front.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dusk-indust/cartograph/internal/graph"
	"github.com/dusk-indust/cartograph/internal/ident"
)

// ErrCacheWrite wraps any failure to persist a cache entry or progress file.
var ErrCacheWrite = errors.New("cache: write failed")

const (
	probesDir    = "probes"
	progressFile = "progress.json"

	// DefaultMemoryEntries sizes the LRU front.
	DefaultMemoryEntries = 256
)

// Entry is the on-disk record for one probed topic.
type Entry struct {
	Topic   string            `json:"topic"`
	GitHash string            `json:"gitHash"`
	SavedAt time.Time         `json:"savedAt"`
	Result  graph.ProbeResult `json:"result"`
}

// ProbeCache is a directory-scoped probe result store. Writes for distinct
// topics never touch the same file, so concurrent probes may Save freely.
type ProbeCache struct {
	dir    string
	memory *lru.Cache[string, Entry]
}

// New creates a cache rooted at dir. The directory is created lazily on
// the first write.
func New(dir string) (*ProbeCache, error) {
	return NewSize(dir, DefaultMemoryEntries)
}

// NewSize is New with an explicit LRU capacity.
func NewSize(dir string, entries int) (*ProbeCache, error) {
	if dir == "" {
		return nil, fmt.Errorf("cache: empty directory")
	}
	memory, err := lru.New[string, Entry](entries)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	return &ProbeCache{dir: dir, memory: memory}, nil
}

// Dir returns the cache root.
func (c *ProbeCache) Dir() string { return c.dir }

// Get returns the cached result for topic if it was saved under hash.
func (c *ProbeCache) Get(topic, hash string) (graph.ProbeResult, bool) {
	e, ok := c.load(topic)
	if !ok || e.GitHash != hash {
		return graph.ProbeResult{}, false
	}
	return e.Result, true
}

// GetAny returns the cached result for topic regardless of hash.
func (c *ProbeCache) GetAny(topic string) (graph.ProbeResult, bool) {
	e, ok := c.load(topic)
	if !ok {
		return graph.ProbeResult{}, false
	}
	return e.Result, true
}

// Save stores result for topic under hash, replacing any earlier entry.
func (c *ProbeCache) Save(topic string, result graph.ProbeResult, hash string) error {
	key := ident.Normalize(topic)
	e := Entry{Topic: key, GitHash: hash, SavedAt: time.Now().UTC(), Result: result}
	if err := writeJSON(c.entryPath(key), e); err != nil {
		return err
	}
	c.memory.Add(key, e)
	return nil
}

// Topics lists every topic with a cache entry on disk, sorted.
func (c *ProbeCache) Topics() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(c.dir, probesDir))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache: list topics: %w", err)
	}
	var topics []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		topics = append(topics, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(topics)
	return topics, nil
}

func (c *ProbeCache) load(topic string) (Entry, bool) {
	key := ident.Normalize(topic)
	if e, ok := c.memory.Get(key); ok {
		return e, true
	}
	data, err := os.ReadFile(c.entryPath(key))
	if err != nil {
		return Entry{}, false
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, false
	}
	c.memory.Add(key, e)
	return e, true
}

func (c *ProbeCache) entryPath(key string) string {
	return filepath.Join(c.dir, probesDir, key+".json")
}

// writeJSON writes v through a temp file and rename so readers never see a
// partial entry.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCacheWrite, path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCacheWrite, path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCacheWrite, path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %s: %w", ErrCacheWrite, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCacheWrite, path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCacheWrite, path, err)
	}
	return nil
}
