package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Run modes recorded in ProgressMetadata.
const (
	ModeFresh    = "fresh"
	ModeUseCache = "use-cache"
)

// ProgressMetadata is written after every round. It is diagnostic only;
// resumption derives hits and misses from the probe entries themselves.
type ProgressMetadata struct {
	GitHash         string    `json:"gitHash"`
	Timestamp       time.Time `json:"timestamp"`
	Mode            string    `json:"mode,omitempty"`
	CurrentRound    int       `json:"currentRound"`
	MaxRounds       int       `json:"maxRounds"`
	CompletedTopics []string  `json:"completedTopics"`
	PendingTopics   []string  `json:"pendingTopics"`
	Converged       bool      `json:"converged"`
	Coverage        float64   `json:"coverage"`
}

// SaveProgress overwrites the progress file.
func (c *ProbeCache) SaveProgress(meta ProgressMetadata) error {
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now().UTC()
	}
	if meta.CompletedTopics == nil {
		meta.CompletedTopics = []string{}
	}
	if meta.PendingTopics == nil {
		meta.PendingTopics = []string{}
	}
	return writeJSON(c.progressPath(), meta)
}

// LoadProgress reads the progress file. ok is false when none exists.
func (c *ProbeCache) LoadProgress() (meta ProgressMetadata, ok bool, err error) {
	return LoadProgress(c.dir)
}

// LoadProgress reads the progress file under dir without constructing a
// cache.
func LoadProgress(dir string) (ProgressMetadata, bool, error) {
	data, err := os.ReadFile(filepath.Join(dir, progressFile))
	if errors.Is(err, os.ErrNotExist) {
		return ProgressMetadata{}, false, nil
	}
	if err != nil {
		return ProgressMetadata{}, false, fmt.Errorf("cache: read progress: %w", err)
	}
	var meta ProgressMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return ProgressMetadata{}, false, fmt.Errorf("cache: decode progress: %w", err)
	}
	return meta, true, nil
}

func (c *ProbeCache) progressPath() string {
	return filepath.Join(c.dir, progressFile)
}
