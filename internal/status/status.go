// Package status summarizes a cache directory for display.
package status

import (
	"github.com/dusk-indust/cartograph/internal/cache"
)

// Summary describes the state of the last exploration run.
type Summary struct {
	CacheDir string
	// HasProgress is false when no round has completed yet.
	HasProgress bool
	Progress    cache.ProgressMetadata
	// CachedTopics lists every topic with a stored probe result.
	CachedTopics []string
	// Current reports whether the last run used currentHash.
	Current bool
}

// Load reads the cache directory. A missing directory yields an empty
// Summary, not an error.
func Load(cacheDir, currentHash string) (*Summary, error) {
	s := &Summary{CacheDir: cacheDir}

	meta, ok, err := cache.LoadProgress(cacheDir)
	if err != nil {
		return nil, err
	}
	s.HasProgress = ok
	s.Progress = meta
	s.Current = ok && currentHash != "" && meta.GitHash == currentHash

	pc, err := cache.New(cacheDir)
	if err != nil {
		return nil, err
	}
	topics, err := pc.Topics()
	if err != nil {
		return nil, err
	}
	s.CachedTopics = topics
	return s, nil
}

// Resumable reports whether a rerun would reuse cached probes.
func (s *Summary) Resumable() bool {
	return s.Current && len(s.CachedTopics) > 0
}

// NextRound returns the round a resumed run would report next, or 0 when
// the last run already finished.
func (s *Summary) NextRound() int {
	if !s.HasProgress || s.Progress.Converged || s.Progress.CurrentRound >= s.Progress.MaxRounds {
		return 0
	}
	return s.Progress.CurrentRound + 1
}
