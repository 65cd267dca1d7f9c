package orchestrator

import "time"

// Defaults applied by Config.WithDefaults.
const (
	DefaultMaxRounds         = 3
	DefaultConcurrency       = 5
	DefaultCoverageThreshold = 0.8
)

// Config holds runtime configuration for one exploration run.
type Config struct {
	// RepoPath is the repository handed to the engine as working directory.
	RepoPath string

	// GitHash keys cache lookups to the repository content.
	GitHash string

	// Model and MergeModel select engine models; empty means engine default.
	Model      string
	MergeModel string

	// Concurrency caps in-flight probes within a round.
	Concurrency int

	// MaxRounds is a hard cap on merge steps.
	MaxRounds int

	// CoverageThreshold stops the run once coverage reaches it and no new
	// topics remain.
	CoverageThreshold float64

	ProbeTimeout time.Duration
	MergeTimeout time.Duration

	// Focus restricts every probe to a subtree.
	Focus string

	// UseAnyCache accepts cached results regardless of GitHash.
	UseAnyCache bool
}

// WithDefaults returns c with unset fields filled.
func (c Config) WithDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.MaxRounds <= 0 {
		c.MaxRounds = DefaultMaxRounds
	}
	if c.CoverageThreshold <= 0 {
		c.CoverageThreshold = DefaultCoverageThreshold
	}
	if c.MergeModel == "" {
		c.MergeModel = c.Model
	}
	return c
}
