// Package orchestrator drives exploration rounds until the module graph
// converges or the round cap is reached.
package orchestrator

import (
	"context"

	"github.com/dusk-indust/cartograph/internal/cache"
	"github.com/dusk-indust/cartograph/internal/graph"
	"github.com/dusk-indust/cartograph/internal/merge"
	"github.com/dusk-indust/cartograph/internal/probe"
)

// State is the controller's position in the round state machine.
type State int32

const (
	StateIdle State = iota
	StateProbing
	StateMerging
	StateNextRound
	StateConverged
	StateMaxRoundsReached
	StateCanceled
)

func (s State) String() string {
	names := [...]string{
		"idle",
		"probing",
		"merging",
		"next-round",
		"converged",
		"max-rounds-reached",
		"canceled",
	}
	if int(s) >= 0 && int(s) < len(names) {
		return names[s]
	}
	return "unknown"
}

// Terminal reports whether s ends a run.
func (s State) Terminal() bool {
	return s == StateConverged || s == StateMaxRoundsReached || s == StateCanceled
}

// Prober explores one topic. Implementations must contain their own
// failures and always return a result, setting Failed on contained
// failures. Every result not flagged is cached.
type Prober interface {
	Run(ctx context.Context, repoPath string, seed graph.TopicSeed, opts probe.Options) graph.ProbeResult
}

// Merger folds a round of results into the graph. Implementations must
// contain their own failures.
type Merger interface {
	Merge(ctx context.Context, req merge.Request) graph.MergeResult
}

// Cache is the probe result store consulted before every round.
type Cache interface {
	Get(topic, hash string) (graph.ProbeResult, bool)
	GetAny(topic string) (graph.ProbeResult, bool)
	Save(topic string, result graph.ProbeResult, hash string) error
	SaveProgress(meta cache.ProgressMetadata) error
}

// Outcome is the result of a full run. Graph is always well formed.
type Outcome struct {
	Graph     graph.ModuleGraph
	Rounds    int
	Converged bool
	Coverage  float64
	Reason    string
	State     State
	// Probes counts probe executions; CacheHits counts topics served from
	// the cache instead.
	Probes    int
	CacheHits int
}

// ProgressEvent is emitted to the user while a run is in flight.
type ProgressEvent struct {
	Round   int
	Topic   string
	Status  ProgressStatus
	Message string
}

// ProgressStatus is the state of one topic within a round.
type ProgressStatus string

const (
	ProgressPending  ProgressStatus = "pending"
	ProgressWorking  ProgressStatus = "working"
	ProgressCached   ProgressStatus = "cached"
	ProgressComplete ProgressStatus = "complete"
	ProgressFailed   ProgressStatus = "failed"
	ProgressMerging  ProgressStatus = "merging"
)
