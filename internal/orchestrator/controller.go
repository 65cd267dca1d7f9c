package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dusk-indust/cartograph/internal/cache"
	"github.com/dusk-indust/cartograph/internal/graph"
	"github.com/dusk-indust/cartograph/internal/ident"
	"github.com/dusk-indust/cartograph/internal/merge"
	"github.com/dusk-indust/cartograph/internal/probe"
)

// Stop reasons that do not come from the merge engine.
const (
	ReasonNoTopics  = "no topics left to explore"
	ReasonMaxRounds = "max rounds reached"
	ReasonCanceled  = "canceled"
)

// Option configures a Controller.
type Option func(*Controller)

// WithCache enables the probe cache pre-filter and progress persistence.
func WithCache(c Cache) Option {
	return func(ctl *Controller) { ctl.cache = c }
}

// WithProgress routes progress events to pr.
func WithProgress(pr *ProgressReporter) Option {
	return func(ctl *Controller) { ctl.progress = pr }
}

// WithLogger sets the controller's logger.
func WithLogger(l *slog.Logger) Option {
	return func(ctl *Controller) {
		if l != nil {
			ctl.logger = l
		}
	}
}

// Controller runs the round state machine. Rounds never overlap; only the
// probes inside a round run concurrently.
type Controller struct {
	cfg      Config
	prober   Prober
	merger   Merger
	cache    Cache
	progress *ProgressReporter
	logger   *slog.Logger
	state    atomic.Int32
	round    atomic.Int32
}

// NewController creates a Controller. cfg is filled with defaults.
func NewController(cfg Config, prober Prober, merger Merger, opts ...Option) *Controller {
	c := &Controller{
		cfg:    cfg.WithDefaults(),
		prober: prober,
		merger: merger,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current state. Safe to call while Run is in flight.
func (c *Controller) State() State { return State(c.state.Load()) }

// Round returns the round in progress, or the last completed one.
func (c *Controller) Round() int { return int(c.round.Load()) }

// Config returns the effective configuration.
func (c *Controller) Config() Config { return c.cfg }

// Run explores seeds until convergence, exhaustion, cancellation or the
// round cap. ctx is only checked between rounds; calls already in flight
// run to their own timeouts.
func (c *Controller) Run(ctx context.Context, seeds []graph.TopicSeed) *Outcome {
	c.setState(StateIdle)
	out := &Outcome{Graph: graph.EmptyGraph()}
	var current *graph.ModuleGraph

	topics := normalizeSeeds(seeds)
	var probed []string
	work := context.WithoutCancel(ctx)

	for round := 1; ; round++ {
		if len(topics) == 0 {
			c.finish(out, StateConverged, ReasonNoTopics)
			out.Converged = true
			break
		}
		if ctx.Err() != nil {
			c.finish(out, StateCanceled, ReasonCanceled)
			break
		}

		c.round.Store(int32(round))
		c.setState(StateProbing)
		c.progress.emit(ProgressEvent{Round: round, Status: ProgressWorking, Message: FormatRoundHeader(round, c.cfg.MaxRounds, len(topics))})
		c.logger.Info("round started", "round", round, "topics", len(topics))

		results := c.probeRound(work, round, topics, out)
		for _, t := range topics {
			probed = append(probed, t.Topic)
		}

		c.setState(StateMerging)
		c.progress.emit(ProgressEvent{Round: round, Status: ProgressMerging, Message: fmt.Sprintf("%d results", len(results))})
		res := c.merger.Merge(work, merge.Request{
			RepoPath: c.cfg.RepoPath,
			Results:  results,
			Existing: current,
			Probed:   append([]string(nil), probed...),
			Model:    c.cfg.MergeModel,
			Timeout:  c.cfg.MergeTimeout,
		})
		merge.CarryOver(&res.Graph, current)
		graph.Normalize(&res.Graph)
		current = &res.Graph

		out.Graph = res.Graph
		out.Rounds = round
		out.Coverage = res.Coverage
		c.logger.Info("round merged",
			"round", round,
			"modules", len(res.Graph.Modules),
			"new_topics", len(res.NewTopics),
			"coverage", res.Coverage,
			"converged", res.Converged,
		)

		var next []graph.TopicSeed
		switch {
		case res.Converged:
			out.Converged = true
			c.finish(out, StateConverged, res.Reason)
		case res.Coverage >= c.cfg.CoverageThreshold && len(res.NewTopics) == 0:
			out.Converged = true
			c.finish(out, StateConverged, fmt.Sprintf("coverage %.2f reached threshold %.2f", res.Coverage, c.cfg.CoverageThreshold))
		case round >= c.cfg.MaxRounds:
			c.finish(out, StateMaxRoundsReached, ReasonMaxRounds)
		default:
			c.setState(StateNextRound)
			next = normalizeSeeds(res.NewTopics)
		}

		c.saveProgress(round, probed, next, out)
		if out.State.Terminal() {
			break
		}
		topics = next
	}

	c.logger.Info("exploration finished",
		"state", out.State,
		"rounds", out.Rounds,
		"modules", len(out.Graph.Modules),
		"reason", out.Reason,
	)
	return out
}

// probeRound partitions topics into cache hits and misses, runs the misses
// and returns one result per topic in topic order. Failed results are merged
// but never cached, so the next run retries them.
func (c *Controller) probeRound(ctx context.Context, round int, topics []graph.TopicSeed, out *Outcome) []graph.ProbeResult {
	results := make([]graph.ProbeResult, len(topics))
	var misses []int
	for i, seed := range topics {
		if res, ok := c.lookup(seed.Topic); ok {
			res.Topic = seed.Topic
			results[i] = res
			out.CacheHits++
			c.progress.emit(ProgressEvent{Round: round, Topic: seed.Topic, Status: ProgressCached})
			continue
		}
		misses = append(misses, i)
		c.progress.emit(ProgressEvent{Round: round, Topic: seed.Topic, Status: ProgressPending})
	}
	out.Probes += len(misses)

	opts := probe.Options{Model: c.cfg.Model, Timeout: c.cfg.ProbeTimeout, Focus: c.cfg.Focus}
	fresh := RunBounded(ctx, c.logger, misses, c.cfg.Concurrency, func(ctx context.Context, idx int) graph.ProbeResult {
		seed := topics[idx]
		c.progress.emit(ProgressEvent{Round: round, Topic: seed.Topic, Status: ProgressWorking})
		start := time.Now()

		res := c.prober.Run(ctx, c.cfg.RepoPath, seed, opts)
		res.Topic = seed.Topic
		if res.Failed {
			c.progress.emit(ProgressEvent{Round: round, Topic: seed.Topic, Status: ProgressFailed, Message: "no result"})
			return res
		}
		if c.cache != nil {
			if err := c.cache.Save(seed.Topic, res, c.cfg.GitHash); err != nil {
				c.logger.Warn("cache write failed", "topic", seed.Topic, "err", err)
			}
		}
		c.progress.emit(ProgressEvent{
			Round:   round,
			Topic:   seed.Topic,
			Status:  ProgressComplete,
			Message: fmt.Sprintf("%d modules in %s", len(res.FoundModules), time.Since(start).Round(time.Millisecond)),
		})
		return res
	})

	for j, idx := range misses {
		res := fresh[j]
		if res.Topic == "" {
			res = graph.FailedProbeResult(topics[idx].Topic)
		}
		results[idx] = res
	}
	return results
}

func (c *Controller) lookup(topic string) (graph.ProbeResult, bool) {
	if c.cache == nil {
		return graph.ProbeResult{}, false
	}
	if c.cfg.UseAnyCache {
		return c.cache.GetAny(topic)
	}
	return c.cache.Get(topic, c.cfg.GitHash)
}

func (c *Controller) saveProgress(round int, completed []string, pending []graph.TopicSeed, out *Outcome) {
	if c.cache == nil {
		return
	}
	mode := cache.ModeFresh
	if c.cfg.UseAnyCache {
		mode = cache.ModeUseCache
	}
	pendingTopics := make([]string, 0, len(pending))
	for _, p := range pending {
		pendingTopics = append(pendingTopics, p.Topic)
	}
	meta := cache.ProgressMetadata{
		GitHash:         c.cfg.GitHash,
		Mode:            mode,
		CurrentRound:    round,
		MaxRounds:       c.cfg.MaxRounds,
		CompletedTopics: append([]string(nil), completed...),
		PendingTopics:   pendingTopics,
		Converged:       out.Converged,
		Coverage:        out.Coverage,
	}
	if err := c.cache.SaveProgress(meta); err != nil {
		c.logger.Warn("progress write failed", "round", round, "err", err)
	}
}

func (c *Controller) finish(out *Outcome, s State, reason string) {
	out.State = s
	out.Reason = reason
	c.setState(s)
}

func (c *Controller) setState(s State) {
	c.state.Store(int32(s))
}

// normalizeSeeds canonicalizes topic ids and drops repeats, first wins.
func normalizeSeeds(seeds []graph.TopicSeed) []graph.TopicSeed {
	out := make([]graph.TopicSeed, 0, len(seeds))
	seen := make(map[string]bool, len(seeds))
	for _, s := range seeds {
		s.Topic = ident.Normalize(s.Topic)
		if seen[s.Topic] {
			continue
		}
		seen[s.Topic] = true
		out = append(out, s)
	}
	return out
}
