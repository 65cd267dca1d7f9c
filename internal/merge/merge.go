// Package merge folds a round of probe results into the accumulated
// module graph, either through the analysis engine or locally.
package merge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dusk-indust/cartograph/internal/engine"
	"github.com/dusk-indust/cartograph/internal/graph"
	"github.com/dusk-indust/cartograph/internal/ident"
	"github.com/dusk-indust/cartograph/internal/response"
)

// DefaultTimeout bounds the remote merge call.
const DefaultTimeout = 180 * time.Second

// FallbackPrefix starts the reason of every locally merged result.
const FallbackPrefix = "Local merge fallback: "

// errDegenerate marks a remote merge that dropped every found module.
var errDegenerate = errors.New("remote merge returned no modules")

// Request is the input of one merge step.
type Request struct {
	RepoPath string
	Results  []graph.ProbeResult
	// Existing is the graph accumulated so far; nil before the first merge.
	Existing *graph.ModuleGraph
	// Probed lists topics already dispatched. New topics matching any of
	// them are dropped.
	Probed  []string
	Model   string
	Timeout time.Duration
}

// Merger runs merges against an injected engine. A nil engine always
// merges locally.
type Merger struct {
	engine engine.Engine
	logger *slog.Logger
}

// New creates a Merger.
func New(eng engine.Engine, logger *slog.Logger) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{engine: eng, logger: logger}
}

// Merge never fails; every remote failure falls back to LocalMerge.
func (m *Merger) Merge(ctx context.Context, req Request) (result graph.MergeResult) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("merge panicked", "panic", r)
			result = LocalMerge(req, fmt.Sprintf("panic: %v", r))
		}
	}()

	if m.engine == nil {
		return LocalMerge(req, engine.ErrEngineUnavailable.Error())
	}

	res, err := m.remote(ctx, req)
	if err != nil {
		m.logger.Warn("remote merge failed, merging locally", "kind", kindOf(err), "err", err)
		return LocalMerge(req, err.Error())
	}
	return res
}

func (m *Merger) remote(ctx context.Context, req Request) (graph.MergeResult, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	prompt, err := BuildPrompt(req)
	if err != nil {
		return graph.MergeResult{}, err
	}

	start := time.Now()
	out, err := engine.InvokeWithin(ctx, m.engine, prompt, engine.InvokeOptions{
		WorkingDirectory: req.RepoPath,
		Capabilities:     engine.ReadOnly(),
		Gate:             engine.ReadOnlyGate,
		Model:            req.Model,
		Timeout:          timeout,
	})
	if err != nil {
		return graph.MergeResult{}, fmt.Errorf("%w: %w", engine.Classify(err), err)
	}
	if !out.Success {
		return graph.MergeResult{}, fmt.Errorf("%w: %s", engine.ErrEngineFailure, out.Error)
	}

	res, warnings, err := response.ParseMergeResult(out.Response, "merge")
	if err != nil {
		return graph.MergeResult{}, err
	}
	response.LogWarnings(m.logger, warnings)

	if found := countFound(req.Results); found > 0 && len(res.Graph.Modules) == 0 {
		return graph.MergeResult{}, fmt.Errorf("%w (probes found %d)", errDegenerate, found)
	}

	CarryOver(&res.Graph, req.Existing)
	for _, id := range graph.Normalize(&res.Graph) {
		m.logger.Warn("duplicate module discarded", "context", "merge", "id", id)
	}
	res.NewTopics = filterTopics(res.NewTopics, probedSet(req.Probed))

	m.logger.Debug("remote merge complete",
		"modules", len(res.Graph.Modules),
		"new_topics", len(res.NewTopics),
		"coverage", res.Coverage,
		"converged", res.Converged,
		"elapsed", time.Since(start),
	)
	return res, nil
}

// LocalMerge deterministically folds req.Results into req.Existing.
// Coverage is always 0; the result converges iff no new topics surface.
func LocalMerge(req Request, cause string) graph.MergeResult {
	g := graph.EmptyGraph()
	if req.Existing != nil {
		g = req.Existing.Clone()
	}

	present := make(map[string]bool, len(g.Modules))
	for _, mod := range g.Modules {
		present[mod.ID] = true
	}
	declared := make(map[string]bool, len(g.Categories))
	for _, c := range g.Categories {
		declared[c.Name] = true
	}

	for _, pr := range req.Results {
		tag := graph.DefaultCategory
		if t := strings.TrimSpace(pr.Topic); t != "" {
			tag = ident.Normalize(t)
		}
		for _, fm := range pr.FoundModules {
			id := ident.Normalize(fm.ID)
			if present[id] {
				continue
			}
			present[id] = true
			g.Modules = append(g.Modules, graph.ModuleInfo{
				ID:           id,
				Name:         fm.Name,
				Path:         fm.Path,
				Purpose:      fm.Purpose,
				KeyFiles:     fm.KeyFiles,
				Dependencies: []string{},
				Dependents:   []string{},
				Complexity:   graph.ComplexityMedium,
				Category:     tag,
			})
			if !declared[tag] {
				declared[tag] = true
				g.Categories = append(g.Categories, graph.CategoryInfo{Name: tag})
			}
		}
	}
	graph.Normalize(&g)

	seen := probedSet(req.Probed)
	newTopics := []graph.TopicSeed{}
	for _, pr := range req.Results {
		for _, d := range pr.DiscoveredTopics {
			id := ident.Normalize(d.Topic)
			if seen[id] {
				continue
			}
			seen[id] = true
			seed := d.Seed()
			seed.Topic = id
			newTopics = append(newTopics, seed)
		}
	}

	return graph.MergeResult{
		Graph:     g,
		NewTopics: newTopics,
		Converged: len(newTopics) == 0,
		Coverage:  0,
		Reason:    FallbackPrefix + cause,
	}
}

// BuildPrompt renders the merge instructions with the round's results and
// the accumulated graph as JSON.
func BuildPrompt(req Request) (string, error) {
	results, err := json.MarshalIndent(req.Results, "", "  ")
	if err != nil {
		return "", fmt.Errorf("merge: encode results: %w", err)
	}
	existing := graph.EmptyGraph()
	if req.Existing != nil {
		existing = *req.Existing
	}
	current, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return "", fmt.Errorf("merge: encode graph: %w", err)
	}

	var b strings.Builder
	b.WriteString("Merge the probe results below into the existing module graph of this repository.\n")
	b.WriteString("Keep every existing module, add newly found ones, resolve dependencies between modules by id,\n")
	b.WriteString("group modules into categories and rate each module's complexity as low, medium or high.\n")
	b.WriteString("List topics that still need exploring as newTopics, estimate coverage between 0 and 1,\n")
	b.WriteString("and set converged to true when further exploration is unlikely to add modules.\n")
	if len(req.Probed) > 0 {
		fmt.Fprintf(&b, "Topics already explored: %s\n", strings.Join(req.Probed, ", "))
	}
	b.WriteString("\n## Probe results\n```json\n")
	b.Write(results)
	b.WriteString("\n```\n\n## Existing graph\n```json\n")
	b.Write(current)
	b.WriteString("\n```\n\n")
	b.WriteString(`Answer with one JSON object:
{
  "graph": {"project": {...}, "modules": [...], "categories": [...], "architectureNotes": ""},
  "newTopics": [{"topic": "", "description": "", "hints": []}],
  "converged": false,
  "coverage": 0.0,
  "reason": ""
}
`)
	return b.String(), nil
}

// CarryOver re-adds modules of prior that the remote merge dropped so the
// module count never decreases.
func CarryOver(g *graph.ModuleGraph, prior *graph.ModuleGraph) {
	if prior == nil {
		return
	}
	if g.Project.Name == "" {
		g.Project = prior.Clone().Project
	}
	have := make(map[string]bool, len(g.Modules))
	for _, mod := range g.Modules {
		have[mod.ID] = true
	}
	for _, mod := range prior.Clone().Modules {
		if !have[mod.ID] {
			g.Modules = append(g.Modules, mod)
		}
	}
	declared := make(map[string]bool, len(g.Categories))
	for _, c := range g.Categories {
		declared[c.Name] = true
	}
	for _, c := range prior.Categories {
		if !declared[c.Name] {
			g.Categories = append(g.Categories, c)
		}
	}
}

// filterTopics drops repeats and any topic in seen. seen holds every topic
// dispatched so far this run, not only the current round's, so a rediscovered
// topic is never scheduled twice.
func filterTopics(topics []graph.TopicSeed, seen map[string]bool) []graph.TopicSeed {
	out := make([]graph.TopicSeed, 0, len(topics))
	for _, t := range topics {
		id := ident.Normalize(t.Topic)
		if seen[id] {
			continue
		}
		seen[id] = true
		t.Topic = id
		out = append(out, t)
	}
	return out
}

func probedSet(topics []string) map[string]bool {
	set := make(map[string]bool, len(topics))
	for _, t := range topics {
		set[ident.Normalize(t)] = true
	}
	return set
}

func countFound(results []graph.ProbeResult) int {
	n := 0
	for _, r := range results {
		n += len(r.FoundModules)
	}
	return n
}

func kindOf(err error) error {
	var pe *response.ParseError
	switch {
	case errors.As(err, &pe):
		return pe.Kind
	case errors.Is(err, errDegenerate):
		return errDegenerate
	default:
		return engine.Classify(err)
	}
}
