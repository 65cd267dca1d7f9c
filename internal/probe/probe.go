// Package probe runs one exploration task for one topic.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dusk-indust/cartograph/internal/engine"
	"github.com/dusk-indust/cartograph/internal/graph"
	"github.com/dusk-indust/cartograph/internal/response"
)

// DefaultTimeout bounds a single probe's engine call.
const DefaultTimeout = 120 * time.Second

// Options configures one probe.
type Options struct {
	Model   string
	Timeout time.Duration
	// Focus restricts exploration to a repository subtree.
	Focus string
}

// Executor runs probes against an injected engine. A nil engine is
// treated as unavailable.
type Executor struct {
	engine engine.Engine
	logger *slog.Logger
}

// NewExecutor creates an Executor.
func NewExecutor(eng engine.Engine, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{engine: eng, logger: logger}
}

// Run probes seed.Topic in repoPath. It never fails: any engine, timeout
// or parse failure yields graph.FailedProbeResult for the topic.
func (e *Executor) Run(ctx context.Context, repoPath string, seed graph.TopicSeed, opts Options) (result graph.ProbeResult) {
	topic := seed.Topic
	log := e.logger.With("topic", topic)

	defer func() {
		if r := recover(); r != nil {
			log.Error("probe panicked", "panic", r)
			result = graph.FailedProbeResult(topic)
		}
	}()

	if e.engine == nil {
		log.Warn("probe skipped", "kind", engine.ErrEngineUnavailable)
		return graph.FailedProbeResult(topic)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	start := time.Now()
	res, err := engine.InvokeWithin(ctx, e.engine, BuildPrompt(seed, opts.Focus), engine.InvokeOptions{
		WorkingDirectory: repoPath,
		Capabilities:     engine.ReadOnly(),
		Gate:             engine.ReadOnlyGate,
		Model:            opts.Model,
		Timeout:          timeout,
	})
	if err != nil {
		log.Warn("probe failed", "kind", engine.Classify(err), "err", err, "elapsed", time.Since(start))
		return graph.FailedProbeResult(topic)
	}
	if !res.Success {
		log.Warn("probe failed", "kind", engine.ErrEngineFailure, "err", res.Error, "elapsed", time.Since(start))
		return graph.FailedProbeResult(topic)
	}

	parsed, warnings, err := response.ParseProbeResult(res.Response, "probe:"+topic)
	if err != nil {
		var pe *response.ParseError
		kind := err
		if errors.As(err, &pe) {
			kind = pe.Kind
		}
		log.Warn("probe response rejected", "kind", kind, "err", err)
		return graph.FailedProbeResult(topic)
	}
	response.LogWarnings(log, warnings)

	parsed.Topic = topic
	log.Debug("probe complete",
		"modules", len(parsed.FoundModules),
		"discovered", len(parsed.DiscoveredTopics),
		"confidence", parsed.Confidence,
		"elapsed", time.Since(start),
	)
	return parsed
}

// BuildPrompt renders the exploration instructions for one topic.
func BuildPrompt(seed graph.TopicSeed, focus string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Explore the repository for the architectural topic %q.\n", seed.Topic)
	if seed.Description != "" {
		fmt.Fprintf(&b, "Topic description: %s\n", seed.Description)
	}
	if len(seed.Hints) > 0 {
		fmt.Fprintf(&b, "Search hints: %s\n", strings.Join(seed.Hints, ", "))
	}
	if focus != "" {
		fmt.Fprintf(&b, "Restrict exploration to the subtree %q.\n", focus)
	}
	b.WriteString(`
Identify the modules that implement this topic. For each module report a stable id,
a name, its directory path, its purpose, the key files and the evidence you found.
Also report related topics worth exploring next and the ids of modules this topic depends on.

Answer with one JSON object:
{
  "topic": "<topic>",
  "foundModules": [{"id": "", "name": "", "path": "", "purpose": "", "keyFiles": [], "evidence": "", "lineRanges": [[1, 10]]}],
  "discoveredTopics": [{"topic": "", "description": "", "hints": [], "source": ""}],
  "dependencies": [],
  "confidence": 0.0
}
`)
	return b.String()
}
